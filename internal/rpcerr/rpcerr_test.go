package rpcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	err := New(-32001, "quota exceeded", nil)
	assert.Equal(t, "rpc error -32001: quota exceeded", err.Error())
}

func TestKindConstructors(t *testing.T) {
	assert.Equal(t, CodeMethodNotFound, MethodNotFound().Code)
	assert.Equal(t, CodeInternal, Internal().Code)
	assert.Equal(t, CodeParse, Parse("bad byte").Code)
	assert.Equal(t, CodeInvalidRequest, InvalidRequest("no method").Code)

	ip := InvalidParams("too many positional arguments")
	assert.Equal(t, CodeInvalidParams, ip.Code)
	assert.Equal(t, "too many positional arguments", ip.Data)
}

func TestInternalCarriesNoDetail(t *testing.T) {
	err := Internal()
	assert.Equal(t, "Internal error", err.Message)
	assert.Nil(t, err.Data)
}

func TestServerCodeBand(t *testing.T) {
	e, err := Server(-32050)
	require.NoError(t, err)
	assert.Equal(t, -32050, e.Code)

	_, err = Server(-31999)
	assert.Error(t, err)
	_, err = Server(-32100)
	assert.Error(t, err)
}

func TestFromError_Wrapped(t *testing.T) {
	domain := New(-32010, "not enough credit", nil)
	wrapped := fmt.Errorf("charging account: %w", domain)

	got, ok := FromError(wrapped)
	require.True(t, ok)
	assert.Same(t, domain, got)
}

func TestFromError_Plain(t *testing.T) {
	_, ok := FromError(errors.New("disk on fire"))
	assert.False(t, ok)
}
