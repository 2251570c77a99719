package app

import (
	"github.com/vk/relayrpc/services/clock"
	"github.com/vk/relayrpc/services/echo"
)

// coreMounts is the definitive list of services compiled into the relayrpc
// binary, used when NewApp is given no explicit mounts.
var coreMounts = []Mount{
	{Prefix: "", Service: echo.Service{}},
	{Prefix: "clock.", Service: clock.Service{}},
}
