package protocol

// Kwargs is an insertion-ordered set of keyword arguments. Go maps do not
// preserve insertion order, and some protocols (and the binding step's error
// messages) care about the order keywords arrived in, so the keys are kept
// in a side slice.
type Kwargs struct {
	keys []string
	vals map[string]any
}

// NewKwargs returns an empty keyword argument set.
func NewKwargs() *Kwargs {
	return &Kwargs{vals: make(map[string]any)}
}

// KwargsFrom builds a Kwargs from alternating name/value pairs, preserving
// the order given. It panics on an odd number of arguments or a non-string
// name; this is a programmer error at a call site, not runtime input.
func KwargsFrom(pairs ...any) *Kwargs {
	if len(pairs)%2 != 0 {
		panic("protocol: KwargsFrom requires name/value pairs")
	}
	kw := NewKwargs()
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic("protocol: KwargsFrom names must be strings")
		}
		kw.Set(name, pairs[i+1])
	}
	return kw
}

// Set inserts or replaces a keyword value. A replaced key keeps its original
// position.
func (k *Kwargs) Set(name string, value any) {
	if k.vals == nil {
		k.vals = make(map[string]any)
	}
	if _, exists := k.vals[name]; !exists {
		k.keys = append(k.keys, name)
	}
	k.vals[name] = value
}

// Get returns the value for name and whether it is present.
func (k *Kwargs) Get(name string) (any, bool) {
	if k == nil || k.vals == nil {
		return nil, false
	}
	v, ok := k.vals[name]
	return v, ok
}

// Len returns the number of keywords.
func (k *Kwargs) Len() int {
	if k == nil {
		return 0
	}
	return len(k.keys)
}

// Keys returns the keyword names in insertion order. The slice is a copy.
func (k *Kwargs) Keys() []string {
	if k == nil {
		return nil
	}
	out := make([]string, len(k.keys))
	copy(out, k.keys)
	return out
}

// ToMap returns an unordered map view, for handing to encoders that do not
// care about ordering.
func (k *Kwargs) ToMap() map[string]any {
	if k == nil {
		return nil
	}
	out := make(map[string]any, len(k.vals))
	for name, v := range k.vals {
		out[name] = v
	}
	return out
}
