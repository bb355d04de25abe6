// Package extensions provides the two key-value stores carried by the
// application and every request context: Params, keyed by value type, and
// Locals, keyed by string. Both hold at most one value per key; storing
// under an existing key replaces the previous value.
package extensions

import "reflect"

// Params is a heterogeneous store keyed by the dynamic type of the value.
// It holds at most one value per type; Set with an existing type replaces
// the stored value.
type Params struct {
	values map[reflect.Type]any
}

// NewParams returns an empty Params store.
func NewParams() *Params {
	return &Params{values: make(map[reflect.Type]any)}
}

func (p *Params) set(t reflect.Type, v any) {
	if p.values == nil {
		p.values = make(map[reflect.Type]any)
	}
	p.values[t] = v
}

// Len reports the number of distinct types stored.
func (p *Params) Len() int {
	return len(p.values)
}

// Combine copies every entry of other into p, overwriting entries of the
// same type. Used at route registration to inherit ancestor params.
func (p *Params) Combine(other *Params) {
	if other == nil {
		return
	}
	for t, v := range other.values {
		p.set(t, v)
	}
}

// Clone returns a shallow copy of the store.
func (p *Params) Clone() *Params {
	c := NewParams()
	c.Combine(p)
	return c
}

// SetParam stores value under its concrete type, replacing any previous
// value of the same type.
func SetParam[T any](p *Params, value T) {
	p.set(reflect.TypeOf((*T)(nil)).Elem(), value)
}

// GetParam retrieves the value stored under type T. The second return is
// false when no value of that exact type is present.
func GetParam[T any](p *Params) (T, bool) {
	var zero T
	if p == nil || p.values == nil {
		return zero, false
	}
	v, ok := p.values[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// TakeParam removes and returns the value stored under type T.
func TakeParam[T any](p *Params) (T, bool) {
	var zero T
	if p == nil || p.values == nil {
		return zero, false
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	v, ok := p.values[t]
	if !ok {
		return zero, false
	}
	delete(p.values, t)
	return v.(T), true
}

// Locals is a string-keyed store of arbitrary values. It holds at most one
// value per key; Set with an existing key replaces the stored value.
type Locals struct {
	values map[string]any
}

// NewLocals returns an empty Locals store.
func NewLocals() *Locals {
	return &Locals{values: make(map[string]any)}
}

// Set stores value under key, replacing any previous value.
func (l *Locals) Set(key string, value any) {
	if l.values == nil {
		l.values = make(map[string]any)
	}
	l.values[key] = value
}

// Get returns the value stored under key.
func (l *Locals) Get(key string) (any, bool) {
	if l == nil || l.values == nil {
		return nil, false
	}
	v, ok := l.values[key]
	return v, ok
}

// Take removes and returns the value stored under key.
func (l *Locals) Take(key string) (any, bool) {
	if l == nil || l.values == nil {
		return nil, false
	}
	v, ok := l.values[key]
	if ok {
		delete(l.values, key)
	}
	return v, ok
}

// Keys lists the stored keys in unspecified order.
func (l *Locals) Keys() []string {
	keys := make([]string, 0, len(l.values))
	for k := range l.values {
		keys = append(keys, k)
	}
	return keys
}

// Combine copies every entry of other into l, overwriting same-key entries.
func (l *Locals) Combine(other *Locals) {
	if other == nil {
		return
	}
	for k, v := range other.values {
		l.Set(k, v)
	}
}

// GetLocal retrieves the value under key only when it has type T.
func GetLocal[T any](l *Locals, key string) (T, bool) {
	var zero T
	v, ok := l.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
