package model

import (
	"bytes"
	"encoding/json"
)

// Optional is a JSON field that remembers whether it was sent and whether it was null.
//
//	absent:        Set=false
//	"field": null  Set=true, Null=true
//	"field": v     Set=true, Null=false, Value=v
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some builds a present, non-null Optional.
func Some[T any](v T) Optional[T] { return Optional[T]{Value: v, Set: true} }

// Null builds a present-as-null Optional.
func Null[T any]() Optional[T] { return Optional[T]{Set: true, Null: true} }

// Present reports a non-null value was supplied.
func (o Optional[T]) Present() bool { return o.Set && !o.Null }

// Ptr returns nil for null/absent, otherwise a pointer to a copy of the value.
func (o Optional[T]) Ptr() *T {
	if !o.Present() {
		return nil
	}
	v := o.Value
	return &v
}

// UnmarshalJSON is only invoked by encoding/json when the key exists, so Set is always true here.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON writes null for absent or null values.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
