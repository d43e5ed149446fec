package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// ValueState tags a Value as present, absent, or explicitly not applicable.
type ValueState uint8

const (
	// StateAbsent is the empty-sentinel: the field carries no information.
	StateAbsent ValueState = iota
	// StatePresent holds a meaningful value.
	StatePresent
	// StateNotApplicable marks a field that is legitimately "N/A" (display-class awards).
	StateNotApplicable
)

// String returns the state name.
func (s ValueState) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateNotApplicable:
		return "not_applicable"
	default:
		return "absent"
	}
}

// NotApplicableText is the display form of a not-applicable value.
const NotApplicableText = "N/A"

// Value is a tagged optional value. The zero Value is Absent.
type Value[T comparable] struct {
	state ValueState
	v     T
}

// Present wraps v as a present value.
func Present[T comparable](v T) Value[T] {
	return Value[T]{state: StatePresent, v: v}
}

// Absent returns the empty-sentinel for T.
func Absent[T comparable]() Value[T] {
	return Value[T]{}
}

// NotApplicable returns an explicit not-applicable marker for T.
func NotApplicable[T comparable]() Value[T] {
	return Value[T]{state: StateNotApplicable}
}

// State reports the tag.
func (v Value[T]) State() ValueState { return v.state }

// IsPresent reports whether v holds a value.
func (v Value[T]) IsPresent() bool { return v.state == StatePresent }

// IsAbsent reports whether v is the empty-sentinel.
func (v Value[T]) IsAbsent() bool { return v.state == StateAbsent }

// IsNotApplicable reports whether v is explicitly not applicable.
func (v Value[T]) IsNotApplicable() bool { return v.state == StateNotApplicable }

// Get returns the held value and whether it is present.
func (v Value[T]) Get() (T, bool) {
	return v.v, v.state == StatePresent
}

// OrZero returns the held value, or the zero T when not present.
func (v Value[T]) OrZero() T {
	if v.state != StatePresent {
		var zero T
		return zero
	}
	return v.v
}

// Ptr returns a pointer to the held value, or nil when not present.
// Used for nullable SQL columns.
func (v Value[T]) Ptr() *T {
	if v.state != StatePresent {
		return nil
	}
	out := v.v
	return &out
}

// FromPtr builds a Value from a nullable pointer.
func FromPtr[T comparable](p *T) Value[T] {
	if p == nil {
		return Absent[T]()
	}
	return Present(*p)
}

// Text renders the value for reports and correction entries.
func (v Value[T]) Text() string {
	switch v.state {
	case StatePresent:
		return fmt.Sprint(v.v)
	case StateNotApplicable:
		return NotApplicableText
	default:
		return ""
	}
}

func (v Value[T]) String() string { return v.Text() }

var (
	jsonNull          = []byte("null")
	jsonNotApplicable = []byte(`{"notApplicable":true}`)
)

// MarshalJSON encodes Absent as null, NotApplicable as {"notApplicable":true}
// and Present as the bare value.
func (v Value[T]) MarshalJSON() ([]byte, error) {
	switch v.state {
	case StatePresent:
		return json.Marshal(v.v)
	case StateNotApplicable:
		return jsonNotApplicable, nil
	default:
		return jsonNull, nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (v *Value[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonNull) {
		*v = Absent[T]()
		return nil
	}
	if data[0] == '{' {
		var marker struct {
			NotApplicable bool `json:"notApplicable"`
		}
		if err := json.Unmarshal(data, &marker); err != nil {
			return eris.Wrap(err, "model: decode value marker")
		}
		if !marker.NotApplicable {
			return eris.Errorf("model: unexpected object value %s", string(data))
		}
		*v = NotApplicable[T]()
		return nil
	}
	var inner T
	if err := json.Unmarshal(data, &inner); err != nil {
		return eris.Wrap(err, "model: decode value")
	}
	*v = Present(inner)
	return nil
}

// Text is a tagged string value.
type Text = Value[string]

// Int is a tagged integer value.
type Int = Value[int]

// Float is a tagged float value (morphometric fields, cm).
type Float = Value[float64]
