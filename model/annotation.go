package model

import (
	"encoding/json"
	"fmt"
)

// AnnotationInfo is a decoded annotation: its type name and element values.
type AnnotationInfo struct {
	Type       string
	Properties map[string]Value
}

// Value is a decoded annotation element value. The set of implementations
// is closed: Null, Bool, Number, String, Nested and List.
type Value interface {
	isValue()
}

// NumberWidth records the source width of a numeric annotation value.
type NumberWidth uint8

const (
	WidthByte NumberWidth = iota
	WidthShort
	WidthInt
	WidthLong
	WidthFloat
	WidthDouble
)

func (w NumberWidth) String() string {
	switch w {
	case WidthByte:
		return "byte"
	case WidthShort:
		return "short"
	case WidthInt:
		return "int"
	case WidthLong:
		return "long"
	case WidthFloat:
		return "float"
	case WidthDouble:
		return "double"
	}
	return fmt.Sprintf("width(%d)", uint8(w))
}

// IsFloat reports whether values of this width are held in Number.Float.
func (w NumberWidth) IsFloat() bool {
	return w == WidthFloat || w == WidthDouble
}

type (
	Null   struct{}
	Bool   bool
	String string
	List   []Value
	// Number holds integral widths in Int and floating point widths in Float.
	Number struct {
		Width NumberWidth
		Int   int64
		Float float64
	}
	// Nested is an annotation used as an element value.
	Nested AnnotationInfo
)

func (Null) isValue() {}
func (Bool) isValue() {}
func (String) isValue() {}
func (List) isValue() {}
func (Number) isValue() {}
func (Nested) isValue() {}

// IntNumber returns an integral Number of the given width.
func IntNumber(w NumberWidth, v int64) Number {
	return Number{Width: w, Int: v}
}

// FloatNumber returns a floating point Number of the given width.
func FloatNumber(w NumberWidth, v float64) Number {
	return Number{Width: w, Float: v}
}

// Plain converts a value into plain Go data: nil, bool, int64, float64,
// string, map[string]any (with "annotationType" set for nested annotations)
// or []any.
func Plain(v Value) any {
	switch v := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(v)
	case String:
		return string(v)
	case Number:
		if v.Width.IsFloat() {
			return v.Float
		}
		return v.Int
	case Nested:
		return AnnotationInfo(v).plain()
	case List:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Plain(item)
		}
		return out
	default:
		panic(fmt.Sprintf("model: unsupported annotation value %T", v))
	}
}

func (a AnnotationInfo) plain() map[string]any {
	props := make(map[string]any, len(a.Properties))
	for k, v := range a.Properties {
		props[k] = Plain(v)
	}
	return map[string]any{
		"annotationType": a.Type,
		"properties":     props,
	}
}

// MarshalJSON renders the annotation as {"annotationType": ..., "properties": {...}}.
func (a AnnotationInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.plain())
}
