package vflattice

import "ctucheck/internal/ctoken"

// Tag is the sum-type discriminant for Value: a Kind-style discriminant
// with flat switch dispatch, no interfaces.
type Tag uint8

const (
	// Top stands for "could be anything" — the widened/unknown value.
	Top Tag = iota
	Known
	SymbolicRange
	Uninit
	Null
	NonNull
	ContainerSize
	Iterator
	TokSymbolic
)

func (t Tag) String() string {
	switch t {
	case Top:
		return "top"
	case Known:
		return "known"
	case SymbolicRange:
		return "range"
	case Uninit:
		return "uninit"
	case Null:
		return "null"
	case NonNull:
		return "nonnull"
	case ContainerSize:
		return "containerSize"
	case Iterator:
		return "iterator"
	case TokSymbolic:
		return "tokSymbolic"
	default:
		return "unknown"
	}
}

// PathTag is an opaque marker meaning "this value holds only along path P"
//. Zero means unconditional.
type PathTag uint32

// NoPathTag marks a value that holds unconditionally.
const NoPathTag PathTag = 0

// Value is one element of an abstract value set attached to a token.
type Value struct {
	Tag Tag

	// Known / SymbolicRange payload. For Known, Low == High.
	Low, High int64

	ContainerLen int64      // ContainerSize payload
	IterStart    TokenPos   // Iterator payload
	IterEnd      TokenPos   // Iterator payload
	Ref          ctoken.TokenID // TokSymbolic payload: the token whose value this tracks

	Path PathTag

	// Impossible, when true, means this Value is known NOT to hold
	//; false means "known to hold".
	Impossible bool
	// Inconclusive means propagation relied on an unverified assumption.
	Inconclusive bool
	// ErrorPath means reaching this value is itself what triggers a
	// diagnostic.
	ErrorPath bool
}

// TokenPos is a lightweight position marker used by Iterator values; it
// does not carry a full Span since only relative ordering matters here.
type TokenPos int64

// KnownValue builds a Known value for an integer literal.
func KnownValue(v int64) Value { return Value{Tag: Known, Low: v, High: v} }

// RangeValue builds a SymbolicRange value.
func RangeValue(low, high int64) Value { return Value{Tag: SymbolicRange, Low: low, High: high} }

// UninitValue builds an Uninit value, optionally marked error-path (a read
// of this value is itself the diagnostic trigger).
func UninitValue(errorPath bool) Value { return Value{Tag: Uninit, ErrorPath: errorPath} }

// NullValue builds a Null value.
func NullValue(errorPath bool) Value { return Value{Tag: Null, ErrorPath: errorPath} }

// NonNullValue builds a NonNull value.
func NonNullValue() Value { return Value{Tag: NonNull} }

// TopValue builds the widened/unknown marker.
func TopValue() Value { return Value{Tag: Top} }

// WithPath returns a copy of v tagged to path p.
func (v Value) WithPath(p PathTag) Value { v.Path = p; return v }

// WithInconclusive returns a copy of v with the inconclusive bit set.
func (v Value) WithInconclusive() Value { v.Inconclusive = true; return v }

// WithImpossible returns a copy of v marked "known not to hold".
func (v Value) WithImpossible() Value { v.Impossible = true; return v }

// Equal reports structural equality, ignoring nothing — two values with
// different path tags are distinct elements of a set.
func (v Value) Equal(o Value) bool {
	return v.Tag == o.Tag && v.Low == o.Low && v.High == o.High &&
		v.ContainerLen == o.ContainerLen && v.IterStart == o.IterStart && v.IterEnd == o.IterEnd &&
		v.Ref == o.Ref && v.Path == o.Path && v.Impossible == o.Impossible &&
		v.Inconclusive == o.Inconclusive && v.ErrorPath == o.ErrorPath
}

// ImpliesBound reports whether a Known/SymbolicRange value definitely
// overflows a buffer of the given size in bytes (the bound test of the
// strncpy decision in DESIGN.md Open Question #2; no check calls it).
func (v Value) ImpliesBound(sizeBytes int64) bool {
	if v.Tag != Known && v.Tag != SymbolicRange {
		return false
	}
	return v.Low >= sizeBytes
}
