package ctu

import "ctucheck/internal/diag"

// FunctionID identifies a function by its external name, mirroring
// cppcheck's CTU::getFunctionId — this module assumes external C linkage
// (no two translation units define the same external name differently),
// which is what makes cross-TU joining meaningful in the first place.
type FunctionID string

// Location is a source position in CTU-summary form: a filename plus
// 1-based line/column, independent of any one run's source.FileSet, so the
// summary serializes to a stable byte string. Mirrors cppcheck's
// CTU::FileInfo::Location.
type Location struct {
	File   string `msgpack:"file"`
	Line   int    `msgpack:"line"`
	Column int    `msgpack:"column"`
}

// InvalidValueType classifies what an UnsafeUsage requires of its argument,
// mirroring cppcheck's CTU::FileInfo::InvalidValueType (the bufferOverflow
// member has no analogue here — only null/uninit are tracked).
type InvalidValueType uint8

const (
	InvalidNull InvalidValueType = iota
	InvalidUninit
)

// UnsafeUsage records a parameter consumed without a local guard on all
// paths from entry: "the parameter's value set at the use
// site must be the parameter's entry value".
type UnsafeUsage struct {
	CheckID   diag.Code        `msgpack:"checkId"`
	ArgIndex  int              `msgpack:"argIndex"`
	ParamName string           `msgpack:"paramName"`
	Invalid   InvalidValueType `msgpack:"invalid"`
	Location  Location         `msgpack:"location"`
}

// CallValueKind classifies the value a FunctionCall passes for its argument.
type CallValueKind uint8

const (
	CallNull CallValueKind = iota
	CallUninit
	CallKnown
)

// CallValue is the value a FunctionCall passes.
type CallValue struct {
	Kind  CallValueKind `msgpack:"kind"`
	Known int64         `msgpack:"known"`
}

// PathStep is one hop of a call fact's path preamble: a condition that had
// to hold for the value to reach the call site.
type PathStep struct {
	Location Location `msgpack:"location"`
	Note     string   `msgpack:"note"`
}

// FunctionCall is a call fact: an argument passed with a dangerous value
//.
type FunctionCall struct {
	CalleeID FunctionID `msgpack:"calleeId"`
	ArgIndex int        `msgpack:"argIndex"`
	Value    CallValue  `msgpack:"value"`
	Location Location   `msgpack:"location"`
	Path     []PathStep `msgpack:"path"`
}

// NestedCall records that, inside function MyID, the unsafe use of argument
// MyArgNr is itself forwarded unguarded into CallID's CallArgNr-th
// parameter — how the depth-bounded join (§4.H) continues past one hop,
// mirroring cppcheck's CTU::FileInfo::NestedCall.
type NestedCall struct {
	MyID      FunctionID `msgpack:"myId"`
	MyArgNr   int        `msgpack:"myArgNr"`
	CallID    FunctionID `msgpack:"callId"`
	CallArgNr int        `msgpack:"callArgNr"`
	Location  Location   `msgpack:"location"`
}

// FunctionSummary is one function's CTU contribution: what it does
// unsafely with its own parameters, what it forwards unguarded to callees,
// and what dangerous values it passes to calls it makes.
type FunctionSummary struct {
	FunctionID    FunctionID     `msgpack:"functionId"`
	UnsafeUsages  []UnsafeUsage  `msgpack:"unsafeUsages"`
	NestedCalls   []NestedCall   `msgpack:"nestedCalls"`
	FunctionCalls []FunctionCall `msgpack:"functionCalls"`
}

// FileInfo is one translation unit's CTU summary, a pure
// function of its tokens (invariant I6).
type FileInfo struct {
	Path      string            `msgpack:"path"`
	Functions []FunctionSummary `msgpack:"functions"`
}
