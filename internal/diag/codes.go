package diag

import "fmt"

// Code is a stable numeric diagnostic identifier. The string form (ID) never
// changes meaning for a given value (invariant I5 of the dataflow engine).
type Code uint16

const (
	UnknownCode Code = 0

	// Uninitialized-variable family (§4.E).
	UninitVar          Code = 1001 // read of a plain uninitialized local/param
	UninitStructMember Code = 1002 // read of an uninitialized aggregate leaf member
	UninitData         Code = 1003 // read through a pointer to allocated-but-uninitialized memory
	UninitByRef        Code = 1004 // uninitialized value passed to a by-ref/by-value read use

	// Null-pointer family (§4.F).
	NullPointer           Code = 2001 // dereference of a possibly-null pointer
	NullPointerRedundant  Code = 2002 // redundant-condition-vs-possible-deref combined diagnostic
	NullPointerArithmetic Code = 2003 // pointer arithmetic on a possibly-null pointer
	NullPointerArgument   Code = 2004 // null passed to a library argument marked notnull

	// CTU family (§4.G/§4.H).
	CtuUninitVar   Code = 3001 // canonical CTU id for uninit join results
	CtuNullPointer Code = 3002 // canonical CTU id for null join results
	CtuInfoInvalid Code = 3003 // malformed CTU summary rejected by the join pass (§7)

	// Engine-internal (§7).
	InternalError Code = 4001 // invariant violation recovered to a single diagnostic

	// Informational/debug (engine degradation visibility, §7).
	DebugWidened Code = 5001 // a value set was widened to Top (debug-channel only)
	DebugSkipped Code = 5002 // an unrecognized construct fell back to Top
)

// legacy aliases kept for compatibility with earlier cppcheck-derived naming
//.
const (
	AliasUninitvarCtu   = CtuUninitVar
	AliasNullPointerCtu = CtuNullPointer
)

var codeDescription = map[Code]string{
	UnknownCode:           "unknown diagnostic",
	UninitVar:             "uninitialized variable",
	UninitStructMember:    "uninitialized struct member",
	UninitData:            "memory is allocated but not initialized",
	UninitByRef:           "uninitialized value used where a defined value is required",
	NullPointer:           "possible null pointer dereference",
	NullPointerRedundant:  "either the condition is redundant or there is possible null pointer dereference",
	NullPointerArithmetic: "pointer arithmetic with NULL pointer",
	NullPointerArgument:   "null pointer passed to a function argument that must not be null",
	CtuUninitVar:          "uninitialized variable passed to a function across translation units",
	CtuNullPointer:        "null pointer passed to a function across translation units",
	CtuInfoInvalid:        "cross-translation-unit summary could not be parsed",
	InternalError:         "internal analysis error",
	DebugWidened:          "value set widened to unknown",
	DebugSkipped:          "construct not recognized; falling back to unknown",
}

// ID renders the stable prefixed string form, e.g. "uninit1001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("uninit%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("null%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("ctu%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("internal%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("debug%04d", ic)
	}
	return "unknown0000"
}

// Name returns the short symbolic name used historically by the reference
// tool (e.g. "uninitvar", "nullPointer") rather than the numeric ID. Front
// ends and SARIF rule ids should prefer this over ID().
func (c Code) Name() string {
	switch c {
	case UninitVar:
		return "uninitvar"
	case UninitStructMember:
		return "uninitStructMember"
	case UninitData:
		return "uninitdata"
	case UninitByRef:
		return "uninitvar"
	case NullPointer:
		return "nullPointer"
	case NullPointerRedundant:
		return "nullPointerRedundantCheck"
	case NullPointerArithmetic:
		return "nullPointerArithmetic"
	case NullPointerArgument:
		return "nullPointer"
	case CtuUninitVar:
		return "ctuuninitvar"
	case CtuNullPointer:
		return "ctunullpointer"
	case CtuInfoInvalid:
		return "ctuinfo-invalid"
	case InternalError:
		return "internalError"
	default:
		return c.ID()
	}
}

// CWE returns the associated CWE number for codes that have a fixed one
// (invariant I5: severity and CWE of an id are fixed), or 0 if none applies.
func (c Code) CWE() int {
	switch c {
	case UninitVar, UninitStructMember, UninitData, UninitByRef, CtuUninitVar:
		return 457 // Use of Uninitialized Variable
	case NullPointer, NullPointerRedundant, NullPointerArithmetic, NullPointerArgument, CtuNullPointer:
		return 476 // NULL Pointer Dereference
	default:
		return 0
	}
}

func (c Code) Title() string {
	if desc, ok := codeDescription[c]; ok {
		return desc
	}
	return codeDescription[UnknownCode]
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.Name(), c.Title())
}
