package ctu

import (
	"testing"

	"ctucheck/internal/diag"
)

func TestJoinMatchesCallFactWithUnsafeUsage(t *testing.T) {
	a := &FileInfo{
		Path: "a.c",
		Functions: []FunctionSummary{{
			FunctionID: "use",
			UnsafeUsages: []UnsafeUsage{
				{CheckID: diag.CtuUninitVar, ArgIndex: 0, ParamName: "p", Invalid: InvalidUninit, Location: Location{File: "a.c", Line: 2, Column: 5}},
			},
		}},
	}
	b := &FileInfo{
		Path: "b.c",
		Functions: []FunctionSummary{{
			FunctionID: "main",
			FunctionCalls: []FunctionCall{
				{CalleeID: "use", ArgIndex: 0, Value: CallValue{Kind: CallUninit}, Location: Location{File: "b.c", Line: 3, Column: 5}},
			},
		}},
	}

	bag := Join([]*FileInfo{a, b}, 2, 0, nil)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
	d := bag.Items()[0]
	if d.Code != diag.CtuUninitVar {
		t.Fatalf("Code = %v, want CtuUninitVar", d.Code)
	}
	if len(d.CallStack) != 2 {
		t.Fatalf("expected a 2-hop call stack (call site + unsafe use), got %d", len(d.CallStack))
	}
}

func TestJoinDropsCallFactWithoutMatchingUsage(t *testing.T) {
	a := &FileInfo{
		Path: "a.c",
		Functions: []FunctionSummary{{
			FunctionID:   "use",
			UnsafeUsages: []UnsafeUsage{{ArgIndex: 0, ParamName: "p", Invalid: InvalidNull, Location: Location{File: "a.c", Line: 2, Column: 5}}},
		}},
	}
	b := &FileInfo{
		Path: "b.c",
		Functions: []FunctionSummary{{
			FunctionID:    "main",
			FunctionCalls: []FunctionCall{{CalleeID: "use", ArgIndex: 0, Value: CallValue{Kind: CallUninit}, Location: Location{File: "b.c", Line: 3, Column: 5}}},
		}},
	}

	bag := Join([]*FileInfo{a, b}, 2, 0, nil)
	if bag.Len() != 0 {
		t.Fatalf("expected no diagnostics when value kind doesn't match usage kind, got %d", bag.Len())
	}
}

func TestJoinAddsCtuInfoInvalidForNilSummary(t *testing.T) {
	bag := Join([]*FileInfo{nil}, 2, 0, nil)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", bag.Len())
	}
	if bag.Items()[0].Code != diag.CtuInfoInvalid {
		t.Fatalf("Code = %v, want CtuInfoInvalid", bag.Items()[0].Code)
	}
}

func TestJoinForwardsThroughNestedCallsWithinDepthBound(t *testing.T) {
	leaf := &FileInfo{
		Path: "leaf.c",
		Functions: []FunctionSummary{{
			FunctionID:   "inner",
			UnsafeUsages: []UnsafeUsage{{ArgIndex: 0, ParamName: "q", Invalid: InvalidNull, Location: Location{File: "leaf.c", Line: 2, Column: 5}}},
		}},
	}
	mid := &FileInfo{
		Path: "mid.c",
		Functions: []FunctionSummary{{
			FunctionID: "outer",
			NestedCalls: []NestedCall{
				{MyID: "outer", MyArgNr: 0, CallID: "inner", CallArgNr: 0, Location: Location{File: "mid.c", Line: 4, Column: 5}},
			},
		}},
	}
	caller := &FileInfo{
		Path: "caller.c",
		Functions: []FunctionSummary{{
			FunctionID:    "main",
			FunctionCalls: []FunctionCall{{CalleeID: "outer", ArgIndex: 0, Value: CallValue{Kind: CallNull}, Location: Location{File: "caller.c", Line: 6, Column: 5}}},
		}},
	}

	bag := Join([]*FileInfo{leaf, mid, caller}, 2, 0, nil)
	if bag.Len() != 1 {
		t.Fatalf("expected 1 diagnostic forwarded through one nested-call hop, got %d", bag.Len())
	}
	if len(bag.Items()[0].CallStack) != 3 {
		t.Fatalf("expected a 3-hop call stack (call site, forward, unsafe use), got %d", len(bag.Items()[0].CallStack))
	}
}

func TestJoinStopsAtDepthBound(t *testing.T) {
	leaf := &FileInfo{
		Path: "leaf.c",
		Functions: []FunctionSummary{{
			FunctionID:   "inner",
			UnsafeUsages: []UnsafeUsage{{ArgIndex: 0, ParamName: "q", Invalid: InvalidNull, Location: Location{File: "leaf.c", Line: 2, Column: 5}}},
		}},
	}
	mid2 := &FileInfo{
		Path: "mid2.c",
		Functions: []FunctionSummary{{
			FunctionID:  "mid2fn",
			NestedCalls: []NestedCall{{MyID: "mid2fn", MyArgNr: 0, CallID: "inner", CallArgNr: 0, Location: Location{File: "mid2.c", Line: 2, Column: 5}}},
		}},
	}
	mid1 := &FileInfo{
		Path: "mid1.c",
		Functions: []FunctionSummary{{
			FunctionID:  "outer",
			NestedCalls: []NestedCall{{MyID: "outer", MyArgNr: 0, CallID: "mid2fn", CallArgNr: 0, Location: Location{File: "mid1.c", Line: 4, Column: 5}}},
		}},
	}
	caller := &FileInfo{
		Path: "caller.c",
		Functions: []FunctionSummary{{
			FunctionID:    "main",
			FunctionCalls: []FunctionCall{{CalleeID: "outer", ArgIndex: 0, Value: CallValue{Kind: CallNull}, Location: Location{File: "caller.c", Line: 6, Column: 5}}},
		}},
	}

	bag := Join([]*FileInfo{leaf, mid1, mid2, caller}, 1, 0, nil)
	if bag.Len() != 0 {
		t.Fatalf("expected depth bound 1 to stop one hop short of the unsafe usage, got %d diagnostics", bag.Len())
	}

	bag = Join([]*FileInfo{leaf, mid1, mid2, caller}, 2, 0, nil)
	if bag.Len() != 1 {
		t.Fatalf("expected depth bound 2 to reach the unsafe usage, got %d diagnostics", bag.Len())
	}
}
