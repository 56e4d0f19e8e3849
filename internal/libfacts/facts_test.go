package libfacts

import "testing"

func TestBuiltinMemcpyArgFacts(t *testing.T) {
	b := Builtin()
	dest := b.ArgFactsFor("memcpy", 1)
	if !dest.NotNull || dest.Direction != DirectionOut {
		t.Fatalf("expected memcpy arg 1 to be NotNull/out, got %+v", dest)
	}
}

func TestLookupUnknownFunctionFallsBack(t *testing.T) {
	b := Builtin()
	if _, ok := b.Lookup("totally_unknown_fn"); ok {
		t.Fatalf("expected unknown function to be absent from the table")
	}
	if facts := b.ArgFactsFor("totally_unknown_fn", 1); facts != (ArgFacts{}) {
		t.Fatalf("expected zero-value facts for unknown function, got %+v", facts)
	}
}

func TestMergeOverridesBuiltin(t *testing.T) {
	b := Builtin()
	override := NewTable()
	override.Add(FunctionFacts{Name: "memcpy", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut, MinSize: 64},
	}})
	b.Merge(override)
	if got := b.ArgFactsFor("memcpy", 1).MinSize; got != 64 {
		t.Fatalf("expected merged override to take precedence, got MinSize=%d", got)
	}
}

func TestNoReturnFunctions(t *testing.T) {
	b := Builtin()
	f, ok := b.Lookup("exit")
	if !ok || !f.NoReturn {
		t.Fatalf("expected exit() to be marked NoReturn")
	}
}
