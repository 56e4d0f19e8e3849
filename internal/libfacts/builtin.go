package libfacts

// Builtin returns a Table seeded with facts for the small set of C standard
// library functions the checks specifically reason about (allocation,
// copying, and the scanf/printf family). This mirrors cppcheck's bundled
// std.cfg subset for the functions this engine's rules actually consume —
// everything else falls back to the engine's conservative defaults.
func Builtin() *Table {
	t := NewTable()

	t.Add(FunctionFacts{Name: "malloc"})
	t.Add(FunctionFacts{Name: "calloc"})
	t.Add(FunctionFacts{Name: "realloc", Args: map[int]ArgFacts{
		1: {Direction: DirectionInOut},
	}})
	t.Add(FunctionFacts{Name: "free", Args: map[int]ArgFacts{
		1: {Direction: DirectionIn},
	}})

	t.Add(FunctionFacts{Name: "memcpy", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut},
		2: {NotNull: true, Direction: DirectionIn},
	}})
	t.Add(FunctionFacts{Name: "memmove", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut},
		2: {NotNull: true, Direction: DirectionIn},
	}})
	t.Add(FunctionFacts{Name: "memset", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut},
	}})

	t.Add(FunctionFacts{Name: "strcpy", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut},
		2: {NotNull: true, Direction: DirectionIn},
	}})
	t.Add(FunctionFacts{Name: "strncpy", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut},
		2: {NotNull: true, Direction: DirectionIn},
	}})
	t.Add(FunctionFacts{Name: "strlen", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionIn},
	}})
	t.Add(FunctionFacts{Name: "strcmp", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionIn},
		2: {NotNull: true, Direction: DirectionIn},
	}})

	t.Add(FunctionFacts{Name: "scanf", UseRetval: true, Args: map[int]ArgFacts{
		1: {NotNull: true, FormatStr: true},
	}})
	t.Add(FunctionFacts{Name: "sscanf", UseRetval: true, Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionIn},
		2: {NotNull: true, FormatStr: true},
	}})
	t.Add(FunctionFacts{Name: "fscanf", UseRetval: true, Args: map[int]ArgFacts{
		2: {NotNull: true, FormatStr: true},
	}})

	t.Add(FunctionFacts{Name: "printf", Args: map[int]ArgFacts{
		1: {NotNull: true, FormatStr: true},
	}})
	t.Add(FunctionFacts{Name: "sprintf", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut},
		2: {NotNull: true, FormatStr: true},
	}})
	t.Add(FunctionFacts{Name: "snprintf", Args: map[int]ArgFacts{
		1: {NotNull: true, Direction: DirectionOut},
		3: {NotNull: true, FormatStr: true},
	}})
	t.Add(FunctionFacts{Name: "fprintf", Args: map[int]ArgFacts{
		1: {NotNull: true},
		2: {NotNull: true, FormatStr: true},
	}})

	t.Add(FunctionFacts{Name: "exit", NoReturn: true})
	t.Add(FunctionFacts{Name: "abort", NoReturn: true})
	t.Add(FunctionFacts{Name: "_exit", NoReturn: true})

	return t
}
