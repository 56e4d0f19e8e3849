package ctu

import (
	"fmt"
	"sort"

	"ctucheck/internal/diag"
	"ctucheck/internal/source"
)

// usageChain is one path from a direct callee to the UnsafeUsage that
// ultimately makes a call fact dangerous, recorded as the NestedCall hops
// walked to reach it.
type usageChain struct {
	usage UnsafeUsage
	hops  []NestedCall
}

// Join correlates FunctionCall facts against UnsafeUsage summaries across
// every supplied FileInfo, forwarding through NestedCall hops up to
// depthBound levels, and emits one diagnostic per matching, deduplicated
// call stack. A nil FileInfo (a summary that failed to
// deserialize) contributes a ctuinfo-invalid diagnostic instead of
// aborting the whole join.
func Join(infos []*FileInfo, depthBound, maxDiagnostics int, fs *source.FileSet) *diag.Bag {
	if depthBound <= 0 {
		depthBound = 2
	}
	if maxDiagnostics <= 0 {
		maxDiagnostics = 10000
	}
	bag := diag.NewBag(maxDiagnostics)

	usages := make(map[FunctionID][]UnsafeUsage)
	nested := make(map[FunctionID][]NestedCall)
	var calls []FunctionCall

	for _, info := range infos {
		if info == nil {
			bag.Add(invalidSummaryDiagnostic())
			continue
		}
		for _, fn := range info.Functions {
			usages[fn.FunctionID] = append(usages[fn.FunctionID], fn.UnsafeUsages...)
			nested[fn.FunctionID] = append(nested[fn.FunctionID], fn.NestedCalls...)
			calls = append(calls, fn.FunctionCalls...)
		}
	}

	// Determinism: diagnostics follow their call facts, ordered by (callee
	// id, argument index, caller file, line, column).
	sort.SliceStable(calls, func(i, j int) bool {
		a, b := calls[i], calls[j]
		if a.CalleeID != b.CalleeID {
			return a.CalleeID < b.CalleeID
		}
		if a.ArgIndex != b.ArgIndex {
			return a.ArgIndex < b.ArgIndex
		}
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		return a.Location.Column < b.Location.Column
	})

	seen := make(map[string]bool)
	var out []*diag.Diagnostic
	for _, call := range calls {
		for _, chain := range reachableUsages(call.CalleeID, call.ArgIndex, depthBound, usages, nested) {
			if !valueMatchesUsage(call.Value, chain.usage) {
				continue
			}
			key := diagnosticKey(call, chain)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, buildDiagnostic(call, chain, fs))
		}
	}

	for _, d := range out {
		bag.Add(d)
	}
	return bag
}

// reachableUsages walks the call graph rooted at callee/argIndex up to
// depthBound hops, collecting every UnsafeUsage reachable on that argument
// position, guarding against cycles the same way a module-dependency graph
// guards cycles: a visited set, not unbounded recursion.
func reachableUsages(callee FunctionID, argIndex, depthBound int, usages map[FunctionID][]UnsafeUsage, nested map[FunctionID][]NestedCall) []usageChain {
	return reach(callee, argIndex, depthBound, usages, nested, nil, make(map[FunctionID]bool))
}

func reach(fnID FunctionID, argIndex, depthLeft int, usages map[FunctionID][]UnsafeUsage, nested map[FunctionID][]NestedCall, hops []NestedCall, visited map[FunctionID]bool) []usageChain {
	if visited[fnID] {
		return nil
	}
	visited[fnID] = true
	defer delete(visited, fnID)

	var out []usageChain
	for _, u := range usages[fnID] {
		if u.ArgIndex != argIndex {
			continue
		}
		out = append(out, usageChain{usage: u, hops: append([]NestedCall(nil), hops...)})
	}
	if depthLeft <= 0 {
		return out
	}
	for _, nc := range nested[fnID] {
		if nc.MyArgNr != argIndex {
			continue
		}
		out = append(out, reach(nc.CallID, nc.CallArgNr, depthLeft-1, usages, nested, append(hops, nc), visited)...)
	}
	return out
}

func valueMatchesUsage(v CallValue, u UnsafeUsage) bool {
	switch v.Kind {
	case CallNull:
		return u.Invalid == InvalidNull
	case CallUninit:
		return u.Invalid == InvalidUninit
	default:
		// CallKnown: a value-range payload match has no UnsafeUsage
		// counterpart in this module (no range-bearing unsafe usage is ever
		// built — see build.go); never matches.
		return false
	}
}

func diagnosticKey(call FunctionCall, chain usageChain) string {
	s := fmt.Sprintf("%s#%d@%s:%d:%d", call.CalleeID, call.ArgIndex, call.Location.File, call.Location.Line, call.Location.Column)
	for _, hop := range chain.hops {
		s += fmt.Sprintf(">%s@%s:%d:%d", hop.CallID, hop.Location.File, hop.Location.Line, hop.Location.Column)
	}
	s += fmt.Sprintf(">%s@%s:%d:%d", chain.usage.ParamName, chain.usage.Location.File, chain.usage.Location.Line, chain.usage.Location.Column)
	return s
}

func buildDiagnostic(call FunctionCall, chain usageChain, fs *source.FileSet) *diag.Diagnostic {
	code := diag.CtuNullPointer
	valueWord := "null"
	if chain.usage.Invalid == InvalidUninit {
		code = diag.CtuUninitVar
		valueWord = "uninitialized"
	}

	primary, _ := toSpan(fs, call.Location)
	d := diag.New(diag.SevWarning, code, primary,
		fmt.Sprintf("Passing %s value to %s(), which uses it without checking", valueWord, call.CalleeID)).
		WithVerbose(fmt.Sprintf("argument %d of %s() is %s here and reaches an unchecked use inside the callee", call.ArgIndex, call.CalleeID, valueWord))

	stack := []diag.Location{{Span: primary, Hint: fmt.Sprintf("called here, argument is %s", valueWord)}}
	calleeID := call.CalleeID
	for _, hop := range chain.hops {
		sp, _ := toSpan(fs, hop.Location)
		stack = append(stack, diag.Location{Span: sp, Hint: fmt.Sprintf("%s forwards the argument to %s() unchecked", calleeID, hop.CallID)})
		calleeID = hop.CallID
	}
	usageSpan, _ := toSpan(fs, chain.usage.Location)
	stack = append(stack, diag.Location{Span: usageSpan, Hint: fmt.Sprintf("%s is used here without a guard", chain.usage.ParamName)})

	d = d.WithCallStack(stack...)
	return &d
}

func invalidSummaryDiagnostic() *diag.Diagnostic {
	d := diag.New(diag.SevWarning, diag.CtuInfoInvalid, source.Span{}, "cross-translation-unit summary could not be parsed; skipping it")
	return &d
}

// toSpan recovers a source.Span for loc within fs, reconstructing the byte
// offset from its 1-based line/column via the file's line index (the
// inverse of source.FileSet.Resolve) — CTU summaries only carry line/column
// because they must remain stable across runs and processes,
// so a shared FileSet is required to turn one back into a renderable Span.
func toSpan(fs *source.FileSet, loc Location) (source.Span, bool) {
	if fs == nil {
		return source.Span{}, false
	}
	f, ok := fs.GetByPath(loc.File)
	if !ok {
		return source.Span{}, false
	}
	off := offsetOf(f, loc.Line, loc.Column)
	return source.Span{File: f.ID, Start: off, End: off + 1}, true
}

func offsetOf(f *source.File, line, col int) uint32 {
	if line <= 1 {
		return uint32(col - 1)
	}
	idx := line - 2
	if idx < 0 || idx >= len(f.LineIdx) {
		return uint32(len(f.Content))
	}
	return f.LineIdx[idx] + 1 + uint32(col-1)
}
