// Package ctu builds and joins cross-translation-unit summaries, grounded on
// cppcheck's CTU::FileInfo (original_source/lib/ctu.h): UnsafeUsage and
// FunctionCall/NestedCall records correspond 1:1 to that type's fields,
// generalized from cppcheck's per-check XML summary into one FileInfo per
// translation unit holding one FunctionSummary per function.
//
// The depth-bounded recursive join is grounded on internal/project/dag
// (graph.go/topo.go): both are a bounded traversal over a directed graph of
// identifiers with a cycle guard, here walking the call graph instead of the
// module dependency graph.
//
// BuildFileInfo examines a call's argument only when the call has exactly
// one argument (a comma-separated argument list yields neither a call fact
// nor a nested call), so every FunctionCall.ArgIndex and NestedCall.CallArgNr
// built here is 0 — a simplification of cppcheck's full variadic-argument
// model. UnsafeUsage.ArgIndex and NestedCall.MyArgNr carry the parameter's
// own index.
package ctu
