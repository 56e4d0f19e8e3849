// Package vflattice is the abstract value lattice the engine propagates
//: a tagged union over Known/SymbolicRange/Uninit/Null/
// NonNull/ContainerSize/Iterator/TokSymbolic, each carrying a path-condition
// tag, a possible/impossible bit, an inconclusive bit, and an error-path
// bit. Values form a lattice under set union (Join); meet is set
// intersection (Meet). A ValueSet degrades to Top when it would otherwise
// exceed the configured widening bound (invariant I3).
package vflattice
