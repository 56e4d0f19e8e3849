// Package valueflow is the forward propagation engine: it
// walks a function body's tokens and stamps every expression with a
// vflattice.ValueSet, applying ten fixed-order rules:
//
//  1. literal/constant folding
//  2. unconditional assignment
//  3. declaration without initializer
//  4. heap allocation effects (malloc/calloc/realloc)
//  5. condition-based refinement (if/while conditions narrow a value set)
//  6. loop fixed-point iteration, bounded by Options.LoopBudget
//  7. switch-arm merging
//  8. function-call effects from internal/libfacts
//  9. ternary / short-circuit merge
//  10. jump handling (return/break/continue/goto truncate a path)
//
// The engine never mutates a ctoken.Stream; it produces a separate Result
// keyed by ctoken.TokenID. Widening (invariant I3) and loop iteration
// budgets (invariant/property P5) are enforced centrally in vflattice and
// Options, never ad hoc inside a rule.
package valueflow
