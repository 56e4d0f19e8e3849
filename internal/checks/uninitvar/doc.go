// Package uninitvar reports reads of variables whose abstract value set
// still carries vflattice.Uninit, grounded on cppcheck's CheckUninitVar
// (lib/checkuninitvar.h): a variable is "used" when its value is read, and
// flagged only when the read happens before any write reaches it on the
// path the engine explored.
//
// Unlike cppcheck's isVariableUsage, which walks raw tokens, this check
// consumes internal/valueflow's already-computed per-token value sets. It
// skips a variable's declaration, assignment targets, and the base of a
// member access; any other position is flagged when the engine recorded
// Uninit (and not Impossible) for that exact token.
package uninitvar
