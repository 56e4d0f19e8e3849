// Package nullpointer reports pointer dereferences whose abstract value set
// contains vflattice.Null, grounded on the dereference and redundant-guard
// scenarios exercised by cppcheck's test/testnullpointer.cpp.
//
// Four diagnostics are produced from the same underlying signal:
//   - NullPointer: a dereference (*p, p->m) where Null is still possible.
//   - NullPointerRedundant: an if-condition that tests a pointer for null
//     after that same pointer was already reported as a possibly-null
//     dereference, reported at the condition with a note at the dereference
//     — the "either the condition is redundant or there is possible null
//     pointer dereference" message cppcheck is known for.
//   - NullPointerArithmetic: p + n or p - n on a possibly-null pointer.
//   - NullPointerArgument: a possibly-null argument passed where the
//     library facts mark the parameter NotNull.
package nullpointer
