// Package libfacts holds per-function argument metadata consumed by the
// value-flow engine: which arguments must not be null, which
// are read/write/read-write through a pointer, which accept a printf-style
// format string, a minimum buffer size for an output argument, and whether
// the function never returns. The engine consumes already-parsed facts and
// does not itself parse the external library document that produces them
//.
package libfacts
