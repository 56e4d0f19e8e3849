// Package settings loads the engine-wide configuration (enabled checks,
// inconclusive reporting, severity filter, widening bound, loop iteration
// budget, CTU depth bound) from a .ctucheck.toml manifest, following the
// same directory walk-up and BurntSushi/toml decode pattern as surge.toml
// loading — the module-dependency-resolution semantics that loader also
// carried (git-fetched deps, import path normalization) have no analogue
// here and were not carried over.
package settings
