// Package driver orchestrates internal/valueflow and the internal/checks
// family over one or many translation units, using a per-file errgroup
// worker pool with no module-graph, symbol-table, or on-disk cache
// machinery — none of which this domain needs.
package driver
