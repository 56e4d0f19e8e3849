// Package diagfmt renders a diag.Bag to three output surfaces: a
// human-readable terminal form (Pretty), a machine-readable JSON form
// (JSON), and a SARIF-shaped adapter for CTU call stacks (Sarif).
package diagfmt
