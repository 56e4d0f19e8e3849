package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto chooses relative or absolute path automatically.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color        bool
	Context      int8
	PathMode     PathMode
	Width        uint8 // maximum line width, 0 = unbounded
	ShowNotes    bool
	ShowFixes    bool
	ShowPreview  bool
	ShowCallStack bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool
	PathMode         PathMode
	Max              int // output truncation, distinct from Bag's own cap
	IncludeNotes     bool
	IncludeFixes     bool
	IncludePreviews  bool
	IncludeCallStack bool
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}
