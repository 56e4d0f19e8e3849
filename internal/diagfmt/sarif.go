package diagfmt

import (
	"encoding/json"
	"io"

	"ctucheck/internal/diag"
	"ctucheck/internal/source"
)

// SARIF (Static Analysis Results Interchange Format) type definitions,
// shaped after the pack's govulncheck sarif.go: one Result per diagnostic
// here rather than govulncheck's one Result per OSV, and CodeFlows/
// ThreadFlows carry a CTU diagnostic's call stack rather
// than a vulnerable-symbol call path.

type sarifLog struct {
	Version string     `json:"version"`
	Schema  string      `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool      `json:"tool"`
	Results []sarifResult  `json:"results,omitempty"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"semanticVersion,omitempty"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []sarifRule `json:"rules,omitempty"`
}

type sarifRule struct {
	ID               string            `json:"id"`
	ShortDescription sarifDescription  `json:"shortDescription,omitempty"`
	FullDescription  sarifDescription  `json:"fullDescription,omitempty"`
	Properties       sarifRuleProperties `json:"properties,omitempty"`
}

type sarifRuleProperties struct {
	Severity string `json:"severity,omitempty"`
}

type sarifDescription struct {
	Text string `json:"text,omitempty"`
}

type sarifResult struct {
	RuleID    string             `json:"ruleId"`
	Level     string             `json:"level"`
	Message   sarifDescription   `json:"message"`
	Locations []sarifLocation    `json:"locations,omitempty"`
	CodeFlows []sarifCodeFlow    `json:"codeFlows,omitempty"`
}

type sarifCodeFlow struct {
	ThreadFlows []sarifThreadFlow `json:"threadFlows"`
}

type sarifThreadFlow struct {
	Locations []sarifThreadFlowLocation `json:"locations"`
}

type sarifThreadFlowLocation struct {
	Location sarifLocation `json:"location"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
	Message          sarifDescription      `json:"message,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine,omitempty"`
	StartColumn uint32 `json:"startColumn,omitempty"`
	EndLine     uint32 `json:"endLine,omitempty"`
	EndColumn   uint32 `json:"endColumn,omitempty"`
}

// sarifLevel maps a diag.Severity onto SARIF's four result levels
// ("error", "warning", "note", "none").
func sarifLevel(sev diag.Severity) string {
	switch {
	case sev >= diag.SevError:
		return "error"
	case sev >= diag.SevWarning:
		return "warning"
	case sev >= diag.SevStyle:
		return "note"
	default:
		return "none"
	}
}

func sarifURI(f *source.File, fs *source.FileSet) string {
	return f.FormatPath("relative", fs.BaseDir())
}

func sarifLocationFor(span source.Span, hint string, fs *source.FileSet) sarifLocation {
	f := fs.Get(span.File)
	start, end := fs.Resolve(span)
	loc := sarifLocation{
		PhysicalLocation: sarifPhysicalLocation{
			ArtifactLocation: sarifArtifactLocation{URI: sarifURI(f, fs)},
			Region: sarifRegion{
				StartLine:   start.Line,
				StartColumn: start.Col,
				EndLine:     end.Line,
				EndColumn:   end.Col,
			},
		},
	}
	if hint != "" {
		loc.Message = sarifDescription{Text: hint}
	}
	return loc
}

// BuildSarifLog builds the SARIF log structure without serializing it.
func BuildSarifLog(bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) sarifLog {
	items := bag.Items()

	seenRules := make(map[string]bool)
	rules := make([]sarifRule, 0)
	results := make([]sarifResult, 0, len(items))

	for _, d := range items {
		ruleID := d.Code.Name()
		if !seenRules[ruleID] {
			seenRules[ruleID] = true
			rules = append(rules, sarifRule{
				ID:               ruleID,
				ShortDescription: sarifDescription{Text: d.Message},
				FullDescription:  sarifDescription{Text: d.VerboseMessage()},
				Properties:       sarifRuleProperties{Severity: d.Severity.String()},
			})
		}

		result := sarifResult{
			RuleID:  ruleID,
			Level:   sarifLevel(d.Severity),
			Message: sarifDescription{Text: d.Message},
			Locations: []sarifLocation{
				sarifLocationFor(d.Primary, "", fs),
			},
		}

		if len(d.CallStack) > 0 {
			hops := make([]sarifThreadFlowLocation, 0, len(d.CallStack)+1)
			hops = append(hops, sarifThreadFlowLocation{Location: sarifLocationFor(d.Primary, "reported here", fs)})
			for _, hop := range d.CallStack {
				hops = append(hops, sarifThreadFlowLocation{Location: sarifLocationFor(hop.Span, hop.Hint, fs)})
			}
			result.CodeFlows = []sarifCodeFlow{
				{ThreadFlows: []sarifThreadFlow{{Locations: hops}}},
			}
		}

		results = append(results, result)
	}

	toolName := meta.ToolName
	if toolName == "" {
		toolName = "ctucheck"
	}

	return sarifLog{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    toolName,
						Version: meta.ToolVersion,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}
}

// Sarif writes bag's diagnostics as a SARIF 2.1.0 log, with
// a diagnostic's CallStack rendered as a SARIF codeFlow/threadFlow chain.
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	log := BuildSarifLog(bag, fs, meta)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(log)
}
