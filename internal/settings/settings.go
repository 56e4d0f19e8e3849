package settings

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"ctucheck/internal/diag"
	"ctucheck/internal/driver"
)

// DefaultCTUDepthBound is the default cross-translation-unit call depth (2).
const DefaultCTUDepthBound = 2

// Settings is the fully-resolved configuration the engine runs with.
type Settings struct {
	EnabledChecks  map[string]bool
	Inconclusive   bool
	SeverityFilter diag.Severity
	WideningBound  int
	LoopBudget     int
	CTUDepthBound  int
	Timeout        time.Duration
	Jobs           int
}

// Default returns the built-in defaults with every check enabled.
func Default() Settings {
	return Settings{
		Inconclusive:   true,
		SeverityFilter: diag.SevStyle,
		WideningBound:  8,
		LoopBudget:     4,
		CTUDepthBound:  DefaultCTUDepthBound,
	}
}

// manifest is the on-disk .ctucheck.toml shape.
type manifest struct {
	Checks struct {
		Enable  []string `toml:"enable"`
		Disable []string `toml:"disable"`
	} `toml:"checks"`
	Engine struct {
		Inconclusive  *bool `toml:"inconclusive"`
		WideningBound int    `toml:"widening_bound"`
		LoopBudget    int    `toml:"loop_budget"`
	} `toml:"engine"`
	CTU struct {
		DepthBound int `toml:"depth_bound"`
	} `toml:"ctu"`
	Output struct {
		SeverityFilter string `toml:"severity_filter"`
		Timeout        string `toml:"timeout"`
	} `toml:"output"`
	Jobs int `toml:"jobs"`
}

// Load reads path and merges it over Default().
func Load(path string) (Settings, error) {
	s := Default()
	var m manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}

	if meta.IsDefined("checks", "enable") || meta.IsDefined("checks", "disable") {
		s.EnabledChecks = map[string]bool{"uninitvar": true, "nullpointer": true}
		for _, name := range m.Checks.Enable {
			s.EnabledChecks[name] = true
		}
		for _, name := range m.Checks.Disable {
			s.EnabledChecks[name] = false
		}
	}
	if m.Engine.Inconclusive != nil {
		s.Inconclusive = *m.Engine.Inconclusive
	}
	if meta.IsDefined("engine", "widening_bound") && m.Engine.WideningBound > 0 {
		s.WideningBound = m.Engine.WideningBound
	}
	if meta.IsDefined("engine", "loop_budget") && m.Engine.LoopBudget > 0 {
		s.LoopBudget = m.Engine.LoopBudget
	}
	if meta.IsDefined("ctu", "depth_bound") && m.CTU.DepthBound > 0 {
		s.CTUDepthBound = m.CTU.DepthBound
	}
	if meta.IsDefined("output", "severity_filter") {
		sev, ok := parseSeverity(m.Output.SeverityFilter)
		if !ok {
			return Settings{}, fmt.Errorf("%s: unknown severity %q", path, m.Output.SeverityFilter)
		}
		s.SeverityFilter = sev
	}
	if meta.IsDefined("output", "timeout") {
		d, parseErr := time.ParseDuration(m.Output.Timeout)
		if parseErr != nil {
			return Settings{}, fmt.Errorf("%s: invalid timeout %q: %w", path, m.Output.Timeout, parseErr)
		}
		s.Timeout = d
	}
	if meta.IsDefined("jobs") && m.Jobs > 0 {
		s.Jobs = m.Jobs
	}
	return s, nil
}

func parseSeverity(name string) (diag.Severity, bool) {
	switch name {
	case "debug":
		return diag.SevDebug, true
	case "information":
		return diag.SevInformation, true
	case "style":
		return diag.SevStyle, true
	case "portability":
		return diag.SevPortability, true
	case "performance":
		return diag.SevPerformance, true
	case "warning":
		return diag.SevWarning, true
	case "error":
		return diag.SevError, true
	default:
		return 0, false
	}
}

// ToDriverOptions converts Settings to the subset internal/driver consumes.
func (s Settings) ToDriverOptions() driver.Options {
	return driver.Options{
		Enabled:        s.EnabledChecks,
		Inconclusive:   s.Inconclusive,
		WideningBound:  s.WideningBound,
		LoopBudget:     s.LoopBudget,
		CTUDepthBound:  s.CTUDepthBound,
		MaxDiagnostics: 10000,
		Jobs:           s.Jobs,
	}
}
