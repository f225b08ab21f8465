package config

import (
	"fmt"
	"os"
)

type Feature int

const (
	FeatUnsafe Feature = iota
	FeatMacros
	FeatCount
)

type Warning int

const (
	WarnUnusedFn Warning = iota
	WarnEmptyBody
	WarnShadowedMacro
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	TargetTriple string

	DumpSSA    bool
	EmitLLVM   bool
	LinkerArgs []string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatUnsafe: {"unsafe", true, "Allow 'unsafe ( ... ) ;' blocks and the words they gate."},
		FeatMacros: {"macros", true, "Allow 'macro' definitions."},
	}

	warnings := map[Warning]Info{
		WarnUnusedFn:      {"unused-fn", true, "A defined function is never called."},
		WarnEmptyBody:     {"empty-body", true, "A construct body is empty."},
		WarnShadowedMacro: {"shadowed-macro", true, "A macro shadows a function of the same name."},
		WarnExtra:         {"extra", true, "Extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

// SetTarget configures the target triple, defaulting to the host. Data
// layout is the assembler's business; the triple is all it needs.
func (c *Config) SetTarget(goos, goarch, triple string) {
	if triple == "" {
		triple = defaultTriple(goos, goarch)
		fmt.Fprintf(os.Stderr, "spackel: info: no target specified, defaulting to host target '%s'\n", triple)
	}
	c.TargetTriple = triple
}

func defaultTriple(goos, goarch string) string {
	arch := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
		"arm":   "arm",
	}[goarch]
	if arch == "" {
		arch = goarch
	}
	switch goos {
	case "darwin":
		return arch + "-apple-darwin"
	case "windows":
		return arch + "-pc-windows-gnu"
	default:
		return arch + "-unknown-" + goos + "-gnu"
	}
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }
