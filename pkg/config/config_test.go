package config

import (
	"testing"

	"github.com/spackel-lang/spackel/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	if !cfg.IsFeatureEnabled(FeatUnsafe) || !cfg.IsFeatureEnabled(FeatMacros) {
		t.Error("features should default to enabled")
	}
	if !cfg.IsWarningEnabled(WarnUnusedFn) || !cfg.IsWarningEnabled(WarnEmptyBody) {
		t.Error("warnings should default to enabled")
	}
	if cfg.FeatureMap["unsafe"] != FeatUnsafe || cfg.WarningMap["unused-fn"] != WarnUnusedFn {
		t.Error("name maps not populated")
	}
}

func TestSetTarget(t *testing.T) {
	cfg := NewConfig()
	cfg.SetTarget("linux", "amd64", "riscv64-unknown-linux-gnu")
	if cfg.TargetTriple != "riscv64-unknown-linux-gnu" {
		t.Errorf("explicit triple not kept: %q", cfg.TargetTriple)
	}
}

func TestDefaultTriple(t *testing.T) {
	cases := []struct {
		goos, goarch, want string
	}{
		{"linux", "amd64", "x86_64-unknown-linux-gnu"},
		{"darwin", "arm64", "aarch64-apple-darwin"},
		{"windows", "386", "i686-pc-windows-gnu"},
	}
	for _, c := range cases {
		if got := defaultTriple(c.goos, c.goarch); got != c.want {
			t.Errorf("%s/%s = %q, want %q", c.goos, c.goarch, got, c.want)
		}
	}
}

func TestFlagGroupRoundTrip(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("test")
	warnings, features := cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wno-unused-fn", "-Fno-macros"}); err != nil {
		t.Fatal(err)
	}
	cfg.ApplyFlagGroups(warnings, features)
	if cfg.IsWarningEnabled(WarnUnusedFn) {
		t.Error("-Wno-unused-fn did not disable the warning")
	}
	if cfg.IsWarningEnabled(WarnEmptyBody) != true {
		t.Error("untouched warning lost its default")
	}
	if cfg.IsFeatureEnabled(FeatMacros) {
		t.Error("-Fno-macros did not disable the feature")
	}
	if !cfg.IsFeatureEnabled(FeatUnsafe) {
		t.Error("untouched feature lost its default")
	}
}
