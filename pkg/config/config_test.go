package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zen-systems/routecheck/pkg/schema"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if len(cfg.Expectations) != 4 {
		t.Errorf("len(Expectations) = %d, want 4", len(cfg.Expectations))
	}
	if !cfg.Telemetry || !cfg.Vote {
		t.Errorf("Telemetry/Vote = %v/%v, want both on by default", cfg.Telemetry, cfg.Vote)
	}
	if cfg.VoteStrategy() != schema.StrategySimpleMajority {
		t.Errorf("VoteStrategy() = %v, want %v", cfg.VoteStrategy(), schema.StrategySimpleMajority)
	}

	seen := make(map[string]bool)
	for _, exp := range cfg.Expectations {
		if seen[exp.Category] {
			t.Errorf("duplicate category %q in defaults", exp.Category)
		}
		seen[exp.Category] = true
	}
}

func TestLoadEmptyPath(t *testing.T) {
	clearEnvOverrides(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if len(cfg.Expectations) != 4 {
		t.Errorf("len(Expectations) = %d, want defaults", len(cfg.Expectations))
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnvOverrides(t)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Load(missing) error = nil, want read error")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "oracle.yaml")
	data := []byte(`expectations:
  - category: code-generation
    task: Implement a queue
    prefer: code
    expected: codex
    acceptable: [codex]
vote: false
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Expectations) != 1 {
		t.Fatalf("len(Expectations) = %d, want file value 1", len(cfg.Expectations))
	}
	if cfg.Expectations[0].Category != CategoryCodeGeneration {
		t.Errorf("Category = %q, want %q", cfg.Expectations[0].Category, CategoryCodeGeneration)
	}
	if cfg.Vote {
		t.Errorf("Vote = true, want file value false")
	}
	// Keys absent from the file keep defaults.
	if !cfg.Telemetry {
		t.Errorf("Telemetry = false, want default true")
	}
	if cfg.Strategy != string(schema.StrategySimpleMajority) {
		t.Errorf("Strategy = %q, want default", cfg.Strategy)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("ROUTECHECK_ENDPOINT", "http://localhost:7777/rpc")
	t.Setenv("ROUTECHECK_STRATEGY", "unanimous")
	t.Setenv("ROUTECHECK_TIMEOUT_SECONDS", "15")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.Endpoint != "http://localhost:7777/rpc" {
		t.Errorf("Remote.Endpoint = %q, want env value", cfg.Remote.Endpoint)
	}
	if cfg.VoteStrategy() != schema.StrategyUnanimous {
		t.Errorf("VoteStrategy() = %v, want %v", cfg.VoteStrategy(), schema.StrategyUnanimous)
	}
	if cfg.Remote.TimeoutSeconds != 15 {
		t.Errorf("Remote.TimeoutSeconds = %d, want 15", cfg.Remote.TimeoutSeconds)
	}
}

func TestLoadRejectsBadStrategy(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("ROUTECHECK_STRATEGY", "plurality")

	if _, err := Load(""); err == nil {
		t.Errorf("Load() error = nil, want strategy error")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "empty expectations allowed", mutate: func(c *Config) { c.Expectations = nil }},
		{name: "bad strategy", mutate: func(c *Config) { c.Strategy = "plurality" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.Remote.TimeoutSeconds = -1 }, wantErr: true},
		{
			name: "endpoint and command together",
			mutate: func(c *Config) {
				c.Remote.Endpoint = "http://localhost/rpc"
				c.Remote.Command = "router-service"
			},
			wantErr: true,
		},
		{
			name:    "invalid expectation",
			mutate:  func(c *Config) { c.Expectations[0].Acceptable = nil },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpectationValidate(t *testing.T) {
	valid := func() Expectation {
		return Expectation{
			Category:   CategoryQuickAnswers,
			Task:       "Quick lookup: default port?",
			Prefer:     schema.CapabilitySpeed,
			Expected:   "gemini-flash",
			Acceptable: []string{"gemini-flash"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Expectation)
		wantErr bool
	}{
		{name: "valid", mutate: func(e *Expectation) {}},
		{name: "missing category", mutate: func(e *Expectation) { e.Category = " " }, wantErr: true},
		{name: "missing task", mutate: func(e *Expectation) { e.Task = "" }, wantErr: true},
		{name: "bad capability", mutate: func(e *Expectation) { e.Prefer = "vision" }, wantErr: true},
		{name: "missing expected", mutate: func(e *Expectation) { e.Expected = "" }, wantErr: true},
		{name: "empty acceptable", mutate: func(e *Expectation) { e.Acceptable = []string{} }, wantErr: true},
		{name: "blank acceptable entry", mutate: func(e *Expectation) { e.Acceptable = []string{" "} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := valid()
			tt.mutate(&exp)
			err := exp.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	t.Setenv("ROUTECHECK_ENDPOINT", "")
	t.Setenv("ROUTECHECK_TOKEN", "")
	t.Setenv("ROUTECHECK_COMMAND", "")
	t.Setenv("ROUTECHECK_STRATEGY", "")
	t.Setenv("ROUTECHECK_TIMEOUT_SECONDS", "")
}
