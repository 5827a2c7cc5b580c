package configutil

import (
	"strings"
	"testing"
)

type sampleSettings struct {
	APIKey    string `mapstructure:"api_key"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
	Verbose   bool   `mapstructure:"verbose"`
}

func TestDecodeSettingsNormalizedKeys(t *testing.T) {
	var out sampleSettings
	err := DecodeSettings(map[string]any{
		"API_KEY":    "abc",
		"timeout-ms": "250",
		"Verbose":    "true",
	}, &out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.APIKey != "abc" {
		t.Fatalf("expected api key decoded, got %q", out.APIKey)
	}
	if out.TimeoutMS != 250 {
		t.Fatalf("expected weakly typed int, got %d", out.TimeoutMS)
	}
	if !out.Verbose {
		t.Fatalf("expected weakly typed bool")
	}
}

func TestDecodeSettingsEmptyInput(t *testing.T) {
	var out sampleSettings
	if err := DecodeSettings(nil, &out); err != nil {
		t.Fatalf("expected nil input accepted: %v", err)
	}
}

func TestValidateSettingsMissingRequired(t *testing.T) {
	schema := Schema{Required: []string{"api_key"}, Optional: []string{"timeout_ms"}}
	err := ValidateSettings(map[string]any{"timeout_ms": 100}, schema)
	if err == nil || !strings.Contains(err.Error(), "missing: api_key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestValidateSettingsEmptyRequiredValue(t *testing.T) {
	schema := Schema{Required: []string{"api_key"}}
	err := ValidateSettings(map[string]any{"api_key": "  "}, schema)
	if err == nil || !strings.Contains(err.Error(), "missing: api_key") {
		t.Fatalf("expected blank required value rejected, got %v", err)
	}
}

func TestValidateSettingsUnknownKey(t *testing.T) {
	schema := Schema{Required: []string{"api_key"}}
	err := ValidateSettings(map[string]any{"api_key": "x", "typo_key": 1}, schema)
	if err == nil || !strings.Contains(err.Error(), "unknown: typo_key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}

	schema.AllowUnknown = true
	if err := ValidateSettings(map[string]any{"api_key": "x", "typo_key": 1}, schema); err != nil {
		t.Fatalf("expected unknown keys allowed: %v", err)
	}
}

func TestRequireString(t *testing.T) {
	if err := RequireString("value", "a.b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := RequireString("  ", "a.b"); err == nil {
		t.Fatalf("expected error for blank value")
	}
}
