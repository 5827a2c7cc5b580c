package vokal

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
vendors:
  transcriber:
    provider: mock
  agent:
    provider: mock
  speech:
    provider: mock
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Environment != "development" {
		t.Fatalf("expected default environment, got %q", cfg.Environment)
	}
	if cfg.Segment.SilenceMs != 1500 {
		t.Fatalf("expected default silence window, got %d", cfg.Segment.SilenceMs)
	}
	if cfg.Segment.RMSThreshold != 0.01 {
		t.Fatalf("expected default threshold, got %v", cfg.Segment.RMSThreshold)
	}
	if cfg.Turn.BargeInMultiplier != 3.0 {
		t.Fatalf("expected default multiplier, got %v", cfg.Turn.BargeInMultiplier)
	}
	if cfg.Audio.Source != "portaudio" || cfg.Audio.SampleRate != 16000 {
		t.Fatalf("unexpected audio defaults %+v", cfg.Audio)
	}
	if !cfg.Privacy.RedactPII {
		t.Fatalf("expected redaction on by default")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
log_level: debug
segment:
  silence_ms: 900
  thinking_silence_ms: 2500
turn:
  thinking_pace: true
vendors:
  transcriber:
    provider: deepgram
  agent:
    provider: sse
  speech:
    provider: deepgram
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Segment.SilenceMs != 900 || cfg.Segment.ThinkingSilenceMs != 2500 {
		t.Fatalf("expected overridden windows, got %+v", cfg.Segment)
	}
	if !cfg.Turn.ThinkingPace {
		t.Fatalf("expected thinking pace enabled")
	}
	// Untouched knobs keep their defaults.
	if cfg.Segment.MaxRecordMs != 15000 {
		t.Fatalf("expected default record cap, got %d", cfg.Segment.MaxRecordMs)
	}
}

func TestLoadConfigExpandsEnvInSettings(t *testing.T) {
	t.Setenv("TEST_VOKAL_KEY", "sk-12345")
	cfg, err := LoadConfig(writeConfig(t, `
vendors:
  transcriber:
    provider: deepgram
    settings:
      api_key: ${TEST_VOKAL_KEY}
  agent:
    provider: mock
  speech:
    provider: mock
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Vendors.Transcriber.Settings["api_key"]; got != "sk-12345" {
		t.Fatalf("expected env expansion, got %v", got)
	}
}

func TestLoadConfigRequiresProviders(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
vendors:
  transcriber:
    provider: mock
`))
	if err == nil {
		t.Fatalf("expected validation error for missing providers")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
