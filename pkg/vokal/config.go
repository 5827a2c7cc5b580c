package vokal

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/vokal-ai/vokal/pkg/segment"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Segment       segment.Config      `mapstructure:"segment"`
	Turn          TurnConfig          `mapstructure:"turn"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type AudioConfig struct {
	Source     string `mapstructure:"source"`
	SampleRate int    `mapstructure:"sample_rate"`
	WSAddr     string `mapstructure:"ws_addr"`
	WSPath     string `mapstructure:"ws_path"`
}

type TurnConfig struct {
	BargeInMultiplier float64 `mapstructure:"barge_in_multiplier"`
	ThinkingPace      bool    `mapstructure:"thinking_pace"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	Transcriber VendorConfig `mapstructure:"transcriber"`
	Agent       VendorConfig `mapstructure:"agent"`
	Speech      VendorConfig `mapstructure:"speech"`
}

type ObservabilityConfig struct {
	ArtifactsDir  string `mapstructure:"artifacts_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("audio.source", "portaudio")
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.ws_addr", "127.0.0.1:8090")
	v.SetDefault("audio.ws_path", "/audio")
	v.SetDefault("segment.silence_ms", 1500)
	v.SetDefault("segment.thinking_silence_ms", 3000)
	v.SetDefault("segment.rms_threshold", 0.01)
	v.SetDefault("segment.max_record_ms", 15000)
	v.SetDefault("segment.thinking_max_record_ms", 30000)
	v.SetDefault("segment.min_blob_size", 4000)
	v.SetDefault("segment.min_valid_duration_ms", 350)
	v.SetDefault("segment.min_duration_before_silence_stop_ms", 700)
	v.SetDefault("turn.barge_in_multiplier", 3.0)
	v.SetDefault("turn.thinking_pace", false)
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	cfg.Vendors.Transcriber.Settings = expandSettings(cfg.Vendors.Transcriber.Settings)
	cfg.Vendors.Agent.Settings = expandSettings(cfg.Vendors.Agent.Settings)
	cfg.Vendors.Speech.Settings = expandSettings(cfg.Vendors.Speech.Settings)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.Transcriber.Provider) == "" {
		return fmt.Errorf("vendors.transcriber.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Agent.Provider) == "" {
		return fmt.Errorf("vendors.agent.provider is required")
	}
	if strings.TrimSpace(c.Vendors.Speech.Provider) == "" {
		return fmt.Errorf("vendors.speech.provider is required")
	}
	return nil
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, vv := range val {
			val[k] = expandAny(vv)
		}
		return val
	default:
		return v
	}
}
