package segment

import "time"

// Config holds the amplitude and timing knobs for utterance segmentation.
// Thinking* variants apply in patient conversational modes where the user
// may pause mid-utterance.
type Config struct {
	SilenceMs                      int     `mapstructure:"silence_ms"`
	ThinkingSilenceMs              int     `mapstructure:"thinking_silence_ms"`
	RMSThreshold                   float64 `mapstructure:"rms_threshold"`
	MaxRecordMs                    int     `mapstructure:"max_record_ms"`
	ThinkingMaxRecordMs            int     `mapstructure:"thinking_max_record_ms"`
	MinBlobSize                    int     `mapstructure:"min_blob_size"`
	MinValidDurationMs             int     `mapstructure:"min_valid_duration_ms"`
	MinDurationBeforeSilenceStopMs int     `mapstructure:"min_duration_before_silence_stop_ms"`
}

func (c Config) withDefaults() Config {
	if c.SilenceMs <= 0 {
		c.SilenceMs = 1500
	}
	if c.ThinkingSilenceMs <= 0 {
		c.ThinkingSilenceMs = 3000
	}
	if c.RMSThreshold <= 0 {
		c.RMSThreshold = 0.01
	}
	if c.MaxRecordMs <= 0 {
		c.MaxRecordMs = 15000
	}
	if c.ThinkingMaxRecordMs <= 0 {
		c.ThinkingMaxRecordMs = 30000
	}
	if c.MinBlobSize <= 0 {
		c.MinBlobSize = 4000
	}
	if c.MinValidDurationMs <= 0 {
		c.MinValidDurationMs = 350
	}
	if c.MinDurationBeforeSilenceStopMs <= 0 {
		c.MinDurationBeforeSilenceStopMs = 700
	}
	return c
}

func (c Config) silence(thinking bool) time.Duration {
	if thinking {
		return time.Duration(c.ThinkingSilenceMs) * time.Millisecond
	}
	return time.Duration(c.SilenceMs) * time.Millisecond
}

func (c Config) maxRecord(thinking bool) time.Duration {
	if thinking {
		return time.Duration(c.ThinkingMaxRecordMs) * time.Millisecond
	}
	return time.Duration(c.MaxRecordMs) * time.Millisecond
}

func (c Config) grace() time.Duration {
	return time.Duration(c.MinDurationBeforeSilenceStopMs) * time.Millisecond
}

func (c Config) minValidDuration() time.Duration {
	return time.Duration(c.MinValidDurationMs) * time.Millisecond
}
