// Package config loads the mascot's runtime configuration. Precedence is
// defaults, then the config file, then MASCOT_* environment variables; the
// CLI applies explicitly set flags on top.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Config is the root configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Skin    string        `mapstructure:"skin" env:"MASCOT_SKIN"`
	Loop    LoopConfig    `mapstructure:"loop"`
	Audio   AudioConfig   `mapstructure:"audio"`
	Server  ServerConfig  `mapstructure:"server"`
	Journal JournalConfig `mapstructure:"journal"`
	LLM     LLMConfig     `mapstructure:"llm"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" env:"MASCOT_LOG_LEVEL"`
	Format string `mapstructure:"format" env:"MASCOT_LOG_FORMAT"`
	File   string `mapstructure:"file" env:"MASCOT_LOG_FILE"`
}

// LoopConfig drives the per-frame host loop.
type LoopConfig struct {
	FPS int `mapstructure:"fps" env:"MASCOT_LOOP_FPS"`
	// Seed fixes the engine's random source; 0 seeds from the clock.
	Seed int64 `mapstructure:"seed" env:"MASCOT_LOOP_SEED"`
	// ThresholdPolicy overrides the skin's policy when set.
	ThresholdPolicy string `mapstructure:"threshold_policy" env:"MASCOT_LOOP_THRESHOLD_POLICY"`
}

type AudioConfig struct {
	Enabled    bool    `mapstructure:"enabled" env:"MASCOT_AUDIO_ENABLED"`
	Volume     float64 `mapstructure:"volume" env:"MASCOT_AUDIO_VOLUME"`
	SampleRate int     `mapstructure:"sample_rate" env:"MASCOT_AUDIO_SAMPLE_RATE"`
}

// ServerConfig configures the HTTP host.
type ServerConfig struct {
	Addr string `mapstructure:"addr" env:"MASCOT_SERVER_ADDR"`
	FPS  int    `mapstructure:"fps" env:"MASCOT_SERVER_FPS"`
	// TriggerRate and TriggerBurst throttle manual triggers per session.
	TriggerRate     float64       `mapstructure:"trigger_rate" env:"MASCOT_SERVER_TRIGGER_RATE"`
	TriggerBurst    int           `mapstructure:"trigger_burst" env:"MASCOT_SERVER_TRIGGER_BURST"`
	MaxSessions     int           `mapstructure:"max_sessions" env:"MASCOT_SERVER_MAX_SESSIONS"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" env:"MASCOT_SERVER_SHUTDOWN_TIMEOUT"`
}

type JournalConfig struct {
	// Path of the sqlite history database; empty disables the journal.
	Path string `mapstructure:"path" env:"MASCOT_JOURNAL_PATH"`
}

// LLMConfig configures the optional phrase improviser.
type LLMConfig struct {
	Enabled bool          `mapstructure:"enabled" env:"MASCOT_LLM_ENABLED"`
	BaseURL string        `mapstructure:"base_url" env:"MASCOT_LLM_BASE_URL"`
	Model   string        `mapstructure:"model" env:"MASCOT_LLM_MODEL"`
	Timeout time.Duration `mapstructure:"timeout" env:"MASCOT_LLM_TIMEOUT"`
}

// SetDefaults registers every key's default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("skin", "devil-imp")

	v.SetDefault("loop.fps", 30)
	v.SetDefault("loop.seed", 0)
	v.SetDefault("loop.threshold_policy", "")

	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.volume", 0.8)
	v.SetDefault("audio.sample_rate", 44100)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.fps", 20)
	v.SetDefault("server.trigger_rate", 1.0)
	v.SetDefault("server.trigger_burst", 3)
	v.SetDefault("server.max_sessions", 32)
	v.SetDefault("server.shutdown_timeout", "5s")

	v.SetDefault("journal.path", "")

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "phi3:mini")
	v.SetDefault("llm.timeout", "30s")
}

// Default returns the configuration with nothing but defaults applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config: bad defaults: %v", err))
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Load reads the configuration. With an empty file it looks for mascot.yaml
// (or .toml/.json) in the working directory and the user config directory,
// and carries on with defaults when there is none.
func Load(file string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("mascot")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "mascot"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and addresses.
func (c *Config) Validate() error {
	if c.Skin == "" {
		return errors.New("skin must be set")
	}
	if c.Loop.FPS <= 0 || c.Loop.FPS > 240 {
		return fmt.Errorf("loop.fps %d outside 1..240", c.Loop.FPS)
	}
	switch c.Loop.ThresholdPolicy {
	case "", "per_check", "per_reset":
	default:
		return fmt.Errorf("loop.threshold_policy %q must be per_check or per_reset", c.Loop.ThresholdPolicy)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio.volume %.2f outside [0,1]", c.Audio.Volume)
	}
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("audio.sample_rate must not be negative")
	}
	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		return fmt.Errorf("server.addr %q: %w", c.Server.Addr, err)
	}
	if c.Server.FPS <= 0 || c.Server.FPS > 120 {
		return fmt.Errorf("server.fps %d outside 1..120", c.Server.FPS)
	}
	if c.Server.TriggerRate <= 0 || c.Server.TriggerBurst <= 0 {
		return errors.New("server trigger rate and burst must be positive")
	}
	if c.Server.MaxSessions <= 0 {
		return errors.New("server.max_sessions must be positive")
	}
	if c.LLM.Enabled && c.LLM.BaseURL == "" {
		return errors.New("llm.base_url is required when llm is enabled")
	}
	return nil
}
