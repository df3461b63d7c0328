package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries the tunables of the background-task core. Everything has
// a default; a config file and WHISPERVIOLINS_* environment variables can
// override, and CLI flags override both.
type Config struct {
	CacheDir        string        `mapstructure:"cache_dir"`
	LockPath        string        `mapstructure:"lock_path"`
	ProbeBin        string        `mapstructure:"probe_bin"`
	ProbeTimeout    time.Duration `mapstructure:"probe_timeout"`
	ProgressTick    time.Duration `mapstructure:"progress_tick"`
	ShutdownGrace   time.Duration `mapstructure:"shutdown_grace"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	DownloadRetries int           `mapstructure:"download_retries"`
}

// Load reads configuration from an optional file plus the environment.
// A missing config file is not an error; missing keys fall back to defaults.
func Load(configFile string) (*Config, error) {
	vp := viper.New()

	vp.SetDefault("cache_dir", "")
	vp.SetDefault("lock_path", "")
	vp.SetDefault("probe_bin", "ffprobe")
	vp.SetDefault("probe_timeout", "5s")
	vp.SetDefault("progress_tick", "500ms")
	vp.SetDefault("shutdown_grace", "1s")
	vp.SetDefault("download_timeout", "10m")
	vp.SetDefault("download_retries", 3)

	if configFile != "" {
		vp.SetConfigFile(configFile)
	} else {
		vp.SetConfigName("whisperviolins")
		vp.SetConfigType("yaml")
		vp.AddConfigPath(".")
		vp.AddConfigPath("$HOME/.config/whisperviolins")
	}

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	vp.SetEnvPrefix("WHISPERVIOLINS")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
