// Package config provides YAML-based configuration loading for the harness.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config is the root application configuration for a harness run: a handful
// of process-wide tunables plus logging. It carries no network, transport,
// or identity settings — the harness never opens a socket or authenticates
// a peer, so there is nothing for those to configure.
type Config struct {
    // AppName names the process for logging purposes only.
    AppName string `mapstructure:"app_name"`

    // DataDir is where a scenario run may write artifacts (e.g. recorded
    // traces). Unused by the core packages themselves.
    DataDir string `mapstructure:"data_dir"`

    // Log holds logging configuration.
    Log LogConfig `mapstructure:"log"`

    // Harness holds the tunables that shape how a node's scheduler and
    // pending table behave.
    Harness HarnessConfig `mapstructure:"harness"`
}

// HarnessConfig controls per-node runtime tunables. None of these change
// the harness's observable behavior; they only affect allocation sizing
// and default timeouts a binding layer may consult when it does not pass
// its own context deadline.
type HarnessConfig struct {
    // PendingTableCapacityHint preallocates a node's PendingTable slot
    // slice to reduce reallocation for services that expect many
    // concurrent outbound calls in flight.
    PendingTableCapacityHint int `mapstructure:"pending_table_capacity_hint"`

    // SchedulerReadyQueueCapacityHint preallocates a node's scheduler
    // ready queue similarly.
    SchedulerReadyQueueCapacityHint int `mapstructure:"scheduler_ready_queue_capacity_hint"`

    // DefaultCallTimeout is the deadline a binding layer should apply to
    // a ClientStub call's context when the caller didn't set one of its
    // own. The harness itself never imposes this; it's a convenience
    // default a caller may read when building its own context.
    DefaultCallTimeout time.Duration `mapstructure:"default_call_timeout"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int  `mapstructure:"max_size_mb"`
    MaxBackups int  `mapstructure:"max_backups"`
    MaxAgeDays int  `mapstructure:"max_age_days"`
    Compress   bool `mapstructure:"compress"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    return &Config{
        AppName: "meshcall",
        DataDir: "./data",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/meshcall.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Harness: HarnessConfig{
            PendingTableCapacityHint:        8,
            SchedulerReadyQueueCapacityHint: 16,
            DefaultCallTimeout:              30 * time.Second,
        },
    }
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix MESHCALL and `.`/`-` are replaced
// with `_`. Example: MESHCALL_LOG_LEVEL=debug
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("MESHCALL")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("data_dir", cfg.DataDir)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    v.SetDefault("harness.pending_table_capacity_hint", cfg.Harness.PendingTableCapacityHint)
    v.SetDefault("harness.scheduler_ready_queue_capacity_hint", cfg.Harness.SchedulerReadyQueueCapacityHint)
    v.SetDefault("harness.default_call_timeout", cfg.Harness.DefaultCallTimeout)

    // Choose config file
    if path == "" {
        // Allow override via env var
        if envPath := os.Getenv("MESHCALL_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `meshcall`
        v.SetConfigName("meshcall")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".meshcall"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var viperConfigFileNotFound viper.ConfigFileNotFoundError
        if !errors.As(err, &viperConfigFileNotFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(&cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }

    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }
    if c.Harness.PendingTableCapacityHint < 0 {
        return fmt.Errorf("invalid harness.pending_table_capacity_hint: %d", c.Harness.PendingTableCapacityHint)
    }
    if c.Harness.SchedulerReadyQueueCapacityHint < 0 {
        return fmt.Errorf("invalid harness.scheduler_ready_queue_capacity_hint: %d", c.Harness.SchedulerReadyQueueCapacityHint)
    }
    return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}
