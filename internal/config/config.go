package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"
)

// Defaults applied by WithDefaults.
const (
	DefaultFileServer      = "https://file.getsession.org"
	DefaultNotifyKey       = "session:pn:notify"
	DefaultDispatchTimeout = time.Minute
	DefaultSyncPaddingSize = 512
	DefaultSyncConcurrency = 4
)

// Config represents the global ~/.session-send/config.toml.
type Config struct {
	DefaultSession  string   `toml:"default_session"`
	FileServer      string   `toml:"file_server"`
	SwarmNodes      []string `toml:"swarm_nodes"`
	PipeURL         string   `toml:"pipe_url"`
	RedisAddr       string   `toml:"redis_addr"`
	NotifyKey       string   `toml:"notify_key"`
	DispatchTimeout Duration `toml:"dispatch_timeout"`
	SyncPaddingSize int      `toml:"sync_padding_size"`
	SyncConcurrency int      `toml:"sync_concurrency"`
	TTL             TTL      `toml:"ttl"`
	// LogLevel is the daemon log level; the zero value is info.
	LogLevel zapcore.Level `toml:"log_level"`
}

// TTL holds per-category retention overrides. Zero entries keep the
// built-in value.
type TTL struct {
	Regular        Duration `toml:"regular"`
	Typing         Duration `toml:"typing"`
	Receipt        Duration `toml:"receipt"`
	SessionRequest Duration `toml:"session_request"`
	GroupControl   Duration `toml:"group_control"`
}

// Duration is a time.Duration written as a string such as "48h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// WithDefaults returns a copy of cfg with unset fields filled in. A nil cfg
// yields the defaults.
func (cfg *Config) WithDefaults() *Config {
	var out Config
	if cfg != nil {
		out = *cfg
	}
	if out.FileServer == "" {
		out.FileServer = DefaultFileServer
	}
	if out.NotifyKey == "" {
		out.NotifyKey = DefaultNotifyKey
	}
	if out.DispatchTimeout.Duration <= 0 {
		out.DispatchTimeout.Duration = DefaultDispatchTimeout
	}
	if out.SyncPaddingSize <= 0 {
		out.SyncPaddingSize = DefaultSyncPaddingSize
	}
	if out.SyncConcurrency <= 0 {
		out.SyncConcurrency = DefaultSyncConcurrency
	}
	return &out
}

// Load reads config from the given path. Returns zero config and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
