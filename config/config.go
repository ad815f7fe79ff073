// Package config holds the connection settings consumed once when a store is built.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	DefaultEndpoint       = "127.0.0.1:6379"
	DefaultConnectTimeout = 5 * time.Second
	DefaultSyncTimeout    = 5 * time.Second
	DefaultRetryAttempts  = 3

	envPrefix = "CACHEASIDE"
)

// Settings is an immutable value: copy it, do not mutate a shared one.
type Settings struct {
	Endpoints       []string `mapstructure:"endpoints"`
	DefaultDatabase int      `mapstructure:"default_database"`
	Username        string   `mapstructure:"username"`
	Password        string   `mapstructure:"password"`
	MasterName      string   `mapstructure:"master_name"` // sentinel deployments

	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	SyncTimeout    time.Duration `mapstructure:"sync_timeout"` // read/write timeout per command
	RetryAttempts  int           `mapstructure:"retry_attempts"`

	AllowAdmin         bool `mapstructure:"allow_admin"`
	AbortOnConnectFail bool `mapstructure:"abort_on_connect_fail"`
	PreferReplica      bool `mapstructure:"prefer_replica"`

	DefaultTTL time.Duration `mapstructure:"default_ttl"` // 0 => entries persist
}

// Default mirrors the values applied by Load when a key is not configured.
func Default() Settings {
	return Settings{
		Endpoints:      []string{DefaultEndpoint},
		ConnectTimeout: DefaultConnectTimeout,
		SyncTimeout:    DefaultSyncTimeout,
		RetryAttempts:  DefaultRetryAttempts,
		AllowAdmin:     true,
	}
}

// Validate rejects settings no store can be built from.
func (s Settings) Validate() error {
	var problems []string
	if len(s.Endpoints) == 0 {
		problems = append(problems, "at least one endpoint is required")
	}
	for i, ep := range s.Endpoints {
		if strings.TrimSpace(ep) == "" {
			problems = append(problems, fmt.Sprintf("endpoint %d is empty", i))
		}
	}
	if s.DefaultDatabase < 0 {
		problems = append(problems, "default_database must be >= 0")
	}
	if s.ConnectTimeout < 0 || s.SyncTimeout < 0 {
		problems = append(problems, "timeouts must be >= 0")
	}
	if s.RetryAttempts < 0 {
		problems = append(problems, "retry_attempts must be >= 0")
	}
	if s.DefaultTTL < 0 {
		problems = append(problems, "default_ttl must be >= 0")
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads the "cache" section from config.yaml in ./config and paths, with
// CACHEASIDE_* environment overrides (CACHEASIDE_CACHE_ENDPOINTS=a:6379,b:6379).
// A missing file is not an error.
func Load(paths ...string) (Settings, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Settings{}, fmt.Errorf("config: read file: %w", err)
		}
	}
	return FromViper(v)
}

// LoadFile reads settings from one explicit file.
func LoadFile(path string) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return FromViper(v)
}

// FromViper decodes the "cache" section of an already populated viper instance.
// Defaults and env bindings are applied to v.
func FromViper(v *viper.Viper) (Settings, error) {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal (not UnmarshalKey) so env overrides of nested keys apply.
	var file struct {
		Cache Settings `mapstructure:"cache"`
	}
	if err := v.Unmarshal(&file, decodeHook()); err != nil {
		return Settings{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := file.Cache.Validate(); err != nil {
		return Settings{}, err
	}
	return file.Cache, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("cache.endpoints", d.Endpoints)
	v.SetDefault("cache.default_database", d.DefaultDatabase)
	v.SetDefault("cache.username", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.master_name", "")
	v.SetDefault("cache.connect_timeout", d.ConnectTimeout.String())
	v.SetDefault("cache.sync_timeout", d.SyncTimeout.String())
	v.SetDefault("cache.retry_attempts", d.RetryAttempts)
	v.SetDefault("cache.allow_admin", d.AllowAdmin)
	v.SetDefault("cache.abort_on_connect_fail", d.AbortOnConnectFail)
	v.SetDefault("cache.prefer_replica", d.PreferReplica)
	v.SetDefault("cache.default_ttl", "0s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
