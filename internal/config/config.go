package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Remote    RemoteConfig    `mapstructure:"remote"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Installer InstallerConfig `mapstructure:"installer"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Export    ExportConfig    `mapstructure:"export"`
}

// DataConfig locates the exported manifests and chunks the installer downloads.
type DataConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"required,url"`
	DataRoot  string `mapstructure:"data_root" validate:"required"`
	Extension string `mapstructure:"extension" validate:"oneof=json js"`
}

type StorageConfig struct {
	Path       string `mapstructure:"path" validate:"required"`
	QuotaBytes int64  `mapstructure:"quota_bytes" validate:"gte=0"`
}

type RemoteConfig struct {
	Driver   string         `mapstructure:"driver" validate:"oneof=firebase mysql"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	Database DatabaseConfig `mapstructure:"database"`
}

type FirebaseConfig struct {
	BaseURL   string `mapstructure:"base_url" validate:"omitempty,url"`
	AuthToken string `mapstructure:"auth_token"`
}

type DatabaseConfig struct {
	Host            string            `mapstructure:"host"`
	Port            int               `mapstructure:"port"`
	Database        string            `mapstructure:"database"`
	Username        string            `mapstructure:"username"`
	Password        string            `mapstructure:"password"`
	TLS             bool              `mapstructure:"tls"`
	Params          map[string]string `mapstructure:"params"`
	MaxOpenConns    int               `mapstructure:"max_open_conns"`
	MaxIdleConns    int               `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int               `mapstructure:"conn_max_lifetime_seconds"`
}

type SyncConfig struct {
	Retry                 RetryConfig `mapstructure:"retry"`
	QuestionBatchSize     int         `mapstructure:"question_batch_size" validate:"gte=1"`
	IncludeWordMeanings   bool        `mapstructure:"include_word_meanings"`
	FallbackToAllSubjects bool        `mapstructure:"fallback_to_all_subjects"`
	// Schedule is a 5-field cron spec. Empty disables scheduled sync.
	Schedule string `mapstructure:"schedule"`
}

type RetryConfig struct {
	InitialDelay time.Duration `mapstructure:"initial_delay" validate:"gte=0"`
	Multiplier   float64       `mapstructure:"multiplier" validate:"gte=1"`
	MaxDelay     time.Duration `mapstructure:"max_delay" validate:"gtefield=InitialDelay"`
	Attempts     uint          `mapstructure:"attempts" validate:"gte=1"`
}

type InstallerConfig struct {
	BatchSize int             `mapstructure:"batch_size" validate:"gte=1"`
	Timeout   time.Duration   `mapstructure:"timeout" validate:"gte=0"`
	Weights   ProgressWeights `mapstructure:"weights"`
}

// ProgressWeights splits the 0-100 installer progress range between stages. They must sum to 100.
type ProgressWeights struct {
	Manifest int `mapstructure:"manifest" validate:"gte=0"`
	Download int `mapstructure:"download" validate:"gte=0"`
	Validate int `mapstructure:"validate" validate:"gte=0"`
	Save     int `mapstructure:"save" validate:"gte=0"`
}

type ProxyConfig struct {
	Listen        string        `mapstructure:"listen" validate:"required"`
	Upstream      string        `mapstructure:"upstream" validate:"required,url"`
	CachePrefix   string        `mapstructure:"cache_prefix" validate:"required"`
	CacheVersion  string        `mapstructure:"cache_version" validate:"required"`
	AdminPrefix   string        `mapstructure:"admin_prefix" validate:"required,startswith=/"`
	APIPrefix     string        `mapstructure:"api_prefix" validate:"required,startswith=/"`
	RealtimeHosts []string      `mapstructure:"realtime_hosts"`
	AppShell      string        `mapstructure:"app_shell" validate:"required,startswith=/"`
	Precache      []string      `mapstructure:"precache"`
	CacheStorage  string        `mapstructure:"cache_storage" validate:"oneof=memory sqlite"`
	CachePath     string        `mapstructure:"cache_path" validate:"required_if=CacheStorage sqlite"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type TelemetryConfig struct {
	OTelEndpoint string `mapstructure:"otel_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

type ExportConfig struct {
	OutputDirectory string `mapstructure:"output_directory" validate:"required"`
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/quizsync")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("data.base_url", "http://localhost:3000")
	v.SetDefault("data.data_root", "pwa-data")
	v.SetDefault("data.extension", "json")
	v.SetDefault("storage.path", filepath.Join("data", "quizsync.db"))
	v.SetDefault("storage.quota_bytes", 0)
	v.SetDefault("remote.driver", "firebase")
	v.SetDefault("remote.firebase.base_url", "http://localhost:9000")
	v.SetDefault("remote.database.host", "localhost")
	v.SetDefault("remote.database.port", 3306)
	v.SetDefault("remote.database.database", "quizsync")
	v.SetDefault("remote.database.username", "user")
	v.SetDefault("sync.retry.initial_delay", time.Second)
	v.SetDefault("sync.retry.multiplier", 2.0)
	v.SetDefault("sync.retry.max_delay", 10*time.Second)
	v.SetDefault("sync.retry.attempts", 3)
	v.SetDefault("sync.question_batch_size", 5)
	v.SetDefault("sync.include_word_meanings", true)
	v.SetDefault("sync.fallback_to_all_subjects", true)
	v.SetDefault("sync.schedule", "")
	v.SetDefault("installer.batch_size", 6)
	v.SetDefault("installer.timeout", 30*time.Second)
	v.SetDefault("installer.weights.manifest", 15)
	v.SetDefault("installer.weights.download", 70)
	v.SetDefault("installer.weights.validate", 5)
	v.SetDefault("installer.weights.save", 10)
	v.SetDefault("proxy.listen", ":8080")
	v.SetDefault("proxy.upstream", "http://localhost:3000")
	v.SetDefault("proxy.cache_prefix", "quizmaster")
	v.SetDefault("proxy.cache_version", "v1.0.2")
	v.SetDefault("proxy.admin_prefix", "/admin")
	v.SetDefault("proxy.api_prefix", "/api/")
	v.SetDefault("proxy.realtime_hosts", []string{"firebase", "firebaseio"})
	v.SetDefault("proxy.app_shell", "/index.html")
	v.SetDefault("proxy.precache", []string{"/", "/index.html"})
	v.SetDefault("proxy.cache_storage", "memory")
	v.SetDefault("proxy.cache_path", filepath.Join("data", "cache.db"))
	v.SetDefault("proxy.timeout", 15*time.Second)
	v.SetDefault("telemetry.service_name", "quizsync")
	v.SetDefault("export.output_directory", filepath.Join("public", "pwa-data"))

	// Secrets are bound to environment variables
	if err := v.BindEnv("remote.firebase.auth_token", "FIREBASE_AUTH_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind FIREBASE_AUTH_TOKEN environment variable: %w", err)
	}
	if err := v.BindEnv("remote.database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}
	if err := v.BindEnv("telemetry.otel_endpoint", "QUIZSYNC_OTEL_ENDPOINT"); err != nil {
		return nil, fmt.Errorf("failed to bind QUIZSYNC_OTEL_ENDPOINT environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		var errorMsgs []string
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}

// Total returns the sum of all weights.
func (w ProgressWeights) Total() int {
	return w.Manifest + w.Download + w.Validate + w.Save
}
