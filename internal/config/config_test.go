package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			BaseURL:   "http://localhost:3000",
			DataRoot:  "pwa-data",
			Extension: "json",
		},
		Storage: StorageConfig{
			Path: filepath.Join("data", "quizsync.db"),
		},
		Remote: RemoteConfig{
			Driver: "firebase",
			Firebase: FirebaseConfig{
				BaseURL: "http://localhost:9000",
			},
			Database: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				Database: "quizsync",
				Username: "user",
			},
		},
		Sync: SyncConfig{
			Retry: RetryConfig{
				InitialDelay: time.Second,
				Multiplier:   2,
				MaxDelay:     10 * time.Second,
				Attempts:     3,
			},
			QuestionBatchSize:     5,
			IncludeWordMeanings:   true,
			FallbackToAllSubjects: true,
		},
		Installer: InstallerConfig{
			BatchSize: 6,
			Timeout:   30 * time.Second,
			Weights: ProgressWeights{
				Manifest: 15,
				Download: 70,
				Validate: 5,
				Save:     10,
			},
		},
		Proxy: ProxyConfig{
			Listen:        ":8080",
			Upstream:      "http://localhost:3000",
			CachePrefix:   "quizmaster",
			CacheVersion:  "v1.0.2",
			AdminPrefix:   "/admin",
			APIPrefix:     "/api/",
			RealtimeHosts: []string{"firebase", "firebaseio"},
			AppShell:      "/index.html",
			Precache:      []string{"/", "/index.html"},
			CacheStorage:  "memory",
			CachePath:     filepath.Join("data", "cache.db"),
			Timeout:       15 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "quizsync",
		},
		Export: ExportConfig{
			OutputDirectory: filepath.Join("public", "pwa-data"),
		},
	}
}

func TestConfigLoader_Load(t *testing.T) {
	tests := []struct {
		name              string
		configContent     string
		useExplicitPath   bool
		env               map[string]string
		want              func() *Config
		wantErrorContains []string
	}{
		{
			name:            "no config file uses defaults",
			useExplicitPath: false,
			want:            defaultConfig,
		},
		{
			name: "custom values override defaults",
			configContent: `data:
  base_url: https://quiz.example.com
  extension: js
sync:
  retry:
    initial_delay: 500ms
    attempts: 5
  schedule: "0 3 * * *"
installer:
  batch_size: 4
proxy:
  cache_storage: sqlite
  cache_path: /var/lib/quizsync/cache.db
`,
			useExplicitPath: true,
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Data.BaseURL = "https://quiz.example.com"
				cfg.Data.Extension = "js"
				cfg.Sync.Retry.InitialDelay = 500 * time.Millisecond
				cfg.Sync.Retry.Attempts = 5
				cfg.Sync.Schedule = "0 3 * * *"
				cfg.Installer.BatchSize = 4
				cfg.Proxy.CacheStorage = "sqlite"
				cfg.Proxy.CachePath = "/var/lib/quizsync/cache.db"
				return cfg
			},
		},
		{
			name: "secrets are read from environment variables",
			configContent: `remote:
  driver: mysql
`,
			useExplicitPath: true,
			env: map[string]string{
				"FIREBASE_AUTH_TOKEN":    "token",
				"DB_PASSWORD":            "secret",
				"QUIZSYNC_OTEL_ENDPOINT": "localhost:4318",
			},
			want: func() *Config {
				cfg := defaultConfig()
				cfg.Remote.Driver = "mysql"
				cfg.Remote.Firebase.AuthToken = "token"
				cfg.Remote.Database.Password = "secret"
				cfg.Telemetry.OTelEndpoint = "localhost:4318"
				return cfg
			},
		},
		{
			name: "invalid YAML format",
			configContent: `data:
  base_url: http://localhost
  invalid yaml format here [[[
`,
			useExplicitPath: false,
			wantErrorContains: []string{
				"configuration file found but could not be read",
				"Please check the file format and permissions",
			},
		},
		{
			name: "weights must sum to 100",
			configContent: `installer:
  weights:
    download: 60
`,
			useExplicitPath: true,
			wantErrorContains: []string{
				"invalid configuration",
				"installer.weights.total must sum to 100",
			},
		},
		{
			name: "unknown cache storage",
			configContent: `proxy:
  cache_storage: redis
`,
			useExplicitPath: true,
			wantErrorContains: []string{
				"invalid configuration",
				"cache_storage must be one of [memory sqlite]",
			},
		},
		{
			name: "firebase driver requires a base url",
			configContent: `remote:
  firebase:
    base_url: ""
`,
			useExplicitPath: true,
			wantErrorContains: []string{
				"remote.firebase.base_url is required for the selected remote driver",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"FIREBASE_AUTH_TOKEN", "DB_PASSWORD", "QUIZSYNC_OTEL_ENDPOINT"} {
				t.Setenv(key, tt.env[key])
			}

			tempDir := t.TempDir()
			var configPath string
			if tt.useExplicitPath {
				configPath = filepath.Join(tempDir, "config.yml")
				require.NoError(t, os.WriteFile(configPath, []byte(tt.configContent), 0644))
			} else {
				if tt.configContent != "" {
					require.NoError(t, os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(tt.configContent), 0644))
				}
				t.Chdir(tempDir)
			}

			loader, err := NewConfigLoader(configPath)
			require.NoError(t, err)
			got, err := loader.Load()

			if len(tt.wantErrorContains) > 0 {
				require.Error(t, err)
				assert.Nil(t, got)
				for _, wantMsg := range tt.wantErrorContains {
					assert.Contains(t, err.Error(), wantMsg)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want(), got)
		})
	}
}

func TestProgressWeights_Total(t *testing.T) {
	assert.Equal(t, 100, ProgressWeights{Manifest: 15, Download: 70, Validate: 5, Save: 10}.Total())
	assert.Equal(t, 0, ProgressWeights{}.Total())
}
