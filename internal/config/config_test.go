package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty config is valid without a database",
			yaml: `{}`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.False(t, cfg.Database.Enabled())
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.True(t, cfg.Database.Enabled())
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, "https://calculator.uprinting.com/v1", cfg.Vendor.BaseURL)
				assert.Equal(t, "UP", cfg.Vendor.WebsiteCode)
				assert.Equal(t, "https://www.uprinting.com/", cfg.Vendor.Referer)
				assert.Equal(t, 15*time.Second, cfg.Vendor.Timeout)
				assert.Equal(t, 1, cfg.Vendor.RateLimit.Burst)
				assert.Equal(t, 20*time.Millisecond, cfg.Extraction.RequestDelay)
				assert.Equal(t, 25, cfg.Extraction.ProgressEvery)
				assert.Equal(t, 3, cfg.Extraction.MaxAttempts)
				assert.Equal(t, time.Second, cfg.Extraction.RetryPause)
				assert.Equal(t, "20", cfg.Extraction.SuspiciousPrice)
				assert.Equal(t, "./output", cfg.Extraction.OutputDir)
				assert.Equal(t, 64, cfg.Extraction.SubscriberBuffer)
				assert.Equal(t, 256, cfg.Assist.CacheSize)
				assert.Equal(t, 24*time.Hour, cfg.Retention.Interval)
				assert.Equal(t, 30*24*time.Hour, cfg.Retention.MaxAge)
				assert.Equal(t, "price-matrix", cfg.Tracing.ServiceName)
				assert.InDelta(t, 1.0, cfg.Tracing.SampleRatio, 0.0001)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
  password: "${TEST_DB_PASSWORD}"
vendor:
  auth_header: "${TEST_VENDOR_AUTH}"
`,
			envVars: map[string]string{
				"TEST_DB_PASSWORD": "secret123",
				"TEST_VENDOR_AUTH": "Basic abc",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Database.Password)
				assert.Equal(t, "Basic abc", cfg.Vendor.AuthHeader)
			},
		},
		{
			name: "database host without name",
			yaml: `
database:
  host: localhost
  user: testuser
`,
			wantErr: "database.name is required when database.host is set",
		},
		{
			name: "database host without user",
			yaml: `
database:
  host: localhost
  name: testdb
`,
			wantErr: "database.user is required when database.host is set",
		},
		{
			name: "relative vendor base url",
			yaml: `
vendor:
  base_url: calculator/v1
`,
			wantErr: `vendor.base_url must be an absolute URL (got "calculator/v1")`,
		},
		{
			name: "negative max attempts",
			yaml: `
extraction:
  max_attempts: -1
`,
			wantErr: "extraction.max_attempts must be at least 1",
		},
		{
			name: "assist enabled without providers",
			yaml: `
assist:
  enabled: true
`,
			wantErr: "assist.providers must list at least one provider",
		},
		{
			name: "assist provider with unknown kind",
			yaml: `
assist:
  enabled: true
  providers:
    - kind: cohere
      model: command
`,
			wantErr: `assist.providers[0].kind must be one of: anthropic, openai_compat, gemini (got "cohere")`,
		},
		{
			name: "openai_compat provider missing endpoint",
			yaml: `
assist:
  enabled: true
  providers:
    - kind: openai_compat
      model: llama3
`,
			wantErr: "assist.providers[0].endpoint is required for openai_compat",
		},
		{
			name: "assist provider missing model",
			yaml: `
assist:
  enabled: true
  providers:
    - kind: gemini
`,
			wantErr: "assist.providers[0].model is required",
		},
		{
			name: "discord enabled without webhook",
			yaml: `
notifications:
  discord:
    enabled: true
`,
			wantErr: "notifications.discord.webhook_url is required when discord is enabled",
		},
		{
			name: "retention without database",
			yaml: `
retention:
  enabled: true
`,
			wantErr: "retention requires database.host",
		},
		{
			name: "tracing without endpoint",
			yaml: `
tracing:
  enabled: true
`,
			wantErr: "tracing.endpoint is required when tracing is enabled",
		},
		{
			name: "invalid log format",
			yaml: `
logging:
  format: xml
`,
			wantErr: `logging.format must be one of: text, json (got "xml")`,
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 60s
  write_timeout: 60s
database:
  host: db.example.com
  port: 5433
  name: matrix_prod
  user: admin
  password: pass
  sslmode: require
  pool_size: 20
vendor:
  base_url: http://localhost:9999/v1
  website_code: UK
  user_agent: ppm-test
  timeout: 5s
  rate_limit:
    per_second: 4
    burst: 2
    daily_limit: 10000
extraction:
  request_delay: 100ms
  progress_every: 10
  max_attempts: 5
  retry_pause: 2s
  suspicious_price: "0.00"
  output_dir: /var/lib/ppm
assist:
  enabled: true
  cache_size: 64
  providers:
    - name: primary
      kind: anthropic
      model: claude-haiku
      api_key: k1
    - kind: gemini
      model: gemini-1.5-flash
notifications:
  discord:
    enabled: true
    webhook_url: https://discord.com/api/webhooks/123
retention:
  enabled: true
  interval: 6h
  max_age: 168h
  prune_outputs: true
tracing:
  enabled: true
  endpoint: otel:4317
  insecure: true
  sample_ratio: 0.25
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, 20, cfg.Database.PoolSize)
				assert.Equal(t, "http://localhost:9999/v1", cfg.Vendor.BaseURL)
				assert.Equal(t, "UK", cfg.Vendor.WebsiteCode)
				assert.Equal(t, 5*time.Second, cfg.Vendor.Timeout)
				assert.InDelta(t, 4.0, cfg.Vendor.RateLimit.PerSecond, 0.0001)
				assert.Equal(t, 2, cfg.Vendor.RateLimit.Burst)
				assert.Equal(t, int64(10000), cfg.Vendor.RateLimit.DailyLimit)
				assert.Equal(t, 100*time.Millisecond, cfg.Extraction.RequestDelay)
				assert.Equal(t, 10, cfg.Extraction.ProgressEvery)
				assert.Equal(t, 5, cfg.Extraction.MaxAttempts)
				assert.Equal(t, "0.00", cfg.Extraction.SuspiciousPrice)
				assert.Equal(t, "/var/lib/ppm", cfg.Extraction.OutputDir)
				require.Len(t, cfg.Assist.Providers, 2)
				assert.Equal(t, "primary", cfg.Assist.Providers[0].Name)
				assert.Equal(t, "gemini", cfg.Assist.Providers[1].Name, "name defaults to kind")
				assert.Equal(t, 64, cfg.Assist.CacheSize)
				assert.True(t, cfg.Notifications.Discord.Enabled)
				assert.True(t, cfg.Retention.PruneOutputs)
				assert.Equal(t, 168*time.Hour, cfg.Retention.MaxAge)
				assert.Equal(t, "otel:4317", cfg.Tracing.Endpoint)
				assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 0.0001)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestParse_JoinsAllProblems(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte(`
database:
  host: localhost
notifications:
  discord:
    enabled: true
logging:
  format: xml
`))
	require.Error(t, err)
	for _, want := range []string{
		"database.name is required",
		"database.user is required",
		"notifications.discord.webhook_url is required",
		"logging.format must be one of",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, 3, cfg.Extraction.MaxAttempts)
	require.NoError(t, validate(cfg))
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "basic DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "testdb",
				User:     "testuser",
				Password: "testpass",
				SSLMode:  "disable",
				PoolSize: 10,
			},
			want: "host=localhost port=5432 dbname=testdb user=testuser password=testpass sslmode=disable pool_max_conns=10",
		},
		{
			name: "production DSN",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				Name:     "matrix",
				User:     "admin",
				Password: "s3cret",
				SSLMode:  "require",
				PoolSize: 20,
			},
			want: "host=db.example.com port=5433 dbname=matrix user=admin password=s3cret sslmode=require pool_max_conns=20",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
