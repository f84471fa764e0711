package am

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/htsmatch/errors"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "hts_codes.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Pipeline.BatchSize)
	assert.Equal(t, 0.85, cfg.Pipeline.AutoApproveThreshold)
	assert.Equal(t, time.Second, cfg.Pipeline.RateLimitDelay)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.BatchDelay)
	assert.Equal(t, 500, cfg.Anthropic.MaxTokens)
	assert.Equal(t, 0.2, cfg.Anthropic.Temperature)
	assert.Equal(t, 60*time.Second, cfg.Anthropic.Timeout)
	assert.Equal(t, 100, cfg.Catalog.PerPage)
	assert.Equal(t, 500*time.Millisecond, cfg.Catalog.PageDelay)
	assert.Equal(t, "selected_categories.yaml", cfg.Catalog.SelectionFile)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "htsmatch.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[database]
path = "/var/lib/htsmatch/matches.db"

[pipeline]
batch_size = 25
auto_approve_threshold = 0.9
rate_limit_delay = 1.5
batch_delay = "10s"

[catalog]
url = "https://shop.example.com"
country_of_origin = "CA"

[targets.outlet]
url = "https://outlet.example.com"
consumer_key = "ck_outlet"
consumer_secret = "cs_outlet"
country_of_origin = "CA"
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/htsmatch/matches.db", cfg.Database.Path)
	assert.Equal(t, 25, cfg.Pipeline.BatchSize)
	assert.Equal(t, 0.9, cfg.Pipeline.AutoApproveThreshold)
	assert.Equal(t, 1500*time.Millisecond, cfg.Pipeline.RateLimitDelay)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.BatchDelay)
	assert.Equal(t, "CA", cfg.Catalog.CountryOfOrigin)
	require.Contains(t, cfg.Targets, "outlet")
	assert.Equal(t, "ck_outlet", cfg.Targets["outlet"].ConsumerKey)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
}

func TestNewViper_LegacyEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WOOCOMMERCE_URL", "https://legacy.example.com")
	t.Setenv("RATE_LIMIT_DELAY", "2.0")
	t.Setenv("AUTO_APPROVE_THRESHOLD", "0.9")
	t.Setenv("HTSMATCH_PIPELINE_BATCH_SIZE", "3")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://legacy.example.com", cfg.Catalog.URL)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.RateLimitDelay)
	assert.Equal(t, 0.9, cfg.Pipeline.AutoApproveThreshold)
	assert.Equal(t, 3, cfg.Pipeline.BatchSize)
}

func TestNewViper_PrefixedEnvWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("WOOCOMMERCE_URL", "https://legacy.example.com")
	t.Setenv("HTSMATCH_CATALOG_URL", "https://new.example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://new.example.com", cfg.Catalog.URL)
}

func TestNewViper_ProjectConfigSearch(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectConfigName), []byte("[pipeline]\nbatch_size = 7\n"), 0o644))

	t.Chdir(nested)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.BatchSize)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("HTSMATCH_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("HTSMATCH_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("HTSMATCH_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("HTSMATCH_TEST_DOTENV"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero batch size",
			mutate:  func(c *Config) { c.Pipeline.BatchSize = 0 },
			wantErr: "pipeline.batch_size must be >= 1, got 0",
		},
		{
			name:    "threshold given as percentage",
			mutate:  func(c *Config) { c.Pipeline.AutoApproveThreshold = 85 },
			wantErr: "pipeline.auto_approve_threshold",
		},
		{
			name:    "threshold below manual floor",
			mutate:  func(c *Config) { c.Pipeline.AutoApproveThreshold = 0.5 },
			wantErr: "pipeline.auto_approve_threshold",
		},
		{
			name:   "threshold at manual floor",
			mutate: func(c *Config) { c.Pipeline.AutoApproveThreshold = 0.60 },
		},
		{
			name:   "threshold of one",
			mutate: func(c *Config) { c.Pipeline.AutoApproveThreshold = 1 },
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Pipeline.RateLimitDelay = -time.Second },
			wantErr: "pipeline.rate_limit_delay",
		},
		{
			name:   "zero delay is allowed",
			mutate: func(c *Config) { c.Pipeline.RateLimitDelay = 0; c.Pipeline.BatchDelay = 0 },
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Anthropic.Temperature = 1.5 },
			wantErr: "anthropic.temperature",
		},
		{
			name:    "per page over API maximum",
			mutate:  func(c *Config) { c.Catalog.PerPage = 250 },
			wantErr: "catalog.per_page",
		},
		{
			name:    "relative catalog url",
			mutate:  func(c *Config) { c.Catalog.URL = "shop.example.com" },
			wantErr: "catalog.url must be an absolute URL",
		},
		{
			name: "target without url",
			mutate: func(c *Config) {
				c.Targets = map[string]CatalogConfig{"outlet": {ConsumerKey: "ck"}}
			},
			wantErr: "targets.outlet.url cannot be empty",
		},
		{
			name: "target named primary",
			mutate: func(c *Config) {
				c.Targets = map[string]CatalogConfig{PrimaryTarget: {URL: "https://x.example.com"}}
			},
			wantErr: "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, errors.IsConfig(err))
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg := defaultConfig(t)

	err := cfg.ValidateCredentials(true, "", false)
	require.Error(t, err)
	assert.True(t, errors.IsConfig(err))
	assert.NotEmpty(t, errors.GetAllHints(err))

	cfg.Anthropic.APIKey = "sk-ant-test"
	require.NoError(t, cfg.ValidateCredentials(true, "", false))

	err = cfg.ValidateCredentials(false, "", true)
	require.Error(t, err)

	cfg.Catalog.URL = "https://shop.example.com"
	cfg.Catalog.ConsumerKey = "ck_abc"
	cfg.Catalog.ConsumerSecret = "cs_abc"
	require.NoError(t, cfg.ValidateCredentials(true, "", true))

	err = cfg.ValidateCredentials(false, "outlet", true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target "outlet"`)
}

func TestTargetInheritsTransport(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Targets = map[string]CatalogConfig{
		"outlet": {URL: "https://outlet.example.com", CountryOfOrigin: "CA"},
	}

	primary, err := cfg.Target("")
	require.NoError(t, err)
	assert.Equal(t, cfg.Catalog, primary)

	outlet, err := cfg.Target("outlet")
	require.NoError(t, err)
	assert.Equal(t, 100, outlet.PerPage)
	assert.Equal(t, 500*time.Millisecond, outlet.PageDelay)
	assert.Equal(t, "CA", outlet.CountryOfOrigin)

	assert.Equal(t, []string{"primary", "outlet"}, cfg.TargetNames())
}

func TestRender(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Anthropic.APIKey = "sk-ant-api03-abcdefgh1234"

	for _, format := range []string{FormatTOML, FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			out, err := Render(cfg, format)
			require.NoError(t, err)
			assert.Contains(t, string(out), "****1234")
			assert.NotContains(t, string(out), "sk-ant-api03")
			assert.Contains(t, string(out), "hts_codes.db")
		})
	}

	out, err := Render(cfg, FormatJSON)
	require.NoError(t, err)
	var decoded map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "1s", decoded["pipeline"]["rate_limit_delay"])

	_, err = Render(cfg, "xml")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestSecret(t *testing.T) {
	assert.Equal(t, "", secret("", true))
	assert.Equal(t, "****", secret("short", true))
	assert.Equal(t, "****wxyz", secret("abcdefghwxyz", true))
	assert.Equal(t, "plain", secret("plain", false))
}
