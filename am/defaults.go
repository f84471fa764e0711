package am

import (
	"github.com/spf13/viper"
)

// Default values
const (
	DefaultDatabasePath         = "hts_codes.db"
	DefaultBatchSize            = 10
	DefaultAutoApproveThreshold = 0.85
	DefaultRateLimitDelay       = "1s"
	DefaultBatchDelay           = "5s"

	DefaultModel        = "claude-3-5-sonnet-20241022"
	DefaultMaxTokens    = 500
	DefaultTemperature  = 0.2
	DefaultModelTimeout = "60s"

	DefaultPerPage        = 100
	DefaultPageDelay      = "500ms"
	DefaultCatalogTimeout = "30s"
	DefaultSelectionFile  = "selected_categories.yaml"

	// DefaultDirPermissions is used for ~/.htsmatch
	DefaultDirPermissions = 0o755
)

// SetDefaults registers every default with v. Keys must be registered for
// AutomaticEnv to resolve nested keys such as HTSMATCH_PIPELINE_BATCH_SIZE.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("pipeline.batch_size", DefaultBatchSize)
	v.SetDefault("pipeline.auto_approve_threshold", DefaultAutoApproveThreshold)
	v.SetDefault("pipeline.rate_limit_delay", DefaultRateLimitDelay)
	v.SetDefault("pipeline.batch_delay", DefaultBatchDelay)

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", DefaultModel)
	v.SetDefault("anthropic.max_tokens", DefaultMaxTokens)
	v.SetDefault("anthropic.temperature", DefaultTemperature)
	v.SetDefault("anthropic.timeout", DefaultModelTimeout)

	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.consumer_key", "")
	v.SetDefault("catalog.consumer_secret", "")
	v.SetDefault("catalog.per_page", DefaultPerPage)
	v.SetDefault("catalog.page_delay", DefaultPageDelay)
	v.SetDefault("catalog.timeout", DefaultCatalogTimeout)
	v.SetDefault("catalog.country_of_origin", "")
	v.SetDefault("catalog.selection_file", DefaultSelectionFile)
}

// legacyEnv maps configuration keys to the unprefixed variable names used by
// older .env files. The HTSMATCH_ name always wins when both are set.
var legacyEnv = map[string]string{
	"database.path":                   "DATABASE_PATH",
	"pipeline.batch_size":             "BATCH_SIZE",
	"pipeline.auto_approve_threshold": "AUTO_APPROVE_THRESHOLD",
	"pipeline.rate_limit_delay":       "RATE_LIMIT_DELAY",
	"anthropic.api_key":               "ANTHROPIC_API_KEY",
	"catalog.url":                     "WOOCOMMERCE_URL",
	"catalog.consumer_key":            "WOOCOMMERCE_CONSUMER_KEY",
	"catalog.consumer_secret":         "WOOCOMMERCE_CONSUMER_SECRET",
}

// BindLegacyEnvVars binds each key to its HTSMATCH_ name and its legacy name.
func BindLegacyEnvVars(v *viper.Viper) {
	for key, legacy := range legacyEnv {
		_ = v.BindEnv(key, envName(key), legacy)
	}
}
