// Package am holds the htsmatch configuration.
//
// Configuration is loaded once at startup and passed explicitly into each
// component's constructor. Sources, lowest to highest precedence:
//
//	/etc/htsmatch/config.toml
//	~/.htsmatch/config.toml
//	htsmatch.toml (nearest in the working directory or a parent)
//	.env and environment (HTSMATCH_* plus legacy names such as WOOCOMMERCE_URL)
//	--config <file>
package am

import (
	"sort"
	"time"

	"github.com/teranos/htsmatch/errors"
)

// Config represents the full htsmatch configuration
type Config struct {
	Database  DatabaseConfig           `mapstructure:"database"`
	Pipeline  PipelineConfig           `mapstructure:"pipeline"`
	Anthropic AnthropicConfig          `mapstructure:"anthropic"`
	Catalog   CatalogConfig            `mapstructure:"catalog"`
	Targets   map[string]CatalogConfig `mapstructure:"targets"` // additional storefronts receiving pushes
}

// DatabaseConfig configures the SQLite match store
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// PipelineConfig configures the batch processor and disposition policy
type PipelineConfig struct {
	BatchSize            int           `mapstructure:"batch_size"`
	AutoApproveThreshold float64       `mapstructure:"auto_approve_threshold"`
	RateLimitDelay       time.Duration `mapstructure:"rate_limit_delay"` // pause after every item and every push
	BatchDelay           time.Duration `mapstructure:"batch_delay"`      // pause between batches
}

// AnthropicConfig configures the classification model
type AnthropicConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"` // empty = SDK default
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CatalogConfig configures one WooCommerce storefront
type CatalogConfig struct {
	URL             string        `mapstructure:"url"`
	ConsumerKey     string        `mapstructure:"consumer_key"`
	ConsumerSecret  string        `mapstructure:"consumer_secret"`
	PerPage         int           `mapstructure:"per_page"`
	PageDelay       time.Duration `mapstructure:"page_delay"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CountryOfOrigin string        `mapstructure:"country_of_origin"` // written as _country_of_origin on push when set
	SelectionFile   string        `mapstructure:"selection_file"`
}

// PrimaryTarget names the storefront configured under [catalog].
const PrimaryTarget = "primary"

// Target returns the storefront configuration for name. The empty name and
// "primary" select [catalog]; other names select [targets.<name>], with
// transport settings left unset inherited from [catalog].
func (c *Config) Target(name string) (CatalogConfig, error) {
	if name == "" || name == PrimaryTarget {
		return c.Catalog, nil
	}

	t, ok := c.Targets[name]
	if !ok {
		return CatalogConfig{}, errors.WithHintf(
			errors.NewConfigError("unknown target %q", name),
			"configured targets: %v", c.TargetNames())
	}
	if t.PerPage == 0 {
		t.PerPage = c.Catalog.PerPage
	}
	if t.PageDelay == 0 {
		t.PageDelay = c.Catalog.PageDelay
	}
	if t.Timeout == 0 {
		t.Timeout = c.Catalog.Timeout
	}
	return t, nil
}

// TargetNames lists every push target, primary first.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{PrimaryTarget}, names...)
}
