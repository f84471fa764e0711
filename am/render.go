package am

import (
	"encoding/json"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/htsmatch/errors"
)

// Supported Render formats
const (
	FormatTOML = "toml"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Render serializes the configuration with secrets masked.
func Render(c *Config, format string) ([]byte, error) {
	settings := c.Settings(true)

	switch format {
	case FormatTOML:
		return toml.Marshal(settings)
	case FormatJSON:
		return json.MarshalIndent(settings, "", "  ")
	case FormatYAML:
		return yaml.Marshal(settings)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "unsupported format %q (supported: toml, json, yaml)", format)
	}
}

// Settings returns the configuration as nested maps keyed like the TOML file.
// Durations are rendered as strings ("1s").
func (c *Config) Settings(maskSecrets bool) map[string]interface{} {
	settings := map[string]interface{}{
		"database": map[string]interface{}{
			"path": c.Database.Path,
		},
		"pipeline": map[string]interface{}{
			"batch_size":             c.Pipeline.BatchSize,
			"auto_approve_threshold": c.Pipeline.AutoApproveThreshold,
			"rate_limit_delay":       c.Pipeline.RateLimitDelay.String(),
			"batch_delay":            c.Pipeline.BatchDelay.String(),
		},
		"anthropic": map[string]interface{}{
			"api_key":     secret(c.Anthropic.APIKey, maskSecrets),
			"base_url":    c.Anthropic.BaseURL,
			"model":       c.Anthropic.Model,
			"max_tokens":  c.Anthropic.MaxTokens,
			"temperature": c.Anthropic.Temperature,
			"timeout":     c.Anthropic.Timeout.String(),
		},
		"catalog": c.Catalog.settings(maskSecrets),
	}

	if len(c.Targets) > 0 {
		targets := make(map[string]interface{}, len(c.Targets))
		for name, t := range c.Targets {
			targets[name] = t.settings(maskSecrets)
		}
		settings["targets"] = targets
	}
	return settings
}

func (cc CatalogConfig) settings(maskSecrets bool) map[string]interface{} {
	return map[string]interface{}{
		"url":               cc.URL,
		"consumer_key":      secret(cc.ConsumerKey, maskSecrets),
		"consumer_secret":   secret(cc.ConsumerSecret, maskSecrets),
		"per_page":          cc.PerPage,
		"page_delay":        cc.PageDelay.String(),
		"timeout":           cc.Timeout.String(),
		"country_of_origin": cc.CountryOfOrigin,
		"selection_file":    cc.SelectionFile,
	}
}

// secret keeps the last four characters of long values so operators can tell keys apart.
func secret(value string, mask bool) string {
	if !mask || value == "" {
		return value
	}
	if len(value) <= 8 {
		return "****"
	}
	return "****" + value[len(value)-4:]
}
