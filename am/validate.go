package am

import (
	"net/url"

	"github.com/teranos/htsmatch/errors"
)

// ManualReviewFloor is the confidence below which a match always needs manual
// review. The auto-approve threshold may not sit below it.
const ManualReviewFloor = 0.60

// Validate checks value ranges. It does not require credentials; see
// ValidateCredentials for the commands that talk to remote services.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.NewConfigError("database.path cannot be empty")
	}

	p := c.Pipeline
	if p.BatchSize < 1 {
		return errors.NewConfigError("pipeline.batch_size must be >= 1, got %d", p.BatchSize)
	}
	if p.AutoApproveThreshold < ManualReviewFloor || p.AutoApproveThreshold > 1 {
		return errors.WithHint(
			errors.NewConfigError("pipeline.auto_approve_threshold must be within [%.2f, 1], got %v", ManualReviewFloor, p.AutoApproveThreshold),
			"the threshold is a fraction, e.g. 0.85 rather than 85")
	}
	if p.RateLimitDelay < 0 {
		return errors.NewConfigError("pipeline.rate_limit_delay must be >= 0, got %s", p.RateLimitDelay)
	}
	if p.BatchDelay < 0 {
		return errors.NewConfigError("pipeline.batch_delay must be >= 0, got %s", p.BatchDelay)
	}

	a := c.Anthropic
	if a.Model == "" {
		return errors.NewConfigError("anthropic.model cannot be empty")
	}
	if a.MaxTokens < 1 {
		return errors.NewConfigError("anthropic.max_tokens must be >= 1, got %d", a.MaxTokens)
	}
	if a.Temperature < 0 || a.Temperature > 1 {
		return errors.NewConfigError("anthropic.temperature must be within [0, 1], got %v", a.Temperature)
	}
	if a.Timeout < 0 {
		return errors.NewConfigError("anthropic.timeout must be >= 0, got %s", a.Timeout)
	}

	if err := c.Catalog.validate("catalog"); err != nil {
		return err
	}
	if c.Catalog.PerPage < 1 {
		return errors.NewConfigError("catalog.per_page must be within [1, 100], got %d", c.Catalog.PerPage)
	}
	for name, t := range c.Targets {
		if name == PrimaryTarget {
			return errors.NewConfigError("targets.%s is reserved for [catalog]", PrimaryTarget)
		}
		if err := t.validate("targets." + name); err != nil {
			return err
		}
		if t.URL == "" {
			return errors.NewConfigError("targets.%s.url cannot be empty", name)
		}
	}

	return nil
}

// validate allows zero transport settings; targets inherit them from [catalog].
func (cc CatalogConfig) validate(prefix string) error {
	if cc.PerPage < 0 || cc.PerPage > 100 {
		return errors.NewConfigError("%s.per_page must be within [1, 100], got %d", prefix, cc.PerPage)
	}
	if cc.PageDelay < 0 {
		return errors.NewConfigError("%s.page_delay must be >= 0, got %s", prefix, cc.PageDelay)
	}
	if cc.URL != "" {
		u, err := url.Parse(cc.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.NewConfigError("%s.url must be an absolute URL, got %q", prefix, cc.URL)
		}
	}
	return nil
}

// ValidateCredentials checks the secrets a command needs before any work begins.
func (c *Config) ValidateCredentials(needModel bool, catalogTarget string, needCatalog bool) error {
	if needModel && c.Anthropic.APIKey == "" {
		return errors.WithHint(
			errors.NewConfigError("anthropic.api_key is not set"),
			"set HTSMATCH_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY in the environment or .env")
	}

	if needCatalog {
		t, err := c.Target(catalogTarget)
		if err != nil {
			return err
		}
		if t.URL == "" || t.ConsumerKey == "" || t.ConsumerSecret == "" {
			return errors.WithHint(
				errors.NewConfigError("storefront %q needs url, consumer_key and consumer_secret", targetLabel(catalogTarget)),
				"set WOOCOMMERCE_URL, WOOCOMMERCE_CONSUMER_KEY and WOOCOMMERCE_CONSUMER_SECRET, or the [catalog] section")
		}
	}
	return nil
}

func targetLabel(name string) string {
	if name == "" {
		return PrimaryTarget
	}
	return name
}
