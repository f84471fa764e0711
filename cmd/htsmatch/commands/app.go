// Package commands implements the htsmatch CLI.
package commands

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/ai/anthropic"
	"github.com/teranos/htsmatch/am"
	"github.com/teranos/htsmatch/catalog/woo"
	"github.com/teranos/htsmatch/catalogsync"
	"github.com/teranos/htsmatch/db"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/logger"
	"github.com/teranos/htsmatch/match"
	"github.com/teranos/htsmatch/pipeline"
)

type configKey struct{}

// WithConfig attaches the loaded configuration to ctx for subcommands.
func WithConfig(ctx context.Context, cfg *am.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// configFrom returns the configuration attached by the root command.
func configFrom(cmd *cobra.Command) (*am.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*am.Config)
	if !ok || cfg == nil {
		return nil, errors.NewConfigError("configuration not loaded")
	}
	return cfg, nil
}

func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}

func openStore(cfg *am.Config) (*sql.DB, *match.Store, error) {
	conn, err := db.OpenWithMigrations(cfg.Database.Path, logger.ComponentLogger("db"))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open database %s", cfg.Database.Path)
	}
	return conn, match.NewStore(conn, logger.ComponentLogger("match")), nil
}

func newWooClient(cfg *am.Config, target string) (*woo.Client, am.CatalogConfig, error) {
	tc, err := cfg.Target(target)
	if err != nil {
		return nil, am.CatalogConfig{}, err
	}
	client, err := woo.New(woo.Config{
		BaseURL:        tc.URL,
		ConsumerKey:    tc.ConsumerKey,
		ConsumerSecret: tc.ConsumerSecret,
		PerPage:        tc.PerPage,
		PageDelay:      tc.PageDelay,
		Timeout:        tc.Timeout,
	}, logger.ComponentLogger("woo").With(logger.FieldTarget, targetName(target)))
	if err != nil {
		return nil, am.CatalogConfig{}, err
	}
	return client, tc, nil
}

func newClassifier(cfg *am.Config) (*hts.Classifier, error) {
	client, err := anthropic.New(anthropic.Config{
		APIKey:  cfg.Anthropic.APIKey,
		BaseURL: cfg.Anthropic.BaseURL,
		Model:   cfg.Anthropic.Model,
		Timeout: cfg.Anthropic.Timeout,
	}, logger.ComponentLogger("anthropic"))
	if err != nil {
		return nil, err
	}
	return hts.NewClassifier(client, hts.ClassifierConfig{
		MaxTokens:   cfg.Anthropic.MaxTokens,
		Temperature: cfg.Anthropic.Temperature,
	}, logger.ComponentLogger("classifier")), nil
}

func pipelineConfig(cfg *am.Config) (pipeline.Config, error) {
	policy, err := hts.NewPolicy(cfg.Pipeline.AutoApproveThreshold)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		BatchSize:  cfg.Pipeline.BatchSize,
		ItemDelay:  cfg.Pipeline.RateLimitDelay,
		BatchDelay: cfg.Pipeline.BatchDelay,
		Policy:     policy,
	}, nil
}

func newSyncEngine(cfg *am.Config, store *match.Store, target string) (*catalogsync.Engine, error) {
	client, tc, err := newWooClient(cfg, target)
	if err != nil {
		return nil, err
	}
	return catalogsync.NewEngine(store, client, catalogsync.Config{
		Target:          targetName(target),
		Delay:           cfg.Pipeline.RateLimitDelay,
		CountryOfOrigin: tc.CountryOfOrigin,
	}, logger.ComponentLogger("sync")), nil
}

func targetName(target string) string {
	if target == "" {
		return am.PrimaryTarget
	}
	return target
}
