// Package catalogsync writes approved HTS codes from the match store back
// to a storefront. It never writes the match store.
package catalogsync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/logger"
	"github.com/teranos/htsmatch/match"
)

// Source reads stored matches. *match.Store implements it.
type Source interface {
	Approved(ctx context.Context, f match.ApprovedFilter) ([]match.Record, error)
	Get(ctx context.Context, id int64) (match.Record, error)
}

// Updater writes product metadata. *woo.Client implements it.
type Updater interface {
	UpdateProduct(ctx context.Context, id int64, meta []catalog.MetaEntry) error
}

// Config describes one push target.
type Config struct {
	Target          string
	Delay           time.Duration // between update calls
	CountryOfOrigin string
}

// Item is one product a push would write.
type Item struct {
	ProductID  int64
	SKU        string
	Name       string
	Code       string
	Confidence float64
	MatchedAt  time.Time
}

// Preview lists what Push would send for a scope.
type Preview struct {
	Target  string
	Scope   Scope
	Items   []Item
	Skipped []Item // approved but carrying the fallback code
}

// PushOptions gate the write. Confirm must be set; DryRun walks the same
// path without calling the storefront.
type PushOptions struct {
	Confirm bool
	DryRun  bool
}

// Failure is a product whose update failed.
type Failure struct {
	ProductID int64
	SKU       string
	Err       error
}

// PushResult counts a push. With DryRun, Updated counts would-be updates.
type PushResult struct {
	Target    string
	DryRun    bool
	Attempted int
	Updated   int
	Skipped   int // fallback code, or no longer approved at call time
	Failed    int
	Failures  []Failure
}

// Engine pushes approved matches to one storefront.
type Engine struct {
	source  Source
	updater Updater
	cfg     Config
	logger  *zap.SugaredLogger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an engine for one target.
func NewEngine(source Source, updater Updater, cfg Config, log *zap.SugaredLogger) *Engine {
	if cfg.Target == "" {
		cfg.Target = "primary"
	}
	return &Engine{
		source:  source,
		updater: updater,
		cfg:     cfg,
		logger:  logger.OrNop(log).With(logger.FieldTarget, cfg.Target),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Preview reads approved matches in scope. It performs no external writes.
func (e *Engine) Preview(ctx context.Context, scope Scope) (*Preview, error) {
	records, err := e.source.Approved(ctx, scope.filter())
	if err != nil {
		return nil, errors.Wrap(err, "read approved matches")
	}

	preview := &Preview{Target: e.cfg.Target, Scope: scope}
	for _, rec := range records {
		if rec.IsFallback() {
			preview.Skipped = append(preview.Skipped, itemOf(rec))
			continue
		}
		preview.Items = append(preview.Items, itemOf(rec))
	}
	return preview, nil
}

// Push writes the HTS metadata of every approved match in scope. Each
// product's status is re-read immediately before its update, so a row that
// stopped being approved after the scope was resolved is skipped. A failed
// update is recorded and the loop continues.
func (e *Engine) Push(ctx context.Context, scope Scope, opts PushOptions) (*PushResult, error) {
	if !opts.Confirm {
		return nil, errors.Wrapf(errors.ErrNotConfirmed, "push to %s requires confirmation", e.cfg.Target)
	}

	records, err := e.source.Approved(ctx, scope.filter())
	if err != nil {
		return nil, errors.Wrap(err, "read approved matches")
	}

	result := &PushResult{Target: e.cfg.Target, DryRun: opts.DryRun}
	e.logger.Infow("Push started", "scope", scope.String(), logger.FieldCount, len(records), "dry_run", opts.DryRun)

	calls := 0
	for _, snapshot := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rec, err := e.source.Get(ctx, snapshot.ProductID)
		if errors.IsNotFound(err) {
			result.Skipped++
			continue
		}
		if err != nil {
			result.Attempted++
			e.fail(result, snapshot, errors.Wrap(err, "re-read match"))
			continue
		}
		if rec.Status != hts.StatusApproved || rec.IsFallback() {
			result.Skipped++
			e.logger.Infow("Skipped",
				logger.FieldProductID, rec.ProductID,
				logger.FieldStatus, string(rec.Status),
				logger.FieldCode, rec.Code,
			)
			continue
		}

		result.Attempted++
		if opts.DryRun {
			result.Updated++
			continue
		}

		if calls > 0 {
			if err := e.sleep(ctx, e.cfg.Delay); err != nil {
				return result, err
			}
		}
		calls++

		meta := catalog.HTSMeta(rec.Code, rec.Confidence, e.now(), e.cfg.CountryOfOrigin)
		if err := e.updater.UpdateProduct(ctx, rec.ProductID, meta); err != nil {
			e.fail(result, rec, err)
			continue
		}
		result.Updated++
		e.logger.Debugw("Updated", logger.FieldProductID, rec.ProductID, logger.FieldCode, rec.Code)
	}

	e.logger.Infow("Push finished",
		"attempted", result.Attempted,
		"updated", result.Updated,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}

func (e *Engine) fail(result *PushResult, rec match.Record, err error) {
	result.Failed++
	result.Failures = append(result.Failures, Failure{ProductID: rec.ProductID, SKU: rec.SKU, Err: err})
	e.logger.Warnw("Update failed",
		logger.FieldProductID, rec.ProductID,
		logger.FieldSKU, rec.SKU,
		logger.FieldError, err,
	)
}

func itemOf(rec match.Record) Item {
	return Item{
		ProductID:  rec.ProductID,
		SKU:        rec.SKU,
		Name:       rec.Name,
		Code:       rec.Code,
		Confidence: rec.Confidence,
		MatchedAt:  rec.MatchedAt,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
