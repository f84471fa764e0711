// Package pipeline runs products through extraction, classification,
// disposition and storage, one item at a time.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/logger"
	"github.com/teranos/htsmatch/match"
)

// Classifier produces an outcome for one request. hts.Classifier never
// panics, but other implementations may; Process recovers either way.
type Classifier interface {
	Classify(ctx context.Context, req hts.Request) hts.Outcome
}

// Store persists outcomes. *match.Store implements it.
type Store interface {
	Upsert(ctx context.Context, rec match.Record) (match.Record, error)
	AppendLog(ctx context.Context, entry match.LogEntry) error
}

// Config controls batching and pacing.
type Config struct {
	BatchSize  int
	ItemDelay  time.Duration // after every item
	BatchDelay time.Duration // after every batch but the last
	Policy     hts.Policy
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return errors.NewConfigError("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.ItemDelay < 0 || c.BatchDelay < 0 {
		return errors.NewConfigError("delays must not be negative")
	}
	if _, err := hts.NewPolicy(c.Policy.AutoApprove); err != nil {
		return err
	}
	return nil
}

// Processor classifies products sequentially in input order.
type Processor struct {
	classifier Classifier
	store      Store
	cfg        Config
	emitter    Emitter
	logger     *zap.SugaredLogger

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	newRunID func() string
}

// NewProcessor validates cfg and creates a processor.
func NewProcessor(classifier Classifier, store Store, cfg Config, log *zap.SugaredLogger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Processor{
		classifier: classifier,
		store:      store,
		cfg:        cfg,
		emitter:    NopEmitter{},
		logger:     logger.OrNop(log),
		now:        time.Now,
		sleep:      sleepContext,
		newRunID:   uuid.NewString,
	}, nil
}

// WithEmitter sets the progress sink.
func (p *Processor) WithEmitter(e Emitter) *Processor {
	if e == nil {
		e = NopEmitter{}
	}
	p.emitter = e
	return p
}

// Process classifies products in contiguous batches of Config.BatchSize.
// A failing item is recorded in Run.Failures and the loop moves on. If ctx
// is cancelled the partial run is returned together with ctx.Err(); rows
// already stored stay stored.
func (p *Processor) Process(ctx context.Context, products []catalog.Product) (*Run, error) {
	run := &Run{
		RunID:     p.newRunID(),
		StartedAt: p.now(),
	}
	log := p.logger.With(logger.FieldRunID, run.RunID)

	batches := batchCount(len(products), p.cfg.BatchSize)
	p.emitter.Started(run, len(products), batches)
	log.Infow("Run started", logger.FieldCount, len(products), logger.FieldBatchSize, p.cfg.BatchSize)

	err := p.process(ctx, run, products, batches, log)

	run.FinishedAt = p.now()
	p.emitter.Finished(run)
	log.Infow("Run finished",
		"attempted", run.Attempted,
		"approved", run.Approved,
		"pending", run.Pending,
		"manual", run.Manual,
		"fallbacks", run.Fallbacks,
		"failed", run.Failed,
		logger.FieldDurationMS, run.Duration().Milliseconds(),
	)
	return run, err
}

func (p *Processor) process(ctx context.Context, run *Run, products []catalog.Product, batches int, log *zap.SugaredLogger) error {
	total := len(products)
	for b := 0; b < batches; b++ {
		start := b * p.cfg.BatchSize
		end := min(start+p.cfg.BatchSize, total)
		log.Debugw("Batch started", logger.FieldBatch, b+1, logger.FieldCount, end-start)

		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			run.Attempted++
			rec, outcome, failure := p.processItem(ctx, run.RunID, products[i])
			if failure != nil {
				run.recordFailure(*failure)
				p.emitter.ItemFailed(i+1, total, *failure)
				log.Errorw("Item skipped",
					logger.FieldProductID, failure.ProductID,
					logger.FieldSKU, failure.SKU,
					logger.FieldStage, failure.Stage,
					logger.FieldError, failure.Err,
				)
			} else {
				run.recordSuccess(rec, outcome)
				p.emitter.ItemDone(i+1, total, rec, outcome)
			}

			if err := p.sleep(ctx, p.cfg.ItemDelay); err != nil {
				return err
			}
		}

		if b < batches-1 && p.cfg.BatchDelay > 0 {
			p.emitter.BatchPaused(b+1, batches, p.cfg.BatchDelay)
			if err := p.sleep(ctx, p.cfg.BatchDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// processItem runs one product through the pipeline. Panics at any stage
// become a Failure for that stage.
func (p *Processor) processItem(ctx context.Context, runID string, product catalog.Product) (rec match.Record, outcome hts.Outcome, failure *Failure) {
	stage := StageExtract
	fail := func(err error) *Failure {
		return &Failure{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Stage:     stage,
			Err:       err,
		}
	}
	defer func() {
		if r := recover(); r != nil {
			failure = fail(errors.Newf("panic: %s", fmt.Sprint(r)))
		}
	}()

	started := p.now()
	req := hts.Extract(product)

	stage = StageClassify
	outcome = p.classifier.Classify(ctx, req)

	stage = StageStore
	rec, err := p.store.Upsert(ctx, match.NewRecord(req, outcome.Result, p.cfg.Policy.Disposition(outcome.Result.Confidence)))
	if err != nil {
		return match.Record{}, outcome, fail(err)
	}

	entry := match.LogEntry{
		ProductID:    product.ID,
		RunID:        runID,
		APICalls:     1,
		Duration:     p.now().Sub(started),
		InputTokens:  outcome.Usage.InputTokens,
		OutputTokens: outcome.Usage.OutputTokens,
		Fallback:     outcome.IsFallback(),
	}
	// The match row is already committed; a lost log row only skews metrics.
	if err := p.store.AppendLog(ctx, entry); err != nil {
		p.logger.Warnw("Processing log append failed", logger.FieldProductID, product.ID, logger.FieldError, err)
	}
	return rec, outcome, nil
}

func batchCount(n, size int) int {
	if n == 0 {
		return 0
	}
	return (n + size - 1) / size
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
