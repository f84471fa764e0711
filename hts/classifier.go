package hts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/logger"
)

// CompletionRequest is a single-shot text completion.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Completion is the model's free-text answer.
type Completion struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Completer is the text-generation model behind the classifier.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// ClassifierConfig bounds the model call.
type ClassifierConfig struct {
	MaxTokens   int
	Temperature float64
}

// Classifier calls the model once per request and validates the answer.
type Classifier struct {
	completer Completer
	cfg       ClassifierConfig
	logger    *zap.SugaredLogger
}

// NewClassifier creates a classifier backed by completer.
func NewClassifier(completer Completer, cfg ClassifierConfig, log *zap.SugaredLogger) *Classifier {
	return &Classifier{
		completer: completer,
		cfg:       cfg,
		logger:    logger.OrNop(log),
	}
}

// Classify never fails: any transport, parse or validation problem yields
// an Outcome carrying the fallback Result and a FailureReason. The model is
// called exactly once; there are no retries.
func (c *Classifier) Classify(ctx context.Context, req Request) Outcome {
	start := time.Now()
	outcome := c.classify(ctx, req)
	outcome.Duration = time.Since(start)

	if outcome.IsFallback() {
		c.logger.Warnw("Classification fell back",
			logger.FieldProductID, req.ProductID,
			logger.FieldSKU, req.SKU,
			logger.FieldReason, string(outcome.Failure),
			logger.FieldError, outcome.Err,
		)
	} else {
		c.logger.Debugw("Classified",
			logger.FieldProductID, req.ProductID,
			logger.FieldCode, outcome.Result.Code,
			logger.FieldConfidence, outcome.Result.Confidence,
		)
	}
	return outcome
}

func (c *Classifier) classify(ctx context.Context, req Request) Outcome {
	prompt, err := RenderPrompt(req)
	if err != nil {
		return failed(FailureTransport, err)
	}

	completion, err := c.complete(ctx, CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return failed(FailureTransport, err)
	}
	if completion == nil {
		return failed(FailureEmptyResponse, errors.New("model returned no completion"))
	}

	c.logger.Debugw("Model response", logger.FieldProductID, req.ProductID, "text", completion.Text)

	result, reason, err := ParseResponse(completion.Text)
	return Outcome{
		Result:  result,
		Failure: reason,
		Err:     err,
		Model:   completion.Model,
		Usage: Usage{
			InputTokens:  completion.InputTokens,
			OutputTokens: completion.OutputTokens,
		},
	}
}

// complete converts a panic inside the completer into an error.
func (c *Classifier) complete(ctx context.Context, req CompletionRequest) (completion *Completion, err error) {
	defer func() {
		if r := recover(); r != nil {
			completion = nil
			err = errors.Newf("model client panicked: %s", fmt.Sprint(r))
		}
	}()
	return c.completer.Complete(ctx, req)
}
