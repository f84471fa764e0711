package logger

import (
	"go.uber.org/zap"
)

// Standard field names for structured logging. Use these instead of raw strings.
const (
	FieldRunID      = "run_id"
	FieldProductID  = "product_id"
	FieldSKU        = "sku"
	FieldCode       = "hts_code"
	FieldConfidence = "confidence"
	FieldStatus     = "status"
	FieldReason     = "reason"
	FieldStage      = "stage"
	FieldTarget     = "target"
	FieldURL        = "url"
	FieldPage       = "page"
	FieldModel      = "model"

	FieldDurationMS = "duration_ms"
	FieldCount      = "count"
	FieldBatch      = "batch"
	FieldBatchSize  = "batch_size"

	FieldError = "error"
	FieldPath  = "path"
)

// ComponentLogger returns a named child of the global logger.
//
//	store := match.NewStore(db, logger.ComponentLogger("match"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}
