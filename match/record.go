// Package match is the durable store of classification outcomes: one
// MatchRecord per storefront product plus an append-only processing log.
package match

import (
	"time"

	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/internal/util"
)

// DescriptionSnippetChars bounds the description copy kept for reviewers.
const DescriptionSnippetChars = 200

// Record is the stored classification of one product. ProductID is the
// upsert key.
type Record struct {
	ProductID   int64
	SKU         string
	Name        string
	Description string
	Categories  []string

	Code             string
	CodeDescription  string
	Confidence       float64
	Reasoning        string
	Material         string
	AlternativeCodes []string

	Status         hts.Status
	MatchedAt      time.Time // last classification
	FirstMatchedAt time.Time
	UpdatedAt      time.Time
	ReviewNotes    string // operator-owned, never written by Upsert
}

// NewRecord combines a request and its result under status.
func NewRecord(req hts.Request, result hts.Result, status hts.Status) Record {
	return Record{
		ProductID:        req.ProductID,
		SKU:              req.SKU,
		Name:             req.Name,
		Description:      util.Truncate(req.Description, DescriptionSnippetChars),
		Categories:       req.Categories,
		Code:             result.Code,
		CodeDescription:  result.Description,
		Confidence:       result.Confidence,
		Reasoning:        result.Reasoning,
		Material:         result.Material,
		AlternativeCodes: result.AlternativeCodes,
		Status:           status,
	}
}

// IsFallback reports whether the record carries the unclassified placeholder.
func (r Record) IsFallback() bool {
	return hts.IsFallbackCode(r.Code)
}

// LogEntry is one classification attempt. Entries are never updated.
type LogEntry struct {
	ProductID    int64
	RunID        string
	APICalls     int
	Duration     time.Duration
	Timestamp    time.Time // zero = now
	InputTokens  int64
	OutputTokens int64
	Fallback     bool
}

// Summary aggregates the store. Rolling fields cover the last 24 hours of
// the processing log.
type Summary struct {
	Total         int     `json:"total"`
	Approved      int     `json:"approved"`
	Pending       int     `json:"pending"`
	NeedsManual   int     `json:"needs_manual"`
	Rejected      int     `json:"rejected"`
	AvgConfidence float64 `json:"avg_confidence"`
	UniqueCodes   int     `json:"unique_codes"`

	APICalls24h       int           `json:"api_calls_24h"`
	AvgProcessingTime time.Duration `json:"avg_processing_time"`
	InputTokens24h    int64         `json:"input_tokens_24h"`
	OutputTokens24h   int64         `json:"output_tokens_24h"`
	Fallbacks24h      int           `json:"fallbacks_24h"`
}

// ApprovedFilter narrows Approved. Zero values match everything.
type ApprovedFilter struct {
	Since time.Time // matched_at >= Since
	IDs   []int64
}
