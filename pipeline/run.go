package pipeline

import (
	"time"

	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/match"
)

// Stages at which an item can fail.
const (
	StageExtract  = "extract"
	StageClassify = "classify"
	StageStore    = "store"
)

// Failure identifies a product that was skipped.
type Failure struct {
	ProductID int64
	SKU       string
	Name      string
	Stage     string
	Err       error
}

// Run reports one Process call.
type Run struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	Attempted int
	Approved  int
	Pending   int
	Manual    int
	Fallbacks int // stored with the fallback result
	Failed    int // skipped, nothing stored

	Records  []match.Record
	Failures []Failure
}

// ApprovedIDs returns the ids stored as approved during the run.
func (r *Run) ApprovedIDs() []int64 {
	var ids []int64
	for _, rec := range r.Records {
		if rec.Status == hts.StatusApproved {
			ids = append(ids, rec.ProductID)
		}
	}
	return ids
}

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Run) recordSuccess(rec match.Record, outcome hts.Outcome) {
	r.Records = append(r.Records, rec)
	if outcome.IsFallback() {
		r.Fallbacks++
	}
	switch rec.Status {
	case hts.StatusApproved:
		r.Approved++
	case hts.StatusPending:
		r.Pending++
	case hts.StatusManual:
		r.Manual++
	}
}

func (r *Run) recordFailure(f Failure) {
	r.Failures = append(r.Failures, f)
	r.Failed++
}
