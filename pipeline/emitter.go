package pipeline

import (
	"encoding/json"
	"io"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/match"
	"github.com/teranos/htsmatch/sym"
)

// Emitter receives progress events from Process. Calls are made from the
// processing goroutine, in order.
type Emitter interface {
	Started(run *Run, total, batches int)
	ItemDone(index, total int, rec match.Record, outcome hts.Outcome)
	ItemFailed(index, total int, f Failure)
	BatchPaused(batch, batches int, d time.Duration)
	Finished(run *Run)
}

// NopEmitter discards events.
type NopEmitter struct{}

func (NopEmitter) Started(*Run, int, int) {}
func (NopEmitter) ItemDone(int, int, match.Record, hts.Outcome) {}
func (NopEmitter) ItemFailed(int, int, Failure) {}
func (NopEmitter) BatchPaused(int, int, time.Duration) {}
func (NopEmitter) Finished(*Run) {}

// CLIEmitter prints progress to the terminal using pterm
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter creates a terminal emitter. At verbosity >= 1 the model's
// reasoning is printed for each item.
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

func (e *CLIEmitter) Started(run *Run, total, batches int) {
	pterm.Printf("%s Classifying %s products in %d batches (run %s)\n",
		sym.Pulse, pterm.LightCyan(total), batches, pterm.Gray(run.RunID))
}

func (e *CLIEmitter) ItemDone(index, total int, rec match.Record, outcome hts.Outcome) {
	code := rec.Code
	if outcome.IsFallback() {
		code = pterm.Yellow(code + " (" + string(outcome.Failure) + ")")
	}
	pterm.Printf("  [%d/%d] %s %s  %s  %.0f%%  %s\n",
		index, total, sym.ForStatus(string(rec.Status)), rec.Name, code, rec.Confidence*100, statusColor(rec.Status))
	if e.verbosity >= 1 && rec.Reasoning != "" {
		pterm.Printf("         %s\n", pterm.Gray(rec.Reasoning))
	}
}

func (e *CLIEmitter) ItemFailed(index, total int, f Failure) {
	pterm.Error.Printf("[%d/%d] %s (id %d) skipped at %s: %v\n", index, total, f.Name, f.ProductID, f.Stage, f.Err)
}

func (e *CLIEmitter) BatchPaused(batch, batches int, d time.Duration) {
	pterm.Printf("%s Batch %d/%d done, pausing %s\n", sym.Pulse, batch, batches, d)
}

func (e *CLIEmitter) Finished(run *Run) {
	pterm.Success.Printf("Processed %d products in %s\n", run.Attempted, run.Duration().Round(time.Second))
	pterm.Printf("  %s approved: %d\n", sym.Approved, run.Approved)
	pterm.Printf("  %s pending:  %d\n", sym.Pending, run.Pending)
	pterm.Printf("  %s manual:   %d\n", sym.Manual, run.Manual)
	if run.Fallbacks > 0 {
		pterm.Warning.Printf("%d stored as unclassified after model failures\n", run.Fallbacks)
	}
	if run.Failed > 0 {
		pterm.Error.Printf("%d skipped:\n", run.Failed)
		for _, f := range run.Failures {
			pterm.Printf("    %d  %s  %s\n", f.ProductID, f.SKU, f.Name)
		}
	}
}

func statusColor(s hts.Status) string {
	switch s {
	case hts.StatusApproved:
		return pterm.Green(string(s))
	case hts.StatusPending:
		return pterm.Yellow(string(s))
	default:
		return pterm.Red(string(s))
	}
}

// Event is one line written by JSONEmitter.
type Event struct {
	Type      string         `json:"type"` // started, item, failed, paused, finished
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// JSONEmitter writes newline-delimited JSON events.
type JSONEmitter struct {
	encoder *json.Encoder
	now     func() time.Time
}

// NewJSONEmitter creates an emitter writing to w.
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(w), now: time.Now}
}

func (e *JSONEmitter) emit(typ string, data map[string]any) {
	_ = e.encoder.Encode(Event{Type: typ, Timestamp: e.now().UTC(), Data: data})
}

func (e *JSONEmitter) Started(run *Run, total, batches int) {
	e.emit("started", map[string]any{"run_id": run.RunID, "total": total, "batches": batches})
}

func (e *JSONEmitter) ItemDone(index, total int, rec match.Record, outcome hts.Outcome) {
	e.emit("item", map[string]any{
		"index":      index,
		"total":      total,
		"product_id": rec.ProductID,
		"hts_code":   rec.Code,
		"confidence": rec.Confidence,
		"status":     rec.Status,
		"failure":    outcome.Failure,
	})
}

func (e *JSONEmitter) ItemFailed(index, total int, f Failure) {
	e.emit("failed", map[string]any{
		"index":      index,
		"total":      total,
		"product_id": f.ProductID,
		"stage":      f.Stage,
		"error":      f.Err.Error(),
	})
}

func (e *JSONEmitter) BatchPaused(batch, batches int, d time.Duration) {
	e.emit("paused", map[string]any{"batch": batch, "batches": batches, "delay_ms": d.Milliseconds()})
}

func (e *JSONEmitter) Finished(run *Run) {
	e.emit("finished", map[string]any{
		"run_id":    run.RunID,
		"attempted": run.Attempted,
		"approved":  run.Approved,
		"pending":   run.Pending,
		"manual":    run.Manual,
		"fallbacks": run.Fallbacks,
		"failed":    run.Failed,
	})
}
