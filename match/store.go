package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/hts"
	"github.com/teranos/htsmatch/logger"
)

// RollingWindow is the span covered by the rolling Summary fields.
const RollingWindow = 24 * time.Hour

const (
	upsertQuery = `
		INSERT INTO product_matches (
			product_id, sku, name, description, categories,
			hts_code, hts_description, confidence, reasoning, material, alternative_codes,
			status, matched_at, first_matched_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(product_id) DO UPDATE SET
			sku = excluded.sku,
			name = excluded.name,
			description = excluded.description,
			categories = excluded.categories,
			hts_code = excluded.hts_code,
			hts_description = excluded.hts_description,
			confidence = excluded.confidence,
			reasoning = excluded.reasoning,
			material = excluded.material,
			alternative_codes = excluded.alternative_codes,
			status = excluded.status,
			matched_at = excluded.matched_at,
			first_matched_at = COALESCE(product_matches.first_matched_at, excluded.first_matched_at),
			updated_at = excluded.updated_at`

	appendLogQuery = `
		INSERT INTO processing_log (
			product_id, api_calls, processing_time, timestamp,
			run_id, input_tokens, output_tokens, fallback
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectColumns = `
		SELECT product_id, COALESCE(sku, ''), COALESCE(name, ''), COALESCE(description, ''),
			COALESCE(categories, '[]'), COALESCE(hts_code, ''), COALESCE(hts_description, ''),
			COALESCE(confidence, 0), COALESCE(reasoning, ''), COALESCE(material, ''),
			COALESCE(alternative_codes, '[]'), COALESCE(status, 'pending'),
			matched_at, first_matched_at, updated_at, COALESCE(review_notes, '')
		FROM product_matches`

	statusCountsQuery = `
		SELECT
			COUNT(*),
			COALESCE(SUM(status = 'approved'), 0),
			COALESCE(SUM(status = 'pending'), 0),
			COALESCE(SUM(status = 'manual'), 0),
			COALESCE(SUM(status = 'rejected'), 0),
			COUNT(DISTINCT hts_code)
		FROM product_matches`

	avgConfidenceQuery = `
		SELECT COALESCE(AVG(confidence), 0) FROM product_matches WHERE confidence > 0`

	rollingQuery = `
		SELECT
			COALESCE(SUM(api_calls), 0),
			COALESCE(AVG(processing_time), 0),
			COALESCE(SUM(input_tokens), 0),
			COALESCE(SUM(output_tokens), 0),
			COALESCE(SUM(fallback), 0)
		FROM processing_log
		WHERE timestamp > ?`
)

// Store is the SQLite-backed match store. It is the only writer of
// product_matches and processing_log. Every method commits before returning.
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewStore creates a store over a migrated database.
func NewStore(db *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{
		db:     db,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Upsert inserts or replaces the row for rec.ProductID and returns the row
// as stored. matched_at and updated_at are set to now; first_matched_at and
// review_notes survive replacement.
func (s *Store) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.ProductID <= 0 {
		return Record{}, errors.Wrapf(errors.ErrInvalidRequest, "invalid product id %d", rec.ProductID)
	}
	if _, err := hts.ParseStatus(string(rec.Status)); err != nil {
		return Record{}, err
	}

	categories, err := encodeList(rec.Categories)
	if err != nil {
		return Record{}, errors.Wrap(err, "encode categories")
	}
	alternatives, err := encodeList(rec.AlternativeCodes)
	if err != nil {
		return Record{}, errors.Wrap(err, "encode alternative codes")
	}

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, errors.Wrap(err, "begin upsert")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, upsertQuery,
		rec.ProductID, rec.SKU, rec.Name, rec.Description, categories,
		rec.Code, rec.CodeDescription, rec.Confidence, rec.Reasoning, rec.Material, alternatives,
		string(rec.Status), now, now, now,
	)
	if err != nil {
		return Record{}, errors.Wrapf(err, "upsert match for product %d", rec.ProductID)
	}

	stored, err := scanRecord(tx.QueryRowContext(ctx, selectColumns+` WHERE product_id = ?`, rec.ProductID))
	if err != nil {
		return Record{}, errors.Wrapf(err, "read back product %d", rec.ProductID)
	}
	if err := tx.Commit(); err != nil {
		return Record{}, errors.Wrap(err, "commit upsert")
	}

	s.logger.Debugw("Match stored",
		logger.FieldProductID, stored.ProductID,
		logger.FieldCode, stored.Code,
		logger.FieldStatus, string(stored.Status),
	)
	return stored, nil
}

// AppendLog records one classification attempt.
func (s *Store) AppendLog(ctx context.Context, entry LogEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	var runID sql.NullString
	if entry.RunID != "" {
		runID = sql.NullString{String: entry.RunID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, appendLogQuery,
		entry.ProductID, entry.APICalls, entry.Duration.Seconds(), ts.UTC(),
		runID, entry.InputTokens, entry.OutputTokens, entry.Fallback,
	)
	if err != nil {
		return errors.Wrapf(err, "append processing log for product %d", entry.ProductID)
	}
	return nil
}

// Get returns the record for id or an error marked errors.ErrNotFound.
func (s *Store) Get(ctx context.Context, id int64) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, selectColumns+` WHERE product_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, errors.NewNotFoundError("no match for product %d", id)
	}
	if err != nil {
		return Record{}, errors.Wrapf(err, "get product %d", id)
	}
	return rec, nil
}

// StatusByID returns the current status of id.
func (s *Store) StatusByID(ctx context.Context, id int64) (hts.Status, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(status, 'pending') FROM product_matches WHERE product_id = ?`, id,
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.NewNotFoundError("no match for product %d", id)
	}
	if err != nil {
		return "", errors.Wrapf(err, "status of product %d", id)
	}
	return hts.Status(status), nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_matches`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count matches")
	}
	return n, nil
}

// Summary aggregates counts by status and the rolling processing metrics.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	err := s.db.QueryRowContext(ctx, statusCountsQuery).Scan(
		&sum.Total, &sum.Approved, &sum.Pending, &sum.NeedsManual, &sum.Rejected, &sum.UniqueCodes,
	)
	if err != nil {
		return Summary{}, errors.Wrap(err, "count by status")
	}

	if err := s.db.QueryRowContext(ctx, avgConfidenceQuery).Scan(&sum.AvgConfidence); err != nil {
		return Summary{}, errors.Wrap(err, "average confidence")
	}

	var avgSeconds float64
	since := s.now().Add(-RollingWindow).UTC()
	err = s.db.QueryRowContext(ctx, rollingQuery, since).Scan(
		&sum.APICalls24h, &avgSeconds, &sum.InputTokens24h, &sum.OutputTokens24h, &sum.Fallbacks24h,
	)
	if err != nil {
		return Summary{}, errors.Wrap(err, "rolling metrics")
	}
	sum.AvgProcessingTime = time.Duration(avgSeconds * float64(time.Second))
	return sum, nil
}

// MissingClassification returns the ids in ids that have no stored record,
// deduplicated, in input order.
func (s *Store) MissingClassification(ctx context.Context, ids []int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT product_id FROM product_matches`)
	if err != nil {
		return nil, errors.Wrap(err, "list stored product ids")
	}
	defer rows.Close()

	stored := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan product id")
		}
		stored[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list stored product ids")
	}

	var missing []int64
	for _, id := range ids {
		if stored[id] {
			continue
		}
		stored[id] = true
		missing = append(missing, id)
	}
	return missing, nil
}

// Approved returns approved records matching f, ordered by product id.
func (s *Store) Approved(ctx context.Context, f ApprovedFilter) ([]Record, error) {
	query := selectColumns + ` WHERE status = 'approved'`
	var args []any

	if !f.Since.IsZero() {
		query += ` AND matched_at >= ?`
		args = append(args, f.Since.UTC())
	}
	if f.IDs != nil {
		if len(f.IDs) == 0 {
			return nil, nil
		}
		query += ` AND product_id IN (` + placeholders(len(f.IDs)) + `)`
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY product_id`

	return s.query(ctx, "approved matches", query, args...)
}

// PendingReview returns pending and manual records, highest confidence
// first. limit <= 0 returns all of them.
func (s *Store) PendingReview(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, "pending review",
		selectColumns+` WHERE status IN ('pending', 'manual') ORDER BY confidence DESC, product_id LIMIT ?`,
		limit,
	)
}

// All returns every record ordered by status then confidence descending.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	return s.query(ctx, "all matches", selectColumns+` ORDER BY status, confidence DESC, product_id`)
}

func (s *Store) query(ctx context.Context, what, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, what)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.Wrap(err, what)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, what)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec                              Record
		categories, alternatives, status string
		matched, first, updated          sql.NullTime
	)
	err := row.Scan(
		&rec.ProductID, &rec.SKU, &rec.Name, &rec.Description, &categories,
		&rec.Code, &rec.CodeDescription, &rec.Confidence, &rec.Reasoning, &rec.Material,
		&alternatives, &status, &matched, &first, &updated, &rec.ReviewNotes,
	)
	if err != nil {
		return Record{}, err
	}

	rec.Status = hts.Status(status)
	rec.Categories = decodeList(categories)
	rec.AlternativeCodes = decodeList(alternatives)
	rec.MatchedAt = matched.Time
	rec.FirstMatchedAt = first.Time
	rec.UpdatedAt = updated.Time
	if rec.FirstMatchedAt.IsZero() {
		rec.FirstMatchedAt = rec.MatchedAt
	}
	return rec, nil
}

// encodeList stores nil as "[]" so readers never see NULL.
func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeList tolerates rows written by older tools; anything that is not a
// JSON string list reads as empty.
func decodeList(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil || len(values) == 0 {
		return nil
	}
	return values
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
