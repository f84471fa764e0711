package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/hts"
	htstest "github.com/teranos/htsmatch/internal/testing"
	"github.com/teranos/htsmatch/match"
)

// scriptedCompleter answers with a fixed confidence per product name.
type scriptedCompleter struct {
	confidence map[string]float64
}

func (s *scriptedCompleter) Complete(_ context.Context, req hts.CompletionRequest) (*hts.Completion, error) {
	for name, c := range s.confidence {
		if strings.Contains(req.Prompt, "Product name: "+name+"\n") {
			body, _ := json.Marshal(map[string]any{
				"hts_code":        "6912.00.4810",
				"hts_description": "Ceramic tableware",
				"confidence":      c,
				"reasoning":       "stoneware",
				"material":        "stoneware",
			})
			return &hts.Completion{Text: string(body), Model: "test", InputTokens: 400, OutputTokens: 150}, nil
		}
	}
	return nil, errors.New("unexpected prompt")
}

// panicking wraps a classifier and panics for one product.
type panicking struct {
	inner   Classifier
	panicOn int64
}

func (p panicking) Classify(ctx context.Context, req hts.Request) hts.Outcome {
	if req.ProductID == p.panicOn {
		panic("model client exploded")
	}
	return p.inner.Classify(ctx, req)
}

type sleeper struct {
	calls []time.Duration
}

func (s *sleeper) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func products(names ...string) []catalog.Product {
	out := make([]catalog.Product, len(names))
	for i, name := range names {
		out[i] = catalog.Product{ID: int64(i + 1), SKU: "SKU-" + name, Name: name}
	}
	return out
}

func newProcessor(t *testing.T, classifier Classifier, store Store, cfg Config) (*Processor, *sleeper) {
	t.Helper()
	p, err := NewProcessor(classifier, store, cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	s := &sleeper{}
	p.sleep = s.sleep
	p.newRunID = func() string { return "run-test" }
	return p, s
}

func defaultConfig() Config {
	return Config{
		BatchSize:  10,
		ItemDelay:  time.Second,
		BatchDelay: 5 * time.Second,
		Policy:     hts.Policy{AutoApprove: 0.85},
	}
}

func TestProcess_EndToEnd(t *testing.T) {
	store := match.NewStore(htstest.CreateTestDB(t), nil)
	completer := &scriptedCompleter{confidence: map[string]float64{"Alpha": 0.95, "Beta": 0.70, "Gamma": 0.40}}
	classifier := hts.NewClassifier(completer, hts.ClassifierConfig{MaxTokens: 500, Temperature: 0.2}, nil)
	p, _ := newProcessor(t, classifier, store, defaultConfig())

	run, err := p.Process(context.Background(), products("Alpha", "Beta", "Gamma"))
	require.NoError(t, err)

	require.Len(t, run.Records, 3)
	assert.Equal(t, hts.StatusApproved, run.Records[0].Status)
	assert.Equal(t, hts.StatusPending, run.Records[1].Status)
	assert.Equal(t, hts.StatusManual, run.Records[2].Status)
	assert.Equal(t, 3, run.Attempted)
	assert.Equal(t, 1, run.Approved)
	assert.Equal(t, 1, run.Pending)
	assert.Equal(t, 1, run.Manual)
	assert.Zero(t, run.Failed)
	assert.Equal(t, []int64{1}, run.ApprovedIDs())
	assert.Equal(t, "run-test", run.RunID)

	sum, err := store.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Approved)
	assert.Equal(t, 1, sum.Pending)
	assert.Equal(t, 1, sum.NeedsManual)
	assert.Equal(t, 3, sum.APICalls24h)
	assert.Equal(t, int64(1200), sum.InputTokens24h)
}

func TestProcess_IsolatesPanickingItem(t *testing.T) {
	store := match.NewStore(htstest.CreateTestDB(t), nil)
	completer := &scriptedCompleter{confidence: map[string]float64{"A": 0.9, "B": 0.9, "C": 0.9, "D": 0.9, "E": 0.9}}
	inner := hts.NewClassifier(completer, hts.ClassifierConfig{MaxTokens: 500}, nil)
	p, _ := newProcessor(t, panicking{inner: inner, panicOn: 3}, store, defaultConfig())

	run, err := p.Process(context.Background(), products("A", "B", "C", "D", "E"))
	require.NoError(t, err)

	assert.Equal(t, 5, run.Attempted)
	assert.Len(t, run.Records, 4)
	require.Len(t, run.Failures, 1)
	assert.Equal(t, int64(3), run.Failures[0].ProductID)
	assert.Equal(t, StageClassify, run.Failures[0].Stage)
	assert.Contains(t, run.Failures[0].Err.Error(), "model client exploded")

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	missing, err := store.MissingClassification(context.Background(), []int64{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, missing)
}

func TestProcess_ModelFailureStoresFallback(t *testing.T) {
	store := match.NewStore(htstest.CreateTestDB(t), nil)
	completer := &scriptedCompleter{confidence: map[string]float64{"A": 0.9}}
	classifier := hts.NewClassifier(completer, hts.ClassifierConfig{MaxTokens: 500}, nil)
	p, _ := newProcessor(t, classifier, store, defaultConfig())

	run, err := p.Process(context.Background(), products("A", "Unknown"))
	require.NoError(t, err)

	require.Len(t, run.Records, 2)
	assert.Equal(t, 1, run.Fallbacks)
	assert.Zero(t, run.Failed)
	assert.Equal(t, hts.FallbackCode, run.Records[1].Code)
	assert.Equal(t, hts.StatusManual, run.Records[1].Status)
}

type failingStore struct {
	Store
	failOn int64
	logs   int
}

func (f *failingStore) Upsert(ctx context.Context, rec match.Record) (match.Record, error) {
	if rec.ProductID == f.failOn {
		return match.Record{}, errors.New("database is locked")
	}
	return f.Store.Upsert(ctx, rec)
}

func (f *failingStore) AppendLog(ctx context.Context, e match.LogEntry) error {
	f.logs++
	return errors.New("log table missing")
}

func TestProcess_StorageFailureSkipsItem(t *testing.T) {
	store := &failingStore{Store: match.NewStore(htstest.CreateTestDB(t), nil), failOn: 2}
	completer := &scriptedCompleter{confidence: map[string]float64{"A": 0.9, "B": 0.9, "C": 0.9}}
	classifier := hts.NewClassifier(completer, hts.ClassifierConfig{MaxTokens: 500}, nil)
	p, _ := newProcessor(t, classifier, store, defaultConfig())

	run, err := p.Process(context.Background(), products("A", "B", "C"))
	require.NoError(t, err)

	assert.Len(t, run.Records, 2, "log failures do not drop stored records")
	require.Len(t, run.Failures, 1)
	assert.Equal(t, int64(2), run.Failures[0].ProductID)
	assert.Equal(t, StageStore, run.Failures[0].Stage)
	assert.Equal(t, 2, store.logs)
}

type recordingClassifier struct {
	seen []int64
}

func (r *recordingClassifier) Classify(_ context.Context, req hts.Request) hts.Outcome {
	r.seen = append(r.seen, req.ProductID)
	return hts.Outcome{Result: hts.Result{Code: "6912.00.4810", Confidence: 0.9}}
}

type memStore struct {
	rows map[int64]match.Record
}

func (m *memStore) Upsert(_ context.Context, rec match.Record) (match.Record, error) {
	if m.rows == nil {
		m.rows = map[int64]match.Record{}
	}
	m.rows[rec.ProductID] = rec
	return rec, nil
}

func (m *memStore) AppendLog(context.Context, match.LogEntry) error { return nil }

func TestProcess_PacingAndOrder(t *testing.T) {
	classifier := &recordingClassifier{}
	cfg := defaultConfig()
	cfg.BatchSize = 2
	p, s := newProcessor(t, classifier, &memStore{}, cfg)

	_, err := p.Process(context.Background(), products("a", "b", "c", "d", "e"))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, classifier.seen)
	item, batch := time.Second, 5*time.Second
	assert.Equal(t, []time.Duration{item, item, batch, item, item, batch, item}, s.calls)
}

func TestProcess_CancelledBetweenItems(t *testing.T) {
	classifier := &recordingClassifier{}
	store := &memStore{}
	p, _ := newProcessor(t, classifier, store, defaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, d time.Duration) error {
		if len(classifier.seen) == 2 {
			cancel()
		}
		return ctx.Err()
	}

	run, err := p.Process(ctx, products("a", "b", "c", "d"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, run.Attempted)
	assert.Len(t, run.Records, 2)
	assert.Len(t, store.rows, 2)
	assert.False(t, run.FinishedAt.IsZero())
}

func TestProcess_Empty(t *testing.T) {
	p, s := newProcessor(t, &recordingClassifier{}, &memStore{}, defaultConfig())

	run, err := p.Process(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, run.Attempted)
	assert.Empty(t, s.calls)
}

func TestNewProcessor_ValidatesConfig(t *testing.T) {
	bad := []Config{
		{BatchSize: 0, Policy: hts.Policy{AutoApprove: 0.85}},
		{BatchSize: 1, ItemDelay: -time.Second, Policy: hts.Policy{AutoApprove: 0.85}},
		{BatchSize: 1, Policy: hts.Policy{AutoApprove: 0.5}},
	}
	for _, cfg := range bad {
		_, err := NewProcessor(&recordingClassifier{}, &memStore{}, cfg, nil)
		require.Error(t, err)
		assert.True(t, errors.IsConfig(err))
	}
}

func TestJSONEmitter(t *testing.T) {
	var buf bytes.Buffer
	p, _ := newProcessor(t, &recordingClassifier{}, &memStore{}, defaultConfig())
	p.WithEmitter(NewJSONEmitter(&buf))

	_, err := p.Process(context.Background(), products("a"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var types []string
	for _, line := range lines {
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		types = append(types, ev.Type)
	}
	assert.Equal(t, []string{"started", "item", "finished"}, types)
}

func TestEstimate(t *testing.T) {
	cfg := defaultConfig()
	est := Estimate(25, "claude-3-5-sonnet-20241022", cfg)

	assert.Equal(t, int64(10_000), est.InputTokens)
	assert.Equal(t, int64(3_750), est.OutputTokens)
	assert.InDelta(t, 25*(400*3.0+150*15.0)/1e6, est.CostUSD, 1e-9)
	assert.Equal(t, 25*1500*time.Millisecond+2*5*time.Second, est.Duration)

	assert.Equal(t, Estimation{Model: "m"}, Estimate(0, "m", cfg))
}
