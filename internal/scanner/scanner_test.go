package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/blackwell-systems/leechkit/internal/detector"
	"github.com/blackwell-systems/leechkit/internal/metrics"
	"github.com/blackwell-systems/leechkit/internal/output"
	"github.com/blackwell-systems/leechkit/internal/pbd"
	"github.com/blackwell-systems/leechkit/internal/revlog"
	"github.com/blackwell-systems/leechkit/internal/store"
)

// 2025-01-01 12:00:00 UTC in milliseconds
const baseMs = int64(1735732800) * 1000

const dayMs = revlog.SecondsPerDay * 1000

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// addCard inserts a card with one review per day. The first three days are
// warm-up reviews; the outcomes after them become trials.
func addCard(t *testing.T, s *store.Store, id int64, stability float64, outcomes ...revlog.Ease) {
	t.Helper()
	if err := s.InsertNote(&store.Note{ID: id}); err != nil {
		t.Fatalf("InsertNote() failed: %v", err)
	}
	if err := s.InsertCard(&store.Card{ID: id, NoteID: id, Deck: "Default"}); err != nil {
		t.Fatalf("InsertCard() failed: %v", err)
	}

	eases := append([]revlog.Ease{revlog.Good, revlog.Good, revlog.Good}, outcomes...)
	for i, e := range eases {
		row := &store.ReviewRow{
			ID:        baseMs + int64(i)*dayMs + id, // id offset keeps primary keys unique
			CardID:    id,
			Ease:      e,
			Kind:      revlog.KindReview,
			Stability: stability,
		}
		if err := s.InsertReview(row); err != nil {
			t.Fatalf("InsertReview() failed: %v", err)
		}
	}
}

func repeat(e revlog.Ease, n int) []revlog.Ease {
	out := make([]revlog.Ease, n)
	for i := range out {
		out[i] = e
	}
	return out
}

// leechOutcomes is 2 successes out of 10 trials at R=0.9, P(X<=2) ~ 3.7e-7.
func leechOutcomes() []revlog.Ease {
	return append(repeat(revlog.Good, 2), repeat(revlog.Again, 8)...)
}

func defaultOptions() Options {
	cfg := detector.DefaultConfig()
	return Options{Detector: cfg, Workers: 2, Tag: "maybe-leech"}
}

func TestScan(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, repeat(revlog.Good, 10)...)
	addCard(t, s, 2, 1, leechOutcomes()...)
	addCard(t, s, 3, -1, repeat(revlog.Good, 10)...) // corrupt stability
	addCard(t, s, 4, 1, revlog.Good)                 // one trial only

	m := metrics.NewManager()
	sc := New(s, WithMetrics(m))

	var total int
	var order []int64
	opts := defaultOptions()
	opts.OnStart = func(n int) { total = n }
	opts.OnResult = func(r CardResult) { order = append(order, r.Card.ID) }

	report, err := sc.Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	if total != 4 {
		t.Errorf("OnStart total = %d, want 4", total)
	}
	if report.Checked != 4 {
		t.Errorf("Checked = %d, want 4", report.Checked)
	}
	for i, id := range []int64{1, 2, 3, 4} {
		if order[i] != id {
			t.Errorf("OnResult order = %v, want card id order", order)
			break
		}
	}

	if len(report.Leeches) != 1 || report.Leeches[0].Card.ID != 2 {
		t.Fatalf("Leeches = %+v, want card 2", report.Leeches)
	}
	if !report.Leeches[0].IsLeech() {
		t.Error("IsLeech() should be true for a leech")
	}
	if p := *report.Leeches[0].Result.Probability; p > 1e-6 {
		t.Errorf("leech probability = %g, want ~3.7e-7", p)
	}

	if len(report.Errors) != 1 || report.Errors[0].Card.ID != 3 {
		t.Fatalf("Errors = %+v, want card 3", report.Errors)
	}
	if !errors.Is(report.Errors[0].Err, pbd.ErrInvalidProbability) {
		t.Errorf("card 3 error = %v, want ErrInvalidProbability", report.Errors[0].Err)
	}

	if report.Run != nil {
		t.Error("Run should be nil when not writing")
	}

	card, err := s.GetCard(2)
	if err != nil {
		t.Fatalf("GetCard() failed: %v", err)
	}
	if len(card.Tags) != 0 || card.Flags != 0 {
		t.Errorf("read-only scan modified card: %+v", card)
	}
}

func TestScan_InvalidConfig(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, leechOutcomes()...)

	opts := defaultOptions()
	opts.Detector.SkipReviews = 0
	started := false
	opts.OnStart = func(int) { started = true }

	_, err := New(s).Scan(context.Background(), opts)
	if !errors.Is(err, detector.ErrInvalidConfig) {
		t.Fatalf("Scan() error = %v, want ErrInvalidConfig", err)
	}
	if started {
		t.Error("no card should be read with an invalid config")
	}
}

func TestScan_Write(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, repeat(revlog.Good, 10)...)
	addCard(t, s, 2, 1, leechOutcomes()...)
	addCard(t, s, 3, 1, leechOutcomes()...)

	opts := defaultOptions()
	opts.Write = true
	opts.Flag = true

	report, err := New(s).Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if report.Run == nil {
		t.Fatal("Run should be recorded")
	}
	if report.Run.CardCount != 2 {
		t.Errorf("CardCount = %d, want 2", report.Run.CardCount)
	}

	for _, id := range []int64{2, 3} {
		card, err := s.GetCard(id)
		if err != nil {
			t.Fatalf("GetCard() failed: %v", err)
		}
		if len(card.Tags) != 1 || card.Tags[0] != "maybe-leech" {
			t.Errorf("card %d tags = %v, want [maybe-leech]", id, card.Tags)
		}
		if card.Flags&store.LeechFlag == 0 {
			t.Errorf("card %d flags = %d, want leech flag", id, card.Flags)
		}
	}

	card, err := s.GetCard(1)
	if err != nil {
		t.Fatalf("GetCard() failed: %v", err)
	}
	if len(card.Tags) != 0 || card.Flags != 0 {
		t.Errorf("healthy card modified: %+v", card)
	}
}

func TestScan_WriteWithoutLeeches(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, repeat(revlog.Good, 10)...)

	opts := defaultOptions()
	opts.Write = true

	report, err := New(s).Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if report.Run != nil {
		t.Error("no run should be recorded without leeches")
	}
}

func TestScan_Query(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, leechOutcomes()...)
	if err := s.InsertNote(&store.Note{ID: 50}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertCard(&store.Card{ID: 50, NoteID: 50, Deck: "Other"}); err != nil {
		t.Fatal(err)
	}

	opts := defaultOptions()
	opts.Query = store.CardQuery{Deck: "Other"}

	report, err := New(s).Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if report.Checked != 1 || len(report.Leeches) != 0 {
		t.Errorf("report = %+v, want 1 checked card and no leeches", report)
	}
}

func TestScan_CancelledContext(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, leechOutcomes()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := defaultOptions()
	opts.Write = true
	_, err := New(s).Scan(ctx, opts)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Scan() error = %v, want context.Canceled", err)
	}

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 0 {
		t.Error("an interrupted scan must not write")
	}
}

func TestScan_NotInitialized(t *testing.T) {
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	_, err = New(s).Scan(context.Background(), defaultOptions())
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("Scan() error = %v, want ErrNotInitialized", err)
	}
}

func TestScan_ManyCardsKeepOrder(t *testing.T) {
	s := newTestStore(t)
	for id := int64(1); id <= 40; id++ {
		if id%5 == 0 {
			addCard(t, s, id, 1, leechOutcomes()...)
		} else {
			addCard(t, s, id, 1, repeat(revlog.Good, 10)...)
		}
	}

	opts := defaultOptions()
	opts.Workers = 8
	var last int64
	opts.OnResult = func(r CardResult) {
		if r.Card.ID <= last {
			t.Errorf("card %d delivered after %d", r.Card.ID, last)
		}
		last = r.Card.ID
	}

	report, err := New(s).Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(report.Leeches) != 8 {
		t.Errorf("Leeches = %d, want 8", len(report.Leeches))
	}
}

func TestExplain(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, leechOutcomes()...)

	card, ex, err := New(s).Explain(context.Background(), 1, detector.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Explain() failed: %v", err)
	}
	if card.ID != 1 {
		t.Errorf("card = %+v", card)
	}
	if !ex.Result.IsLeech {
		t.Error("card 1 should be a leech")
	}
	if len(ex.Steps) != 10 {
		t.Errorf("Steps = %d, want 10", len(ex.Steps))
	}

	if _, _, err := New(s).Explain(context.Background(), 99, detector.DefaultConfig(), nil); !errors.Is(err, store.ErrCardNotFound) {
		t.Errorf("Explain(99) error = %v, want ErrCardNotFound", err)
	}
}

func TestScanMissingStability(t *testing.T) {
	s := newTestStore(t)
	addCard(t, s, 1, 1, leechOutcomes()...)
	addCard(t, s, 2, 1, leechOutcomes()...)
	// Card 2 was studied before its memory state was recorded.
	if _, err := s.DB().Exec(`UPDATE revlog SET stability = NULL WHERE card_id = 2`); err != nil {
		t.Fatalf("failed to clear stability: %v", err)
	}

	report, err := New(s).Scan(context.Background(), defaultOptions())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	if len(report.Leeches) != 1 || report.Leeches[0].Card.ID != 1 {
		t.Errorf("Leeches = %+v, want card 1 only", report.Leeches)
	}
	if len(report.Errors) != 1 || report.Errors[0].Card.ID != 2 {
		t.Fatalf("Errors = %+v, want card 2", report.Errors)
	}
	if !errors.Is(report.Errors[0].Err, detector.ErrInvalidStability) {
		t.Errorf("card 2 error = %v, want ErrInvalidStability", report.Errors[0].Err)
	}
}

// Result callbacks render output while reviews are still being loaded with
// stdout redirected. Run with -race.
func TestScanRendersWhileLoading(t *testing.T) {
	s := newTestStore(t)
	for id := int64(1); id <= 200; id++ {
		addCard(t, s, id, 1, leechOutcomes()...)
	}

	want := output.Bold("leech")
	var mismatched int
	opts := defaultOptions()
	opts.Workers = 4
	opts.OnResult = func(r CardResult) {
		if output.Bold("leech") != want {
			mismatched++
		}
	}

	report, err := New(s).Scan(context.Background(), opts)
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(report.Leeches) != 200 {
		t.Errorf("Leeches = %d, want 200", len(report.Leeches))
	}
	if mismatched != 0 {
		t.Errorf("%d results rendered with a different color state", mismatched)
	}
}
