// Package scanner runs the leech detector over the cards of a collection.
package scanner

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/blackwell-systems/leechkit/internal/detector"
	"github.com/blackwell-systems/leechkit/internal/logger"
	"github.com/blackwell-systems/leechkit/internal/metrics"
	"github.com/blackwell-systems/leechkit/internal/output"
	"github.com/blackwell-systems/leechkit/internal/revlog"
	"github.com/blackwell-systems/leechkit/internal/store"
)

// Scanner classifies cards read from a store.
type Scanner struct {
	store   *store.Store
	logger  logger.Logger
	metrics *metrics.Manager
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records scan statistics on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Scanner) {
		s.metrics = m
	}
}

// New creates a new Scanner instance with the given store.
func New(st *store.Store, opts ...Option) *Scanner {
	s := &Scanner{
		store:  st,
		logger: logger.Named("scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Options selects the cards to scan and what to do with leeches.
type Options struct {
	Query    store.CardQuery
	Detector detector.Config
	// Exclude marks review kinds as excludable when they are loaded.
	Exclude store.KindSet
	// Workers bounds concurrent classification. Zero means runtime.NumCPU().
	Workers int

	// Write adds Tag to the note of every leech and, with Flag, sets the
	// leech flag on the card. All changes are recorded as one run.
	Write bool
	Tag   string
	Flag  bool

	// OnStart is called once with the number of cards selected.
	OnStart func(total int)
	// OnResult is called for every card, in card id order, from the
	// goroutine running Scan.
	OnResult func(CardResult)
}

// CardResult is the outcome for one card. Exactly one of Result and Err
// is set.
type CardResult struct {
	Card   *store.Card
	Result *detector.Result
	Err    error
}

// IsLeech reports whether the card was classified as a leech.
func (r CardResult) IsLeech() bool {
	return r.Err == nil && r.Result != nil && r.Result.IsLeech
}

// Report summarizes a finished scan.
type Report struct {
	Checked int
	Leeches []CardResult
	Errors  []CardResult
	// Run is the recorded write run, nil unless Options.Write was set and
	// at least one leech was found.
	Run *store.Run
}

type job struct {
	index   int
	card    *store.Card
	reviews []revlog.Review
}

type indexed struct {
	index int
	CardResult
}

// Scan classifies every selected card and returns the tally.
//
// An invalid detector configuration fails with detector.ErrInvalidConfig
// before any card is read. A card whose classification fails is reported in
// Report.Errors and the scan continues. Store errors and context
// cancellation stop the scan; nothing is written in that case.
func (s *Scanner) Scan(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.Detector.Validate(); err != nil {
		return nil, err
	}

	cards, err := s.store.ListCards(opts.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	if opts.OnStart != nil {
		opts.OnStart(len(cards))
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s.logger.Debug(ctx, "scan started", logger.Int("cards", len(cards)), logger.Int("workers", workers))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job, workers)
	results := make(chan indexed, workers)

	var loadErr error
	go func() {
		defer close(jobs)
		for i, card := range cards {
			if ctx.Err() != nil {
				return
			}

			var reviews []revlog.Review
			err := output.Suppress(func() error {
				var err error
				reviews, err = s.store.GetReviews(card.ID, opts.Exclude)
				return err
			})
			if err != nil {
				loadErr = fmt.Errorf("failed to load reviews for card %d: %w", card.ID, err)
				cancel()
				return
			}

			select {
			case jobs <- job{index: i, card: card, reviews: reviews}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- indexed{index: j.index, CardResult: s.classify(ctx, j, opts.Detector)}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	report := &Report{}
	pending := make(map[int]CardResult)
	next := 0
	for r := range results {
		pending[r.index] = r.CardResult
		for {
			res, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++

			report.Checked++
			if res.Err != nil {
				report.Errors = append(report.Errors, res)
			} else if res.Result.IsLeech {
				report.Leeches = append(report.Leeches, res)
			}
			if opts.OnResult != nil {
				opts.OnResult(res)
			}
		}
	}

	// loadErr is written before cancel, and results is closed only after
	// the producer has closed jobs, so reading it here is race free.
	if loadErr != nil {
		return report, loadErr
	}
	if next < len(cards) {
		return report, fmt.Errorf("scan interrupted after %d of %d cards: %w", next, len(cards), context.Cause(ctx))
	}

	if opts.Write && len(report.Leeches) > 0 {
		run, err := s.write(ctx, report.Leeches, opts)
		if err != nil {
			return report, err
		}
		report.Run = run
	}

	s.metrics.RecordScan(time.Now())
	s.logger.Info(ctx, "scan finished",
		logger.Int("checked", report.Checked),
		logger.Int("leeches", len(report.Leeches)),
		logger.Int("errors", len(report.Errors)),
	)

	return report, nil
}

// classify runs the detector on one card.
func (s *Scanner) classify(ctx context.Context, j job, cfg detector.Config) CardResult {
	start := time.Now()
	result, err := detector.Detect(j.reviews, cfg)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.RecordError()
		s.logger.Warn(ctx, "classification failed", logger.Int64("card_id", j.card.ID), logger.Error(err))
		return CardResult{Card: j.card, Err: err}
	}

	s.metrics.RecordCard(result.Trials, result.IsLeech, elapsed)
	s.logger.Debug(ctx, "card classified",
		logger.Int64("card_id", j.card.ID),
		logger.Int("trials", result.Trials),
		logger.Bool("leech", result.IsLeech),
		logger.Duration("elapsed", elapsed),
	)
	return CardResult{Card: j.card, Result: result}
}

// write tags and flags the leeches in a single recorded run.
func (s *Scanner) write(ctx context.Context, leeches []CardResult, opts Options) (*store.Run, error) {
	targets := make([]store.Target, len(leeches))
	for i, l := range leeches {
		targets[i] = store.Target{CardID: l.Card.ID, NoteID: l.Card.NoteID}
	}

	flag := 0
	if opts.Flag {
		flag = store.LeechFlag
	}

	run, err := s.store.ApplyRun(opts.Tag, flag, targets)
	if err != nil {
		return nil, fmt.Errorf("failed to write leeches: %w", err)
	}

	s.logger.Info(ctx, "leeches written",
		logger.String("run_id", run.ID),
		logger.String("tag", run.Tag),
		logger.Int("cards", run.CardCount),
	)
	return run, nil
}

