package scanner

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/leechkit/internal/detector"
	"github.com/blackwell-systems/leechkit/internal/logger"
	"github.com/blackwell-systems/leechkit/internal/output"
	"github.com/blackwell-systems/leechkit/internal/revlog"
	"github.com/blackwell-systems/leechkit/internal/store"
)

// Explain loads one card and returns the detector's working for it.
func (s *Scanner) Explain(ctx context.Context, cardID int64, cfg detector.Config, exclude store.KindSet) (*store.Card, *detector.Explanation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	card, err := s.store.GetCard(cardID)
	if err != nil {
		return nil, nil, err
	}

	var reviews []revlog.Review
	err = output.Suppress(func() error {
		var err error
		reviews, err = s.store.GetReviews(cardID, exclude)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reviews for card %d: %w", cardID, err)
	}

	ex, err := detector.Explain(reviews, cfg)
	if err != nil {
		s.metrics.RecordError()
		return card, nil, fmt.Errorf("card %d: %w", cardID, err)
	}

	s.logger.Debug(ctx, "card explained", logger.Int64("card_id", cardID), logger.Int("trials", ex.Result.Trials))
	return card, ex, nil
}
