package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/deckforge/deckforge/pkg/config"
	"github.com/deckforge/deckforge/pkg/models"
)

// Service combines the evaluator's raw criterion scores into a weighted
// aggregate. Weights are validated at configuration time; the aggregate
// divides by the actual weight sum so minor drift never fails a score.
type Service struct {
	weights   config.Weights
	evaluator Evaluator
	logger    *slog.Logger
}

// NewService creates the scoring aggregator.
func NewService(weights config.Weights, evaluator Evaluator, logger *slog.Logger) *Service {
	return &Service{weights: weights, evaluator: evaluator, logger: logger}
}

// Score evaluates a preview and derives the weighted aggregate, preserving
// the raw per-criterion values and the issue list verbatim.
func (s *Service) Score(ctx context.Context, request models.SlideRequest, previewPath, referencePath string) (*models.ScoreBreakdown, error) {
	raw, err := s.evaluator.Evaluate(ctx, request, previewPath, referencePath)
	if err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	aggregate := (raw.Completeness*s.weights.Completeness +
		raw.ContentAccuracy*s.weights.ContentAccuracy +
		raw.LayoutMatch*s.weights.LayoutMatch +
		raw.VisualQuality*s.weights.VisualQuality) / s.weights.Total()

	breakdown := &models.ScoreBreakdown{
		Completeness:    raw.Completeness,
		ContentAccuracy: raw.ContentAccuracy,
		LayoutMatch:     raw.LayoutMatch,
		VisualQuality:   raw.VisualQuality,
		Aggregate:       round2(aggregate),
		Issues:          raw.Issues,
	}

	s.logger.Info("Score aggregated",
		"aggregate", breakdown.Aggregate,
		"completeness", breakdown.Completeness,
		"content_accuracy", breakdown.ContentAccuracy,
		"layout_match", breakdown.LayoutMatch,
		"visual_quality", breakdown.VisualQuality,
		"issues", len(breakdown.Issues),
	)

	return breakdown, nil
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
