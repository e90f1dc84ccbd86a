package scoring

import (
	"context"
	"log/slog"
	"math"
	"os"

	"github.com/deckforge/deckforge/pkg/models"
)

// MockEvaluator produces deterministic scores from observable request
// features, so offline runs exercise the scoring path with stable results.
type MockEvaluator struct {
	logger *slog.Logger
}

// NewMockEvaluator creates a mock evaluator.
func NewMockEvaluator(logger *slog.Logger) *MockEvaluator {
	return &MockEvaluator{logger: logger}
}

// Evaluate implements Evaluator.
func (m *MockEvaluator) Evaluate(ctx context.Context, request models.SlideRequest, previewPath, referencePath string) (*RawScore, error) {
	promptWeight := math.Min(float64(len(request.Prompt))/500.0, 1.0)
	imageBonus := math.Min(float64(len(request.Images))*0.05, 0.25)

	screenshotBonus := 0.0
	if _, err := os.Stat(previewPath); err == nil {
		screenshotBonus = 0.15
	}

	referenceBonus := 0.0
	if referencePath != "" {
		referenceBonus = 0.05
	}

	score := &RawScore{
		Completeness:    math.Min(60.0+30.0*promptWeight+imageBonus*100, 95.0),
		ContentAccuracy: math.Min(55.0+35.0*promptWeight, 92.0),
		LayoutMatch:     math.Min(50.0+imageBonus*80+referenceBonus*100, 90.0),
		VisualQuality:   math.Min(50.0+screenshotBonus*100, 88.0),
		Issues:          []string{},
	}

	if score.Completeness < 80 {
		score.Issues = append(score.Issues, "Consider adding more content to fully address all points in the brief")
	}

	if score.LayoutMatch < 85 {
		score.Issues = append(score.Issues, "Layout could be improved to better match the reference design")
	}

	if score.VisualQuality < 85 {
		score.Issues = append(score.Issues, "Visual elements could be enhanced for better presentation quality")
	}

	m.logger.Info("Scored slide (mock mode)",
		"completeness", score.Completeness,
		"content_accuracy", score.ContentAccuracy,
		"layout_match", score.LayoutMatch,
		"visual_quality", score.VisualQuality,
	)

	return score, nil
}
