package scoring

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/deckforge/pkg/config"
	"github.com/deckforge/deckforge/pkg/models"
)

// stubEvaluator returns a fixed raw score.
type stubEvaluator struct {
	score *RawScore
	err   error
}

func (s *stubEvaluator) Evaluate(ctx context.Context, request models.SlideRequest, previewPath, referencePath string) (*RawScore, error) {
	return s.score, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func defaultWeights() config.Weights {
	return config.Weights{Completeness: 0.3, ContentAccuracy: 0.3, LayoutMatch: 0.25, VisualQuality: 0.15}
}

func TestService_Score_WeightedAggregate(t *testing.T) {
	evaluator := &stubEvaluator{score: &RawScore{
		Completeness:    90,
		ContentAccuracy: 80,
		LayoutMatch:     70,
		VisualQuality:   60,
		Issues:          []string{"font too small"},
	}}

	service := NewService(defaultWeights(), evaluator, testLogger())

	breakdown, err := service.Score(context.Background(), models.SlideRequest{Prompt: "brief"}, "preview.png", "")
	require.NoError(t, err)

	// 90*0.3 + 80*0.3 + 70*0.25 + 60*0.15 = 77.5
	assert.Equal(t, 77.5, breakdown.Aggregate)
	assert.Equal(t, 90.0, breakdown.Completeness)
	assert.Equal(t, 80.0, breakdown.ContentAccuracy)
	assert.Equal(t, 70.0, breakdown.LayoutMatch)
	assert.Equal(t, 60.0, breakdown.VisualQuality)
	assert.Equal(t, []string{"font too small"}, breakdown.Issues)
}

func TestService_Score_NormalizesByWeightTotal(t *testing.T) {
	// A drifting-but-accepted weight sum still yields a 0-100 aggregate.
	weights := config.Weights{Completeness: 0.31, ContentAccuracy: 0.3, LayoutMatch: 0.25, VisualQuality: 0.15}
	require.NoError(t, weights.Validate())

	evaluator := &stubEvaluator{score: &RawScore{
		Completeness:    100,
		ContentAccuracy: 100,
		LayoutMatch:     100,
		VisualQuality:   100,
	}}

	service := NewService(weights, evaluator, testLogger())

	breakdown, err := service.Score(context.Background(), models.SlideRequest{Prompt: "brief"}, "preview.png", "")
	require.NoError(t, err)
	assert.Equal(t, 100.0, breakdown.Aggregate)
}

func TestService_Score_RoundsToTwoDecimals(t *testing.T) {
	evaluator := &stubEvaluator{score: &RawScore{
		Completeness:    77,
		ContentAccuracy: 81,
		LayoutMatch:     66,
		VisualQuality:   59,
	}}

	service := NewService(defaultWeights(), evaluator, testLogger())

	breakdown, err := service.Score(context.Background(), models.SlideRequest{Prompt: "brief"}, "preview.png", "")
	require.NoError(t, err)

	// 77*0.3 + 81*0.3 + 66*0.25 + 59*0.15 = 72.75
	assert.Equal(t, 72.75, breakdown.Aggregate)
	assert.Equal(t, breakdown.Aggregate, float64(int(breakdown.Aggregate*100))/100)
}

func TestService_Score_EvaluatorError(t *testing.T) {
	wantErr := errors.New("vision model unreachable")
	service := NewService(defaultWeights(), &stubEvaluator{err: wantErr}, testLogger())

	_, err := service.Score(context.Background(), models.SlideRequest{Prompt: "brief"}, "preview.png", "")
	require.ErrorIs(t, err, wantErr)
}
