// Package scoring evaluates rendered slide previews against the brief and
// aggregates the per-criterion scores into a single ranking value.
package scoring

import (
	"context"

	"github.com/deckforge/deckforge/pkg/models"
)

// RawScore holds the evaluator's four criterion scores on a 0-100 scale plus
// its free-text improvement issues, before weighting.
type RawScore struct {
	Completeness    float64  `json:"completeness"`
	ContentAccuracy float64  `json:"content_accuracy"`
	LayoutMatch     float64  `json:"layout_match"`
	VisualQuality   float64  `json:"visual_quality"`
	Issues          []string `json:"issues"`
}

// Evaluator scores a rendered preview image against the request. Variants
// (mock, live) are selected once at construction.
type Evaluator interface {
	Evaluate(ctx context.Context, request models.SlideRequest, previewPath, referencePath string) (*RawScore, error)
}
