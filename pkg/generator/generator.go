// Package generator produces candidate slide-authoring scripts from a brief,
// either through an LLM backend or a deterministic mock.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deckforge/deckforge/pkg/models"
)

// ErrEmptyScript signals that a backend produced no usable source text.
// The pipeline treats it as fatal: without a script there is nothing to run.
var ErrEmptyScript = errors.New("generator returned an empty script")

// Generation is one generated candidate script plus the originating request
// identifier for traceability.
type Generation struct {
	Script    string
	RequestID string
	Prompt    string // full rendered prompt payload, kept for logging
}

// Generator authors candidate scripts. Variants (mock, live) are selected
// once at construction, never per call.
type Generator interface {
	// GenerateInitial authors the first candidate from the brief and assets.
	GenerateInitial(ctx context.Context, request models.SlideRequest) (*Generation, error)
	// GenerateFix authors a repaired candidate from a failing script and its
	// error log.
	GenerateFix(ctx context.Context, request models.SlideRequest, failingScript, errorLog string) (*Generation, error)
	// GenerateImprovement authors a refined candidate from the current best
	// script, its score feedback and the previous iteration's screenshot.
	GenerateImprovement(ctx context.Context, request models.SlideRequest, previousScript string, score *models.ScoreBreakdown, iteration int, previousScreenshot string) (*Generation, error)
}

// FormatImages renders the asset table embedded in prompt payloads.
func FormatImages(images []models.ImageInput) string {
	if len(images) == 0 {
		return "(no images provided)"
	}

	lines := make([]string, 0, len(images))
	for _, image := range images {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", image.Name, image.Description, image.Path))
	}

	return strings.Join(lines, "\n")
}

// FormatScore renders score feedback for improvement prompts.
func FormatScore(score *models.ScoreBreakdown) string {
	if score == nil {
		return "No prior score available."
	}

	text := fmt.Sprintf(
		"Completeness=%.2f, Content Accuracy=%.2f, Layout Match=%.2f, Visual Quality=%.2f, Aggregate=%.2f",
		score.Completeness, score.ContentAccuracy, score.LayoutMatch, score.VisualQuality, score.Aggregate,
	)

	if len(score.Issues) == 0 {
		return text
	}

	issues := make([]string, 0, len(score.Issues))
	for _, issue := range score.Issues {
		issues = append(issues, "- "+issue)
	}

	return text + "\n\nIssues to address:\n" + strings.Join(issues, "\n")
}
