package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deckforge/deckforge/pkg/models"
)

func TestFormatImages(t *testing.T) {
	assert.Equal(t, "(no images provided)", FormatImages(nil))

	formatted := FormatImages([]models.ImageInput{
		{Name: "chart", Path: "/runs/input/chart.png", Description: "Revenue chart"},
		{Name: "logo", Path: "/runs/input/logo.png"},
	})

	assert.Contains(t, formatted, "- chart: Revenue chart (/runs/input/chart.png)")
	assert.Contains(t, formatted, "- logo:  (/runs/input/logo.png)")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "No prior score available.", FormatScore(nil))

	score := &models.ScoreBreakdown{
		Completeness:    90,
		ContentAccuracy: 85,
		LayoutMatch:     80,
		VisualQuality:   70,
		Aggregate:       82.75,
	}

	formatted := FormatScore(score)
	assert.Contains(t, formatted, "Completeness=90.00")
	assert.Contains(t, formatted, "Aggregate=82.75")
	assert.NotContains(t, formatted, "Issues to address")

	score.Issues = []string{"title overlaps chart", "font too small"}
	formatted = FormatScore(score)
	assert.Contains(t, formatted, "Issues to address:")
	assert.Contains(t, formatted, "- title overlaps chart")
	assert.Contains(t, formatted, "- font too small")
}
