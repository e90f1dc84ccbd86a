package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateStore_RendersAllPayloads(t *testing.T) {
	store, err := NewTemplateStore()
	require.NoError(t, err)

	t.Run("initial payload", func(t *testing.T) {
		payload, err := store.Render("initial_script.tmpl", map[string]any{
			"Brief":      "Revenue summary",
			"ImageTable": "- chart: Revenue chart (/tmp/chart.png)",
		})
		require.NoError(t, err)

		assert.Contains(t, payload, "Revenue summary")
		assert.Contains(t, payload, "- chart: Revenue chart (/tmp/chart.png)")
		// Shared fragments expand into every payload.
		assert.Contains(t, payload, "--output")
		assert.Contains(t, payload, "--images")
		assert.Contains(t, payload, "parse_args()")
	})

	t.Run("fix payload", func(t *testing.T) {
		payload, err := store.Render("fix_script.tmpl", map[string]any{
			"Brief":         "Revenue summary",
			"ImageTable":    "(no images provided)",
			"FailingScript": "print('broken')",
			"ErrorLog":      "TypeError: unsupported operand",
		})
		require.NoError(t, err)

		assert.Contains(t, payload, "print('broken')")
		assert.Contains(t, payload, "TypeError: unsupported operand")
		assert.Contains(t, payload, "Requirements:")
	})

	t.Run("improvement payload", func(t *testing.T) {
		payload, err := store.Render("improve_script.tmpl", map[string]any{
			"Brief":              "Revenue summary",
			"ImageTable":         "(no images provided)",
			"PreviousScript":     "print('working')",
			"ScoreFeedback":      "Aggregate=75.00",
			"Iteration":          2,
			"PreviousScreenshot": "/runs/outputs/slide_v1_initial.png",
		})
		require.NoError(t, err)

		assert.Contains(t, payload, "improvement iteration 2")
		assert.Contains(t, payload, "Aggregate=75.00")
		assert.Contains(t, payload, "/runs/outputs/slide_v1_initial.png")
	})

	t.Run("scoring payload", func(t *testing.T) {
		payload, err := store.Render("score_slide.tmpl", map[string]any{
			"Brief":      "Revenue summary",
			"ImageTable": "(no images provided)",
		})
		require.NoError(t, err)

		assert.Contains(t, payload, "completeness")
		assert.Contains(t, payload, "content_accuracy")
		assert.Contains(t, payload, "layout_match")
		assert.Contains(t, payload, "visual_quality")
		assert.Contains(t, payload, "JSON object")
	})

	t.Run("unknown template", func(t *testing.T) {
		_, err := store.Render("nonexistent.tmpl", nil)
		assert.Error(t, err)
	})
}
