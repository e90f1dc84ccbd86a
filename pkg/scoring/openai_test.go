package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
)

func newSchemaEvaluator(t *testing.T) *OpenAIEvaluator {
	t.Helper()

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(scoreSchema))
	require.NoError(t, err)

	return &OpenAIEvaluator{schema: schema, logger: testLogger()}
}

func TestDecodeScore_Valid(t *testing.T) {
	evaluator := newSchemaEvaluator(t)

	score, err := evaluator.decodeScore(`{
		"completeness": 90,
		"content_accuracy": 85.5,
		"layout_match": 80,
		"visual_quality": 75,
		"issues": ["title overlaps chart"]
	}`)
	require.NoError(t, err)

	assert.Equal(t, 90.0, score.Completeness)
	assert.Equal(t, 85.5, score.ContentAccuracy)
	assert.Equal(t, []string{"title overlaps chart"}, score.Issues)
}

func TestDecodeScore_EmptyIssuesStayNonNil(t *testing.T) {
	evaluator := newSchemaEvaluator(t)

	score, err := evaluator.decodeScore(`{
		"completeness": 90,
		"content_accuracy": 85,
		"layout_match": 80,
		"visual_quality": 75,
		"issues": []
	}`)
	require.NoError(t, err)
	assert.NotNil(t, score.Issues)
	assert.Empty(t, score.Issues)
}

func TestDecodeScore_Rejections(t *testing.T) {
	evaluator := newSchemaEvaluator(t)

	tests := []struct {
		name string
		text string
	}{
		{
			name: "not json",
			text: "the slide looks great",
		},
		{
			name: "missing criterion",
			text: `{"completeness": 90, "content_accuracy": 85, "layout_match": 80, "issues": []}`,
		},
		{
			name: "score out of range",
			text: `{"completeness": 150, "content_accuracy": 85, "layout_match": 80, "visual_quality": 75, "issues": []}`,
		},
		{
			name: "wrong criterion type",
			text: `{"completeness": "high", "content_accuracy": 85, "layout_match": 80, "visual_quality": 75, "issues": []}`,
		},
		{
			name: "wrong issues type",
			text: `{"completeness": 90, "content_accuracy": 85, "layout_match": 80, "visual_quality": 75, "issues": "none"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluator.decodeScore(tt.text)
			assert.Error(t, err)
		})
	}
}
