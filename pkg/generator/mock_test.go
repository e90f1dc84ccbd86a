package generator

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/deckforge/pkg/models"
)

func newMockGenerator(t *testing.T) *Mock {
	t.Helper()

	store, err := NewTemplateStore()
	require.NoError(t, err)

	return NewMock(store, slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestMock_GenerateInitial(t *testing.T) {
	mock := newMockGenerator(t)

	request := models.SlideRequest{
		Prompt: "Q3 Revenue Summary\nRevenue grew 12% quarter over quarter\nEMEA led growth",
	}

	generation, err := mock.GenerateInitial(context.Background(), request)
	require.NoError(t, err)

	assert.Contains(t, generation.Script, `build_text_frame(slide, "Q3 Revenue Summary"`)
	assert.Contains(t, generation.Script, `bullet_points.append("Revenue grew 12% quarter over quarter")`)
	assert.Contains(t, generation.Script, `bullet_points.append("EMEA led growth")`)
	assert.Contains(t, generation.Script, "from pptx import Presentation")
	assert.Contains(t, generation.Script, "# Auto generated script (initial)")

	assert.True(t, strings.HasPrefix(generation.RequestID, "mock-"))
	assert.Len(t, generation.RequestID, len("mock-")+12)
	assert.Contains(t, generation.Prompt, "Q3 Revenue Summary")
}

func TestMock_Deterministic(t *testing.T) {
	mock := newMockGenerator(t)
	request := models.SlideRequest{Prompt: "Q3 Revenue Summary"}

	first, err := mock.GenerateInitial(context.Background(), request)
	require.NoError(t, err)

	second, err := mock.GenerateInitial(context.Background(), request)
	require.NoError(t, err)

	assert.Equal(t, first.Script, second.Script)
	assert.Equal(t, first.RequestID, second.RequestID)
}

func TestMock_SingleLineBriefGetsDefaultBullet(t *testing.T) {
	mock := newMockGenerator(t)

	generation, err := mock.GenerateInitial(context.Background(), models.SlideRequest{Prompt: "Just a title"})
	require.NoError(t, err)

	assert.Contains(t, generation.Script, `build_text_frame(slide, "Just a title"`)
	assert.Contains(t, generation.Script, `bullet_points.append("Generated overview based on the prompt.")`)
}

func TestMock_GenerateFix(t *testing.T) {
	mock := newMockGenerator(t)
	request := models.SlideRequest{Prompt: "Q3 Revenue Summary"}

	generation, err := mock.GenerateFix(context.Background(), request, "print('broken')", "SyntaxError")
	require.NoError(t, err)

	assert.Contains(t, generation.Script, "# Auto generated script (fixed)")
	assert.Contains(t, generation.Prompt, "print('broken')")
	assert.Contains(t, generation.Prompt, "SyntaxError")
}

func TestMock_GenerateImprovement(t *testing.T) {
	mock := newMockGenerator(t)
	request := models.SlideRequest{Prompt: "Q3 Revenue Summary"}

	score := &models.ScoreBreakdown{Aggregate: 72.5, Issues: []string{"font too small"}}

	generation, err := mock.GenerateImprovement(context.Background(), request, "print('working')", score, 1, "")
	require.NoError(t, err)

	assert.Contains(t, generation.Script, "# Auto generated script (improved_1)")
	assert.Contains(t, generation.Prompt, "Aggregate=72.50")
	assert.Contains(t, generation.Prompt, "font too small")
	assert.Contains(t, generation.Prompt, "Previous rendered screenshot: None")
}

func TestPyQuote(t *testing.T) {
	assert.Equal(t, `"plain"`, pyQuote("plain"))
	assert.Equal(t, `"say \"hi\""`, pyQuote(`say "hi"`))
	assert.Equal(t, `"back\\slash"`, pyQuote(`back\slash`))
}
