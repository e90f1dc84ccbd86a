package screenshot

import (
	"context"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMock_Capture(t *testing.T) {
	renderer := NewMock(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	artifact := filepath.Join(t.TempDir(), "slide.pptx")
	require.NoError(t, os.WriteFile(artifact, []byte("deck"), 0o644))

	destination := filepath.Join(t.TempDir(), "outputs", "slide.png")
	require.NoError(t, renderer.Capture(context.Background(), artifact, destination))

	file, err := os.Open(destination)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	img, err := png.Decode(file)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 1280, bounds.Dx())
	assert.Equal(t, 720, bounds.Dy())
}

func TestMock_Capture_MissingArtifact(t *testing.T) {
	renderer := NewMock(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	err := renderer.Capture(context.Background(), filepath.Join(t.TempDir(), "absent.pptx"), filepath.Join(t.TempDir(), "slide.png"))
	require.ErrorIs(t, err, ErrRenderFailed)
}
