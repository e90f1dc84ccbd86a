package screenshot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
)

// Mock writes a flat placeholder preview so offline runs complete without a
// rendering toolchain.
type Mock struct {
	logger *slog.Logger
}

// NewMock creates a mock renderer.
func NewMock(logger *slog.Logger) *Mock {
	return &Mock{logger: logger}
}

// Capture implements Renderer.
func (m *Mock) Capture(ctx context.Context, artifactPath, destination string) error {
	if _, err := os.Stat(artifactPath); err != nil {
		return fmt.Errorf("%w: artifact missing: %s", ErrRenderFailed, artifactPath)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("%w: %s", ErrRenderFailed, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 1280, 720))
	background := color.RGBA{R: 240, G: 240, B: 240, A: 255}

	for y := 0; y < 720; y++ {
		for x := 0; x < 1280; x++ {
			img.Set(x, y, background)
		}
	}

	file, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRenderFailed, err)
	}

	if err := png.Encode(file, img); err != nil {
		_ = file.Close()

		return fmt.Errorf("%w: %s", ErrRenderFailed, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: %s", ErrRenderFailed, err)
	}

	m.logger.Info("Wrote placeholder preview (mock mode)", "destination", destination)

	return nil
}
