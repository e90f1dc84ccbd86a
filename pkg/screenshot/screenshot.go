// Package screenshot renders presentation artifacts to preview images.
package screenshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrRenderFailed marks a preview that could not be produced from a valid
// artifact. The pipeline treats it as unrecoverable: without a preview no
// meaningful scoring is possible.
var ErrRenderFailed = errors.New("failed to render slide preview")

// Renderer rasterizes a presentation artifact into a PNG preview.
type Renderer interface {
	Capture(ctx context.Context, artifactPath, destination string) error
}

// Headless converts the artifact through LibreOffice in headless mode and
// rasterizes the first PDF page with pdftoppm.
type Headless struct {
	convertTimeout time.Duration
	logger         *slog.Logger
}

// NewHeadless creates the headless renderer.
func NewHeadless(logger *slog.Logger) *Headless {
	return &Headless{
		convertTimeout: 30 * time.Second,
		logger:         logger,
	}
}

// Capture implements Renderer.
func (h *Headless) Capture(ctx context.Context, artifactPath, destination string) error {
	soffice, err := lookupSoffice()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRenderFailed, err)
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
		return fmt.Errorf("%w: %s", ErrRenderFailed, err)
	}

	tmpDir, err := os.MkdirTemp("", "deckforge-preview-")
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRenderFailed, err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	convertCtx, cancel := context.WithTimeout(ctx, h.convertTimeout)
	defer cancel()

	h.logger.Info("Converting artifact to PDF", "artifact_path", artifactPath, "soffice", soffice)

	if out, err := runCommand(convertCtx, soffice, "--headless", "--convert-to", "pdf", "--outdir", tmpDir, artifactPath); err != nil {
		return fmt.Errorf("%w: pdf conversion failed: %s: %s", ErrRenderFailed, err, out)
	}

	base := strings.TrimSuffix(filepath.Base(artifactPath), filepath.Ext(artifactPath))

	pdfPath := filepath.Join(tmpDir, base+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return fmt.Errorf("%w: pdf not produced at %s", ErrRenderFailed, pdfPath)
	}

	h.logger.Info("Rasterizing first PDF page", "pdf_path", pdfPath, "destination", destination)

	// pdftoppm appends the extension itself, so pass the destination stem.
	stem := strings.TrimSuffix(destination, filepath.Ext(destination))
	if out, err := runCommand(convertCtx, "pdftoppm", "-png", "-singlefile", "-f", "1", "-l", "1", "-r", "150", pdfPath, stem); err != nil {
		return fmt.Errorf("%w: rasterization failed: %s: %s", ErrRenderFailed, err, out)
	}

	if _, err := os.Stat(destination); err != nil {
		return fmt.Errorf("%w: preview not produced at %s", ErrRenderFailed, destination)
	}

	return nil
}

func lookupSoffice() (string, error) {
	for _, candidate := range []string{"soffice", "libreoffice"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", errors.New("LibreOffice (soffice) executable not found")
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	var output bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()

	return strings.TrimSpace(output.String()), err
}
