package generator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deckforge/deckforge/pkg/models"
)

// Mock is a deterministic generator used when no API key is configured or
// mock mode is forced. It renders the same prompt payloads as the live
// backend, then authors a fixed python-pptx script from the brief text, so
// offline runs exercise the full pipeline.
type Mock struct {
	store  *TemplateStore
	logger *slog.Logger
}

// NewMock creates a mock generator.
func NewMock(store *TemplateStore, logger *slog.Logger) *Mock {
	return &Mock{store: store, logger: logger}
}

// GenerateInitial implements Generator.
func (m *Mock) GenerateInitial(ctx context.Context, request models.SlideRequest) (*Generation, error) {
	payload, err := m.store.Render("initial_script.tmpl", map[string]any{
		"Brief":      request.Prompt,
		"ImageTable": FormatImages(request.Images),
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Generating initial script (mock mode)")

	return &Generation{
		Script:    renderMockScript(request.Prompt, "initial"),
		RequestID: mockRequestID(payload),
		Prompt:    payload,
	}, nil
}

// GenerateFix implements Generator.
func (m *Mock) GenerateFix(ctx context.Context, request models.SlideRequest, failingScript, errorLog string) (*Generation, error) {
	payload, err := m.store.Render("fix_script.tmpl", map[string]any{
		"Brief":         request.Prompt,
		"ImageTable":    FormatImages(request.Images),
		"FailingScript": failingScript,
		"ErrorLog":      errorLog,
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Generating fixed script (mock mode)")

	return &Generation{
		Script:    renderMockScript(request.Prompt, "fixed"),
		RequestID: mockRequestID(payload),
		Prompt:    payload,
	}, nil
}

// GenerateImprovement implements Generator.
func (m *Mock) GenerateImprovement(ctx context.Context, request models.SlideRequest, previousScript string, score *models.ScoreBreakdown, iteration int, previousScreenshot string) (*Generation, error) {
	payload, err := m.store.Render("improve_script.tmpl", map[string]any{
		"Brief":              request.Prompt,
		"ImageTable":         FormatImages(request.Images),
		"PreviousScript":     previousScript,
		"ScoreFeedback":      FormatScore(score),
		"Iteration":          iteration,
		"PreviousScreenshot": orNone(previousScreenshot),
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("Generating improved script (mock mode)", "iteration", iteration)

	return &Generation{
		Script:    renderMockScript(request.Prompt, fmt.Sprintf("improved_%d", iteration)),
		RequestID: mockRequestID(payload),
		Prompt:    payload,
	}, nil
}

func mockRequestID(seed string) string {
	digest := sha256.Sum256([]byte(seed))

	return "mock-" + hex.EncodeToString(digest[:])[:12]
}

func orNone(value string) string {
	if value == "" {
		return "None"
	}

	return value
}

// renderMockScript authors a python-pptx script that places the first brief
// line as the title and the remaining lines as bullets, plus any bound image
// assets in a grid below the text.
func renderMockScript(prompt, iterationTag string) string {
	promptLines := make([]string, 0)

	for _, line := range strings.Split(prompt, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			promptLines = append(promptLines, trimmed)
		}
	}

	title := "Auto Generated Slide"
	if len(promptLines) > 0 {
		title = promptLines[0]
	}

	bullets := promptLines[1:]
	if len(bullets) == 0 {
		bullets = []string{"Generated overview based on the prompt."}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "# Auto generated script (%s)\n", iterationTag)
	b.WriteString(`import argparse
import json
from pathlib import Path

from pptx import Presentation
from pptx.util import Inches, Pt


def build_text_frame(slide, title_text, bullet_points):
    textbox = slide.shapes.add_textbox(Inches(0.6), Inches(0.6), Inches(12.1), Inches(3.8))
    text_frame = textbox.text_frame
    text_frame.text = title_text
    text_frame.paragraphs[0].font.size = Pt(40)
    text_frame.paragraphs[0].font.bold = True
    for bullet in bullet_points:
        paragraph = text_frame.add_paragraph()
        paragraph.text = bullet
        paragraph.level = 1
        paragraph.font.size = Pt(20)


def place_images(slide, image_map):
    width = Inches(2.8)
    height = Inches(2.2)
    spacing = Inches(0.3)
    for index, path in enumerate(sorted(image_map.values())):
        column = index % 3
        row = index // 3
        left = Inches(0.5) + (width + spacing) * column
        top = Inches(4.5) + (height + spacing) * row
        try:
            slide.shapes.add_picture(path, left, top, width=width, height=height)
        except Exception as error:
            print(f"Failed to place image {path}: {error}", flush=True)


def main(output_path, image_map):
    presentation = Presentation()
    presentation.slide_width = Inches(13.33)
    presentation.slide_height = Inches(7.5)
    slide = presentation.slides.add_slide(presentation.slide_layouts[6])
    bullet_points = []
`)

	for _, bullet := range bullets {
		fmt.Fprintf(&b, "    bullet_points.append(%s)\n", pyQuote(bullet))
	}

	fmt.Fprintf(&b, "    build_text_frame(slide, %s, bullet_points)\n", pyQuote(title))
	b.WriteString(`    place_images(slide, image_map)
    presentation.save(output_path)


def parse_args():
    parser = argparse.ArgumentParser(description="Generated slide authoring script")
    parser.add_argument("--output", required=True, type=Path)
    parser.add_argument("--images", required=False, type=Path)
    return parser.parse_args()


def load_image_map(images_path):
    if not images_path or not images_path.exists():
        return {}
    with images_path.open("r", encoding="utf-8") as handle:
        return json.load(handle)


if __name__ == "__main__":
    args = parse_args()
    main(args.output, load_image_map(args.images))
`)

	return b.String()
}

func pyQuote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)

	return `"` + value + `"`
}
