package execution

import (
	"archive/zip"
	"errors"
	"fmt"
	"strings"
)

// ErrNoSlides marks a structurally valid container that holds no slides.
var ErrNoSlides = errors.New("presentation has no slides")

// ValidateDeck checks that the artifact is a well-formed presentation: the
// container opens as a ZIP archive and holds at least one slide part.
func ValidateDeck(path string) error {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("failed to open presentation container: %w", err)
	}
	defer func() { _ = reader.Close() }()

	slides := 0

	for _, file := range reader.File {
		if strings.HasPrefix(file.Name, "ppt/slides/slide") && strings.HasSuffix(file.Name, ".xml") {
			slides++
		}
	}

	if slides == 0 {
		return ErrNoSlides
	}

	return nil
}
