package execution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDeck(t *testing.T) {
	t.Run("deck with slides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deck.pptx")
		writeDeck(t, path, 2)

		assert.NoError(t, ValidateDeck(path))
	})

	t.Run("deck without slides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deck.pptx")
		writeDeck(t, path, 0)

		assert.ErrorIs(t, ValidateDeck(path), ErrNoSlides)
	})

	t.Run("not a zip archive", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "deck.pptx")
		require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

		assert.Error(t, ValidateDeck(path))
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Error(t, ValidateDeck(filepath.Join(t.TempDir(), "absent.pptx")))
	})
}
