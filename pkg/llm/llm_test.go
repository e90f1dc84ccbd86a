package llm

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/deckforge/pkg/config"
)

func TestNewClient(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		_, err := NewClient(config.OpenAI{})
		assert.Error(t, err)
	})

	t.Run("standard backend", func(t *testing.T) {
		client, err := NewClient(config.OpenAI{APIKey: "sk-test"})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("azure requires endpoint", func(t *testing.T) {
		_, err := NewClient(config.OpenAI{APIKey: "sk-test", UseAzure: true})
		assert.Error(t, err)
	})

	t.Run("azure backend", func(t *testing.T) {
		client, err := NewClient(config.OpenAI{
			APIKey:        "sk-test",
			UseAzure:      true,
			AzureEndpoint: "https://example.openai.azure.com",
		})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestImageDataURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixel.png")
	require.NoError(t, os.WriteFile(path, []byte{0x89, 0x50, 0x4e, 0x47}, 0o644))

	url, err := ImageDataURL(path)
	require.NoError(t, err)

	expected := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte{0x89, 0x50, 0x4e, 0x47})
	assert.Equal(t, expected, url)
}

func TestImageDataURL_MissingFile(t *testing.T) {
	_, err := ImageDataURL(filepath.Join(t.TempDir(), "absent.png"))
	assert.Error(t, err)
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"chart.png", "image/png"},
		{"photo.jpg", "image/jpeg"},
		{"photo.JPEG", "image/jpeg"},
		{"anim.gif", "image/gif"},
		{"modern.webp", "image/webp"},
		{"old.bmp", "image/bmp"},
		{"unknown.tiff", "image/png"},
		{"noextension", "image/png"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MimeType(tt.path), "path %s", tt.path)
	}
}

func TestIsReasoningModel(t *testing.T) {
	reasoning := []string{"o1", "o1-mini", "o3-mini", "gpt-5", "gpt-5-turbo"}
	for _, model := range reasoning {
		assert.True(t, IsReasoningModel(model), "model %s", model)
	}

	sampling := []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "claude-sonnet"}
	for _, model := range sampling {
		assert.False(t, IsReasoningModel(model), "model %s", model)
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "fenced python block",
			text: "Here is the script:\n```python\nprint('hi')\n```\nDone.",
			want: "print('hi')",
		},
		{
			name: "bare fences",
			text: "```\nx = 1\ny = 2\n```",
			want: "x = 1\ny = 2",
		},
		{
			name: "no fences returns trimmed text",
			text: "  print('hi')  \n",
			want: "print('hi')",
		},
		{
			name: "multiple blocks are concatenated",
			text: "```python\na = 1\n```\nand\n```python\nb = 2\n```",
			want: "a = 1\nb = 2",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCode(tt.text))
		})
	}
}
