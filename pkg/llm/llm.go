// Package llm provides shared OpenAI client plumbing for the generator and
// evaluator backends: client construction, vision payload encoding and
// response post-processing.
package llm

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deckforge/deckforge/pkg/config"
)

// NewClient builds an OpenAI client for the configured backend, standard or
// Azure.
func NewClient(cfg config.OpenAI) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not configured")
	}

	if cfg.UseAzure {
		if cfg.AzureEndpoint == "" {
			return nil, fmt.Errorf("azure_endpoint is required for Azure OpenAI")
		}

		azureConfig := openai.DefaultAzureConfig(cfg.APIKey, cfg.AzureEndpoint)
		if cfg.AzureAPIVersion != "" {
			azureConfig.APIVersion = cfg.AzureAPIVersion
		}

		return openai.NewClientWithConfig(azureConfig), nil
	}

	return openai.NewClient(cfg.APIKey), nil
}

// ImageDataURL reads an image file and encodes it as a base64 data URL for a
// vision message part.
func ImageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to encode image %s: %w", path, err)
	}

	return "data:" + MimeType(path) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// MimeType maps an image file extension to its MIME type, defaulting to PNG.
func MimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/png"
	}
}

// IsReasoningModel reports whether the model takes a reasoning-effort
// parameter instead of a sampling temperature.
func IsReasoningModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}

	return false
}

// ExtractCode strips markdown code fences from a model response. Responses
// without fences are assumed to already be pure code and returned trimmed.
func ExtractCode(text string) string {
	var (
		codeLines      []string
		inCodeBlock    bool
		foundCodeBlock bool
	)

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inCodeBlock {
				foundCodeBlock = true
			}

			inCodeBlock = !inCodeBlock

			continue
		}

		if inCodeBlock {
			codeLines = append(codeLines, line)
		}
	}

	if foundCodeBlock && len(codeLines) > 0 {
		return strings.TrimSpace(strings.Join(codeLines, "\n"))
	}

	return strings.TrimSpace(text)
}
