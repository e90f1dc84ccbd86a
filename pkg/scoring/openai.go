package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"

	"github.com/deckforge/deckforge/pkg/config"
	"github.com/deckforge/deckforge/pkg/generator"
	"github.com/deckforge/deckforge/pkg/llm"
	"github.com/deckforge/deckforge/pkg/models"
)

const evaluatorSystemPrompt = "You are an expert presentation evaluator. Analyze slides objectively and return only valid JSON."

// scoreSchema constrains the evaluator's JSON reply before it is decoded, so
// a malformed model response fails with a diagnostic instead of zero scores.
const scoreSchema = `{
  "type": "object",
  "required": ["completeness", "content_accuracy", "layout_match", "visual_quality", "issues"],
  "properties": {
    "completeness": {"type": "number", "minimum": 0, "maximum": 100},
    "content_accuracy": {"type": "number", "minimum": 0, "maximum": 100},
    "layout_match": {"type": "number", "minimum": 0, "maximum": 100},
    "visual_quality": {"type": "number", "minimum": 0, "maximum": 100},
    "issues": {"type": "array", "items": {"type": "string"}}
  }
}`

// OpenAIEvaluator scores previews through a vision model call.
type OpenAIEvaluator struct {
	client *openai.Client
	cfg    config.OpenAI
	store  *generator.TemplateStore
	schema *gojsonschema.Schema
	logger *slog.Logger
}

// NewOpenAIEvaluator creates the live evaluator.
func NewOpenAIEvaluator(cfg config.OpenAI, store *generator.TemplateStore, logger *slog.Logger) (*OpenAIEvaluator, error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(scoreSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile score schema: %w", err)
	}

	return &OpenAIEvaluator{client: client, cfg: cfg, store: store, schema: schema, logger: logger}, nil
}

// Evaluate implements Evaluator. The preview is required; the reference image
// and asset images are attached when present.
func (e *OpenAIEvaluator) Evaluate(ctx context.Context, request models.SlideRequest, previewPath, referencePath string) (*RawScore, error) {
	if _, err := os.Stat(previewPath); err != nil {
		return nil, fmt.Errorf("preview image not found: %w", err)
	}

	payload, err := e.store.Render("score_slide.tmpl", map[string]any{
		"Brief":      request.Prompt,
		"ImageTable": generator.FormatImages(request.Images),
	})
	if err != nil {
		return nil, err
	}

	content := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: payload},
	}

	content, err = e.appendImage(content, previewPath, "^ This is the generated slide to evaluate.")
	if err != nil {
		return nil, err
	}

	if referencePath != "" {
		content, err = e.appendImage(content, referencePath, "^ This is the reference image to compare layout and style against.")
		if err != nil {
			return nil, err
		}
	}

	chatRequest := openai.ChatCompletionRequest{
		Model: e.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	if llm.IsReasoningModel(e.cfg.VisionModel) {
		chatRequest.ReasoningEffort = e.cfg.ReasoningEffort
	} else {
		chatRequest.Temperature = 0.3
	}

	response, err := e.client.CreateChatCompletion(ctx, chatRequest)
	if err != nil {
		return nil, fmt.Errorf("scoring call failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("scoring call returned no choices")
	}

	e.logger.Info("Scoring call succeeded", "request_id", response.ID)

	return e.decodeScore(response.Choices[0].Message.Content)
}

func (e *OpenAIEvaluator) decodeScore(responseText string) (*RawScore, error) {
	result, err := e.schema.Validate(gojsonschema.NewStringLoader(responseText))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON response from scoring call: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, validationError := range result.Errors() {
			details = append(details, validationError.String())
		}

		return nil, fmt.Errorf("scoring response failed schema validation: %s", strings.Join(details, "; "))
	}

	var score RawScore
	if err := json.Unmarshal([]byte(responseText), &score); err != nil {
		return nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}

	if score.Issues == nil {
		score.Issues = []string{}
	}

	return &score, nil
}

func (e *OpenAIEvaluator) appendImage(content []openai.ChatMessagePart, imagePath, caption string) ([]openai.ChatMessagePart, error) {
	dataURL, err := llm.ImageDataURL(imagePath)
	if err != nil {
		return nil, err
	}

	content = append(content,
		openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL,
				Detail: openai.ImageURLDetailHigh,
			},
		},
		openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: caption},
	)

	return content, nil
}
