package generator

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/deckforge/deckforge/pkg/config"
	"github.com/deckforge/deckforge/pkg/llm"
	"github.com/deckforge/deckforge/pkg/models"
)

const scriptSystemPrompt = "You are an expert Python developer. Return only executable Python code."

// OpenAI is the live generator backend. It renders a prompt template, attaches
// the reference image and previous screenshot as vision parts, and extracts
// the script from the model response.
type OpenAI struct {
	client *openai.Client
	cfg    config.OpenAI
	store  *TemplateStore
	logger *slog.Logger
}

// NewOpenAI creates the live generator.
func NewOpenAI(cfg config.OpenAI, store *TemplateStore, logger *slog.Logger) (*OpenAI, error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return &OpenAI{client: client, cfg: cfg, store: store, logger: logger}, nil
}

// GenerateInitial implements Generator.
func (o *OpenAI) GenerateInitial(ctx context.Context, request models.SlideRequest) (*Generation, error) {
	payload, err := o.store.Render("initial_script.tmpl", map[string]any{
		"Brief":      request.Prompt,
		"ImageTable": FormatImages(request.Images),
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("Generating initial script", "model", o.cfg.Model)

	return o.complete(ctx, payload, request.ReferenceImage, "")
}

// GenerateFix implements Generator.
func (o *OpenAI) GenerateFix(ctx context.Context, request models.SlideRequest, failingScript, errorLog string) (*Generation, error) {
	if errorLog == "" {
		errorLog = "No error details provided"
	}

	payload, err := o.store.Render("fix_script.tmpl", map[string]any{
		"Brief":         request.Prompt,
		"ImageTable":    FormatImages(request.Images),
		"FailingScript": failingScript,
		"ErrorLog":      errorLog,
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("Generating fixed script", "model", o.cfg.Model)

	return o.complete(ctx, payload, "", "")
}

// GenerateImprovement implements Generator.
func (o *OpenAI) GenerateImprovement(ctx context.Context, request models.SlideRequest, previousScript string, score *models.ScoreBreakdown, iteration int, previousScreenshot string) (*Generation, error) {
	payload, err := o.store.Render("improve_script.tmpl", map[string]any{
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

	o.logger.Info("Generating improved script", "model", o.cfg.Model, "iteration", iteration)

	return o.complete(ctx, payload, request.ReferenceImage, previousScreenshot)
}

func (o *OpenAI) complete(ctx context.Context, payload, referenceImage, previousScreenshot string) (*Generation, error) {
	content := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: payload},
	}

	content, err := appendImagePart(content, referenceImage, "^ This is the reference image to match.")
	if err != nil {
		return nil, err
	}

	content, err = appendImagePart(content, previousScreenshot, "^ This is the rendered screenshot from the last iteration.")
	if err != nil {
		return nil, err
	}

	request := openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scriptSystemPrompt},
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
	}

	if llm.IsReasoningModel(o.cfg.Model) {
		request.ReasoningEffort = o.cfg.ReasoningEffort
	} else {
		request.Temperature = 0.3
	}

	response, err := o.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("script generation call failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in API response", ErrEmptyScript)
	}

	script := llm.ExtractCode(response.Choices[0].Message.Content)
	if script == "" {
		return nil, ErrEmptyScript
	}

	o.logger.Info("Script generation call succeeded",
		"request_id", response.ID,
		"prompt_tokens", response.Usage.PromptTokens,
		"completion_tokens", response.Usage.CompletionTokens,
		"script_chars", len(script),
	)

	return &Generation{Script: script, RequestID: response.ID, Prompt: payload}, nil
}

func appendImagePart(content []openai.ChatMessagePart, imagePath, caption string) ([]openai.ChatMessagePart, error) {
	if imagePath == "" {
		return content, nil
	}

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
