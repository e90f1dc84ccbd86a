package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/deckforge/deckforge/pkg/artifacts"
	"github.com/deckforge/deckforge/pkg/config"
	"github.com/deckforge/deckforge/pkg/generator"
	"github.com/deckforge/deckforge/pkg/log"
	"github.com/deckforge/deckforge/pkg/models"
	"github.com/deckforge/deckforge/pkg/pipeline"
	"github.com/deckforge/deckforge/pkg/scoring"
	"github.com/deckforge/deckforge/pkg/screenshot"
)

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:    "generate",
		Aliases: []string{"g"},
		Usage:   "Generate a slide deck from a brief",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "brief",
				Aliases: []string{"b"},
				Usage:   "Slide brief text",
				Sources: cli.EnvVars("DECKFORGE_BRIEF"),
			},
			&cli.StringFlag{
				Name:  "brief-file",
				Usage: "Path to a file containing the slide brief",
			},
			&cli.StringSliceFlag{
				Name:    "image",
				Aliases: []string{"i"},
				Usage:   "Image asset as name=path or name=path:description (repeatable)",
			},
			&cli.StringFlag{
				Name:  "reference-image",
				Usage: "Path to a reference layout image",
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Aliases: []string{"o"},
				Usage:   "Directory to store run artifacts in",
				Value:   "./output",
				Sources: cli.EnvVars("DECKFORGE_OUTPUT_DIR"),
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Custom run ID (auto-generated if not provided)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML settings file",
				Sources: cli.EnvVars("DECKFORGE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:    "mock",
				Usage:   "Run with mock generation, scoring and rendering (no API calls)",
				Sources: cli.EnvVars("DECKFORGE_MOCK"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "OpenAI API key",
				Sources: cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "Model used for script generation",
				Sources: cli.EnvVars("DECKFORGE_MODEL"),
			},
			&cli.StringFlag{
				Name:    "vision-model",
				Usage:   "Model used for screenshot scoring",
				Sources: cli.EnvVars("DECKFORGE_VISION_MODEL"),
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum script fix attempts",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "max-iterations",
				Usage: "Maximum improvement iterations",
				Value: -1,
			},
			&cli.DurationFlag{
				Name:  "execution-timeout",
				Usage: "Per-script execution timeout",
			},
			&cli.FloatFlag{
				Name:  "target-score",
				Usage: "Aggregate score threshold that stops iteration",
				Value: -1,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			return runGenerate(ctx, command)
		},
	}
}

func runGenerate(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("deckforge")

	settings, err := buildSettings(command)
	if err != nil {
		return err
	}

	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	request, err := buildRequest(command)
	if err != nil {
		return err
	}

	store, err := artifacts.NewStore(settings.OutputDir)
	if err != nil {
		return err
	}

	paths, err := store.CreateRun(command.String("run-id"))
	if err != nil {
		return err
	}

	runner, err := buildRunner(settings, store, logger)
	if err != nil {
		return err
	}

	metadata, err := runner.Run(ctx, request, paths)
	if err != nil {
		return err
	}

	printSummary(metadata, paths)

	if metadata.Status == models.StageFailed {
		return fmt.Errorf("run %s failed, see %s", paths.RunID, paths.LogsDir)
	}

	return nil
}

func buildSettings(command *cli.Command) (config.Settings, error) {
	settings := config.Defaults()

	if path := command.String("config"); path != "" {
		loaded, err := config.LoadFile(path, settings)
		if err != nil {
			return settings, err
		}

		settings = loaded
	}

	settings.OutputDir = command.String("output-dir")

	if command.IsSet("mock") {
		settings.OpenAI.Mock = command.Bool("mock")
	}

	if key := command.String("api-key"); key != "" {
		settings.OpenAI.APIKey = key
	}

	if model := command.String("model"); model != "" {
		settings.OpenAI.Model = model
	}

	if model := command.String("vision-model"); model != "" {
		settings.OpenAI.VisionModel = model
	}

	if retries := command.Int("max-retries"); retries >= 0 {
		settings.Behavior.MaxScriptRetries = int(retries)
	}

	if iterations := command.Int("max-iterations"); iterations >= 0 {
		settings.Behavior.MaxImprovementIterations = int(iterations)
	}

	if timeout := command.Duration("execution-timeout"); timeout > 0 {
		settings.Behavior.ExecutionTimeout = timeout
	}

	if threshold := command.Float("target-score"); threshold >= 0 {
		settings.Behavior.TargetScoreThreshold = threshold
	}

	return settings, nil
}

func buildRequest(command *cli.Command) (models.SlideRequest, error) {
	prompt := command.String("brief")

	if path := command.String("brief-file"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return models.SlideRequest{}, fmt.Errorf("failed to read brief file: %w", err)
		}

		prompt = strings.TrimSpace(string(content))
	}

	if prompt == "" {
		return models.SlideRequest{}, fmt.Errorf("a brief is required, pass --brief or --brief-file")
	}

	images := make([]models.ImageInput, 0, len(command.StringSlice("image")))

	for _, raw := range command.StringSlice("image") {
		image, err := parseImageFlag(raw)
		if err != nil {
			return models.SlideRequest{}, err
		}

		images = append(images, image)
	}

	return models.SlideRequest{
		Prompt:         prompt,
		Images:         images,
		ReferenceImage: command.String("reference-image"),
	}, nil
}

// parseImageFlag parses "name=path" or "name=path:description".
func parseImageFlag(raw string) (models.ImageInput, error) {
	name, rest, found := strings.Cut(raw, "=")
	if !found || name == "" || rest == "" {
		return models.ImageInput{}, fmt.Errorf("invalid image %q, expected name=path[:description]", raw)
	}

	path, description, _ := strings.Cut(rest, ":")
	if path == "" {
		return models.ImageInput{}, fmt.Errorf("invalid image %q, expected name=path[:description]", raw)
	}

	return models.ImageInput{Name: name, Path: path, Description: description}, nil
}

func buildRunner(settings config.Settings, store *artifacts.Store, logger *slog.Logger) (*pipeline.Runner, error) {
	templates, err := generator.NewTemplateStore()
	if err != nil {
		return nil, err
	}

	var (
		gen       generator.Generator
		evaluator scoring.Evaluator
		renderer  screenshot.Renderer
	)

	if settings.OpenAI.Mock {
		gen = generator.NewMock(templates, log.WithModule("generator"))
		evaluator = scoring.NewMockEvaluator(log.WithModule("scoring"))
		renderer = screenshot.NewMock(log.WithModule("screenshot"))
	} else {
		gen, err = generator.NewOpenAI(settings.OpenAI, templates, log.WithModule("generator"))
		if err != nil {
			return nil, err
		}

		evaluator, err = scoring.NewOpenAIEvaluator(settings.OpenAI, templates, log.WithModule("scoring"))
		if err != nil {
			return nil, err
		}

		renderer = screenshot.NewHeadless(log.WithModule("screenshot"))
	}

	scoringService := scoring.NewService(settings.Weights, evaluator, log.WithModule("scoring"))

	return pipeline.NewRunner(settings, store, gen, renderer, scoringService, logger), nil
}

func printSummary(metadata *models.RunMetadata, paths *artifacts.RunPaths) {
	fmt.Printf("\nRun %s finished with status %s\n", metadata.RunID, metadata.Status)
	fmt.Printf("Artifacts: %s\n", paths.BaseDir)

	if metadata.BestScore != nil {
		fmt.Printf("Best version: %s (aggregate %.2f)\n", metadata.BestVersionID, metadata.BestScore.Aggregate)
	}

	if best := metadata.FindVersion(metadata.BestVersionID); best != nil {
		for i := len(metadata.Iterations) - 1; i >= 0; i-- {
			record := metadata.Iterations[i]
			if record.ScriptVersionID == best.VersionID && record.Execution.ArtifactPath != "" {
				fmt.Printf("Deck: %s\n", record.Execution.ArtifactPath)

				break
			}
		}
	}

	fmt.Printf("Scripts executed: %d\n", len(metadata.ScriptVersions))

	elapsed := 0.0
	for _, record := range metadata.Iterations {
		elapsed += record.Execution.DurationSeconds
	}

	fmt.Printf("Total script time: %s\n", time.Duration(elapsed*float64(time.Second)).Round(time.Millisecond))
}
