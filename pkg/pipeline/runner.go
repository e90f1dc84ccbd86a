// Package pipeline sequences the slide generation run: initial generation,
// sandboxed execution, the bounded fix loop, screenshot capture, scoring and
// the bounded improvement loop.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/deckforge/deckforge/pkg/artifacts"
	"github.com/deckforge/deckforge/pkg/config"
	"github.com/deckforge/deckforge/pkg/execution"
	"github.com/deckforge/deckforge/pkg/generator"
	"github.com/deckforge/deckforge/pkg/models"
	"github.com/deckforge/deckforge/pkg/scoring"
	"github.com/deckforge/deckforge/pkg/screenshot"
	"github.com/deckforge/deckforge/pkg/versions"
)

// Runner owns the pipeline state machine. Collaborators are supplied once at
// construction; each Run call owns its RunMetadata exclusively and persists
// it after every stage transition.
type Runner struct {
	settings config.Settings
	store    *artifacts.Store
	gen      generator.Generator
	renderer screenshot.Renderer
	scoring  *scoring.Service
	logger   *slog.Logger
}

// NewRunner creates the pipeline runner.
func NewRunner(settings config.Settings, store *artifacts.Store, gen generator.Generator, renderer screenshot.Renderer, scoringService *scoring.Service, logger *slog.Logger) *Runner {
	return &Runner{
		settings: settings,
		store:    store,
		gen:      gen,
		renderer: renderer,
		scoring:  scoringService,
		logger:   logger,
	}
}

// run bundles the per-run state threaded through the stages.
type run struct {
	*Runner

	paths       *artifacts.RunPaths
	metadata    *models.RunMetadata
	ledger      *versions.Manager
	engine      *execution.Engine
	request     models.SlideRequest
	imageMap    map[string]string
	scriptCache map[string]string
	logger      *slog.Logger
}

// Run executes the full pipeline for one request inside the given run
// directory and returns the finalized run metadata. Recoverable script
// failures end in the FAILED stage with a nil error; generation, rendering
// and runner-configuration failures are returned as errors, aborting the run.
func (r *Runner) Run(ctx context.Context, request models.SlideRequest, paths *artifacts.RunPaths) (*models.RunMetadata, error) {
	logger := r.logger.With("run_id", paths.RunID)
	logger.Info("Starting slide generation run",
		"images", len(request.Images),
		"has_reference_image", request.ReferenceImage != "",
	)

	storedImages, err := r.store.StoreImages(paths, request.Images)
	if err != nil {
		return nil, err
	}

	referenceImage, err := r.store.StoreReferenceImage(paths, request.ReferenceImage)
	if err != nil {
		return nil, err
	}

	if _, err := r.store.PersistPrompt(paths, request.Prompt); err != nil {
		return nil, err
	}

	storedRequest := models.SlideRequest{
		Prompt:         request.Prompt,
		Images:         storedImages,
		ReferenceImage: referenceImage,
	}

	metadata := models.NewRunMetadata(paths.RunID, storedRequest)

	state := &run{
		Runner:      r,
		paths:       paths,
		metadata:    metadata,
		ledger:      versions.NewManager(r.store, paths, metadata, logger),
		engine:      execution.NewEngine(r.store, paths, r.settings.Behavior, r.settings.Runtime, logger),
		request:     storedRequest,
		imageMap:    storedRequest.ImageMap(),
		scriptCache: make(map[string]string),
		logger:      logger,
	}

	if err := state.execute(ctx); err != nil {
		return metadata, err
	}

	return metadata, nil
}

func (s *run) execute(ctx context.Context) error {
	if err := s.transition(models.StageInitialGeneration); err != nil {
		return err
	}

	generation, err := s.gen.GenerateInitial(ctx, s.request)
	if err != nil {
		return fmt.Errorf("initial generation failed: %w", err)
	}

	current, err := s.createVersion(generation, models.ScriptOriginInitial, "")
	if err != nil {
		return err
	}

	result, err := s.executeScript(ctx, models.StageExecuteScript, current)
	if err != nil {
		return err
	}

	if !result.Success {
		s.logger.Warn("Initial script execution failed, entering fix loop")

		result, err = s.runFixLoop(ctx, current, generation.Script, result.Stderr)
		if err != nil {
			return err
		}

		if result == nil || !result.Success {
			cause := "unknown error"
			if result != nil && result.Stderr != "" {
				cause = result.Stderr
			}

			s.logger.Error("All script fix attempts failed", "cause", cause)

			return s.transition(models.StageFailed)
		}

		current = s.ledger.Latest()
		s.logger.Info("Script successfully fixed", "version_id", current.VersionID)
	}

	if err := s.scoreIteration(ctx, current, result); err != nil {
		return err
	}

	if s.targetReached() {
		s.logger.Info("Target score reached without improvement iterations",
			"aggregate", s.metadata.BestScore.Aggregate,
			"threshold", s.settings.Behavior.TargetScoreThreshold,
		)

		return s.transition(models.StageComplete)
	}

	if err := s.runImprovementLoop(ctx, current); err != nil {
		return err
	}

	return s.transition(models.StageComplete)
}

// runFixLoop requests repaired scripts until one executes successfully or the
// retry budget is exhausted. It returns the last execution result; a nil
// error with an unsuccessful result means the budget ran out.
func (s *run) runFixLoop(ctx context.Context, lastVersion *models.ScriptVersion, lastScript, errorLog string) (*models.ExecutionResult, error) {
	attempts := s.settings.Behavior.MaxScriptRetries
	s.logger.Info("Entering fix loop", "max_attempts", attempts)

	var result *models.ExecutionResult

	for attempt := 1; attempt <= attempts; attempt++ {
		s.logger.Info("Fix attempt", "attempt", attempt, "max_attempts", attempts)

		fix, err := s.gen.GenerateFix(ctx, s.request, lastScript, errorLog)
		if err != nil {
			return nil, fmt.Errorf("fix generation failed: %w", err)
		}

		fixed, err := s.createVersion(fix, models.ScriptOriginFix, lastVersion.VersionID)
		if err != nil {
			return nil, err
		}

		result, err = s.executeScript(ctx, models.StageFixLoop, fixed)
		if err != nil {
			return nil, err
		}

		if result.Success {
			s.logger.Info("Fix successful", "attempt", attempt)

			return result, nil
		}

		lastVersion = fixed
		lastScript = fix.Script
		errorLog = result.Stderr
	}

	s.logger.Error("All fix attempts failed", "attempts", attempts)

	return result, nil
}

// runImprovementLoop refines the current working script until the target
// threshold is reached or the iteration budget is exhausted. Failed
// executions are discarded without consuming fix-loop budget.
func (s *run) runImprovementLoop(ctx context.Context, current *models.ScriptVersion) error {
	maxIterations := s.settings.Behavior.MaxImprovementIterations
	s.logger.Info("Starting improvement loop", "max_iterations", maxIterations)

	for iteration := 1; iteration <= maxIterations; iteration++ {
		s.logger.Info("Improvement iteration", "iteration", iteration, "max_iterations", maxIterations)

		if err := s.transition(models.StageImprovementLoop); err != nil {
			return err
		}

		previousScreenshot := ""
		if last := s.metadata.LastIteration(); last != nil {
			previousScreenshot = last.ScreenshotPath
		}

		improvement, err := s.gen.GenerateImprovement(
			ctx, s.request, s.scriptCache[current.VersionID], s.metadata.BestScore, iteration, previousScreenshot,
		)
		if err != nil {
			return fmt.Errorf("improvement generation failed: %w", err)
		}

		improved, err := s.createVersion(improvement, models.ScriptOriginImprovement, current.VersionID)
		if err != nil {
			return err
		}

		result, err := s.executeScript(ctx, models.StageImprovementLoop, improved)
		if err != nil {
			return err
		}

		if !result.Success {
			s.logger.Warn("Improvement iteration failed, continuing", "iteration", iteration)

			continue
		}

		current = improved

		if err := s.scoreIteration(ctx, current, result); err != nil {
			return err
		}

		if s.targetReached() {
			s.logger.Info("Target score reached",
				"aggregate", s.metadata.BestScore.Aggregate,
				"threshold", s.settings.Behavior.TargetScoreThreshold,
			)

			break
		}
	}

	return nil
}

// scoreIteration captures a screenshot of a successful execution's artifact,
// scores it and updates the best-known candidate. A capture failure aborts
// the run: without a preview no meaningful scoring is possible. The artifact
// path stays in the error so a caller can inspect it manually.
func (s *run) scoreIteration(ctx context.Context, version *models.ScriptVersion, result *models.ExecutionResult) error {
	if result.ArtifactPath == "" {
		s.logger.Warn("No artifact path in execution result", "version_id", version.VersionID)

		return nil
	}

	if err := s.transition(models.StageScreenshot); err != nil {
		return err
	}

	screenshotPath := filepath.Join(s.paths.OutputsDir, "slide_"+version.VersionID+".png")
	if err := s.renderer.Capture(ctx, result.ArtifactPath, screenshotPath); err != nil {
		return fmt.Errorf("screenshot capture failed for artifact %s: %w", result.ArtifactPath, err)
	}

	s.metadata.LastIteration().ScreenshotPath = screenshotPath

	if err := s.transition(models.StageScoring); err != nil {
		return err
	}

	score, err := s.scoring.Score(ctx, s.request, screenshotPath, s.request.ReferenceImage)
	if err != nil {
		return err
	}

	s.metadata.LastIteration().Score = score
	s.logger.Info("Iteration scored", "version_id", version.VersionID, "aggregate", score.Aggregate)

	// Strictly greater keeps the earlier candidate on ties, favoring fewer
	// iterations when quality is tied.
	if s.metadata.BestScore == nil || score.Aggregate > s.metadata.BestScore.Aggregate {
		s.metadata.BestScore = score
		s.metadata.BestVersionID = version.VersionID
		s.logger.Info("New best candidate", "version_id", version.VersionID, "aggregate", score.Aggregate)
	}

	return s.persist()
}

func (s *run) createVersion(generation *generator.Generation, origin models.ScriptOrigin, parentVersionID string) (*models.ScriptVersion, error) {
	version, err := s.ledger.CreateVersion(generation.Script, origin, parentVersionID, generation.RequestID)
	if err != nil {
		return nil, err
	}

	s.scriptCache[version.VersionID] = generation.Script

	return version, nil
}

func (s *run) executeScript(ctx context.Context, stage models.PipelineStage, version *models.ScriptVersion) (*models.ExecutionResult, error) {
	if err := s.transition(stage); err != nil {
		return nil, err
	}

	result, err := s.engine.Execute(ctx, version, s.imageMap)
	if err != nil {
		return nil, err
	}

	if result.Success {
		s.ledger.UpdateStatus(version, models.ScriptStatusSuccess)
	} else {
		s.ledger.UpdateStatus(version, models.ScriptStatusFailure)
	}

	s.metadata.Iterations = append(s.metadata.Iterations, &models.IterationRecord{
		Stage:           stage,
		ScriptVersionID: version.VersionID,
		Execution:       result,
	})

	if err := s.persist(); err != nil {
		return nil, err
	}

	return &result, nil
}

func (s *run) targetReached() bool {
	return s.metadata.BestScore != nil &&
		s.metadata.BestScore.Aggregate >= s.settings.Behavior.TargetScoreThreshold
}

// transition moves the run to a new stage and persists the metadata document,
// keeping run progress externally observable.
func (s *run) transition(stage models.PipelineStage) error {
	s.metadata.Status = stage

	return s.persist()
}

func (s *run) persist() error {
	if _, err := s.store.WriteMetadata(s.paths, s.metadata); err != nil {
		return fmt.Errorf("failed to persist run metadata: %w", err)
	}

	return nil
}
