// Package execution runs generated scripts as isolated subprocesses and
// classifies the outcome.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/deckforge/deckforge/pkg/artifacts"
	"github.com/deckforge/deckforge/pkg/config"
	"github.com/deckforge/deckforge/pkg/models"
)

// ErrRunnerUnavailable signals a fatal runner configuration: the isolated
// runner binary cannot be located and fallback to the ambient interpreter is
// disabled. This is not a retryable script failure.
var ErrRunnerUnavailable = errors.New("script runner unavailable")

// Engine executes one script version at a time inside the run's working
// directory, with a hard wall-clock timeout.
type Engine struct {
	store    *artifacts.Store
	paths    *artifacts.RunPaths
	behavior config.Behavior
	runtime  config.Runtime
	logger   *slog.Logger
}

// NewEngine creates an engine bound to one run.
func NewEngine(store *artifacts.Store, paths *artifacts.RunPaths, behavior config.Behavior, runtime config.Runtime, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		paths:    paths,
		behavior: behavior,
		runtime:  runtime,
		logger:   logger,
	}
}

// Execute runs the script as a subprocess and classifies the outcome. Every
// process-level failure (non-zero exit, timeout, launch error, missing or
// invalid artifact) is reported inside the ExecutionResult, never as an
// error. The error return is reserved for runner configuration failures,
// which have no retry path.
//
// The imageMap is serialized to a JSON side-channel file so the child process
// resolves named assets without shared memory. Captured stdout/stderr are
// persisted to the run's logs exactly once per call.
func (e *Engine) Execute(ctx context.Context, version *models.ScriptVersion, imageMap map[string]string) (models.ExecutionResult, error) {
	outputPath := filepath.Join(e.paths.OutputsDir, "slide_"+version.VersionID+".pptx")
	bindingsPath := filepath.Join(e.paths.InputDir, version.VersionID+"_images.json")

	command, err := e.resolveCommand(version.Path, outputPath, bindingsPath)
	if err != nil {
		return models.ExecutionResult{}, err
	}

	logger := e.logger.With("version_id", version.VersionID)
	logger.Info("Executing script",
		"command", command,
		"workdir", e.paths.BaseDir,
		"output_path", outputPath,
		"bindings_path", bindingsPath,
		"timeout", e.behavior.ExecutionTimeout,
	)

	header := fmt.Sprintf(
		"Executing script: %s\nCommand: %v\nWorking directory: %s\nOutput path: %s\nImage bindings: %s\n%s\n",
		version.VersionID, command, e.paths.BaseDir, outputPath, bindingsPath, divider,
	)

	var (
		stdoutBuf, stderrBuf bytes.Buffer
		returnCode           int
		duration             time.Duration
	)

	stderrText := ""

	if err := writeBindings(bindingsPath, imageMap); err != nil {
		returnCode = models.ReturnCodeAbnormal
		stderrText = "failed to write image bindings: " + err.Error()
	} else {
		execCtx, cancel := context.WithTimeout(ctx, e.behavior.ExecutionTimeout)
		defer cancel()

		cmd := exec.CommandContext(execCtx, command[0], command[1:]...)
		cmd.Dir = e.paths.BaseDir
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf

		start := time.Now()
		runErr := cmd.Run()
		duration = time.Since(start)

		stderrText = stderrBuf.String()

		var exitErr *exec.ExitError

		switch {
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			// Partial stdout/stderr collected before the kill is kept.
			returnCode = models.ReturnCodeAbnormal
			stderrText += fmt.Sprintf("\nexecution timed out after %s", e.behavior.ExecutionTimeout)
			logger.Error("Script execution timed out", "timeout", e.behavior.ExecutionTimeout)
		case errors.As(runErr, &exitErr):
			returnCode = exitErr.ExitCode()
		case runErr != nil:
			returnCode = models.ReturnCodeAbnormal
			stderrText += "failed to execute script: " + runErr.Error()
			logger.Error("Script launch failed", "error", runErr)
		default:
			returnCode = 0
		}
	}

	outputInfo, statErr := os.Stat(outputPath)
	outputExists := statErr == nil

	stdoutText := header + stdoutBuf.String()
	stdoutText += fmt.Sprintf("\n%s\nExecution completed in %.2fs\nReturn code: %d\nOutput file exists: %t\n",
		divider, duration.Seconds(), returnCode, outputExists)

	if outputExists {
		stdoutText += fmt.Sprintf("Output file size: %d bytes\n", outputInfo.Size())
	}

	success := returnCode == 0 && outputExists

	if returnCode != 0 {
		stderrText += fmt.Sprintf("\n\nscript exited with code %d", returnCode)
	}

	if returnCode == 0 && !outputExists {
		stderrText += "\n\nscript completed but did not create output file: " + outputPath
	}

	if success {
		if err := ValidateDeck(outputPath); err != nil {
			success = false
			stderrText += "\n\nvalidation error: " + err.Error()
			logger.Error("Artifact validation failed", "error", err)
		}
	}

	if err := e.store.PersistExecutionLogs(e.paths, version.VersionID, stdoutText, stderrText); err != nil {
		logger.Error("Failed to persist execution logs", "error", err)
	}

	result := models.ExecutionResult{
		Success:         success,
		Stdout:          stdoutText,
		Stderr:          stderrText,
		ReturnCode:      returnCode,
		DurationSeconds: duration.Seconds(),
	}
	if success {
		result.ArtifactPath = outputPath
	}

	logger.Info("Script execution finished",
		"success", success,
		"return_code", returnCode,
		"duration", duration,
		"artifact_path", result.ArtifactPath,
	)

	return result, nil
}

// resolveCommand builds the subprocess invocation. The isolated runner is
// preferred when enabled; the ambient interpreter is the fallback unless
// fallback is disabled, which is a fatal configuration error.
func (e *Engine) resolveCommand(scriptPath, outputPath, bindingsPath string) ([]string, error) {
	scriptArgs := []string{scriptPath, "--output", outputPath, "--images", bindingsPath}

	if e.runtime.UseUV {
		uvPath, err := exec.LookPath(e.runtime.UVExecutable)
		if err == nil {
			return append([]string{uvPath, "run", "python"}, scriptArgs...), nil
		}

		if !e.runtime.AllowPythonFallback {
			return nil, fmt.Errorf("%w: %s not found and python fallback disabled", ErrRunnerUnavailable, e.runtime.UVExecutable)
		}

		e.logger.Warn("Isolated runner not found, falling back to ambient interpreter",
			"uv_executable", e.runtime.UVExecutable,
			"python_executable", e.runtime.PythonExecutable,
		)
	}

	return append([]string{e.runtime.PythonExecutable}, scriptArgs...), nil
}

func writeBindings(path string, imageMap map[string]string) error {
	if imageMap == nil {
		imageMap = map[string]string{}
	}

	data, err := json.Marshal(imageMap)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

const divider = "------------------------------------------------------------"
