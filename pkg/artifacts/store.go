// Package artifacts provides the file-based artifact store for runs: the
// per-run working directory layout plus persistence of prompts, image assets,
// generated scripts, execution logs and run metadata.
package artifacts

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/deckforge/deckforge/pkg/models"
)

// RunPaths is the directory layout allocated to a single run. Run directories
// are disjoint by construction, so independent runs never share state.
type RunPaths struct {
	RunID      string
	BaseDir    string
	InputDir   string
	ScriptsDir string
	OutputsDir string
	LogsDir    string
}

// Store persists run artifacts under a root output directory.
type Store struct {
	root string
}

// NewStore creates a store rooted at the given directory, creating it if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root %s: %w", root, err)
	}

	return &Store{root: root}, nil
}

// Root returns the base output directory of the store.
func (s *Store) Root() string {
	return s.root
}

// CreateRun allocates the working-directory layout for a run. An empty runID
// gets a generated identifier: UTC timestamp plus a short random suffix, which
// keeps concurrent runs in disjoint directories.
func (s *Store) CreateRun(runID string) (*RunPaths, error) {
	if runID == "" {
		runID = time.Now().UTC().Format("20060102_150405") + "_" + uuid.New().String()[:8]
	}

	baseDir := filepath.Join(s.root, runID)
	paths := &RunPaths{
		RunID:      runID,
		BaseDir:    baseDir,
		InputDir:   filepath.Join(baseDir, "input"),
		ScriptsDir: filepath.Join(baseDir, "scripts"),
		OutputsDir: filepath.Join(baseDir, "outputs"),
		LogsDir:    filepath.Join(baseDir, "logs"),
	}

	for _, dir := range []string{paths.InputDir, paths.ScriptsDir, paths.OutputsDir, paths.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create run directory %s: %w", dir, err)
		}
	}

	return paths, nil
}

// PersistPrompt stores the brief text under the run's input directory.
func (s *Store) PersistPrompt(paths *RunPaths, prompt string) (string, error) {
	promptPath := filepath.Join(paths.InputDir, "prompt.txt")
	if err := os.WriteFile(promptPath, []byte(prompt), 0o644); err != nil {
		return "", fmt.Errorf("failed to persist prompt: %w", err)
	}

	return promptPath, nil
}

// StoreImages copies the request's image assets into the run's input directory
// and returns the inputs rebound to their stored paths.
func (s *Store) StoreImages(paths *RunPaths, images []models.ImageInput) ([]models.ImageInput, error) {
	stored := make([]models.ImageInput, 0, len(images))

	for _, image := range images {
		target := filepath.Join(paths.InputDir, filepath.Base(image.Path))
		if image.Path != target {
			if err := copyFile(image.Path, target); err != nil {
				return nil, fmt.Errorf("failed to store image %s: %w", image.Name, err)
			}
		}

		stored = append(stored, models.ImageInput{Name: image.Name, Path: target, Description: image.Description})
	}

	return stored, nil
}

// StoreReferenceImage copies the optional reference image into the run's input
// directory. An empty source path is passed through unchanged.
func (s *Store) StoreReferenceImage(paths *RunPaths, referenceImage string) (string, error) {
	if referenceImage == "" {
		return "", nil
	}

	target := filepath.Join(paths.InputDir, filepath.Base(referenceImage))
	if err := copyFile(referenceImage, target); err != nil {
		return "", fmt.Errorf("failed to store reference image: %w", err)
	}

	return target, nil
}

// PersistScript writes one script version's source under scripts/.
func (s *Store) PersistScript(paths *RunPaths, versionID, content string) (string, error) {
	scriptPath := filepath.Join(paths.ScriptsDir, "script_"+versionID+".py")
	if err := os.WriteFile(scriptPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to persist script %s: %w", versionID, err)
	}

	return scriptPath, nil
}

// PersistExecutionLogs stores the captured stdout and stderr of one execution
// attempt, keyed by version ID.
func (s *Store) PersistExecutionLogs(paths *RunPaths, versionID, stdout, stderr string) error {
	stdoutPath := filepath.Join(paths.LogsDir, versionID+"_stdout.log")
	if err := os.WriteFile(stdoutPath, []byte(stdout), 0o644); err != nil {
		return fmt.Errorf("failed to persist stdout log for %s: %w", versionID, err)
	}

	stderrPath := filepath.Join(paths.LogsDir, versionID+"_stderr.log")
	if err := os.WriteFile(stderrPath, []byte(stderr), 0o644); err != nil {
		return fmt.Errorf("failed to persist stderr log for %s: %w", versionID, err)
	}

	return nil
}

// WriteMetadata rewrites the run's metadata document atomically: the JSON is
// written to a temp file in the same directory and renamed over metadata.json,
// so readers never observe a partial document.
func (s *Store) WriteMetadata(paths *RunPaths, metadata *models.RunMetadata) (string, error) {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run metadata: %w", err)
	}

	metadataPath := filepath.Join(paths.BaseDir, "metadata.json")

	tmp, err := os.CreateTemp(paths.BaseDir, "metadata-*.json.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create metadata temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("failed to write metadata: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("failed to close metadata temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), metadataPath); err != nil {
		_ = os.Remove(tmp.Name())

		return "", fmt.Errorf("failed to replace metadata file: %w", err)
	}

	return metadataPath, nil
}

// ReadMetadata loads a persisted run metadata document.
func ReadMetadata(path string) (*models.RunMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", path, err)
	}

	var metadata models.RunMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse metadata %s: %w", path, err)
	}

	return &metadata, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
