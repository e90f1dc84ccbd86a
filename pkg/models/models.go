// Package models defines the core domain models for the slide generation pipeline.
package models

// ScriptOrigin distinguishes why a script version was generated.
type ScriptOrigin string

const (
	ScriptOriginInitial     ScriptOrigin = "initial"     // First generation from the brief
	ScriptOriginFix         ScriptOrigin = "fix"         // Repair of a failing script
	ScriptOriginImprovement ScriptOrigin = "improvement" // Quality refinement of a working script
)

// ScriptStatus represents the lifecycle state of a script version.
type ScriptStatus string

const (
	ScriptStatusPending ScriptStatus = "pending"
	ScriptStatusSuccess ScriptStatus = "success"
	ScriptStatusFailure ScriptStatus = "failure"
)

// PipelineStage represents the run's current position in the pipeline state machine.
type PipelineStage string

const (
	StageInitialGeneration PipelineStage = "initial_generation"
	StageExecuteScript     PipelineStage = "execute_script"
	StageFixLoop           PipelineStage = "fix_loop"
	StageScreenshot        PipelineStage = "screenshot"
	StageScoring           PipelineStage = "scoring"
	StageImprovementLoop   PipelineStage = "improvement_loop"
	StageComplete          PipelineStage = "complete"
	StageFailed            PipelineStage = "failed"
)

// Terminal reports whether the stage ends a run.
func (s PipelineStage) Terminal() bool {
	return s == StageComplete || s == StageFailed
}

// ImageInput is a named image asset supplied with a slide request.
type ImageInput struct {
	Name        string `json:"name"        validate:"required"`
	Path        string `json:"path"        validate:"required"`
	Description string `json:"description"`
}

// SlideRequest is the inbound request a run is created for.
type SlideRequest struct {
	Prompt         string       `json:"prompt"                    validate:"required,min=3"`
	Images         []ImageInput `json:"images"                    validate:"dive"`
	ReferenceImage string       `json:"reference_image,omitempty"`
}

// ImageMap returns the asset name to stored path mapping handed to script executions.
func (r SlideRequest) ImageMap() map[string]string {
	imageMap := make(map[string]string, len(r.Images))
	for _, image := range r.Images {
		imageMap[image.Name] = image.Path
	}

	return imageMap
}

// ScriptVersion is one generated script attempt, with lineage and status.
type ScriptVersion struct {
	VersionID       string       `json:"version_id" validate:"required"`
	Origin          ScriptOrigin `json:"origin"     validate:"required,oneof=initial fix improvement"`
	Path            string       `json:"path"       validate:"required"`
	Status          ScriptStatus `json:"status"     validate:"required,oneof=pending success failure"`
	ParentVersionID string       `json:"parent_version_id,omitempty"`
	RequestID       string       `json:"request_id,omitempty"`
}

// ReturnCodeAbnormal is the sentinel return code recorded when a script did not
// produce a real process exit code: timeouts, launch failures, signals. Real
// exit codes are never negative, so the sentinel cannot collide with one.
const ReturnCodeAbnormal = -1

// ExecutionResult is the outcome of running one script version. Immutable once
// constructed; one instance per execution attempt.
type ExecutionResult struct {
	Success         bool    `json:"success"`
	ArtifactPath    string  `json:"artifact_path,omitempty"`
	Stdout          string  `json:"stdout"`
	Stderr          string  `json:"stderr"`
	ReturnCode      int     `json:"return_code"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ScoreBreakdown holds four independent criterion scores on a 0-100 scale,
// the weighted aggregate derived from them, and the evaluator's issue list.
type ScoreBreakdown struct {
	Completeness    float64  `json:"completeness"`
	ContentAccuracy float64  `json:"content_accuracy"`
	LayoutMatch     float64  `json:"layout_match"`
	VisualQuality   float64  `json:"visual_quality"`
	Aggregate       float64  `json:"aggregate"`
	Issues          []string `json:"issues"`
}

// IterationRecord is one row per executed script within a run. Screenshot and
// score fields are filled in strictly in the order execution -> screenshot ->
// score within the same iteration, never retroactively edited beyond that.
type IterationRecord struct {
	Stage           PipelineStage   `json:"stage"`
	ScriptVersionID string          `json:"script_version_id"`
	Execution       ExecutionResult `json:"execution"`
	ScreenshotPath  string          `json:"screenshot_path,omitempty"`
	Score           *ScoreBreakdown `json:"score,omitempty"`
}

// RunMetadata is the single source of truth for a run, persisted after every
// stage transition. It spans exactly one run: created at run start, finalized
// at a terminal stage, never deleted.
type RunMetadata struct {
	RunID          string             `json:"run_id"`
	Request        SlideRequest       `json:"request"`
	ScriptVersions []*ScriptVersion   `json:"script_versions"`
	Iterations     []*IterationRecord `json:"iterations"`
	BestVersionID  string             `json:"best_version_id,omitempty"`
	BestScore      *ScoreBreakdown    `json:"best_score,omitempty"`
	Status         PipelineStage      `json:"status"`
}

// NewRunMetadata creates run metadata at the initial pipeline stage.
func NewRunMetadata(runID string, request SlideRequest) *RunMetadata {
	return &RunMetadata{
		RunID:          runID,
		Request:        request,
		ScriptVersions: make([]*ScriptVersion, 0),
		Iterations:     make([]*IterationRecord, 0),
		Status:         StageInitialGeneration,
	}
}

// LastIteration returns the most recently appended iteration record, or nil.
func (m *RunMetadata) LastIteration() *IterationRecord {
	if len(m.Iterations) == 0 {
		return nil
	}

	return m.Iterations[len(m.Iterations)-1]
}

// FindVersion returns the script version with the given ID, or nil.
func (m *RunMetadata) FindVersion(versionID string) *ScriptVersion {
	for _, version := range m.ScriptVersions {
		if version.VersionID == versionID {
			return version
		}
	}

	return nil
}
