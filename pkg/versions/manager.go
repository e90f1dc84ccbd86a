// Package versions maintains the script version ledger for a run: identifier
// allocation, lineage tracking and lifecycle status.
package versions

import (
	"fmt"
	"log/slog"

	"github.com/deckforge/deckforge/pkg/artifacts"
	"github.com/deckforge/deckforge/pkg/models"
)

// Manager allocates version identifiers scoped to one run and appends every
// created version to the run's metadata. Ordinals are strictly increasing and
// never reused, even after failures.
type Manager struct {
	store    *artifacts.Store
	paths    *artifacts.RunPaths
	metadata *models.RunMetadata
	logger   *slog.Logger
	ordinal  int
}

// NewManager creates a ledger bound to one run's metadata.
func NewManager(store *artifacts.Store, paths *artifacts.RunPaths, metadata *models.RunMetadata, logger *slog.Logger) *Manager {
	return &Manager{
		store:    store,
		paths:    paths,
		metadata: metadata,
		logger:   logger,
	}
}

// CreateVersion persists the script content, allocates the next version
// identifier and appends the pending version to the run's metadata.
func (m *Manager) CreateVersion(content string, origin models.ScriptOrigin, parentVersionID, requestID string) (*models.ScriptVersion, error) {
	m.ordinal++
	versionID := fmt.Sprintf("v%d_%s", m.ordinal, origin)

	scriptPath, err := m.store.PersistScript(m.paths, versionID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to create version %s: %w", versionID, err)
	}

	version := &models.ScriptVersion{
		VersionID:       versionID,
		Origin:          origin,
		Path:            scriptPath,
		Status:          models.ScriptStatusPending,
		ParentVersionID: parentVersionID,
		RequestID:       requestID,
	}
	m.metadata.ScriptVersions = append(m.metadata.ScriptVersions, version)

	m.logger.Info("Created script version",
		"version_id", versionID,
		"origin", origin,
		"parent_version_id", parentVersionID,
		"request_id", requestID,
	)

	return version, nil
}

// UpdateStatus sets a version's terminal status. Calling it twice with the
// same value is a no-op; moving a terminal version back to pending is a
// programmer error and is not supported.
func (m *Manager) UpdateStatus(version *models.ScriptVersion, status models.ScriptStatus) {
	if version.Status == status {
		return
	}

	version.Status = status
}

// Latest returns the most recently created version, or nil if the run has
// produced nothing yet.
func (m *Manager) Latest() *models.ScriptVersion {
	if len(m.metadata.ScriptVersions) == 0 {
		return nil
	}

	return m.metadata.ScriptVersions[len(m.metadata.ScriptVersions)-1]
}
