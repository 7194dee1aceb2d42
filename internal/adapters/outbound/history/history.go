// Package history keeps the dispatch reports of the register's current
// session in the workspace, so that `pourline history` can show what was
// poured since the session opened.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pourline/pourline/internal/domain"
)

// Path is the session log location relative to the workspace directory.
const Path = ".pourline/history/dispatches.json"

// FileHistory implements domain.DispatchHistory as a JSON array on disk.
// Entries accumulate while they share a session id. The first entry of a
// different session truncates the log, so nothing outlives the session.
type FileHistory struct{}

var _ domain.DispatchHistory = (*FileHistory)(nil)

func New() *FileHistory {
	return &FileHistory{}
}

// Save appends entry to the session log under dir.
func (h *FileHistory) Save(dir string, entry domain.DispatchEntry) error {
	entries, err := h.Load(dir)
	if err != nil {
		return err
	}
	if !sameSession(entries, entry.SessionID) {
		entries = nil
	}
	entries = append(entries, entry)

	fp := filepath.Join(dir, Path)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return fmt.Errorf("creating history dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return os.WriteFile(fp, data, 0o644)
}

// Load returns the session log under dir, oldest first. A workspace that
// never dispatched has an empty log.
func (h *FileHistory) Load(dir string) ([]domain.DispatchEntry, error) {
	fp := filepath.Join(dir, Path)
	data, err := os.ReadFile(fp)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []domain.DispatchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s: %w", fp, err)
	}
	return entries, nil
}

func sameSession(entries []domain.DispatchEntry, sessionID string) bool {
	return len(entries) == 0 || entries[len(entries)-1].SessionID == sessionID
}
