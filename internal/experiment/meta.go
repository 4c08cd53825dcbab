package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// MetaFileName is the per-run metadata file inside the log directory.
const MetaFileName = "run.json"

// Meta holds per-run metadata persisted next to the metrics file.
type Meta struct {
	RunID       string `json:"runId"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// EnsureMeta writes a run metadata record into logDir if absent, returning
// the effective meta. Idempotent: an existing record is returned as-is, so
// reopening a versioned directory keeps its original run identity.
func EnsureMeta(logDir, name string, v Version) (Meta, error) {
	path := filepath.Join(logDir, MetaFileName)
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		var m Meta
		if err := json.Unmarshal(b, &m); err == nil {
			return m, nil
		}
		// fall through to rewrite if corrupted
	}
	m := Meta{
		RunID:       uuid.NewString(),
		Name:        name,
		Version:     v.DirName(),
		CreatedAtMs: time.Now().UnixMilli(),
	}
	b, err := json.Marshal(m)
	if err != nil {
		return Meta{}, err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return Meta{}, fmt.Errorf("write %s: %w", path, err)
	}
	return m, nil
}
