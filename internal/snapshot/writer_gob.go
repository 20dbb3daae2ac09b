package snapshot

import (
	"PerfSpectra/internal/model"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	manifestFile = "summary.json"
	gobFile      = "summary.gob"

	// maxGroupDirLen keeps group directories under common file name limits.
	maxGroupDirLen = 200
)

// ManifestGroup maps a group key to the directory holding its summary.gob.
type ManifestGroup struct {
	Group string `json:"group"`
	Dir   string `json:"dir"`
}

// Manifest describes the content of one gob snapshot directory.
type Manifest struct {
	Backend   string          `json:"backend"`
	Groups    []ManifestGroup `json:"groups"`
	Ingested  uint64          `json:"ingested"`
	Failed    uint64          `json:"failed"`
	Timestamp string          `json:"timestamp"`
}

// GroupDir returns the directory name used for group inside a snapshot directory.
// Group keys are arbitrary strings, so the result is always a single path segment
// that cannot be "." or "..".
func GroupDir(group string) string {
	dir := "g_" + url.PathEscape(group)
	if len(dir) > maxGroupDirLen {
		sum := sha256.Sum256([]byte(group))
		return "h_" + hex.EncodeToString(sum[:])
	}
	return dir
}

// GobWriter writes each snapshot to a timestamped directory: one summary.gob per
// group plus a summary.json manifest. It implements the model.Writer interface.
type GobWriter struct {
	log      logrus.FieldLogger
	rootPath string
	interval time.Duration
}

// NewGobWriter creates a writer rooted at rootPath.
func NewGobWriter(rootPath string, interval time.Duration, log logrus.FieldLogger) model.Writer {
	return &GobWriter{
		log:      log.WithField("writer", TypeGob),
		rootPath: rootPath,
		interval: interval,
	}
}

// GetInterval returns the configured snapshot interval for this writer.
func (w *GobWriter) GetInterval() time.Duration {
	return w.interval
}

// Write encodes every group summary of the snapshot.
func (w *GobWriter) Write(_ context.Context, snapshot model.Snapshot) error {
	if snapshot.Summary == nil {
		return nil
	}

	snapshotDir := filepath.Join(w.rootPath, snapshot.Time.Format(TimestampLayout))
	groups := make([]ManifestGroup, 0, len(snapshot.Summary.Groups))
	for group, summary := range snapshot.Summary.Groups {
		dir := GroupDir(group)
		groupDir := filepath.Join(snapshotDir, dir)
		if err := os.MkdirAll(groupDir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
		if err := encodeGob(filepath.Join(groupDir, gobFile), summary); err != nil {
			return err
		}
		groups = append(groups, ManifestGroup{Group: group, Dir: dir})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })

	manifest := Manifest{
		Backend:   snapshot.Backend,
		Groups:    groups,
		Ingested:  snapshot.Ingested,
		Failed:    snapshot.Failed,
		Timestamp: snapshot.Time.UTC().Format(time.RFC3339),
	}
	if err := writeManifest(filepath.Join(snapshotDir, manifestFile), manifest); err != nil {
		return err
	}

	w.log.WithFields(logrus.Fields{
		"dir":    snapshotDir,
		"groups": len(groups),
	}).Debug("Wrote gob snapshot")
	return nil
}

// Close is a no-op; every Write closes its own files.
func (w *GobWriter) Close() error {
	return nil
}

func encodeGob(path string, summary model.GroupSummary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file '%s': %w", path, err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary to gob for file '%s': %w", path, err)
	}
	return nil
}

func writeManifest(path string, manifest Manifest) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(manifest); err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return nil
}

// ReadGob decodes a group summary written by GobWriter.
func ReadGob(path string) (model.GroupSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var summary model.GroupSummary
	if err := gob.NewDecoder(file).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode gob file '%s': %w", path, err)
	}
	return summary, nil
}

// ReadSnapshot reads the manifest of a snapshot directory and every group summary
// it lists, keyed by the original group key.
func ReadSnapshot(dir string) (*Manifest, *model.SummaryResult, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, nil, fmt.Errorf("failed to decode manifest in '%s': %w", dir, err)
	}

	result := &model.SummaryResult{Groups: make(map[string]model.GroupSummary, len(manifest.Groups))}
	for _, g := range manifest.Groups {
		if g.Dir != GroupDir(g.Group) {
			return nil, nil, fmt.Errorf("manifest in '%s' lists unexpected directory '%s' for group '%s'", dir, g.Dir, g.Group)
		}
		summary, err := ReadGob(filepath.Join(dir, g.Dir, gobFile))
		if err != nil {
			return nil, nil, err
		}
		result.Groups[g.Group] = summary
	}
	return &manifest, result, nil
}
