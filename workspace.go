package deadtrees

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace names and tracks the intermediate datasets of a pipeline
// run inside a single directory
type Workspace struct {
	dir     string
	name    string
	tracked []string
	seen    map[string]bool
}

// NewWorkspace creates a workspace rooted at dir, intermediate dataset
// names are prefixed with name
func NewWorkspace(dir, name string) (*Workspace, error) {

	info, err := os.Stat(dir)

	if err != nil {
		return nil, fmt.Errorf("workspace directory: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("workspace %s is not a directory", dir)
	}

	return &Workspace{
		dir:  dir,
		name: sanitizeName(name),
		seen: make(map[string]bool),
	}, nil
}

// Dir returns the workspace directory
func (w *Workspace) Dir() string {
	return w.dir
}

// Name returns the sanitized dataset name prefix
func (w *Workspace) Name() string {
	return w.name
}

// RasterPath returns the tracked file path for an intermediate raster
func (w *Workspace) RasterPath(artifact string) string {
	return w.track(artifact + ".tif")
}

// VectorPath returns the tracked file path for an intermediate
// feature set
func (w *Workspace) VectorPath(artifact string) string {
	return w.track(artifact + ".geojson")
}

// SignaturePath returns the tracked file path for the classification
// signature
func (w *Workspace) SignaturePath() string {
	return w.track("signature.txt")
}

func (w *Workspace) track(file string) string {

	path := filepath.Join(w.dir, w.name+"_"+file)

	if !w.seen[path] {
		w.seen[path] = true
		w.tracked = append(w.tracked, path)
	}

	return path
}

// Tracked returns the intermediate dataset paths handed out so far
func (w *Workspace) Tracked() []string {
	out := make([]string, len(w.tracked))
	copy(out, w.tracked)
	return out
}

// Cleanup deletes the tracked intermediate datasets, continuing past
// failures, and returns the number deleted
func (w *Workspace) Cleanup(eng Engine) int {

	deleted := 0

	for _, path := range w.tracked {
		if !eng.Exists(path) {
			continue
		}

		if err := eng.Delete(path); err == nil {
			deleted++
		}
	}

	w.tracked = nil
	w.seen = make(map[string]bool)

	return deleted
}

// sanitizeName reduces a dataset name to letters, digits, underscore
// and hyphen so it is safe as a file name prefix
func sanitizeName(name string) string {

	var b strings.Builder

	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	if b.Len() == 0 {
		return "run"
	}

	return b.String()
}
