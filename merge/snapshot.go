package merge

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/layer"
)

// SnapshotWriter saves intermediate merge images as PNG files.
//
// Writes run in the background on private clones, so the merge never waits
// on encoding. Call Flush before inspecting the directory. A nil
// *SnapshotWriter discards every write.
type SnapshotWriter struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
	g  *errgroup.Group
}

// NewSnapshotWriter creates dir if needed and returns a writer into it.
// A nil logger drops write warnings.
func NewSnapshotWriter(dir string, logger *slog.Logger) (*SnapshotWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("merge: create snapshot dir: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SnapshotWriter{dir: dir, logger: logger, g: new(errgroup.Group)}, nil
}

// Dir returns the target directory, or "" for a nil writer.
func (w *SnapshotWriter) Dir() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// Write schedules img to be saved as name inside the directory.
// img is cloned before Write returns; the caller may release it at once.
func (w *SnapshotWriter) Write(name string, img *imagebuf.ImageBuf) {
	if w == nil || img == nil {
		return
	}
	c := img.Clone()
	path := filepath.Join(w.dir, name)

	w.mu.Lock()
	g := w.g
	w.mu.Unlock()

	g.Go(func() error {
		if err := c.SavePNG(path); err != nil {
			w.logger.Warn("psdmerge: snapshot write failed", "path", path, "err", err)
			return fmt.Errorf("merge: snapshot %s: %w", name, err)
		}
		return nil
	})
}

// Flush waits for every scheduled write and returns the first error.
// The writer stays usable afterwards.
func (w *SnapshotWriter) Flush() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	g := w.g
	w.g = new(errgroup.Group)
	w.mu.Unlock()
	return g.Wait()
}

// snapshotGroup names the snapshots of one merge after its target set.
func snapshotGroup(targets []*layer.Layer) string {
	h := fnv.New32a()
	for _, l := range targets {
		id := l.ID()
		h.Write(id[:])
	}
	return fmt.Sprintf("%08x", h.Sum32())
}

// sanitizeName keeps letters, digits, dashes and underscores.
func sanitizeName(name string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, name)
	if s == "" {
		return "unnamed"
	}
	return s
}
