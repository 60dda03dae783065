package psdmerge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/layer"
	"github.com/gogpu/psdmerge/manifest"
	"github.com/gogpu/psdmerge/merge"
)

// Common controller errors.
var (
	// ErrClosed is returned by every method of a closed Controller.
	ErrClosed = errors.New("psdmerge: controller closed")

	// ErrLayerNotFound is returned by MergeByName when no visible layer has
	// the requested name.
	ErrLayerNotFound = errors.New("psdmerge: layer not found")

	// ErrNoDocument is returned by New for a nil document.
	ErrNoDocument = errors.New("psdmerge: nil document")
)

// Controller owns a document and the images of its layers, and merges
// subsets of its layers on request.
//
// The base images are never modified by a merge. Methods serialize on an
// internal lock, so a Controller may be shared between goroutines.
type Controller struct {
	mu     sync.Mutex
	doc    *layer.Document
	store  *merge.Store
	pool   *imagebuf.Pool
	snaps  *merge.SnapshotWriter
	logger *slog.Logger
	closed bool
}

// New creates a controller for doc. images holds the decoded image of each
// image-bearing layer in traversal order (see [layer.Document.Descendants]).
// The controller takes ownership of the images and releases them on Close.
func New(doc *layer.Document, images []*imagebuf.ImageBuf, opts ...Option) (*Controller, error) {
	if doc == nil {
		return nil, ErrNoDocument
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store, err := merge.BuildStore(doc, images)
	if err != nil {
		return nil, fmt.Errorf("psdmerge: %w", err)
	}

	c := &Controller{
		doc:    doc,
		store:  store,
		pool:   imagebuf.NewPool(o.poolSize),
		logger: o.logger,
	}
	if o.debugDir != "" {
		if err := c.SetDebugDir(o.debugDir); err != nil {
			return nil, err
		}
	}
	c.log().Info("psdmerge: controller ready", "width", doc.Width(), "height", doc.Height(), "images", store.Len())
	return c, nil
}

// Open loads the manifest at path and creates a controller for it.
func Open(path string, opts ...Option) (*Controller, error) {
	doc, images, err := manifest.Load(path)
	if err != nil {
		return nil, fmt.Errorf("psdmerge: open %s: %w", path, err)
	}
	c, err := New(doc, images, opts...)
	if err != nil {
		for _, img := range images {
			_ = img.Release()
		}
		return nil, err
	}
	return c, nil
}

// Merge flattens layers into a new document-sized image. It returns nil for
// an empty layer set. The caller owns the result and should Release it.
func (c *Controller) Merge(layers []*layer.Layer) (*imagebuf.ImageBuf, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.engine().Flatten(c.store, layers), nil
}

// MergeByName merges the visible descendants of the visible layer called
// name. When several layers share the name, the shallowest wins; ties go to
// the first in traversal order. Names are compared in Unicode NFC form.
func (c *Controller) MergeByName(name string) (*imagebuf.ImageBuf, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	l, err := c.find(name, true)
	if err != nil {
		return nil, err
	}
	return c.engine().Flatten(c.store, l.VisibleDescendants()), nil
}

// Find returns the layer called name, using the same matching as
// MergeByName. With visibleOnly unset, hidden layers such as crop frames
// are found too. A missing layer yields an error wrapping ErrLayerNotFound.
func (c *Controller) Find(name string, visibleOnly bool) (*layer.Layer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.find(name, visibleOnly)
}

func (c *Controller) find(name string, visibleOnly bool) (*layer.Layer, error) {
	find := c.doc.Find
	if visibleOnly {
		find = c.doc.FindVisible
	}
	l, ok := find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLayerNotFound, name)
	}
	return l, nil
}

// MergeCropped merges layers and crops the result to the bounds of crop.
// The result has exactly crop's size; areas outside the document are
// transparent. A nil crop behaves like Merge.
func (c *Controller) MergeCropped(layers []*layer.Layer, crop *layer.Layer) (*imagebuf.ImageBuf, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	return c.engine().FlattenAndCrop(c.store, layers, crop)
}

// SetDebugDir sets the snapshot directory, creating it if needed. An empty
// dir disables snapshots. Pending writes into the previous directory are
// flushed first.
func (c *Controller) SetDebugDir(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if dir == c.snaps.Dir() {
		return nil
	}

	flushErr := c.snaps.Flush()
	c.snaps = nil
	if dir == "" {
		return flushErr
	}
	w, err := merge.NewSnapshotWriter(dir, c.log())
	if err != nil {
		return errors.Join(flushErr, fmt.Errorf("psdmerge: %w", err))
	}
	c.snaps = w
	return flushErr
}

// DebugDir returns the snapshot directory, or "" when snapshots are off.
// After Close it returns "" rather than an error; Flush and the merge
// methods report ErrClosed.
func (c *Controller) DebugDir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps.Dir()
}

// Flush waits for pending snapshot writes and returns the first write
// error since the previous Flush.
func (c *Controller) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.snaps.Flush()
}

// Document returns the controlled document. After Close it returns nil;
// callers that need an error should check the merge methods, which return
// ErrClosed.
func (c *Controller) Document() *layer.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Image returns the base image of l. Folders have no base image, and
// after Close no layer has one.
func (c *Controller) Image(l *layer.Layer) (*imagebuf.ImageBuf, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || l == nil {
		return nil, false
	}
	return c.store.Get(l.ID())
}

// Close flushes pending snapshots, releases every base image once and
// drops the document. Closing twice returns ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.closed = true

	errs := []error{c.snaps.Flush()}
	released := make(map[*imagebuf.ImageBuf]struct{}, c.store.Len())
	c.store.Each(func(id layer.ID, img *imagebuf.ImageBuf) {
		if _, ok := released[img]; ok {
			return
		}
		released[img] = struct{}{}
		if err := img.Release(); err != nil {
			errs = append(errs, fmt.Errorf("psdmerge: release image of layer %s: %w", id, err))
		}
	})
	c.log().Info("psdmerge: controller closed", "images", len(released))

	c.snaps = nil
	c.store = nil
	c.doc = nil
	return errors.Join(errs...)
}

// engine returns a merge engine bound to the controller's pool, snapshot
// writer and current logger.
func (c *Controller) engine() *merge.Engine {
	return &merge.Engine{
		Pool:      c.pool,
		Snapshots: c.snaps,
		Logger:    c.log(),
	}
}

func (c *Controller) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return Logger()
}
