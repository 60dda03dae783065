// Package merge flattens a subset of a layer tree into one raster.
//
// The engine works bottom-up. Folders that are themselves merge targets are
// flattened first, deepest first, into document-sized canvases stored under
// the folder's ID in a per-merge working copy of the image [Store]. The
// shallowest targets are then painted onto the final canvas.
//
// Within one parent, siblings are painted bottom-to-top in runs split by
// clipping flag. A clipping run is confined to the last layer of the run
// below it, its base: base and clipped layers are painted onto a separate
// canvas which then joins the parent with the base's blend mode.
package merge

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/layer"
)

// defaultPoolSize is the bucket limit of an engine's private pool.
const defaultPoolSize = 4

// Engine flattens layers of a document. The zero value is ready to use.
type Engine struct {
	// Pool supplies canvases. Nil means a private pool.
	Pool *imagebuf.Pool

	// Snapshots receives a pair of images per paint step. Nil disables them.
	Snapshots *SnapshotWriter

	// Logger receives debug output. Nil means silent.
	Logger *slog.Logger
}

// Flatten composites targets into a new document-sized canvas and returns
// it. The caller owns the result and should Release it when done.
// Flatten returns nil when targets is empty. store is not modified.
func (e *Engine) Flatten(store *Store, targets []*layer.Layer) *imagebuf.ImageBuf {
	final, work := e.flatten(store, targets)
	if work != nil {
		releaseWorking(store, work, final)
	}
	return final
}

// FlattenAndCrop is Flatten followed by a crop to the bounds of crop. The
// cropped canvas has exactly crop's size and its origin is reset to (0, 0).
// A nil crop returns the full canvas. Nil results are returned untouched.
func (e *Engine) FlattenAndCrop(store *Store, targets []*layer.Layer, crop *layer.Layer) (*imagebuf.ImageBuf, error) {
	final := e.Flatten(store, targets)
	if final == nil || crop == nil {
		return final, nil
	}
	if err := final.Crop(crop.Bounds()); err != nil {
		_ = final.Release()
		return nil, fmt.Errorf("merge: crop to %q: %w", crop.Name(), err)
	}
	final.ResetOrigin()
	return final, nil
}

// flatten does the work of Flatten and also returns the working store, so
// callers can inspect the synthesised folder images before they are
// released.
func (e *Engine) flatten(store *Store, targets []*layer.Layer) (*imagebuf.ImageBuf, *Store) {
	targets = uniqueLayers(targets)
	if len(targets) == 0 {
		return nil, nil
	}
	doc := targets[0].Document()
	if doc == nil {
		e.logger().Warn("psdmerge: target layer is not attached to a document", "layer", targets[0].Name())
		return nil, nil
	}

	width, height := doc.Bounds()
	if width <= 0 || height <= 0 {
		e.logger().Warn("psdmerge: document has no canvas", "width", width, "height", height)
		return nil, nil
	}

	order := make(map[layer.ID]int)
	for i, l := range doc.Descendants(nil) {
		order[l.ID()] = i
	}
	byOrder := func(a, b *layer.Layer) int {
		return cmp.Compare(order[a.ID()], order[b.ID()])
	}

	c := &compositor{
		pool:   e.pool(),
		snaps:  e.Snapshots,
		logger: e.logger(),
		group:  snapshotGroup(targets),
	}
	work := store.Clone()

	isTarget := make(map[layer.ID]bool, len(targets))
	for _, l := range targets {
		isTarget[l.ID()] = true
	}

	members := make(map[layer.ID][]*layer.Layer)
	var folders []*layer.Layer
	for _, l := range targets {
		p := l.Parent()
		if p == nil || !isTarget[p.ID()] {
			continue
		}
		if _, ok := members[p.ID()]; !ok {
			folders = append(folders, p)
		}
		members[p.ID()] = append(members[p.ID()], l)
	}

	slices.SortStableFunc(folders, func(a, b *layer.Layer) int {
		if da, db := a.Depth(), b.Depth(); da != db {
			return cmp.Compare(db, da)
		}
		return byOrder(a, b)
	})

	for _, f := range folders {
		group := members[f.ID()]
		slices.SortStableFunc(group, byOrder)

		canvas := c.canvas(width, height)
		e.paintRuns(c, work, group, canvas)
		work.put(f.ID(), canvas)
		c.logger.Debug("psdmerge: folder merged", "folder", f.Name(), "layers", len(group))
	}

	minDepth := targets[0].Depth()
	for _, l := range targets[1:] {
		minDepth = min(minDepth, l.Depth())
	}
	var top []*layer.Layer
	for _, l := range targets {
		if l.Depth() == minDepth {
			top = append(top, l)
		}
	}
	slices.SortStableFunc(top, byOrder)

	final := c.canvas(width, height)
	e.paintRuns(c, work, top, final)
	return final, work
}

// paintRuns paints siblings, given in paint order, onto canvas.
func (e *Engine) paintRuns(c *compositor, work *Store, siblings []*layer.Layer, canvas *imagebuf.ImageBuf) {
	runs := GroupByClipping(siblings)
	for i, run := range runs {
		if run.Clipping {
			// Clipping runs are painted with their base. One whose base
			// is not being merged shows nothing.
			continue
		}
		layers := run.Layers
		var (
			base    *layer.Layer
			clipped []*layer.Layer
		)
		if i+1 < len(runs) {
			base = layers[len(layers)-1]
			clipped = clippedTo(base, runs[i+1].Layers)
			if len(clipped) > 0 {
				layers = layers[:len(layers)-1]
			}
		}
		for _, l := range layers {
			e.paintLayer(c, work, l, canvas)
		}
		if len(clipped) > 0 {
			e.paintClipped(c, work, base, clipped, canvas)
		}
	}
}

// clippedTo returns the layers of a clipping run whose base is base. A
// clipping layer whose base was left out of the merge, for example because
// it is hidden, is dropped with it.
func clippedTo(base *layer.Layer, run []*layer.Layer) []*layer.Layer {
	var out []*layer.Layer
	for _, l := range run {
		if l.ClippingBase() == base {
			out = append(out, l)
		}
	}
	return out
}

func (e *Engine) paintLayer(c *compositor, work *Store, l *layer.Layer, canvas *imagebuf.ImageBuf) {
	img, ok := work.Get(l.ID())
	if !ok {
		c.logger.Debug("psdmerge: no image, skipped", "layer", l.Name())
		return
	}
	c.paint(img, l, canvas)
}

// paintClipped paints base and the clipped layers above it onto a separate
// canvas, then joins that canvas with the base's blend mode.
func (e *Engine) paintClipped(c *compositor, work *Store, base *layer.Layer, clipped []*layer.Layer, canvas *imagebuf.ImageBuf) {
	img, ok := work.Get(base.ID())
	if !ok {
		c.logger.Debug("psdmerge: clipping base has no image, run skipped", "base", base.Name())
		return
	}

	width, height := canvas.Bounds()
	sub := c.canvas(width, height)
	defer sub.Release()

	c.paint(img, base, sub)
	for _, l := range clipped {
		e.paintLayer(c, work, l, sub)
	}
	c.composite(sub, base.Name(), canvas, modeOperator(base.BlendMode()), 1, 0, 0)
}

func (e *Engine) pool() *imagebuf.Pool {
	if e.Pool == nil {
		e.Pool = imagebuf.NewPool(defaultPoolSize)
	}
	return e.Pool
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// releaseWorking releases every image of work that belongs neither to the
// base store nor is the final canvas.
func releaseWorking(store, work *Store, final *imagebuf.ImageBuf) {
	work.Each(func(id layer.ID, img *imagebuf.ImageBuf) {
		if img == final {
			return
		}
		if base, ok := store.Get(id); ok && base == img {
			return
		}
		_ = img.Release()
	})
}

// uniqueLayers drops nil and repeated layers, keeping the first occurrence.
func uniqueLayers(in []*layer.Layer) []*layer.Layer {
	seen := make(map[layer.ID]struct{}, len(in))
	out := make([]*layer.Layer, 0, len(in))
	for _, l := range in {
		if l == nil {
			continue
		}
		if _, ok := seen[l.ID()]; ok {
			continue
		}
		seen[l.ID()] = struct{}{}
		out = append(out, l)
	}
	return out
}
