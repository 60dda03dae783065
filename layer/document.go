package layer

import "golang.org/x/text/unicode/norm"

// Document is the root of a layer tree. It is not itself a layer.
type Document struct {
	width  int
	height int
	layers []*Layer
}

// NewDocument creates an empty document with the given canvas size.
func NewDocument(width, height int) *Document {
	return &Document{width: width, height: height}
}

// Width returns the canvas width.
func (d *Document) Width() int { return d.width }

// Height returns the canvas height.
func (d *Document) Height() int { return d.height }

// Layers returns the top-level layers, bottom-to-top.
func (d *Document) Layers() []*Layer { return d.layers }

// Append adds top-level layers above the existing ones.
func (d *Document) Append(layers ...*Layer) *Document {
	for _, l := range layers {
		l.parent = nil
		l.attach(d)
	}
	d.layers = append(d.layers, layers...)
	return d
}

// Walk visits every layer depth-first, parents before children and siblings
// bottom-to-top. Returning false from fn skips the layer's subtree.
// Each layer is visited at most once, even when it is reachable through
// several folders.
func (d *Document) Walk(fn func(l *Layer) bool) {
	walk(d.layers, make(map[ID]struct{}), fn)
}

// Walk visits the descendants of l (excluding l) like Document.Walk.
func (l *Layer) Walk(fn func(l *Layer) bool) {
	walk(l.children, map[ID]struct{}{l.id: {}}, fn)
}

func walk(layers []*Layer, seen map[ID]struct{}, fn func(l *Layer) bool) {
	for _, l := range layers {
		if _, ok := seen[l.id]; ok {
			continue
		}
		seen[l.id] = struct{}{}
		if fn(l) {
			walk(l.children, seen, fn)
		}
	}
}

// Descendants returns every layer of the document in Walk order, filtered by
// pred when pred is non-nil.
func (d *Document) Descendants(pred func(*Layer) bool) []*Layer {
	return collect(d.Walk, pred)
}

// Descendants returns the descendants of l in Walk order, filtered by pred
// when pred is non-nil.
func (l *Layer) Descendants(pred func(*Layer) bool) []*Layer {
	return collect(l.Walk, pred)
}

// VisibleDescendants returns the visible layers of the document. Layers
// inside a hidden folder are not visible.
func (d *Document) VisibleDescendants() []*Layer {
	return collectVisible(d.Walk)
}

// VisibleDescendants returns the visible descendants of l.
func (l *Layer) VisibleDescendants() []*Layer {
	return collectVisible(l.Walk)
}

func collect(walker func(func(*Layer) bool), pred func(*Layer) bool) []*Layer {
	var out []*Layer
	walker(func(l *Layer) bool {
		if pred == nil || pred(l) {
			out = append(out, l)
		}
		return true
	})
	return out
}

func collectVisible(walker func(func(*Layer) bool)) []*Layer {
	var out []*Layer
	walker(func(l *Layer) bool {
		if !l.visible {
			return false
		}
		out = append(out, l)
		return true
	})
	return out
}

// FindVisible returns the visible layer called name. When several layers
// match, the shallowest wins and ties go to the first in Walk order.
// Names are compared in Unicode NFC form.
func (d *Document) FindVisible(name string) (*Layer, bool) {
	return findByName(d.VisibleDescendants(), name)
}

// Find is like FindVisible but also considers hidden layers and the
// contents of hidden folders.
func (d *Document) Find(name string) (*Layer, bool) {
	return findByName(d.Descendants(nil), name)
}

func findByName(layers []*Layer, name string) (*Layer, bool) {
	want := norm.NFC.String(name)

	var found *Layer
	depth := 0
	for _, l := range layers {
		if norm.NFC.String(l.name) != want {
			continue
		}
		if dl := l.Depth(); found == nil || dl < depth {
			found, depth = l, dl
		}
	}
	return found, found != nil
}

// Bounds returns the canvas size as (width, height).
func (d *Document) Bounds() (int, int) {
	return d.width, d.height
}
