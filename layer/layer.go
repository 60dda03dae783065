// Package layer models the layer tree of a layered image document.
//
// A Document owns an ordered list of top-level layers. Folders own their
// children; parent and document links are back-references used only for
// traversal. Children are stored bottom-to-top: index 0 paints first.
//
// Layers are compared by identity. Two layers may share a name and geometry,
// so maps over layers are keyed by [ID], never by attribute values.
package layer

import (
	"fmt"
	"image"

	"github.com/google/uuid"
)

// ID is the stable identity of a layer.
type ID = uuid.UUID

// Layer is a node in the layer tree: either a leaf that may carry pixels
// or a folder that groups children.
type Layer struct {
	id       ID
	name     string
	visible  bool
	opacity  float64
	blend    BlendMode
	clipping bool
	folder   bool
	hasImage bool
	bounds   image.Rectangle

	parent   *Layer
	doc      *Document
	children []*Layer
}

// Option configures a Layer during creation.
type Option func(*Layer)

// New creates a visible, fully opaque leaf layer with the normal blend mode.
func New(name string, opts ...Option) *Layer {
	l := &Layer{
		id:      uuid.New(),
		name:    name,
		visible: true,
		opacity: 1,
		blend:   BlendNormal,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewFolder creates a folder layer. Folders never carry pixels of their own
// and default to the pass-through blend mode.
func NewFolder(name string, opts ...Option) *Layer {
	l := New(name, append([]Option{WithBlendMode(BlendPassThrough)}, opts...)...)
	l.folder = true
	l.hasImage = false
	return l
}

// Hidden marks the layer as not visible.
func Hidden() Option {
	return func(l *Layer) { l.visible = false }
}

// WithVisible sets the visibility flag.
func WithVisible(v bool) Option {
	return func(l *Layer) { l.visible = v }
}

// WithOpacity sets the opacity, clamped to [0, 1].
func WithOpacity(opacity float64) Option {
	return func(l *Layer) { l.opacity = min(max(opacity, 0), 1) }
}

// WithBlendMode sets the blend-mode tag.
func WithBlendMode(m BlendMode) Option {
	return func(l *Layer) { l.blend = m }
}

// Clipped marks the layer as clipped to the layer below it.
func Clipped() Option {
	return func(l *Layer) { l.clipping = true }
}

// WithClipping sets the clipping flag.
func WithClipping(c bool) Option {
	return func(l *Layer) { l.clipping = c }
}

// WithBounds places the layer at (left, top) with the given size.
func WithBounds(left, top, width, height int) Option {
	return func(l *Layer) { l.bounds = image.Rect(left, top, left+width, top+height) }
}

// WithImage marks the layer as carrying pixel data.
func WithImage() Option {
	return func(l *Layer) { l.hasImage = true }
}

// ID returns the layer identity.
func (l *Layer) ID() ID { return l.id }

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// Visible reports the layer's own visibility flag.
func (l *Layer) Visible() bool { return l.visible }

// Opacity returns the opacity in [0, 1].
func (l *Layer) Opacity() float64 { return l.opacity }

// BlendMode returns the blend-mode tag.
func (l *Layer) BlendMode() BlendMode { return l.blend }

// Clipping reports whether the layer is clipped to the layer below it.
func (l *Layer) Clipping() bool { return l.clipping }

// IsFolder reports whether the layer is a folder.
func (l *Layer) IsFolder() bool { return l.folder }

// HasImage reports whether the layer carries pixel data.
func (l *Layer) HasImage() bool { return l.hasImage }

// Left returns the x position of the layer on the document canvas.
func (l *Layer) Left() int { return l.bounds.Min.X }

// Top returns the y position of the layer on the document canvas.
func (l *Layer) Top() int { return l.bounds.Min.Y }

// Width returns the layer width.
func (l *Layer) Width() int { return l.bounds.Dx() }

// Height returns the layer height.
func (l *Layer) Height() int { return l.bounds.Dy() }

// Bounds returns the layer rectangle in document coordinates.
func (l *Layer) Bounds() image.Rectangle { return l.bounds }

// Parent returns the enclosing folder, or nil for top-level layers.
func (l *Layer) Parent() *Layer { return l.parent }

// Document returns the document the layer is attached to, if any.
func (l *Layer) Document() *Document { return l.doc }

// Children returns the folder's children, bottom-to-top.
func (l *Layer) Children() []*Layer { return l.children }

// Append adds children on top of the folder's existing children.
// It panics if l is not a folder.
func (l *Layer) Append(children ...*Layer) *Layer {
	if !l.folder {
		panic(fmt.Sprintf("layer: append to non-folder layer %q", l.name))
	}
	for _, c := range children {
		c.parent = l
		c.attach(l.doc)
	}
	l.children = append(l.children, children...)
	return l
}

// attach sets the document back-reference on l and its subtree.
func (l *Layer) attach(doc *Document) {
	seen := make(map[ID]struct{})
	var walk func(n *Layer)
	walk = func(n *Layer) {
		if _, ok := seen[n.id]; ok {
			return
		}
		seen[n.id] = struct{}{}
		n.doc = doc
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(l)
}

// String returns the layer name and identity.
func (l *Layer) String() string {
	return fmt.Sprintf("%s[%s]", l.name, l.id.String()[:8])
}
