package merge

import (
	"errors"
	"fmt"

	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/layer"
)

// ErrImageCountMismatch is returned by BuildStore when the number of decoded
// images differs from the number of image-bearing layers.
var ErrImageCountMismatch = errors.New("merge: image count does not match image layers")

// Store maps layer identities to their raster images.
//
// The base store built by BuildStore is never written by a merge; the engine
// works on a Clone and adds synthesised folder images there.
type Store struct {
	images map[layer.ID]*imagebuf.ImageBuf
	order  []layer.ID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{images: make(map[layer.ID]*imagebuf.ImageBuf)}
}

// BuildStore pairs the image-bearing layers of doc, in traversal order, with
// images positionally: the Nth image-bearing layer owns the Nth image.
func BuildStore(doc *layer.Document, images []*imagebuf.ImageBuf) (*Store, error) {
	targets := doc.Descendants(func(l *layer.Layer) bool { return l.HasImage() })
	if len(targets) != len(images) {
		return nil, fmt.Errorf("%w: %d layers, %d images", ErrImageCountMismatch, len(targets), len(images))
	}

	s := NewStore()
	for i, l := range targets {
		if images[i] == nil {
			continue
		}
		s.put(l.ID(), images[i])
	}
	return s, nil
}

// Get returns the image stored for id.
func (s *Store) Get(id layer.ID) (*imagebuf.ImageBuf, bool) {
	img, ok := s.images[id]
	return img, ok
}

// Len returns the number of stored images.
func (s *Store) Len() int {
	return len(s.images)
}

// Each calls fn for every entry in insertion order.
func (s *Store) Each(fn func(id layer.ID, img *imagebuf.ImageBuf)) {
	for _, id := range s.order {
		fn(id, s.images[id])
	}
}

// Clone returns a shallow copy: the mapping is new, the images are shared.
func (s *Store) Clone() *Store {
	c := &Store{
		images: make(map[layer.ID]*imagebuf.ImageBuf, len(s.images)),
		order:  make([]layer.ID, len(s.order)),
	}
	for id, img := range s.images {
		c.images[id] = img
	}
	copy(c.order, s.order)
	return c
}

// put stores img under id, replacing any previous entry.
func (s *Store) put(id layer.ID, img *imagebuf.ImageBuf) {
	if _, ok := s.images[id]; !ok {
		s.order = append(s.order, id)
	}
	s.images[id] = img
}
