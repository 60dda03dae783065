package layer

import "slices"

// Ancestors returns the folders enclosing l, nearest first. The document
// root is not included, so top-level layers have no ancestors.
func (l *Layer) Ancestors() []*Layer {
	var out []*Layer
	seen := map[ID]struct{}{l.id: {}}
	for p := l.parent; p != nil; p = p.parent {
		if _, ok := seen[p.id]; ok {
			break
		}
		seen[p.id] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Depth returns the number of folders enclosing l.
func (l *Layer) Depth() int {
	return len(l.Ancestors())
}

// Siblings returns the layers sharing l's parent in paint order, l
// included. Top-level layers are siblings of the document's other
// top-level layers.
func (l *Layer) Siblings() []*Layer {
	switch {
	case l.parent != nil:
		return l.parent.children
	case l.doc != nil:
		return l.doc.layers
	}
	return nil
}

// ClippingBase returns the layer a clipping layer is clipped to: the nearest
// non-clipping sibling below it, whether or not that sibling is visible. It
// returns nil for a layer without the clipping flag or with nothing below.
func (l *Layer) ClippingBase() *Layer {
	if !l.clipping {
		return nil
	}
	sibs := l.Siblings()
	for i := slices.Index(sibs, l) - 1; i >= 0; i-- {
		if !sibs[i].clipping {
			return sibs[i]
		}
	}
	return nil
}
