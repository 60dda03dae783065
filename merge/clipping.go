package merge

import "github.com/gogpu/psdmerge/layer"

// Run is a maximal sequence of adjacent siblings sharing a clipping flag.
type Run struct {
	Clipping bool
	Layers   []*layer.Layer
}

// GroupByClipping partitions layers, given in paint order, into runs that
// split exactly where the clipping flag changes. Order is preserved.
func GroupByClipping(layers []*layer.Layer) []Run {
	var runs []Run
	for _, l := range layers {
		if n := len(runs); n > 0 && runs[n-1].Clipping == l.Clipping() {
			runs[n-1].Layers = append(runs[n-1].Layers, l)
			continue
		}
		runs = append(runs, Run{Clipping: l.Clipping(), Layers: []*layer.Layer{l}})
	}
	return runs
}
