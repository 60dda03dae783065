package merge

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gogpu/psdmerge/imagebuf"
	"github.com/gogpu/psdmerge/internal/blend"
	"github.com/gogpu/psdmerge/layer"
)

// operators maps the recognised blend modes to compositing operators.
// Every other mode composites with source-over.
var operators = map[layer.BlendMode]blend.Operator{
	layer.BlendNormal:      blend.OpSourceOver,
	layer.BlendColorDodge:  blend.OpColorDodge,
	layer.BlendMultiply:    blend.OpMultiply,
	layer.BlendScreen:      blend.OpScreen,
	layer.BlendDarken:      blend.OpDarken,
	layer.BlendLighten:     blend.OpLighten,
	layer.BlendColorBurn:   blend.OpColorBurn,
	layer.BlendLinearDodge: blend.OpPlus,
	layer.BlendDifference:  blend.OpDifference,
}

// operatorFor returns the operator used to paint l. Clipping layers always
// paint atop so they stay inside the pixels already on the canvas.
func operatorFor(l *layer.Layer) blend.Operator {
	if l.Clipping() {
		return blend.OpSourceAtop
	}
	return modeOperator(l.BlendMode())
}

func modeOperator(m layer.BlendMode) blend.Operator {
	if op, ok := operators[m]; ok {
		return op
	}
	return blend.OpSourceOver
}

// compositor paints layer images onto canvases for a single merge.
type compositor struct {
	pool   *imagebuf.Pool
	snaps  *SnapshotWriter
	logger *slog.Logger
	group  string
	step   int
}

// paint composites img, the image of l, onto canvas with the layer's own
// operator and opacity. Leaves carry their own position; synthesised folder
// canvases are document-sized and align with the canvas origin.
func (c *compositor) paint(img *imagebuf.ImageBuf, l *layer.Layer, canvas *imagebuf.ImageBuf) {
	dx, dy := 0, 0
	if l.HasImage() {
		dx, dy = l.Left(), l.Top()
	}
	c.composite(img, l.Name(), canvas, operatorFor(l), l.Opacity(), dx, dy)
}

func (c *compositor) composite(img *imagebuf.ImageBuf, name string, canvas *imagebuf.ImageBuf, op blend.Operator, opacity float64, dx, dy int) {
	src := img
	if opacity < 1 {
		src = c.scaled(img, opacity)
		defer src.Release()
	}

	step := c.step
	c.step++
	c.logger.Debug("psdmerge: paint", "layer", name, "op", op, "step", step, "opacity", opacity)

	if c.snaps != nil {
		c.snaps.Write(fmt.Sprintf("%s_%03d_image.png", c.group, step), src)
	}

	blend.Composite(canvas, src, op, dx, dy)

	if c.snaps != nil {
		pct := int(math.Round(opacity * 100))
		c.snaps.Write(fmt.Sprintf("%s_%03d_%s_%03d_%s.png", c.group, step, sanitizeName(name), pct, op), canvas)
	}
}

// scaled returns a pooled premultiplied copy of img with every channel
// multiplied by opacity.
func (c *compositor) scaled(img *imagebuf.ImageBuf, opacity float64) *imagebuf.ImageBuf {
	w, h := img.Bounds()
	dst := c.pool.Get(w, h, imagebuf.FormatRGBAPremul)
	src := img.PremultipliedData()
	for y := range h {
		copy(dst.RowBytes(y), src[y*img.Stride():])
	}
	imagebuf.ScaleChannels(dst, imagebuf.ChannelsAll, opacity)
	return dst
}

// canvas takes a blank document-sized canvas from the pool.
func (c *compositor) canvas(width, height int) *imagebuf.ImageBuf {
	c.logger.Debug("psdmerge: canvas", "width", width, "height", height)
	return c.pool.Get(width, height, imagebuf.FormatRGBAPremul)
}
