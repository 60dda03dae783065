package blend

import "github.com/gogpu/psdmerge/imagebuf"

// Composite merges src onto dst with op, placing src's top-left corner at
// (dx, dy) in dst. Pixels of src that fall outside dst are ignored and dst
// pixels outside src are left untouched.
//
// dst must be premultiplied; straight-alpha sources are premultiplied on
// the fly.
func Composite(dst, src *imagebuf.ImageBuf, op Operator, dx, dy int) {
	if !dst.Format().IsPremultiplied() {
		panic("blend: destination must be premultiplied")
	}
	blendFunc := FuncFor(op)

	srcW, srcH := src.Bounds()
	dstW, dstH := dst.Bounds()

	// Clip to destination bounds
	x0, y0 := max(dx, 0), max(dy, 0)
	x1, y1 := min(dx+srcW, dstW), min(dy+srcH, dstH)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	srcData := src.PremultipliedData()
	dstData := dst.Data()

	for y := y0; y < y1; y++ {
		so := src.PixelOffset(x0-dx, y-dy)
		do := dst.PixelOffset(x0, y)
		for x := x0; x < x1; x++ {
			r, g, b, a := blendFunc(
				srcData[so], srcData[so+1], srcData[so+2], srcData[so+3],
				dstData[do], dstData[do+1], dstData[do+2], dstData[do+3],
			)
			dstData[do] = r
			dstData[do+1] = g
			dstData[do+2] = b
			dstData[do+3] = a
			so += 4
			do += 4
		}
	}
}
