package imagebuf

import (
	"image"

	"golang.org/x/image/draw"
)

// Channels is a bit set selecting pixel channels.
type Channels uint8

const (
	ChannelRed Channels = 1 << iota
	ChannelGreen
	ChannelBlue
	ChannelAlpha

	// ChannelsRGB selects the colour channels.
	ChannelsRGB = ChannelRed | ChannelGreen | ChannelBlue
	// ChannelsAll selects colour and alpha.
	ChannelsAll = ChannelsRGB | ChannelAlpha
)

// ScaleChannels multiplies the selected channels of every pixel by factor.
// The factor is clamped to [0, 1].
//
// On a premultiplied buffer, scaling ChannelsAll applies an opacity.
func ScaleChannels(b *ImageBuf, ch Channels, factor float64) {
	if factor >= 1 || ch == 0 {
		return
	}
	if factor < 0 {
		factor = 0
	}
	f := uint16(factor*255 + 0.5)

	var mask [4]bool
	for i := range mask {
		mask[i] = ch&(1<<i) != 0
	}

	for y := range b.height {
		row := b.RowBytes(y)
		for i := 0; i < len(row); i += 4 {
			for c := range 4 {
				if mask[c] {
					row[i+c] = byte((uint16(row[i+c])*f + 127) / 255)
				}
			}
		}
	}
	b.InvalidatePremulCache()
}

// Crop replaces the buffer contents with the rectangle r of the current
// pixels and records r.Min as the page origin. Parts of r outside the buffer
// become transparent, so the result is always exactly r.Dx() by r.Dy().
func (b *ImageBuf) Crop(r image.Rectangle) error {
	if r.Dx() <= 0 || r.Dy() <= 0 {
		return ErrInvalidDimensions
	}

	dst := b.blankLike(r.Dx(), r.Dy())
	draw.Copy(dst, image.Point{}, b.view(), r, draw.Src, nil)

	switch v := dst.(type) {
	case *image.RGBA:
		b.data, b.stride = v.Pix, v.Stride
	case *image.NRGBA:
		b.data, b.stride = v.Pix, v.Stride
	}
	b.width = r.Dx()
	b.height = r.Dy()
	b.origin = r.Min
	b.InvalidatePremulCache()
	return nil
}

// ResetOrigin moves the page origin back to (0, 0).
func (b *ImageBuf) ResetOrigin() {
	b.origin = image.Point{}
}

// view wraps the pixel data in a standard library image without copying.
func (b *ImageBuf) view() image.Image {
	rect := image.Rect(0, 0, b.width, b.height)
	if b.format.IsPremultiplied() {
		return &image.RGBA{Pix: b.data, Stride: b.stride, Rect: rect}
	}
	return &image.NRGBA{Pix: b.data, Stride: b.stride, Rect: rect}
}

func (b *ImageBuf) blankLike(width, height int) draw.Image {
	rect := image.Rect(0, 0, width, height)
	if b.format.IsPremultiplied() {
		return image.NewRGBA(rect)
	}
	return image.NewNRGBA(rect)
}
