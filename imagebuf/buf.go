// Package imagebuf provides the raster buffers flattened by psdmerge.
//
// Buffers store 8-bit RGBA pixels in a contiguous byte slice. Every buffer
// the merge engine allocates is premultiplied ([FormatRGBAPremul]); straight
// alpha buffers ([FormatRGBA8]) are accepted as sources and premultiplied
// lazily when composited.
package imagebuf

import (
	"errors"
	"image"
	"sync"
)

// Common errors for image operations.
var (
	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("imagebuf: invalid dimensions")

	// ErrInvalidFormat is returned when the format is not recognized.
	ErrInvalidFormat = errors.New("imagebuf: invalid format")

	// ErrOutOfBounds is returned when pixel coordinates are outside image bounds.
	ErrOutOfBounds = errors.New("imagebuf: coordinates out of bounds")

	// ErrReleased is returned when a buffer is released twice.
	ErrReleased = errors.New("imagebuf: buffer already released")
)

// ImageBuf is a raster buffer with an optional page origin.
//
// The origin records where the buffer sits on a larger page, the way a crop
// remembers its offset. [ImageBuf.ResetOrigin] moves it back to (0, 0).
//
// Thread safety: ImageBuf is safe for concurrent read access. Write operations
// (Set*, Clear, Crop, Release) require external synchronization.
type ImageBuf struct {
	data   []byte
	width  int
	height int
	stride int
	format Format
	origin image.Point

	// pool owns the buffer when it was obtained from Pool.Get.
	pool     *Pool
	released bool

	// Lazy premultiplication cache for FormatRGBA8 sources.
	premulMu    sync.RWMutex
	premulReady bool
	premulData  []byte
}

// NewImageBuf creates a new zeroed image buffer with the given dimensions and format.
func NewImageBuf(width, height int, format Format) (*ImageBuf, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrInvalidDimensions
	}
	if !format.IsValid() {
		return nil, ErrInvalidFormat
	}

	stride := format.RowBytes(width)
	return &ImageBuf{
		data:   make([]byte, stride*height),
		width:  width,
		height: height,
		stride: stride,
		format: format,
	}, nil
}

// Clone creates a deep copy of the image buffer.
// The copy is not owned by any pool.
func (b *ImageBuf) Clone() *ImageBuf {
	newData := make([]byte, len(b.data))
	copy(newData, b.data)

	return &ImageBuf{
		data:   newData,
		width:  b.width,
		height: b.height,
		stride: b.stride,
		format: b.format,
		origin: b.origin,
	}
}

// Width returns the image width in pixels.
func (b *ImageBuf) Width() int {
	return b.width
}

// Height returns the image height in pixels.
func (b *ImageBuf) Height() int {
	return b.height
}

// Stride returns the number of bytes per row (including padding).
func (b *ImageBuf) Stride() int {
	return b.stride
}

// Format returns the pixel format.
func (b *ImageBuf) Format() Format {
	return b.format
}

// Bounds returns the image dimensions as (width, height).
func (b *ImageBuf) Bounds() (int, int) {
	return b.width, b.height
}

// Origin returns the page origin of the buffer.
func (b *ImageBuf) Origin() image.Point {
	return b.origin
}

// Data returns the raw pixel data slice.
// Call InvalidatePremulCache after modifying a FormatRGBA8 buffer through it.
func (b *ImageBuf) Data() []byte {
	return b.data
}

// RowBytes returns a slice of the pixel data for row y.
// Returns nil if y is out of bounds.
func (b *ImageBuf) RowBytes(y int) []byte {
	if y < 0 || y >= b.height {
		return nil
	}
	start := y * b.stride
	return b.data[start : start+b.format.RowBytes(b.width)]
}

// PixelOffset returns the byte offset of pixel (x, y) in the data slice.
// Returns -1 if coordinates are out of bounds.
func (b *ImageBuf) PixelOffset(x, y int) int {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return -1
	}
	return y*b.stride + x*b.format.BytesPerPixel()
}

// GetRGBA returns the stored channels at (x, y).
// Returns (0,0,0,0) if coordinates are out of bounds.
func (b *ImageBuf) GetRGBA(x, y int) (r, g, bl, a uint8) {
	offset := b.PixelOffset(x, y)
	if offset < 0 {
		return 0, 0, 0, 0
	}
	return b.data[offset], b.data[offset+1], b.data[offset+2], b.data[offset+3]
}

// SetRGBA stores (r, g, b, a) at (x, y) as-is, in the buffer's own format.
func (b *ImageBuf) SetRGBA(x, y int, r, g, bl, a uint8) error {
	offset := b.PixelOffset(x, y)
	if offset < 0 {
		return ErrOutOfBounds
	}
	b.data[offset] = r
	b.data[offset+1] = g
	b.data[offset+2] = bl
	b.data[offset+3] = a
	b.InvalidatePremulCache()
	return nil
}

// Clear sets all pixels to zero (transparent black).
func (b *ImageBuf) Clear() {
	clear(b.data)
	b.InvalidatePremulCache()
}

// Fill sets all pixels to the given channel values.
func (b *ImageBuf) Fill(r, g, bl, a uint8) {
	for y := range b.height {
		row := b.RowBytes(y)
		for i := 0; i < len(row); i += 4 {
			row[i] = r
			row[i+1] = g
			row[i+2] = bl
			row[i+3] = a
		}
	}
	b.InvalidatePremulCache()
}

// InvalidatePremulCache marks the premultiplication cache as stale.
func (b *ImageBuf) InvalidatePremulCache() {
	b.premulMu.Lock()
	b.premulReady = false
	b.premulMu.Unlock()
}

// PremultipliedData returns the image data with premultiplied alpha.
// Premultiplied buffers return their own data; straight buffers return a
// cached premultiplied copy.
func (b *ImageBuf) PremultipliedData() []byte {
	if b.format.IsPremultiplied() {
		return b.data
	}

	b.premulMu.RLock()
	if b.premulReady {
		data := b.premulData
		b.premulMu.RUnlock()
		return data
	}
	b.premulMu.RUnlock()

	b.premulMu.Lock()
	defer b.premulMu.Unlock()

	if b.premulReady {
		return b.premulData
	}
	if len(b.premulData) != len(b.data) {
		b.premulData = make([]byte, len(b.data))
	}
	for i := 0; i+3 < len(b.data); i += 4 {
		a := uint16(b.data[i+3])
		b.premulData[i] = byte((uint16(b.data[i])*a + 127) / 255)
		b.premulData[i+1] = byte((uint16(b.data[i+1])*a + 127) / 255)
		b.premulData[i+2] = byte((uint16(b.data[i+2])*a + 127) / 255)
		b.premulData[i+3] = byte(a)
	}
	b.premulReady = true
	return b.premulData
}

// Release gives the buffer back. Pool-owned buffers return to their pool;
// others drop their pixel data. Releasing twice returns ErrReleased.
func (b *ImageBuf) Release() error {
	if b.released {
		return ErrReleased
	}
	b.released = true
	if b.pool != nil {
		b.pool.put(b)
		return nil
	}
	b.data = nil
	b.premulData = nil
	return nil
}

// Released reports whether Release has been called.
func (b *ImageBuf) Released() bool {
	return b.released
}
