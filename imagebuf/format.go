package imagebuf

// Format represents a pixel storage format.
type Format uint8

const (
	// FormatRGBA8 is 32-bit RGBA with straight (non-premultiplied) alpha.
	FormatRGBA8 Format = iota

	// FormatRGBAPremul is 32-bit RGBA with premultiplied alpha.
	// Every canvas produced by a merge uses this format.
	FormatRGBAPremul

	// formatCount is the number of formats (for internal use).
	formatCount
)

// FormatInfo contains metadata about a pixel format.
type FormatInfo struct {
	// BytesPerPixel is the number of bytes per pixel.
	BytesPerPixel int

	// IsPremultiplied indicates if alpha is premultiplied.
	IsPremultiplied bool
}

var formatInfoTable = [formatCount]FormatInfo{
	FormatRGBA8:      {BytesPerPixel: 4, IsPremultiplied: false},
	FormatRGBAPremul: {BytesPerPixel: 4, IsPremultiplied: true},
}

// Info returns the FormatInfo for this format.
func (f Format) Info() FormatInfo {
	if f >= formatCount {
		return FormatInfo{}
	}
	return formatInfoTable[f]
}

// BytesPerPixel returns the number of bytes per pixel for this format.
func (f Format) BytesPerPixel() int {
	return f.Info().BytesPerPixel
}

// IsPremultiplied returns true if alpha is premultiplied.
func (f Format) IsPremultiplied() bool {
	return f.Info().IsPremultiplied
}

// IsValid returns true if the format is a valid known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

// RowBytes calculates the number of bytes needed for a row of the given width.
func (f Format) RowBytes(width int) int {
	return width * f.BytesPerPixel()
}

// String returns a string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatRGBAPremul:
		return "RGBAPremul"
	default:
		return "Unknown"
	}
}
