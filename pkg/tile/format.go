// Package tile defines the pixel formats, cache keys and image handles shared
// by the raster, compositing and cache layers.
package tile

import "fmt"

// Format is the pixel layout of raw bytes returned by a raster fetcher.
// A session uses one format for every fetch.
type Format uint8

const (
	// FormatRGBA8888 is 32-bit RGBA, byte order R, G, B, A.
	FormatRGBA8888 Format = iota

	// FormatBGRA8888 is 32-bit BGRA, the native order of most PDF engines.
	FormatBGRA8888

	// FormatRGB565 is 16-bit little-endian RGB with red in the high bits.
	FormatRGB565

	// FormatBGR565 is 16-bit little-endian RGB with blue in the high bits.
	FormatBGR565

	formatCount
)

// FormatInfo describes a pixel format.
type FormatInfo struct {
	Name          string
	BytesPerPixel int
	HasAlpha      bool
}

var formatInfoTable = [formatCount]FormatInfo{
	FormatRGBA8888: {Name: "RGBA8888", BytesPerPixel: 4, HasAlpha: true},
	FormatBGRA8888: {Name: "BGRA8888", BytesPerPixel: 4, HasAlpha: true},
	FormatRGB565:   {Name: "RGB565", BytesPerPixel: 2},
	FormatBGR565:   {Name: "BGR565", BytesPerPixel: 2},
}

// Info returns the FormatInfo for f. Unknown formats return the zero value.
func (f Format) Info() FormatInfo {
	if !f.IsValid() {
		return FormatInfo{}
	}
	return formatInfoTable[f]
}

// BytesPerPixel returns the number of bytes per pixel, or 0 for an unknown
// format.
func (f Format) BytesPerPixel() int {
	return f.Info().BytesPerPixel
}

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	return f < formatCount
}

func (f Format) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
	return formatInfoTable[f].Name
}

// ParseFormat returns the format with the given name, as printed by String.
func ParseFormat(name string) (Format, error) {
	for f := range formatCount {
		if formatInfoTable[f].Name == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown pixel format %q", name)
}
