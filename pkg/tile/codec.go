package tile

import (
	"errors"
	"fmt"
	"image"
)

// ErrSize is returned when a byte slice does not hold exactly
// width*height pixels of the requested format.
var ErrSize = errors.New("tile: pixel buffer size mismatch")

// Decode converts raw fetcher bytes into an Image. 565 formats are expanded
// to opaque 8-bit channels.
func Decode(data []byte, width, height int, format Format, pool *Pool) (*Image, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("tile: decode: unknown format %v", format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("tile: decode: invalid size %dx%d", width, height)
	}
	if want := width * height * format.BytesPerPixel(); len(data) != want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d for %dx%d %v",
			ErrSize, len(data), want, width, height, format)
	}

	img := NewImage(width, height, pool)
	dst := img.RGBA().Pix

	switch format {
	case FormatRGBA8888:
		copy(dst, data)
	case FormatBGRA8888:
		for i := 0; i < len(data); i += 4 {
			dst[i+0] = data[i+2]
			dst[i+1] = data[i+1]
			dst[i+2] = data[i+0]
			dst[i+3] = data[i+3]
		}
	case FormatRGB565, FormatBGR565:
		for i, j := 0, 0; i < len(data); i, j = i+2, j+4 {
			v := uint16(data[i]) | uint16(data[i+1])<<8
			hi := expand5(v >> 11)
			mid := expand6(v >> 5)
			lo := expand5(v)
			if format == FormatBGR565 {
				hi, lo = lo, hi
			}
			dst[j+0] = hi
			dst[j+1] = mid
			dst[j+2] = lo
			dst[j+3] = 0xff
		}
	}
	return img, nil
}

// Encode writes src in format into a new byte slice, row-major from the top
// left. Alpha is dropped by 565 formats.
func Encode(src *image.RGBA, format Format) ([]byte, error) {
	if !format.IsValid() {
		return nil, fmt.Errorf("tile: encode: unknown format %v", format)
	}
	w, h := src.Rect.Dx(), src.Rect.Dy()
	bpp := format.BytesPerPixel()
	out := make([]byte, w*h*bpp)

	for y := range h {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		o := out[y*w*bpp : (y+1)*w*bpp]
		switch format {
		case FormatRGBA8888:
			copy(o, row)
		case FormatBGRA8888:
			for i := 0; i < len(row); i += 4 {
				o[i+0], o[i+1], o[i+2], o[i+3] = row[i+2], row[i+1], row[i+0], row[i+3]
			}
		case FormatRGB565, FormatBGR565:
			for i, j := 0, 0; i < len(row); i, j = i+4, j+2 {
				hi, lo := row[i+0], row[i+2]
				if format == FormatBGR565 {
					hi, lo = lo, hi
				}
				v := uint16(hi>>3)<<11 | uint16(row[i+1]>>2)<<5 | uint16(lo>>3)
				o[j], o[j+1] = byte(v), byte(v>>8)
			}
		}
	}
	return out, nil
}

func expand5(v uint16) uint8 {
	v &= 0x1f
	return uint8(v<<3 | v>>2)
}

func expand6(v uint16) uint8 {
	v &= 0x3f
	return uint8(v<<2 | v>>4)
}
