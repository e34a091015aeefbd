package raster

import "image/color"

// Proof page palette.
var (
	paperColor  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	frameColor  = color.RGBA{0x5f, 0x63, 0x68, 0xff}
	ruleColor   = color.RGBA{0xc6, 0xda, 0xf1, 0xff}
	marginColor = color.RGBA{0xef, 0xa8, 0xa8, 0xff}
	labelColor  = color.RGBA{0x20, 0x21, 0x24, 0xff}
	tabColor    = color.RGBA{0xe8, 0xea, 0xed, 0xff}
	curlColor   = color.RGBA{0xda, 0xdc, 0xe0, 0xff}
)

// markerColors tint the corner marker so neighbouring pages are easy to
// tell apart while panning.
var markerColors = []color.RGBA{
	{0xd9, 0x30, 0x25, 0xff},
	{0x1e, 0x8e, 0x3e, 0xff},
	{0x1a, 0x73, 0xe8, 0xff},
	{0xf9, 0xab, 0x00, 0xff},
	{0x93, 0x34, 0xe6, 0xff},
}

// MarkerColor returns the corner marker colour of page.
func MarkerColor(page int) color.RGBA {
	return markerColors[page%len(markerColors)]
}
