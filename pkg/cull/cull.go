// Package cull turns a scroll position and zoom into the canvas tiles that
// must be drawn this frame.
//
// The screen is backed by a ring of VerticalTiles tile rows. As the
// document scrolls, a slot leaving the top is recycled at the bottom and
// starts to show a row VerticalTiles further down. AbsoluteRow resolves
// which canvas row a slot shows for a given ring offset.
//
// Ring offsets are negative as the document scrolls down and carry the
// ring's priming shift of (VerticalTiles-1) tiles; RingOffset converts a
// plain document offset.
package cull

import (
	"image"
	"math"
)

// Rect is a destination rectangle in screen pixels.
type Rect struct {
	X, Y, W, H float64
}

// Image returns r rounded outward to integer pixels.
func (r Rect) Image() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)),
	)
}

// Slot is one visible canvas tile.
type Slot struct {
	SlotRow int // ring slot showing the tile
	Row     int // absolute canvas row
	Col     int
	Dest    Rect
}

// Grid is the ring of tile slots behind a screen.
type Grid struct {
	TileSize      int
	VerticalTiles int
	ScreenWidth   float64
	ScreenHeight  float64
}

// NewGrid sizes the ring for a screen viewed at scales down to minScale.
// The slots span (VerticalTiles-1) rows below the topmost one, which must
// reach the screen bottom at the smallest scale.
func NewGrid(screenWidth, screenHeight float64, tileSize int, minScale float64) Grid {
	if !(minScale > 0) {
		minScale = 1
	}
	return Grid{
		TileSize:      tileSize,
		VerticalTiles: int(math.Ceil(screenHeight/(float64(tileSize)*minScale))) + 2,
		ScreenWidth:   screenWidth,
		ScreenHeight:  screenHeight,
	}
}

// band is the height of one full turn of the ring in canvas pixels.
func (g Grid) band() float64 {
	return float64(g.VerticalTiles * g.TileSize)
}

// floorMod is the modulo with the sign of m.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}

// AbsoluteRow returns the canvas row shown by slot at ring offset offsetY.
func (g Grid) AbsoluteRow(offsetY float64, slot int) int {
	band := g.band()
	iteration := int(math.Floor(-offsetY / band))
	offsetRow := int(math.Floor(floorMod(-offsetY, band) / float64(g.TileSize)))
	if offsetRow >= slot {
		return iteration*g.VerticalTiles + slot
	}
	return (iteration-1)*g.VerticalTiles + slot
}

// SlotY returns the screen y of slot at ring offset offsetY and scale.
func (g Grid) SlotY(offsetY float64, slot int, scale float64) float64 {
	T := float64(g.TileSize)
	return scale * (floorMod(offsetY+float64(slot)*T, g.band()) - T)
}

// RingOffset converts a document offset, 0 with the document top at the
// screen top and negative further down, to a ring offset.
func (g Grid) RingOffset(docOffsetY float64) float64 {
	return docOffsetY - float64((g.VerticalTiles-1)*g.TileSize)
}

// Visible returns the tiles to draw for ring offsets (offsetY, offsetX) at
// scale. Nothing is visible while offsetY is positive. Negative rows and
// columns and slots entirely off screen are skipped.
func (g Grid) Visible(offsetY, offsetX, scale float64) []Slot {
	if offsetY > 0 || !(scale > 0) {
		return nil
	}
	T := float64(g.TileSize)
	cols := int(math.Ceil(g.ScreenWidth/(T*scale))) + 1
	firstCol := int(math.Floor(-offsetX / T))

	var slots []Slot
	for slot := range g.VerticalTiles {
		row := g.AbsoluteRow(offsetY, slot)
		if row < 0 {
			continue
		}
		y := g.SlotY(offsetY, slot, scale)
		if y+T*scale <= 0 || y >= g.ScreenHeight {
			continue
		}
		for col := firstCol; col < firstCol+cols; col++ {
			if col < 0 {
				continue
			}
			x := scale * (float64(col)*T + offsetX)
			if x+T*scale <= 0 || x >= g.ScreenWidth {
				continue
			}
			slots = append(slots, Slot{
				SlotRow: slot,
				Row:     row,
				Col:     col,
				Dest:    Rect{X: x, Y: y, W: T * scale, H: T * scale},
			})
		}
	}
	return slots
}

// WindowY returns the canvas span [top, bottom) on screen for a document
// offset and scale.
func (g Grid) WindowY(docOffsetY, scale float64) (top, bottom float64) {
	top = -docOffsetY
	return top, top + g.ScreenHeight/scale
}

// RowRange returns the first and last canvas rows intersecting the screen
// for a document offset and scale.
func (g Grid) RowRange(docOffsetY, scale float64) (first, last int) {
	top, bottom := g.WindowY(docOffsetY, scale)
	T := float64(g.TileSize)
	first = int(math.Floor(top / T))
	last = int(math.Ceil(bottom/T)) - 1
	return max(first, 0), max(last, 0)
}
