package tile

import (
	"fmt"
	"math"
)

// ScaleClass is the ceiling of the continuous zoom factor. It partitions
// every cache tier: a tile rendered for one class is never shown for another.
type ScaleClass int

// ClassOf returns the scale class of scale. Scales at or below 1 map to 1.
func ClassOf(scale float64) ScaleClass {
	if !(scale > 1) {
		return 1
	}
	return ScaleClass(math.Ceil(scale))
}

// RawKey identifies a page-local raster tile.
type RawKey struct {
	Page  int
	Scale ScaleClass
	Row   int
	Col   int
}

func (k RawKey) String() string {
	return fmt.Sprintf("raw(p%d s%d %d,%d)", k.Page, k.Scale, k.Row, k.Col)
}

// GridKey identifies a composited canvas tile.
type GridKey struct {
	Scale ScaleClass
	Row   int
	Col   int
}

func (k GridKey) String() string {
	return fmt.Sprintf("grid(s%d %d,%d)", k.Scale, k.Row, k.Col)
}

// PageKey identifies a whole-page snapshot.
type PageKey struct {
	Page  int
	Scale ScaleClass
}

func (k PageKey) String() string {
	return fmt.Sprintf("page(p%d s%d)", k.Page, k.Scale)
}
