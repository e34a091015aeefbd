package cull

import (
	"image"
	"math"
	"testing"
)

func TestNewGrid(t *testing.T) {
	tests := []struct {
		w, h     float64
		minScale float64
		want     int
	}{
		{1080, 1920, 1, 10},
		{1080, 1536, 1, 8},
		{800, 600, 1, 5},
		{100, 1, 1, 3},
		{1080, 1920, 0.51, 17},
		{1080, 1024, 0.51, 10},
		{800, 600, 0, 5},
	}
	for _, tt := range tests {
		if got := NewGrid(tt.w, tt.h, 256, tt.minScale).VerticalTiles; got != tt.want {
			t.Errorf("NewGrid(%v, %v, %v).VerticalTiles = %d, want %d", tt.w, tt.h, tt.minScale, got, tt.want)
		}
	}
}

func TestAbsoluteRow(t *testing.T) {
	g := Grid{TileSize: 256, VerticalTiles: 6} // band 1536

	tests := []struct {
		offsetY float64
		slot    int
		want    int
	}{
		// iteration 0, offsetRow 5.
		{-1300, 0, 0},
		{-1300, 5, 5},
		// iteration 2, offsetRow 1.
		{-3400, 0, 12},
		{-3400, 1, 13},
		{-3400, 2, 8},
		// Exact band boundary: iteration 1, offsetRow 0.
		{-1536, 0, 6},
		{-1536, 1, 1},
		// Exact tile boundary and one pixel short of it.
		{-256, 1, 1},
		{-255, 1, -5},
		// Origin.
		{0, 0, 0},
		{0, 3, -3},
		// Negative iteration: offset above the content origin.
		{100, 0, -6},
		{100, 5, -1},
	}
	for _, tt := range tests {
		if got := g.AbsoluteRow(tt.offsetY, tt.slot); got != tt.want {
			t.Errorf("AbsoluteRow(%v, %d) = %d, want %d", tt.offsetY, tt.slot, got, tt.want)
		}
	}
}

func TestSlotY(t *testing.T) {
	g := Grid{TileSize: 256, VerticalTiles: 6}

	tests := []struct {
		offsetY float64
		slot    int
		scale   float64
		want    float64
	}{
		{-1300, 0, 1, -20},
		{-1300, 1, 1, 236},
		{-1300, 5, 1, 1260},
		{-1300, 0, 2, -40},
		{0, 1, 1, 0},
	}
	for _, tt := range tests {
		if got := g.SlotY(tt.offsetY, tt.slot, tt.scale); got != tt.want {
			t.Errorf("SlotY(%v, %d, %v) = %v, want %v", tt.offsetY, tt.slot, tt.scale, got, tt.want)
		}
	}
}

func TestVisibleNothingAboveOrigin(t *testing.T) {
	g := NewGrid(1080, 1920, 256, 1)
	if got := g.Visible(1, 0, 1); got != nil {
		t.Errorf("Visible(offsetY > 0) = %v, want none", got)
	}
}

func TestVisibleAtDocumentTop(t *testing.T) {
	g := NewGrid(1080, 1920, 256, 1)
	slots := g.Visible(g.RingOffset(0), 0, 1)

	// Rows 0-7 (row 7 starts at 1792 < 1920), columns 0-4 (column 4
	// starts at 1024 < 1080).
	if got := len(slots); got != 8*5 {
		t.Fatalf("len(Visible()) = %d, want 40", got)
	}
	for _, s := range slots {
		if s.Row > 7 || s.Col > 4 {
			t.Errorf("unexpected slot %+v", s)
		}
	}
}

func TestVisibleMatchesDocumentGeometry(t *testing.T) {
	g := NewGrid(1080, 1920, 256, 1)
	const (
		docY  = -1000.0
		docX  = -100.0
		scale = 1.5
	)
	slots := g.Visible(g.RingOffset(docY), docX, scale)

	seen := make(map[[2]int]bool)
	for _, s := range slots {
		key := [2]int{s.Row, s.Col}
		if seen[key] {
			t.Errorf("tile %v visible twice", key)
		}
		seen[key] = true

		wantY := scale * (float64(s.Row)*256 + docY)
		wantX := scale * (float64(s.Col)*256 + docX)
		if math.Abs(s.Dest.Y-wantY) > 1e-9 || math.Abs(s.Dest.X-wantX) > 1e-9 {
			t.Errorf("tile %v at (%v, %v), want (%v, %v)", key, s.Dest.X, s.Dest.Y, wantX, wantY)
		}
		if s.Dest.W != 384 || s.Dest.H != 384 {
			t.Errorf("tile %v size %vx%v, want 384x384", key, s.Dest.W, s.Dest.H)
		}
	}

	// Canvas rows 3-8 and columns 0-3 intersect the screen.
	for row := 3; row <= 8; row++ {
		for col := 0; col <= 3; col++ {
			if !seen[[2]int{row, col}] {
				t.Errorf("tile (%d, %d) not visible", row, col)
			}
		}
	}
	if got := len(slots); got != 6*4 {
		t.Errorf("len(Visible()) = %d, want 24", got)
	}

	first, last := g.RowRange(docY, scale)
	if first != 3 || last != 8 {
		t.Errorf("RowRange() = (%d, %d), want (3, 8)", first, last)
	}
}

func TestWindowY(t *testing.T) {
	g := NewGrid(1080, 1920, 256, 1)
	top, bottom := g.WindowY(-500, 2)
	if top != 500 || bottom != 1460 {
		t.Errorf("WindowY(-500, 2) = (%v, %v), want (500, 1460)", top, bottom)
	}
}

func TestRectImage(t *testing.T) {
	r := Rect{X: -0.5, Y: 1.25, W: 10, H: 10}
	want := image.Rect(-1, 1, 10, 12)
	if got := r.Image(); got != want {
		t.Errorf("Image() = %v, want %v", got, want)
	}
}

func TestVisibleCoversScreenAtEveryScale(t *testing.T) {
	const minScale = 0.51
	for _, h := range []float64{512, 1024, 1200, 1920} {
		g := NewGrid(1080, h, 256, minScale)
		for _, scale := range []float64{minScale, 0.6, 0.75, 1, 1.5, 2.5, 3.5} {
			for _, docY := range []float64{0, -137, -1000, -2560, -4099.5} {
				slots := g.Visible(g.RingOffset(docY), 0, scale)

				rows := make(map[int]bool)
				for _, s := range slots {
					rows[s.Row] = true
				}
				first, last := g.RowRange(docY, scale)
				for row := first; row <= last; row++ {
					if !rows[row] {
						t.Errorf("screen %v scale %v offset %v: row %d (of %d-%d) not visible",
							h, scale, docY, row, first, last)
					}
				}
			}
		}
	}
}
