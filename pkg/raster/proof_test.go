package raster

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"tilescope/pkg/layout"
	"tilescope/pkg/tile"
)

func newTestProof() *Proof {
	return NewProof([]layout.PageSize{{Width: 600, Height: 1000}, {Width: 400, Height: 500}})
}

func decode(t *testing.T, data []byte, req Request) *tile.Image {
	t.Helper()
	img, err := tile.Decode(data, req.TileWidth, req.TileHeight, req.Format, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return img
}

func TestProofProvidesLayout(t *testing.T) {
	l, err := layout.Load(newTestProof(), 10)
	if err != nil {
		t.Fatalf("layout.Load() error = %v", err)
	}
	if got := l.TotalHeight(); got != 1510 {
		t.Errorf("TotalHeight() = %v, want 1510", got)
	}
}

func TestProofFetchLength(t *testing.T) {
	p := newTestProof()
	for _, f := range []tile.Format{tile.FormatRGBA8888, tile.FormatBGRA8888, tile.FormatRGB565, tile.FormatBGR565} {
		req := Request{Page: 0, TileWidth: 64, TileHeight: 32, Zoom: 1, DisplayWidth: 600, Format: f}
		data, err := p.FetchTile(context.Background(), req)
		if err != nil {
			t.Fatalf("FetchTile(%v) error = %v", f, err)
		}
		if len(data) != req.Len() {
			t.Errorf("len(FetchTile(%v)) = %d, want %d", f, len(data), req.Len())
		}
	}
}

func TestProofIsDeterministic(t *testing.T) {
	p := newTestProof()
	req := Request{Page: 1, OriginRow: -100, OriginCol: -50, TileWidth: 128, TileHeight: 128, Zoom: 2, Format: tile.FormatRGBA8888}

	a, err := p.FetchTile(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchTile() error = %v", err)
	}
	b, err := p.FetchTile(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchTile() error = %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical requests returned different pixels")
	}
	if got := p.Fetches(); got != 2 {
		t.Errorf("Fetches() = %d, want 2", got)
	}
}

func TestProofWindowOutsidePageIsTransparent(t *testing.T) {
	p := newTestProof()
	// Page 1 is 400x500; at zoom 1 a window 480px down holds 20 rows of
	// page and 44 transparent rows.
	req := Request{Page: 1, OriginRow: -480, TileWidth: 64, TileHeight: 64, Zoom: 1, Format: tile.FormatRGBA8888}
	data, err := p.FetchTile(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchTile() error = %v", err)
	}
	img := decode(t, data, req).RGBA()

	if got := img.RGBAAt(32, 10); got.A != 0xff {
		t.Errorf("pixel inside page = %v, want opaque", got)
	}
	if got := img.RGBAAt(32, 40); got != (color.RGBA{}) {
		t.Errorf("pixel below page = %v, want transparent", got)
	}
}

func TestProofPaperIsWhite(t *testing.T) {
	p := newTestProof()
	// A window in the middle of page 0 between two rules and right of the
	// margin line.
	req := Request{Page: 0, OriginRow: -(48 + 5), OriginCol: -100, TileWidth: 16, TileHeight: 8, Zoom: 1, Format: tile.FormatRGBA8888}
	data, err := p.FetchTile(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchTile() error = %v", err)
	}
	img := decode(t, data, req).RGBA()
	if got := img.RGBAAt(8, 4); got != paperColor {
		t.Errorf("paper pixel = %v, want %v", got, paperColor)
	}
}

func TestProofRejectsBadRequests(t *testing.T) {
	p := newTestProof()
	tests := []struct {
		name string
		req  Request
	}{
		{"page out of range", Request{Page: 2, TileWidth: 8, TileHeight: 8, Zoom: 1}},
		{"negative page", Request{Page: -1, TileWidth: 8, TileHeight: 8, Zoom: 1}},
		{"zero width", Request{TileHeight: 8, Zoom: 1}},
		{"zero zoom", Request{TileWidth: 8, TileHeight: 8}},
		{"bad format", Request{TileWidth: 8, TileHeight: 8, Zoom: 1, Format: tile.Format(42)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.FetchTile(context.Background(), tt.req)
			if !errors.Is(err, ErrFetch) {
				t.Errorf("FetchTile() error = %v, want ErrFetch", err)
			}
		})
	}
}

func TestProofHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := Request{TileWidth: 8, TileHeight: 8, Zoom: 1}
	if _, err := newTestProof().FetchTile(ctx, req); !errors.Is(err, context.Canceled) {
		t.Errorf("FetchTile() error = %v, want context.Canceled", err)
	}
}

func TestFetcherFunc(t *testing.T) {
	var got Request
	f := FetcherFunc(func(_ context.Context, req Request) ([]byte, error) {
		got = req
		return make([]byte, req.Len()), nil
	})
	req := Request{Page: 3, TileWidth: 2, TileHeight: 2, Zoom: 1}
	data, err := f.FetchTile(context.Background(), req)
	if err != nil || len(data) != 16 {
		t.Errorf("FetchTile() = (%d bytes, %v), want (16 bytes, nil)", len(data), err)
	}
	if got != req {
		t.Errorf("request = %+v, want %+v", got, req)
	}
}

func TestProofRulesDeepInPage(t *testing.T) {
	p := NewProof([]layout.PageSize{{Width: 2400, Height: 20000}})
	// The rule at page y 10008 is the first one below page y 10000.
	tests := []struct {
		zoom      float64
		ruleRows  []int
		paperRows []int
	}{
		{1, []int{8}, []int{4, 9}},
		{2, []int{16, 17}, []int{15, 18}},
	}
	for _, tt := range tests {
		req := Request{
			OriginRow:  int64(-10000 * tt.zoom),
			OriginCol:  int64(-100 * tt.zoom),
			TileWidth:  64,
			TileHeight: 32,
			Zoom:       tt.zoom,
			Format:     tile.FormatRGBA8888,
		}
		data, err := p.FetchTile(context.Background(), req)
		if err != nil {
			t.Fatalf("FetchTile(zoom %v) error = %v", tt.zoom, err)
		}
		img := decode(t, data, req).RGBA()
		for _, y := range tt.ruleRows {
			if got := img.RGBAAt(20, y); got != ruleColor {
				t.Errorf("zoom %v row %d = %v, want rule %v", tt.zoom, y, got, ruleColor)
			}
		}
		for _, y := range tt.paperRows {
			if got := img.RGBAAt(20, y); got != paperColor {
				t.Errorf("zoom %v row %d = %v, want paper %v", tt.zoom, y, got, paperColor)
			}
		}
	}
}

func TestProofCurledCorner(t *testing.T) {
	p := newTestProof()
	req := Request{Page: 0, OriginRow: -960, OriginCol: -560, TileWidth: 16, TileHeight: 16, Zoom: 1, Format: tile.FormatRGBA8888}
	data, err := p.FetchTile(context.Background(), req)
	if err != nil {
		t.Fatalf("FetchTile() error = %v", err)
	}
	img := decode(t, data, req).RGBA()
	if got := img.RGBAAt(10, 10); got != curlColor {
		t.Errorf("curl pixel = %v, want %v", got, curlColor)
	}
	if got := img.RGBAAt(2, 2); got != paperColor {
		t.Errorf("paper pixel = %v, want %v", got, paperColor)
	}
}

func BenchmarkProofTallPage(b *testing.B) {
	p := NewProof([]layout.PageSize{{Width: 2400, Height: 20000}})
	req := Request{OriginRow: -20000, TileWidth: 512, TileHeight: 512, Zoom: 2, Format: tile.FormatRGBA8888}
	for b.Loop() {
		if _, err := p.FetchTile(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
