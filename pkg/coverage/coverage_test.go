package coverage

import (
	"errors"
	"math"
	"testing"

	"tilescope/pkg/layout"
)

const tileSize = 256

func mustLayout(t *testing.T, gap float64, heights ...float64) *layout.Layout {
	t.Helper()
	sizes := make([]layout.PageSize, len(heights))
	for i, h := range heights {
		sizes[i] = layout.PageSize{Width: 600, Height: h}
	}
	l, err := layout.New(sizes, gap)
	if err != nil {
		t.Fatalf("layout.New() error = %v", err)
	}
	return l
}

func mustBuild(t *testing.T, l *layout.Layout) *Map {
	t.Helper()
	m, err := Build(l, tileSize)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestBuildThreePageDocument(t *testing.T) {
	m := mustBuild(t, mustLayout(t, 10, 1000, 500, 1400))

	if got, want := m.Rows(), int(math.Ceil(2920.0/tileSize)); got != want {
		t.Fatalf("Rows() = %d, want %d", got, want)
	}

	tests := []struct {
		row  int
		want Entry
	}{
		{0, Entry{{0, 0, 0}, Filler, Filler}},
		{1, Entry{{0, 1, 0}, Filler, Filler}},
		// Bottom of page 0 and top of page 1 (page 1 starts at 1010).
		{3, Entry{{0, 3, 0}, {1, 0, -242}, Filler}},
		// Page 1 fully covers [1024, 1280) starting 14px into its row 0.
		{4, Entry{{1, 0, 14}, {1, 1, -242}, Filler}},
		// Bottom of page 1 and top of page 2 (page 2 starts at 1520).
		{5, Entry{{1, 1, 14}, {2, 0, -240}, Filler}},
		{6, Entry{{2, 0, 16}, {2, 1, -240}, Filler}},
		{11, Entry{{2, 5, 16}, Filler, Filler}},
	}
	for _, tt := range tests {
		if got := m.Entry(tt.row); got != tt.want {
			t.Errorf("Entry(%d) = %v, want %v", tt.row, got, tt.want)
		}
	}
}

func TestEntryOutsideDocumentIsFiller(t *testing.T) {
	m := mustBuild(t, mustLayout(t, 10, 1000, 500, 1400))
	for _, row := range []int{-1, 12, 100} {
		e := m.Entry(row)
		if !e.Empty() || len(e.Contributions()) != 0 {
			t.Errorf("Entry(%d) = %v, want all filler", row, e)
		}
		for _, c := range e {
			if c != Filler {
				t.Errorf("Entry(%d) slot = %v, want %v", row, c, Filler)
			}
		}
	}
}

func TestBuildThreeContributions(t *testing.T) {
	// Page 1 spans [1002, 1522): its last two rows and the top of page 2
	// (starting at 1524) all land in canvas row 5.
	m := mustBuild(t, mustLayout(t, 2, 1000, 520, 1400))

	want := Entry{{1, 1, 22}, {1, 2, -234}, {2, 0, -244}}
	if got := m.Entry(5); got != want {
		t.Errorf("Entry(5) = %v, want %v", got, want)
	}
}

func TestBuildRejectsFourContributions(t *testing.T) {
	// Row 2 [512, 768) receives two rows of page 1, all of page 2 and the
	// top of page 3.
	l := mustLayout(t, 10, 300, 290, 10, 370)
	_, err := Build(l, tileSize)
	if !errors.Is(err, layout.ErrInconsistent) {
		t.Fatalf("Build() error = %v, want ErrInconsistent", err)
	}
}

func TestBuildRejectsBadTileSize(t *testing.T) {
	if _, err := Build(mustLayout(t, 10, 100), 0); err == nil {
		t.Error("Build(tileSize=0) error = nil, want error")
	}
}

func TestGapRowIsEmpty(t *testing.T) {
	// A 600px gap leaves canvas row 1 [256, 512) with no page at all.
	m := mustBuild(t, mustLayout(t, 600, 200, 300))
	if e := m.Entry(1); !e.Empty() {
		t.Errorf("Entry(1) = %v, want empty", e)
	}
	if e := m.Entry(0); e.Empty() {
		t.Error("Entry(0) is empty, want page 0")
	}
}

func TestEveryRowCoveredUnlessInGap(t *testing.T) {
	l := mustLayout(t, 10, 1000, 500, 1400, 333, 777)
	m := mustBuild(t, l)
	T := float64(tileSize)

	for row := range m.Rows() {
		start, end := float64(row)*T, float64(row+1)*T
		touches := len(l.PagesInRange(start, end)) > 0
		if got := !m.Entry(row).Empty(); got != touches {
			t.Errorf("row %d has contributions = %v, want %v", row, got, touches)
		}
	}
}

// TestReconstructsPageHeights checks that the visible slices of every page,
// summed over all canvas rows, add up to the page height with no overlap.
func TestReconstructsPageHeights(t *testing.T) {
	layouts := map[string]*layout.Layout{
		"three pages":         mustLayout(t, 10, 1000, 500, 1400),
		"three contributions": mustLayout(t, 2, 1000, 520, 1400),
		"tiny pages":          mustLayout(t, 10, 100, 50, 1000, 257),
		"no gap":              mustLayout(t, 0, 256, 512, 300),
		"odd sizes":           mustLayout(t, 7, 333.5, 777.25, 1024),
	}
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			m := mustBuild(t, l)
			T := float64(tileSize)
			sums := make([]float64, l.PageCount())

			for row := range m.Rows() {
				var covered []span
				for _, c := range m.Entry(row).Contributions() {
					offset, height := m.Placement(c)
					lo, hi := max(offset, 0), min(offset+height, T)
					if hi <= lo {
						continue
					}
					s := span{lo, hi}
					for _, o := range covered {
						if s.overlaps(o) {
							t.Errorf("row %d: contribution %v overlaps another slice", row, c)
						}
					}
					covered = append(covered, s)
					sums[c.Page] += hi - lo
				}
			}

			for page, got := range sums {
				want := l.Dimensions(page).Height
				if math.Abs(got-want) > 1e-9 {
					t.Errorf("page %d reconstructed height = %v, want %v", page, got, want)
				}
			}
		})
	}
}

type span struct{ lo, hi float64 }

func (s span) overlaps(o span) bool {
	return s.lo < o.hi && o.lo < s.hi
}

func TestPlacementClipsLastRow(t *testing.T) {
	m := mustBuild(t, mustLayout(t, 10, 1000, 500, 1400))

	offset, height := m.Placement(Contribution{Page: 0, PageRow: 3, Translation: 0})
	if offset != 0 || height != 232 {
		t.Errorf("Placement(page 0 row 3) = (%v, %v), want (0, 232)", offset, height)
	}
	offset, height = m.Placement(Contribution{Page: 1, PageRow: 0, Translation: -242})
	if offset != 242 || height != 256 {
		t.Errorf("Placement(page 1 row 0) = (%v, %v), want (242, 256)", offset, height)
	}
}
