// Package coverage maps canvas tile rows to the page tile rows that supply
// their pixels.
//
// The canvas is cut into square tiles of a fixed size T. Page boundaries
// rarely line up with tile boundaries, so one canvas row may be fed by up to
// three page-local tile rows: the tail of one page (one or two rows) and the
// head of the next. The map is built once per document and is independent
// of the zoom level because it is keyed by unscaled tile rows.
package coverage

import (
	"fmt"
	"math"

	"tilescope/pkg/layout"
)

// MaxContributions is the number of page rows that may feed one canvas row.
const MaxContributions = 3

// Contribution is one page-local tile row drawn into a canvas tile.
//
// Translation is in unscaled canvas pixels. The page row is drawn at
// tile-local y = -Translation: a positive value shifts the row up, a
// negative value starts it partway down the tile.
type Contribution struct {
	Page        int
	PageRow     int
	Translation float64
}

// Filler marks an unused slot in an Entry.
var Filler = Contribution{Page: -1, PageRow: -1, Translation: -1}

// IsFiller reports whether c is the unused-slot sentinel.
func (c Contribution) IsFiller() bool {
	return c.Page == -1
}

// Entry lists the contributions for one canvas row in page-index order,
// padded with Filler.
type Entry [MaxContributions]Contribution

var emptyEntry = Entry{Filler, Filler, Filler}

// Contributions returns the non-filler slots.
func (e Entry) Contributions() []Contribution {
	out := make([]Contribution, 0, MaxContributions)
	for _, c := range e {
		if !c.IsFiller() {
			out = append(out, c)
		}
	}
	return out
}

// Empty reports whether no page touches the row.
func (e Entry) Empty() bool {
	return e[0].IsFiller()
}

// Map is the precomputed coverage of every canvas row.
type Map struct {
	layout   *layout.Layout
	tileSize int
	entries  []Entry
}

// Build computes the coverage of every canvas row of l for tiles of
// tileSize pixels. A row touched by more than MaxContributions page rows
// means the page metadata is corrupt and fails with an error wrapping
// layout.ErrInconsistent.
func Build(l *layout.Layout, tileSize int) (*Map, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("coverage: invalid tile size %d", tileSize)
	}
	T := float64(tileSize)
	total := l.TotalHeight()

	m := &Map{
		layout:   l,
		tileSize: tileSize,
		entries:  make([]Entry, 0, int(math.Ceil(total/T))),
	}

	parts := make([]Contribution, 0, MaxContributions+2)
	for step := 0; float64(step)*T < total; step++ {
		tileStart := float64(step) * T
		tileEnd := tileStart + T
		parts = parts[:0]

		for page := range l.PageCount() {
			dim := l.Dimensions(page)
			pageStart, pageEnd := dim.Top(), dim.CumulativeHeightAfter

			switch {
			case tileStart >= pageStart && tileEnd <= pageEnd:
				offset := tileStart - pageStart
				row := math.Floor(offset / T)
				t := offset - row*T
				if t == 0 {
					parts = append(parts, Contribution{page, int(row), 0})
				} else {
					parts = append(parts,
						Contribution{page, int(row), t},
						Contribution{page, int(row) + 1, -(T - t)})
				}

			case tileStart < pageStart && tileEnd > pageStart:
				// Also covers a page lying wholly inside the tile.
				parts = append(parts, Contribution{page, 0, tileStart - pageStart})

			case tileStart < pageEnd && tileEnd > pageEnd:
				offset := tileStart - pageStart
				row := math.Floor(offset / T)
				rowStart := pageStart + row*T
				t := tileStart - rowStart
				parts = append(parts, Contribution{page, int(row), t})
				if next := rowStart + T; t > 0 && next < pageEnd {
					parts = append(parts, Contribution{page, int(row) + 1, -(next - tileStart)})
				}
			}
		}

		if len(parts) > MaxContributions {
			return nil, fmt.Errorf("%w: canvas row %d is covered by %d page rows",
				layout.ErrInconsistent, step, len(parts))
		}
		e := emptyEntry
		copy(e[:], parts)
		m.entries = append(m.entries, e)
	}
	return m, nil
}

// Entry returns the coverage of canvas row. Rows outside the document map
// to an all-filler entry.
func (m *Map) Entry(row int) Entry {
	if row < 0 || row >= len(m.entries) {
		return emptyEntry
	}
	return m.entries[row]
}

// Rows returns the number of canvas rows spanned by the document.
func (m *Map) Rows() int {
	return len(m.entries)
}

// TileSize returns the tile edge length in unscaled pixels.
func (m *Map) TileSize() int {
	return m.tileSize
}

// Layout returns the layout the map was built from.
func (m *Map) Layout() *layout.Layout {
	return m.layout
}

// Placement returns where c lands inside its canvas tile: the tile-local y
// of the page row's top edge and the height of page content the row holds.
// The last row of a page holds less than a full tile; callers clip to the
// returned height so no page paints into a gap or over its neighbour.
func (m *Map) Placement(c Contribution) (offsetY, height float64) {
	T := float64(m.tileSize)
	dim := m.layout.Dimensions(c.Page)
	height = min(T, dim.Height-float64(c.PageRow)*T)
	return -c.Translation, max(height, 0)
}
