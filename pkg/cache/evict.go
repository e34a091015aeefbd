package cache

import (
	"slices"

	"tilescope/pkg/tile"
)

// Every rule below is idempotent: purging a clean tier removes nothing and
// returns 0, so the viewer runs them every frame.

// EvictScale purges raw, composited and snapshot entries whose scale class
// is not class. Thumbnails are rendered at a fixed zoom and stay.
func (s *Store) EvictScale(class tile.ScaleClass) int {
	n := s.Raw.DeleteFunc(func(k tile.RawKey) bool { return k.Scale != class })
	n += s.Grid.DeleteFunc(func(k tile.GridKey) bool { return k.Scale != class })
	n += s.Snapshots.DeleteFunc(func(k tile.PageKey) bool { return k.Scale != class })
	return n
}

// EvictDistantRows purges composited tiles whose canvas row is more than
// limit rows away from row.
func (s *Store) EvictDistantRows(row, limit int) int {
	return s.Grid.DeleteFunc(func(k tile.GridKey) bool {
		d := k.Row - row
		return d > limit || -d > limit
	})
}

// EvictPagesOutside purges raw tiles and snapshots of every page not in
// keep, the pages near the viewport.
func (s *Store) EvictPagesOutside(keep []int) int {
	far := func(page int) bool { return !slices.Contains(keep, page) }
	n := s.Raw.DeleteFunc(func(k tile.RawKey) bool { return far(k.Page) })
	n += s.Snapshots.DeleteFunc(func(k tile.PageKey) bool { return far(k.Page) })
	return n
}

// EvictPage purges every raw tile and snapshot of page.
func (s *Store) EvictPage(page int) int {
	n := s.Raw.DeleteFunc(func(k tile.RawKey) bool { return k.Page == page })
	n += s.Snapshots.DeleteFunc(func(k tile.PageKey) bool { return k.Page == page })
	return n
}
