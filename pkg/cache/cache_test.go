package cache

import (
	"slices"
	"sync"
	"testing"

	"tilescope/pkg/tile"
)

func newImg() *tile.Image {
	return tile.NewImage(2, 2, nil)
}

func TestTierSetReplacesAndDisposes(t *testing.T) {
	tier := NewTier[tile.GridKey]()
	key := tile.GridKey{Scale: 1, Row: 3, Col: 0}

	first, second := newImg(), newImg()
	tier.Set(key, first)
	tier.Set(key, second)

	if !first.Disposed() {
		t.Error("replaced image was not disposed")
	}
	if second.Disposed() {
		t.Error("current image was disposed")
	}
	if got, ok := tier.Get(key); !ok || got != second {
		t.Errorf("Get() = (%p, %v), want (%p, true)", got, ok, second)
	}
	if got := tier.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}

	// Setting the same image again must not dispose it.
	tier.Set(key, second)
	if second.Disposed() {
		t.Error("re-set image was disposed")
	}
}

func TestTierDeleteAndClearDispose(t *testing.T) {
	tier := NewTier[tile.PageKey]()
	a, b, c := newImg(), newImg(), newImg()
	tier.Set(tile.PageKey{Page: 0, Scale: 1}, a)
	tier.Set(tile.PageKey{Page: 1, Scale: 1}, b)
	tier.Set(tile.PageKey{Page: 2, Scale: 1}, c)

	if !tier.Delete(tile.PageKey{Page: 0, Scale: 1}) {
		t.Error("Delete() = false, want true")
	}
	if tier.Delete(tile.PageKey{Page: 0, Scale: 1}) {
		t.Error("second Delete() = true, want false")
	}
	if !a.Disposed() {
		t.Error("deleted image was not disposed")
	}

	if got := tier.Clear(); got != 2 {
		t.Errorf("Clear() = %d, want 2", got)
	}
	if !b.Disposed() || !c.Disposed() {
		t.Error("Clear() left images undisposed")
	}
	if got := tier.Clear(); got != 0 {
		t.Errorf("Clear() on empty tier = %d, want 0", got)
	}
}

func TestTierPeekDoesNotCount(t *testing.T) {
	tier := NewTier[tile.GridKey]()
	key := tile.GridKey{Scale: 1}
	tier.Set(key, newImg())

	tier.Peek(key)
	tier.Peek(tile.GridKey{Scale: 2})
	if s := tier.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Stats() after Peek = %+v, want no hits or misses", s)
	}

	tier.Get(key)
	tier.Get(tile.GridKey{Scale: 2})
	s := tier.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.HitRate != 0.5 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, rate 0.5", s)
	}
}

func TestBoundedLRU(t *testing.T) {
	tier := NewBounded(2, LRU[tile.GridKey]())
	k := func(row int) tile.GridKey { return tile.GridKey{Row: row} }

	imgs := []*tile.Image{newImg(), newImg(), newImg()}
	tier.Set(k(0), imgs[0])
	tier.Set(k(1), imgs[1])
	tier.Get(k(0)) // row 1 is now least recently used
	tier.Set(k(2), imgs[2])

	if tier.Contains(k(1)) {
		t.Error("least recently used entry survived")
	}
	if !imgs[1].Disposed() {
		t.Error("evicted image was not disposed")
	}
	if !tier.Contains(k(0)) || !tier.Contains(k(2)) {
		t.Error("recent entries were evicted")
	}
	if s := tier.Stats(); s.Len != 2 || s.Capacity != 2 || s.Evictions != 1 {
		t.Errorf("Stats() = %+v, want len 2, capacity 2, 1 eviction", s)
	}
}

func TestBoundedDistance(t *testing.T) {
	tier := NewBounded(3, Distance(GridDistance))
	k := func(row, col int) tile.GridKey { return tile.GridKey{Row: row, Col: col} }

	tier.Set(k(0, 0), newImg())
	tier.Set(k(5, 0), newImg())
	tier.Set(k(9, 1), newImg())
	tier.Get(k(0, 0))

	// Inserting next to row 9 evicts row 0, the farthest, even though it
	// was used most recently.
	tier.Set(k(10, 1), newImg())

	if tier.Contains(k(0, 0)) {
		t.Error("farthest entry survived")
	}
	want := []tile.GridKey{k(5, 0), k(9, 1), k(10, 1)}
	for _, key := range want {
		if !tier.Contains(key) {
			t.Errorf("entry %v was evicted", key)
		}
	}
}

func TestGridDistance(t *testing.T) {
	tests := []struct {
		a, b tile.GridKey
		want float64
	}{
		{tile.GridKey{Row: 0, Col: 0}, tile.GridKey{Row: 3, Col: 1}, 3},
		{tile.GridKey{Row: 2, Col: 7}, tile.GridKey{Row: 1, Col: 2}, 5},
		{tile.GridKey{Row: 4, Col: 4}, tile.GridKey{Row: 4, Col: 4}, 0},
	}
	for _, tt := range tests {
		if got := GridDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("GridDistance(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
	if got := GridDistance(tile.GridKey{Scale: 1}, tile.GridKey{Scale: 2}); got <= 1e9 {
		t.Errorf("GridDistance across scales = %v, want +Inf", got)
	}
}

func TestTierConcurrentSet(t *testing.T) {
	tier := NewTier[tile.RawKey]()
	key := tile.RawKey{Page: 1, Scale: 1}

	var wg sync.WaitGroup
	imgs := make([]*tile.Image, 64)
	for i := range imgs {
		imgs[i] = newImg()
		wg.Add(1)
		go func(img *tile.Image) {
			defer wg.Done()
			tier.Set(key, img)
		}(imgs[i])
	}
	wg.Wait()

	live := 0
	for _, img := range imgs {
		if !img.Disposed() {
			live++
		}
	}
	if live != 1 {
		t.Errorf("%d images alive after concurrent Set, want 1", live)
	}
}

func fillStore(s *Store) {
	for _, class := range []tile.ScaleClass{1, 2} {
		for row := range 10 {
			s.Grid.Set(tile.GridKey{Scale: class, Row: row}, newImg())
		}
		for page := range 3 {
			s.Raw.Set(tile.RawKey{Page: page, Scale: class}, newImg())
			s.Snapshots.Set(tile.PageKey{Page: page, Scale: class}, newImg())
		}
	}
	s.Thumbs.Set(tile.GridKey{Row: 0}, newImg())
}

func TestEvictScale(t *testing.T) {
	s := NewStore(100, ThumbLRU)
	fillStore(s)

	if got := s.EvictScale(2); got != 10+3+3 {
		t.Errorf("EvictScale(2) = %d, want 16", got)
	}
	for _, k := range s.Grid.Keys() {
		if k.Scale != 2 {
			t.Errorf("grid entry %v survived scale eviction", k)
		}
	}
	for _, k := range s.Raw.Keys() {
		if k.Scale != 2 {
			t.Errorf("raw entry %v survived scale eviction", k)
		}
	}
	for _, k := range s.Snapshots.Keys() {
		if k.Scale != 2 {
			t.Errorf("snapshot %v survived scale eviction", k)
		}
	}
	if got := s.Thumbs.Len(); got != 1 {
		t.Errorf("Thumbs.Len() = %d, want 1", got)
	}
	if got := s.EvictScale(2); got != 0 {
		t.Errorf("second EvictScale(2) = %d, want 0", got)
	}
}

func TestEvictDistantRows(t *testing.T) {
	s := NewStore(100, ThumbLRU)
	for row := range 20 {
		s.Grid.Set(tile.GridKey{Scale: 1, Row: row}, newImg())
	}

	const verticalTiles = 4
	current := 10
	s.EvictDistantRows(current, verticalTiles+1)

	for _, k := range s.Grid.Keys() {
		if d := k.Row - current; d > verticalTiles+1 || -d > verticalTiles+1 {
			t.Errorf("row %d survived, distance %d", k.Row, d)
		}
	}
	if got := s.Grid.Len(); got != 11 {
		t.Errorf("Grid.Len() = %d, want 11 (rows 5..15)", got)
	}
	if got := s.EvictDistantRows(current, verticalTiles+1); got != 0 {
		t.Errorf("second EvictDistantRows() = %d, want 0", got)
	}
}

func TestEvictPagesOutside(t *testing.T) {
	s := NewStore(100, ThumbLRU)
	fillStore(s)

	s.EvictPagesOutside([]int{1})

	for _, k := range s.Raw.Keys() {
		if k.Page != 1 {
			t.Errorf("raw tile of page %d survived", k.Page)
		}
	}
	var pages []int
	for _, k := range s.Snapshots.Keys() {
		pages = append(pages, k.Page)
	}
	slices.Sort(pages)
	if !slices.Equal(pages, []int{1, 1}) {
		t.Errorf("snapshot pages = %v, want [1 1]", pages)
	}
	if got := s.Grid.Len(); got != 20 {
		t.Errorf("Grid.Len() = %d, want 20 (untouched)", got)
	}
}

func TestEvictPage(t *testing.T) {
	s := NewStore(100, ThumbLRU)
	fillStore(s)

	if got := s.EvictPage(0); got != 4 {
		t.Errorf("EvictPage(0) = %d, want 4", got)
	}
	if got := s.EvictPage(0); got != 0 {
		t.Errorf("second EvictPage(0) = %d, want 0", got)
	}
}

func TestStoreClose(t *testing.T) {
	s := NewStore(100, ThumbDistance)
	fillStore(s)
	img, _ := s.Grid.Peek(tile.GridKey{Scale: 1, Row: 0})

	s.Close()
	if got := s.Len(); got != 0 {
		t.Errorf("Len() after Close = %d, want 0", got)
	}
	if img.RGBA() != nil {
		t.Error("image readable after Close")
	}
}
