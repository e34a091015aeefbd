package cache

import (
	"math"

	"tilescope/pkg/tile"
)

// Store owns the tiers of one open document. It is created on open and
// closed with the document; nothing about it is global.
type Store struct {
	// Raw holds page-local rasters keyed by page, scale class and page tile.
	Raw *Tier[tile.RawKey]
	// Grid holds composited canvas tiles.
	Grid *Tier[tile.GridKey]
	// Snapshots holds whole-page bitmaps for the paged layout mode.
	Snapshots *Tier[tile.PageKey]
	// Thumbs holds low-zoom composited tiles used as stand-ins. It is
	// bounded and exempt from scale eviction. Keys carry Scale 0.
	Thumbs *Tier[tile.GridKey]
}

// ThumbPolicy selects how the thumbnail tier picks a victim when full.
type ThumbPolicy int

const (
	// ThumbLRU evicts the least recently used thumbnail.
	ThumbLRU ThumbPolicy = iota
	// ThumbDistance evicts the thumbnail farthest from the one inserted.
	ThumbDistance
)

// NewStore creates empty tiers. thumbCapacity bounds the thumbnail tier.
func NewStore(thumbCapacity int, policy ThumbPolicy) *Store {
	thumbs := LRU[tile.GridKey]()
	if policy == ThumbDistance {
		thumbs = Distance(GridDistance)
	}
	return &Store{
		Raw:       NewTier[tile.RawKey](),
		Grid:      NewTier[tile.GridKey](),
		Snapshots: NewTier[tile.PageKey](),
		Thumbs:    NewBounded(thumbCapacity, thumbs),
	}
}

// GridDistance is the Chebyshev distance between two canvas tiles. Tiles of
// different scale classes are infinitely far apart.
func GridDistance(a, b tile.GridKey) float64 {
	if a.Scale != b.Scale {
		return math.Inf(1)
	}
	return math.Max(math.Abs(float64(a.Row-b.Row)), math.Abs(float64(a.Col-b.Col)))
}

// Len returns the total number of entries across tiers.
func (s *Store) Len() int {
	return s.Raw.Len() + s.Grid.Len() + s.Snapshots.Len() + s.Thumbs.Len()
}

// StoreStats reports every tier's counters.
type StoreStats struct {
	Raw       Stats
	Grid      Stats
	Snapshots Stats
	Thumbs    Stats
}

// Stats returns counters for every tier.
func (s *Store) Stats() StoreStats {
	return StoreStats{
		Raw:       s.Raw.Stats(),
		Grid:      s.Grid.Stats(),
		Snapshots: s.Snapshots.Stats(),
		Thumbs:    s.Thumbs.Stats(),
	}
}

// Close disposes every cached image.
func (s *Store) Close() {
	s.Raw.Clear()
	s.Grid.Clear()
	s.Snapshots.Clear()
	s.Thumbs.Clear()
}
