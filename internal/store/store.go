package store

import (
	"sync"

	"github.com/MiguelMedeiros/zapin.me/internal/models"
)

// Store owns the two marker partitions and is the only place they are
// mutated. Collections keep arrival order: fetched pages are appended,
// pushed markers are prepended so fresh pins stay prominent. Nothing here
// ever re-sorts.
type Store struct {
	mu          sync.RWMutex
	active      []models.Marker
	deactivated []models.Marker
}

func New() *Store {
	return &Store{}
}

// InsertPushed prepends a live-delivered marker to the active partition.
// Pushed markers are not deduplicated against fetched ones by id; the two
// sources are disjoint at steady state.
func (s *Store) InsertPushed(m models.Marker) {
	m.Provenance = models.ProvenancePushed

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = append([]models.Marker{m}, s.active...)
}

// AppendFetched extends the named partition's tail with one fetched page.
// Appending (never replacing) keeps already-rendered and selected markers
// stable while more pages load.
func (s *Store) AppendFetched(partition models.Partition, page []models.Marker) {
	if len(page) == 0 {
		return
	}
	for i := range page {
		page[i].Provenance = models.ProvenanceFetched
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch partition {
	case models.PartitionDeactivated:
		s.deactivated = append(s.deactivated, page...)
	default:
		s.active = append(s.active, page...)
	}
}

// MoveOnExpire moves a marker to the other partition, preserving its
// attributes. A marker found in active goes to the front of deactivated and
// vice versa. Returns false when the id is in neither partition.
func (s *Store) MoveOnExpire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, rest, ok := remove(s.active, id); ok {
		s.active = rest
		s.deactivated = append([]models.Marker{m}, s.deactivated...)
		return true
	}
	if m, rest, ok := remove(s.deactivated, id); ok {
		s.deactivated = rest
		s.active = append([]models.Marker{m}, s.active...)
		return true
	}
	return false
}

// Markers returns a copy of one partition in arrival order.
func (s *Store) Markers(partition models.Partition) []models.Marker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.active
	if partition == models.PartitionDeactivated {
		src = s.deactivated
	}
	out := make([]models.Marker, len(src))
	copy(out, src)
	return out
}

// Len returns the accumulated length of one partition.
func (s *Store) Len(partition models.Partition) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if partition == models.PartitionDeactivated {
		return len(s.deactivated)
	}
	return len(s.active)
}

// Find looks a marker up by id across both partitions.
func (s *Store) Find(id int64) (models.Marker, models.Partition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.active {
		if m.ID == id {
			return m, models.PartitionActive, true
		}
	}
	for _, m := range s.deactivated {
		if m.ID == id {
			return m, models.PartitionDeactivated, true
		}
	}
	return models.Marker{}, "", false
}

func remove(markers []models.Marker, id int64) (models.Marker, []models.Marker, bool) {
	for i, m := range markers {
		if m.ID == id {
			rest := make([]models.Marker, 0, len(markers)-1)
			rest = append(rest, markers[:i]...)
			rest = append(rest, markers[i+1:]...)
			return m, rest, true
		}
	}
	return models.Marker{}, markers, false
}
