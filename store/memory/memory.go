// Package memory provides an in-memory allocation.Store and
// allocation.ReportArchive.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/textile-ops/allocation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu        sync.RWMutex
	batches   map[string]allocation.Batch
	users     map[string]allocation.User
	workforce []allocation.WorkforceAllocation
	material  []allocation.MaterialAllocation
	ids       map[string]bool
	reports   []allocation.ArchivedReport
}

func New() *Store {
	s := &Store{}
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	s.batches = make(map[string]allocation.Batch)
	s.users = make(map[string]allocation.User)
	s.workforce = nil
	s.material = nil
	s.ids = make(map[string]bool)
	s.reports = nil
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

// SaveBatch inserts or replaces a batch.
func (s *Store) SaveBatch(_ context.Context, b allocation.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
	return nil
}

func (s *Store) GetBatch(_ context.Context, id string) (*allocation.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.batches[id]
	if !ok {
		return nil, allocation.ErrBatchNotFound
	}
	return &b, nil
}

func (s *Store) ListBatches(_ context.Context, limit int) ([]allocation.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]allocation.Batch, 0, len(s.batches))
	for _, b := range s.batches {
		result = append(result, b)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return capped(result, limit), nil
}

// SaveUser inserts or replaces a user.
func (s *Store) SaveUser(_ context.Context, u allocation.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*allocation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, allocation.ErrUserNotFound
	}
	return &u, nil
}

func (s *Store) ListUsers(_ context.Context, limit int) ([]allocation.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]allocation.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return capped(result, limit), nil
}

// =============================================================================
// ALLOCATIONS - Append-only
// =============================================================================

func (s *Store) AppendWorkforce(_ context.Context, w allocation.WorkforceAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[w.ID] {
		return allocation.ErrDuplicateID
	}
	s.ids[w.ID] = true

	// Keep sorted by effective day so listing never has to sort.
	i := sort.Search(len(s.workforce), func(i int) bool {
		return s.workforce[i].EffectiveDay() > w.EffectiveDay()
	})
	s.workforce = append(s.workforce, allocation.WorkforceAllocation{})
	copy(s.workforce[i+1:], s.workforce[i:])
	s.workforce[i] = w
	return nil
}

func (s *Store) AppendMaterial(_ context.Context, m allocation.MaterialAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[m.ID] {
		return allocation.ErrDuplicateID
	}
	s.ids[m.ID] = true

	i := sort.Search(len(s.material), func(i int) bool {
		return s.material[i].CreatedAt.After(m.CreatedAt)
	})
	s.material = append(s.material, allocation.MaterialAllocation{})
	copy(s.material[i+1:], s.material[i:])
	s.material[i] = m
	return nil
}

func (s *Store) ListWorkforce(_ context.Context, p allocation.Period) ([]allocation.WorkforceAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []allocation.WorkforceAllocation{}
	for _, w := range s.workforce {
		if p.Contains(w.EffectiveDay()) {
			result = append(result, w)
		}
	}
	return result, nil
}

func (s *Store) ListMaterial(_ context.Context, p allocation.Period) ([]allocation.MaterialAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []allocation.MaterialAllocation{}
	for _, m := range s.material {
		if p.Contains(m.EffectiveDay()) {
			result = append(result, m)
		}
	}
	return result, nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}

// =============================================================================
// REPORT ARCHIVE
// =============================================================================

func (s *Store) SaveReport(_ context.Context, r allocation.ArchivedReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reports {
		if existing.ID == r.ID {
			return allocation.ErrDuplicateID
		}
	}
	s.reports = append(s.reports, r)
	return nil
}

// ListReports returns the newest reports first.
func (s *Store) ListReports(_ context.Context, limit int) ([]allocation.ArchivedReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]allocation.ArchivedReport, 0, len(s.reports))
	for i := len(s.reports) - 1; i >= 0; i-- {
		result = append(result, s.reports[i])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].GeneratedAt.After(result[j].GeneratedAt)
	})
	return capped(result, limit), nil
}

func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

var (
	_ allocation.Store         = (*Store)(nil)
	_ allocation.ReportArchive = (*Store)(nil)
)
