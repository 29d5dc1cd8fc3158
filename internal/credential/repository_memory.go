package credential

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository keeps credentials in process memory. It is used when no
// DATABASE_URL is configured and in tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Record)}
}

func (r *MemoryRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records), nil
}

func (r *MemoryRepository) InsertAll(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	batch := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := r.records[rec.Username]; ok {
			return ErrAlreadyExists
		}
		if _, ok := batch[rec.Username]; ok {
			return ErrAlreadyExists
		}
		batch[rec.Username] = struct{}{}
	}
	for _, rec := range records {
		r.records[rec.Username] = rec
	}
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PGRepository)(nil)
)
