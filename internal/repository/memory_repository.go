package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/anime-shed/image-annotator-go/pkg/models"
)

// MemoryAnnotationRepository implements AnnotationRepository in process memory.
// Ids start at 1 and are never reused, matching the SQL stores.
type MemoryAnnotationRepository struct {
	mu      sync.RWMutex
	records map[int64]*AnnotationRecord
	lastID  int64
}

// NewMemoryAnnotationRepository creates an empty in-memory repository
func NewMemoryAnnotationRepository() *MemoryAnnotationRepository {
	return &MemoryAnnotationRepository{records: make(map[int64]*AnnotationRecord)}
}

func (r *MemoryAnnotationRepository) Create(ctx context.Context, record *AnnotationRecord) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	stored := cloneRecord(record)
	stored.ID = r.lastID
	r.records[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryAnnotationRepository) ListAll(ctx context.Context) ([]*AnnotationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*AnnotationRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryAnnotationRepository) GetByID(ctx context.Context, id int64) (*AnnotationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrAnnotationNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryAnnotationRepository) Update(ctx context.Context, id int64, patch AnnotationPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrAnnotationNotFound
	}
	if patch.BoundingBoxes != nil {
		rec.BoundingBoxes = append([]models.BoundingBox{}, patch.BoundingBoxes...)
	}
	if patch.MetaInfo != nil {
		meta := *patch.MetaInfo
		rec.MetaInfo = &meta
	}
	return nil
}

func (r *MemoryAnnotationRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *MemoryAnnotationRepository) Close() error {
	return nil
}
