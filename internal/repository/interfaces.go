package repository

import (
	"context"

	"github.com/anime-shed/image-annotator-go/pkg/models"
)

// AnnotationRepository defines the interface for annotation persistence.
// Implementations block on I/O and honor ctx cancellation.
type AnnotationRepository interface {
	// Create stores a new record and returns the id assigned by the store
	Create(ctx context.Context, record *AnnotationRecord) (int64, error)

	// ListAll returns every record ordered by ascending id
	ListAll(ctx context.Context) ([]*AnnotationRecord, error)

	// GetByID returns ErrAnnotationNotFound when the id does not exist
	GetByID(ctx context.Context, id int64) (*AnnotationRecord, error)

	// Update applies the present fields of patch. Returns ErrAnnotationNotFound
	// when the id does not exist.
	Update(ctx context.Context, id int64, patch AnnotationPatch) error

	// Delete removes the record and reports whether it existed
	Delete(ctx context.Context, id int64) (bool, error)

	// Close releases the underlying connections
	Close() error
}

// AnnotationRecord is a persisted annotation
type AnnotationRecord struct {
	ID            int64
	ImageData     []byte
	BoundingBoxes []models.BoundingBox
	MetaInfo      *string
}

// AnnotationPatch lists the fields an update replaces. A nil field is left
// unchanged; a non-nil empty BoundingBoxes clears the box set.
type AnnotationPatch struct {
	BoundingBoxes []models.BoundingBox
	MetaInfo      *string
}

// IsEmpty reports whether the patch changes nothing
func (p AnnotationPatch) IsEmpty() bool {
	return p.BoundingBoxes == nil && p.MetaInfo == nil
}

func cloneRecord(r *AnnotationRecord) *AnnotationRecord {
	out := &AnnotationRecord{
		ID:            r.ID,
		ImageData:     append([]byte{}, r.ImageData...),
		BoundingBoxes: append([]models.BoundingBox{}, r.BoundingBoxes...),
	}
	if r.MetaInfo != nil {
		meta := *r.MetaInfo
		out.MetaInfo = &meta
	}
	return out
}
