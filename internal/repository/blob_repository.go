package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/anime-shed/image-annotator-go/internal/logger"
	"github.com/anime-shed/image-annotator-go/internal/storage"

	"github.com/sirupsen/logrus"
)

// BlobAnnotationRepository keeps image payloads in blob storage and the
// remaining fields in the wrapped repository
type BlobAnnotationRepository struct {
	AnnotationRepository
	blobs storage.BlobStorage
}

// NewBlobAnnotationRepository wraps base so images go to blobs
func NewBlobAnnotationRepository(base AnnotationRepository, blobs storage.BlobStorage) *BlobAnnotationRepository {
	return &BlobAnnotationRepository{AnnotationRepository: base, blobs: blobs}
}

// ImageKey is the blob key for an annotation's image
func ImageKey(id int64) string {
	return fmt.Sprintf("annotations/%d", id)
}

// Create writes the row first to obtain the id, then the image. When the
// image upload fails the row is removed again.
func (r *BlobAnnotationRepository) Create(ctx context.Context, record *AnnotationRecord) (int64, error) {
	row := *record
	row.ImageData = []byte{}

	id, err := r.AnnotationRepository.Create(ctx, &row)
	if err != nil {
		return 0, err
	}

	if err := r.blobs.PutImage(ctx, ImageKey(id), record.ImageData); err != nil {
		if _, delErr := r.AnnotationRepository.Delete(context.WithoutCancel(ctx), id); delErr != nil {
			logger.WithError(delErr).WithField("annotation_id", id).
				Error("Failed to roll back annotation row after image upload failure")
		}
		return 0, fmt.Errorf("store image for annotation %d: %w", id, err)
	}
	return id, nil
}

func (r *BlobAnnotationRepository) ListAll(ctx context.Context) ([]*AnnotationRecord, error) {
	records, err := r.AnnotationRepository.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := r.attachImage(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *BlobAnnotationRepository) GetByID(ctx context.Context, id int64) (*AnnotationRecord, error) {
	rec, err := r.AnnotationRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.attachImage(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes the row, then the image. A missing image is not an error.
func (r *BlobAnnotationRepository) Delete(ctx context.Context, id int64) (bool, error) {
	existed, err := r.AnnotationRepository.Delete(ctx, id)
	if err != nil || !existed {
		return existed, err
	}
	if err := r.blobs.DeleteImage(ctx, ImageKey(id)); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		logger.WithError(err).WithFields(logrus.Fields{
			"annotation_id": id,
			"key":           ImageKey(id),
		}).Warn("Annotation deleted but image blob was left behind")
	}
	return true, nil
}

func (r *BlobAnnotationRepository) attachImage(ctx context.Context, rec *AnnotationRecord) error {
	data, err := r.blobs.GetImage(ctx, ImageKey(rec.ID))
	if errors.Is(err, storage.ErrBlobNotFound) {
		logger.WithField("annotation_id", rec.ID).Warn("Image blob missing for annotation")
		rec.ImageData = []byte{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load image for annotation %d: %w", rec.ID, err)
	}
	rec.ImageData = data
	return nil
}
