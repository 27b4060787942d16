package service

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	apperrors "github.com/anime-shed/image-annotator-go/internal/errors"
	"github.com/anime-shed/image-annotator-go/internal/logger"
	"github.com/anime-shed/image-annotator-go/internal/observer"
	"github.com/anime-shed/image-annotator-go/internal/repository"
	"github.com/anime-shed/image-annotator-go/pkg/models"
	"github.com/anime-shed/image-annotator-go/pkg/validation"

	"github.com/sirupsen/logrus"
)

// AnnotationService defines the operations exposed over annotations
type AnnotationService interface {
	// Create validates the payload and stores a new annotation
	Create(ctx context.Context, input models.AnnotationCreate) (*models.Annotation, error)

	// GetAll returns every annotation ordered by ascending id
	GetAll(ctx context.Context) ([]models.Annotation, error)

	// GetOne returns a NotFound error when the id does not exist
	GetOne(ctx context.Context, id int64) (*models.Annotation, error)

	// Update replaces the boxes and/or metadata present in input
	Update(ctx context.Context, id int64, input models.AnnotationUpdate) (*models.Annotation, error)

	// Delete permanently removes the annotation
	Delete(ctx context.Context, id int64) error

	// Exists returns a NotFound error when the id does not exist
	Exists(ctx context.Context, id int64) error
}

// annotationService implements AnnotationService over a repository
type annotationService struct {
	repo      repository.AnnotationRepository
	sizeGuard validation.SizeGuard
	requests  *validation.RequestValidator
	events    observer.Subject
}

// NewAnnotationService creates a new annotation service
func NewAnnotationService(
	repo repository.AnnotationRepository,
	sizeGuard validation.SizeGuard,
	events observer.Subject,
) AnnotationService {
	return &annotationService{
		repo:      repo,
		sizeGuard: sizeGuard,
		requests:  validation.NewRequestValidator(),
		events:    events,
	}
}

func (s *annotationService) Create(ctx context.Context, input models.AnnotationCreate) (*models.Annotation, error) {
	start := time.Now()

	if err := s.requests.Validate(input); err != nil {
		return nil, s.reject(ctx, "create", 0, start, err)
	}

	image, err := base64.StdEncoding.DecodeString(*input.ImageData)
	if err != nil {
		return nil, s.reject(ctx, "create", 0, start, apperrors.NewDecodeError(err))
	}
	if s.sizeGuard.Exceeds(image) {
		return nil, s.reject(ctx, "create", 0, start, apperrors.NewSizeExceededError(s.sizeGuard.LimitMB()))
	}

	boxes := models.ToBoxes(input.BoundingBoxes)
	if validation.BoxesOverlap(boxes) {
		return nil, s.reject(ctx, "create", 0, start, apperrors.NewOverlapError())
	}

	record := &repository.AnnotationRecord{
		ImageData:     image,
		BoundingBoxes: boxes,
		MetaInfo:      input.MetaInfo,
	}
	id, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, s.storageFailure(ctx, "create", 0, start, err)
	}
	record.ID = id

	s.publish(ctx, observer.AnnotationEvent{
		EventType:    observer.AnnotationCreated,
		AnnotationID: id,
		Operation:    "create",
		Duration:     time.Since(start),
		Metadata: map[string]interface{}{
			"box_count":  len(boxes),
			"image_size": len(image),
		},
	})
	return toAnnotation(record), nil
}

func (s *annotationService) GetAll(ctx context.Context) ([]models.Annotation, error) {
	start := time.Now()

	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, s.storageFailure(ctx, "list", 0, start, err)
	}

	annotations := make([]models.Annotation, 0, len(records))
	for _, rec := range records {
		annotations = append(annotations, *toAnnotation(rec))
	}
	return annotations, nil
}

func (s *annotationService) GetOne(ctx context.Context, id int64) (*models.Annotation, error) {
	start := time.Now()

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupFailure(ctx, "get", id, start, err)
	}
	return toAnnotation(record), nil
}

func (s *annotationService) Exists(ctx context.Context, id int64) error {
	_, err := s.GetOne(ctx, id)
	return err
}

func (s *annotationService) Update(ctx context.Context, id int64, input models.AnnotationUpdate) (*models.Annotation, error) {
	start := time.Now()

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, s.lookupFailure(ctx, "update", id, start, err)
	}

	if err := s.requests.Validate(input); err != nil {
		return nil, s.reject(ctx, "update", id, start, err)
	}

	patch := repository.AnnotationPatch{MetaInfo: input.MetaInfo}
	if input.BoundingBoxes != nil {
		patch.BoundingBoxes = models.ToBoxes(input.BoundingBoxes)
		if validation.BoxesOverlap(patch.BoundingBoxes) {
			return nil, s.reject(ctx, "update", id, start, apperrors.NewOverlapError())
		}
	}

	if err := s.repo.Update(ctx, id, patch); err != nil {
		return nil, s.lookupFailure(ctx, "update", id, start, err)
	}

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.lookupFailure(ctx, "update", id, start, err)
	}

	s.publish(ctx, observer.AnnotationEvent{
		EventType:    observer.AnnotationUpdated,
		AnnotationID: id,
		Operation:    "update",
		Duration:     time.Since(start),
		Metadata: map[string]interface{}{
			"boxes_replaced": patch.BoundingBoxes != nil,
			"meta_replaced":  patch.MetaInfo != nil,
		},
	})
	return toAnnotation(record), nil
}

func (s *annotationService) Delete(ctx context.Context, id int64) error {
	start := time.Now()

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.storageFailure(ctx, "delete", id, start, err)
	}
	if !existed {
		return apperrors.NewNotFoundError(repository.ErrAnnotationNotFound)
	}

	s.publish(ctx, observer.AnnotationEvent{
		EventType:    observer.AnnotationDeleted,
		AnnotationID: id,
		Operation:    "delete",
		Duration:     time.Since(start),
	})
	return nil
}

// lookupFailure maps a repository error on an id-addressed call
func (s *annotationService) lookupFailure(ctx context.Context, op string, id int64, start time.Time, err error) error {
	if errors.Is(err, repository.ErrAnnotationNotFound) {
		return apperrors.NewNotFoundError(err)
	}
	return s.storageFailure(ctx, op, id, start, err)
}

func (s *annotationService) storageFailure(ctx context.Context, op string, id int64, start time.Time, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.WithError(err).WithField("operation", op).Debug("Annotation operation abandoned")
		return apperrors.NewStorageError(err)
	}
	s.publish(ctx, observer.AnnotationEvent{
		EventType:    observer.StorageFailed,
		AnnotationID: id,
		Operation:    op,
		Duration:     time.Since(start),
		ErrorMessage: err.Error(),
	})
	return apperrors.NewStorageError(err)
}

// reject records a client-side rejection. The event reason is the validation
// reason, or the error type for decode and request errors.
func (s *annotationService) reject(ctx context.Context, op string, id int64, start time.Time, err error) error {
	var appErr *apperrors.AppError
	reason := string(apperrors.ErrorTypeRequest)
	if errors.As(err, &appErr) {
		reason = appErr.Reason
		if reason == "" {
			reason = string(appErr.Type)
		}
	}
	s.publish(ctx, observer.AnnotationEvent{
		EventType:    observer.AnnotationRejected,
		AnnotationID: id,
		Operation:    op,
		Reason:       reason,
		Duration:     time.Since(start),
		ErrorMessage: apperrors.GetMessage(err),
	})
	return err
}

func (s *annotationService) publish(ctx context.Context, event observer.AnnotationEvent) {
	if s.events == nil {
		logger.WithFields(logrus.Fields{
			"event_type":    event.EventType,
			"annotation_id": event.AnnotationID,
		}).Debug("Annotation event dropped, no publisher configured")
		return
	}
	s.events.NotifyObservers(ctx, event)
}

func toAnnotation(record *repository.AnnotationRecord) *models.Annotation {
	boxes := record.BoundingBoxes
	if boxes == nil {
		boxes = []models.BoundingBox{}
	}
	return &models.Annotation{
		ID:            record.ID,
		ImageData:     base64.StdEncoding.EncodeToString(record.ImageData),
		BoundingBoxes: boxes,
		MetaInfo:      record.MetaInfo,
	}
}
