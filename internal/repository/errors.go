package repository

import "errors"

var (
	// ErrAnnotationNotFound indicates no annotation exists with the requested id
	ErrAnnotationNotFound = errors.New("annotation not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
