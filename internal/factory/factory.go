package factory

import (
	"context"
	"fmt"

	"github.com/anime-shed/image-annotator-go/internal/config"
	"github.com/anime-shed/image-annotator-go/internal/logger"
	"github.com/anime-shed/image-annotator-go/internal/repository"
	"github.com/anime-shed/image-annotator-go/internal/storage"

	"github.com/sirupsen/logrus"
)

// RepositoryFactory creates annotation repositories
type RepositoryFactory interface {
	CreateRepository(ctx context.Context, cfg config.DatabaseConfig, dsn string, debug bool) (repository.AnnotationRepository, error)
}

// StorageFactory creates blob storage implementations
type StorageFactory interface {
	CreateStorage(ctx context.Context, cfg config.ImageStoreConfig) (storage.BlobStorage, error)
}

// repositoryFactory implements RepositoryFactory
type repositoryFactory struct{}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory() RepositoryFactory {
	return &repositoryFactory{}
}

// CreateRepository creates a repository based on the configured driver
func (f *repositoryFactory) CreateRepository(ctx context.Context, cfg config.DatabaseConfig, dsn string, debug bool) (repository.AnnotationRepository, error) {
	opts := repository.SQLOptions{MaxOpenConns: cfg.MaxOpenConns, Debug: debug}

	switch cfg.Driver {
	case config.DriverPostgres:
		logger.WithFields(logrus.Fields{
			"host":     cfg.Host,
			"port":     cfg.Port,
			"database": cfg.Name,
		}).Info("Connecting to postgres")
		return repository.NewPostgresAnnotationRepository(ctx, dsn, opts)
	case config.DriverSQLite:
		logger.WithField("path", cfg.Path).Info("Opening sqlite database")
		return repository.NewSQLiteAnnotationRepository(ctx, cfg.Path, opts)
	case config.DriverMemory:
		logger.Warn("Using in-memory annotation store, data is lost on restart")
		return repository.NewMemoryAnnotationRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// storageFactory implements StorageFactory
type storageFactory struct{}

// NewStorageFactory creates a new storage factory
func NewStorageFactory() StorageFactory {
	return &storageFactory{}
}

// CreateStorage creates a blob store based on the configured type. It returns
// nil for the database type, where images stay in the annotation rows.
func (f *storageFactory) CreateStorage(ctx context.Context, cfg config.ImageStoreConfig) (storage.BlobStorage, error) {
	switch cfg.Type {
	case config.ImageStoreDatabase, "":
		return nil, nil
	case config.ImageStoreAzure:
		bs, err := storage.NewAzureStorage(cfg.Azure.AccountName, cfg.Azure.AccountKey, cfg.Azure.Container)
		if err != nil {
			return nil, err
		}
		if err := storage.EnsureContainer(ctx, bs); err != nil {
			return nil, fmt.Errorf("prepare azure container %s: %w", cfg.Azure.Container, err)
		}
		return bs, nil
	case config.ImageStoreS3:
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	case config.ImageStoreMemory:
		return storage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported image store type: %s", cfg.Type)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	RepositoryFactory RepositoryFactory
	StorageFactory    StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory() *ComponentFactory {
	return &ComponentFactory{
		RepositoryFactory: NewRepositoryFactory(),
		StorageFactory:    NewStorageFactory(),
	}
}

// BuildRepository creates the configured repository and, when images live
// outside the database, wraps it so image bytes go to the blob store.
func (f *ComponentFactory) BuildRepository(ctx context.Context, cfg *config.Config) (repository.AnnotationRepository, error) {
	repo, err := f.RepositoryFactory.CreateRepository(ctx, cfg.Database, cfg.DSN(), cfg.Debug)
	if err != nil {
		return nil, err
	}

	blobs, err := f.StorageFactory.CreateStorage(ctx, cfg.ImageStore)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	if blobs == nil {
		return repo, nil
	}

	logger.WithField("image_store", cfg.ImageStore.Type).Info("Storing annotation images in blob storage")
	return repository.NewBlobAnnotationRepository(repo, blobs), nil
}
