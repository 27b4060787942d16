package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/anime-shed/image-annotator-go/internal/config"
	"github.com/anime-shed/image-annotator-go/internal/factory"
	"github.com/anime-shed/image-annotator-go/internal/logger"
	"github.com/anime-shed/image-annotator-go/internal/observer"
	"github.com/anime-shed/image-annotator-go/internal/repository"
	"github.com/anime-shed/image-annotator-go/internal/service"
	"github.com/anime-shed/image-annotator-go/internal/transport"
	"github.com/anime-shed/image-annotator-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	registry          *prometheus.Registry
	publisher         *observer.EventPublisher
	repository        repository.AnnotationRepository
	annotationService service.AnnotationService
	handler           http.Handler
	cancel            context.CancelFunc
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	return NewContainerWithFactory(ctx, cfg, factory.NewComponentFactory())
}

// NewContainerWithFactory builds the dependency graph using the given factories
func NewContainerWithFactory(ctx context.Context, cfg *config.Config, components *factory.ComponentFactory) (*Container, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	metricsObserver, err := observer.NewMetricsObserver(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	publisher.Subscribe(metricsObserver)

	repo, err := components.BuildRepository(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}

	annotationService := service.NewAnnotationService(repo, validation.NewSizeGuard(cfg.MaxImageSizeMB), publisher)

	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	handler, err := transport.NewHandler(bgCtx, annotationService, cfg, registry)
	if err != nil {
		cancel()
		_ = repo.Close()
		return nil, fmt.Errorf("failed to build handler: %w", err)
	}

	return &Container{
		config:            cfg,
		registry:          registry,
		publisher:         publisher,
		repository:        repo,
		annotationService: annotationService,
		handler:           handler,
		cancel:            cancel,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the annotation service
func (c *Container) Service() service.AnnotationService {
	return c.annotationService
}

// Close stops background work, drains pending events and releases the store
func (c *Container) Close() error {
	c.cancel()
	c.publisher.Wait()
	return c.repository.Close()
}
