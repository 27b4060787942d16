package transport

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/anime-shed/image-annotator-go/internal/config"
	apperrors "github.com/anime-shed/image-annotator-go/internal/errors"
	"github.com/anime-shed/image-annotator-go/internal/logger"
	"github.com/anime-shed/image-annotator-go/internal/service"
	"github.com/anime-shed/image-annotator-go/pkg/models"
)

const (
	version = "1.0.0"

	messageDeleted     = "annotation deleted"
	messageInvalidID   = "id: value is not a valid integer"
	messageInvalidBody = "request body is not valid JSON for this endpoint"
	messageBodyTooBig  = "request body too large"
)

type handler struct {
	svc     service.AnnotationService
	timeout time.Duration
}

// NewHandler builds the gin engine. Collectors are registered on reg and
// served from /metrics. Background work such as limiter cleanup stops when
// ctx is done.
func NewHandler(ctx context.Context, svc service.AnnotationService, cfg *config.Config, reg *prometheus.Registry) (http.Handler, error) {
	metrics, err := newHTTPMetrics(reg)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(),
		metrics.middleware(),
		corsMiddleware(cfg.CORS.AllowOrigins),
	)
	if cfg.RateLimit.RPS > 0 {
		store := newLimiterStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		store.startJanitor(ctx)
		r.Use(rateLimiter(store))
	}
	r.Use(requestSizeLimiter(cfg.MaxRequestBodySize))

	h := &handler{svc: svc, timeout: cfg.RequestTimeout}

	r.GET("/", root)
	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	api := r.Group("/api/annotations")
	api.POST("/", h.createAnnotation)
	api.GET("/", h.listAnnotations)
	api.GET("/:id", h.getAnnotation)
	api.PUT("/:id", h.updateAnnotation)
	api.DELETE("/:id", h.deleteAnnotation)

	return r, nil
}

func root(c *gin.Context) {
	c.JSON(http.StatusOK, models.MessageResponse{Message: "hello world"})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "available",
		Version: version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func (h *handler) createAnnotation(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	var req models.AnnotationCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := h.svc.Create(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (h *handler) listAnnotations(c *gin.Context) {
	ctx, cancel := h.context(c)
	defer cancel()

	annotations, err := h.svc.GetAll(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, annotations)
}

func (h *handler) getAnnotation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	annotation, err := h.svc.GetOne(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, annotation)
}

func (h *handler) updateAnnotation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	var req models.AnnotationUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		// a missing id outranks a malformed body
		if existsErr := h.svc.Exists(ctx, id); existsErr != nil {
			respondError(c, existsErr)
			return
		}
		respondBindError(c, err)
		return
	}

	updated, err := h.svc.Update(ctx, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *handler) deleteAnnotation(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DetailResponse{Detail: messageDeleted})
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, apperrors.NewRequestError(messageInvalidID, err))
		return 0, false
	}
	return id, true
}

func respondBindError(c *gin.Context, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		logger.WithField("limit", tooBig.Limit).Warn("Request body exceeded limit")
		abortWithDetail(c, http.StatusRequestEntityTooLarge, messageBodyTooBig)
		return
	}
	respondError(c, apperrors.NewRequestError(messageInvalidBody, err))
}

func respondError(c *gin.Context, err error) {
	code := apperrors.GetStatusCode(err)
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	abortWithDetail(c, code, apperrors.GetMessage(err))
}

func abortWithDetail(c *gin.Context, code int, detail string) {
	c.AbortWithStatusJSON(code, models.DetailResponse{Detail: detail})
}
