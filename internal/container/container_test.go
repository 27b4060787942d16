package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/anime-shed/image-annotator-go/internal/config"
	"github.com/anime-shed/image-annotator-go/pkg/models"
)

func TestNewContainer_SQLiteWithBlobStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := config.Defaults()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = filepath.Join(t.TempDir(), "annotations.db")
	cfg.ImageStore.Type = config.ImageStoreMemory

	c, err := NewContainer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	defer c.Close()

	if c.Config() != cfg {
		t.Error("Expected container to keep the given config")
	}

	image := "aGVsbG8="
	meta := "wired"
	created, err := c.Service().Create(context.Background(), models.AnnotationCreate{
		ImageData:     &image,
		BoundingBoxes: []models.BoundingBoxInput{models.NewBoxInput(0, 0, 5, 5, 0)},
		MetaInfo:      &meta,
	})
	if err != nil {
		t.Fatalf("Expected create through the container to succeed, got: %v", err)
	}
	fetched, err := c.Service().GetOne(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Expected stored annotation, got: %v", err)
	}
	if fetched.ImageData != image {
		t.Errorf("Expected image round trip through blob store, got %q", fetched.ImageData)
	}

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 from /metrics, got %d", w.Code)
	}
	// observer goroutines may still be running
	c.publisher.Wait()

	w = httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), `annotator_annotations_events_total{reason="",type="annotation_created"} 1`) {
		t.Errorf("Expected annotation event counter, got:\n%s", w.Body.String())
	}
}

func TestNewContainer_BadDriver(t *testing.T) {
	cfg := config.Defaults()
	cfg.Database.Driver = "oracle"

	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for unsupported driver")
	}
}
