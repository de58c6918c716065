// Package httpapi exposes the workspace over HTTP for browser clients.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Shurtu-gal/studio/internal/importer"
	"github.com/Shurtu-gal/studio/internal/manager"
	"github.com/Shurtu-gal/studio/internal/registry"
	"github.com/Shurtu-gal/studio/internal/settings"

	"github.com/gin-gonic/gin"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("studio.httpapi")

// Workspace is the part of the document manager the API serves.
type Workspace interface {
	Resources(ctx context.Context) ([]registry.Resource, error)
	Content(ctx context.Context, id string) (string, error)
	Import(ctx context.Context, req manager.ImportRequest) (importer.Result, error)
	Diff(ctx context.Context, id string) (string, error)
	Save(ctx context.Context, id string) error
	Settings() settings.Settings
	ApplySettings(next settings.Settings)
}

// NewRouter builds the API routes. problems may be nil.
func NewRouter(ws Workspace, problems http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ts": time.Now().Unix()})
	})

	h := &handlers{ws: ws}
	api := r.Group("/api")
	api.GET("/resources", h.resources)
	api.GET("/resources/content", h.content)
	api.POST("/import", h.importDocument)
	api.GET("/diff", h.diff)
	api.POST("/save", h.save)
	api.GET("/settings", h.getSettings)
	api.PUT("/settings", h.putSettings)
	if problems != nil {
		api.GET("/problems", gin.WrapH(problems))
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// status maps workspace errors onto HTTP status codes.
func status(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrNoSource),
		errors.Is(err, importer.ErrEmpty),
		errors.Is(err, importer.ErrTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, importer.ErrStatus):
		return http.StatusBadGateway
	case errors.Is(err, manager.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	code := status(err)
	if code >= http.StatusInternalServerError {
		log.Errorf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
