package httpapi

import (
	"net/http"

	"github.com/Shurtu-gal/studio/internal/manager"
	"github.com/Shurtu-gal/studio/internal/settings"

	"github.com/gin-gonic/gin"
)

type handlers struct {
	ws Workspace
}

type resourceSummary struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Language string `json:"language"`
	Origin   string `json:"origin"`
	Version  int    `json:"version"`
}

func (h *handlers) resources(c *gin.Context) {
	list, err := h.ws.Resources(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	result := make([]resourceSummary, 0, len(list))
	for _, res := range list {
		result = append(result, resourceSummary{
			ID:       res.ID,
			URI:      res.URI,
			Language: res.Language,
			Origin:   string(res.Origin),
			Version:  res.Version,
		})
	}
	c.JSON(http.StatusOK, gin.H{"resources": result})
}

func requireID(c *gin.Context) (string, bool) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id missing"})
		return "", false
	}
	return id, true
}

func (h *handlers) content(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	content, err := h.ws.Content(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "content": content})
}

func (h *handlers) importDocument(c *gin.Context) {
	var req manager.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.ws.Import(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *handlers) diff(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	patch, err := h.ws.Diff(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "patch": patch, "changed": patch != ""})
}

func (h *handlers) save(c *gin.Context) {
	id, ok := requireID(c)
	if !ok {
		return
	}
	if err := h.ws.Save(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.ws.Settings())
}

// putSettings overlays the request body onto the current settings.
func (h *handlers) putSettings(c *gin.Context) {
	next, err := settings.Decode(h.ws.Settings(), c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.ws.ApplySettings(next)
	c.JSON(http.StatusOK, next)
}
