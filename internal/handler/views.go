package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blog-sync/internal/metrics"
	"blog-sync/internal/model"
	"blog-sync/internal/store"
)

type ViewHandler struct {
	Store   store.ViewStore
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type incrementBody struct {
	Slug string `json:"slug"`
}

type metadataBody struct {
	Slugs []string `json:"slugs"`
}

// Increment handles POST /api/post/increment[/:slug].
func (h *ViewHandler) Increment(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		var body incrementBody
		if err := c.ShouldBindJSON(&body); err == nil {
			slug = body.Slug
		}
	}
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "slug is missing"})
		return
	}

	rec, err := h.Store.IncrementOrCreate(c.Request.Context(), slug)
	if err != nil {
		h.Logger.Error("increment failed", zap.String("slug", slug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to record view"})
		return
	}

	if h.Metrics != nil {
		h.Metrics.ViewIncrement.Inc()
	}
	h.Logger.Info("post viewed", zap.String("slug", rec.Slug), zap.Int64("view", rec.View))
	c.JSON(http.StatusOK, gin.H{"data": []model.ViewRecord{rec}})
}

// Metadata handles POST /api/post with {"slugs": [...]}.
func (h *ViewHandler) Metadata(c *gin.Context) {
	var body metadataBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Slugs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "`slugs` cannot be empty"})
		return
	}

	recs, err := h.Store.GetOrCreateMany(c.Request.Context(), body.Slugs)
	if errors.Is(err, store.ErrEmptySlug) {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Error("post metadata failed", zap.Int("slugs", len(body.Slugs)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to load views"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recs})
}
