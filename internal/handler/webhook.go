package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"blog-sync/internal/auth"
	"blog-sync/internal/event"
	"blog-sync/internal/github"
	"blog-sync/internal/metrics"
	"blog-sync/internal/middleware"
	"blog-sync/internal/model"
)

const eventHeader = "X-GitHub-Event"

type DiscussionSyncer interface {
	SyncDiscussion(ctx context.Context, discussionID, rawTitle string) (model.DiscussionRecord, error)
}

type Revalidation interface {
	NotifyAsync(slug string)
}

// WebhookHandler routes GitHub deliveries. Discussion creation triggers a
// title/body sync; comment activity only asks the website to revalidate.
type WebhookHandler struct {
	Syncer   DiscussionSyncer
	Notifier Revalidation
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	if c.ContentType() != "application/json" {
		c.String(http.StatusBadRequest, "Invalid content type")
		return
	}

	body, ok := middleware.RawBody(c)
	if !ok {
		var err error
		if body, err = io.ReadAll(c.Request.Body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	name := c.GetHeader(eventHeader)
	ev, err := event.Decode(name, body)
	if err != nil {
		h.count(name, "", "malformed")
		h.Logger.Warn("malformed webhook", zap.String("event", name), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch {
	case ev.Kind == event.KindPing:
		h.count(name, "", "ping")
		c.String(http.StatusOK, "pong")
	case ev.Kind == event.KindDiscussion && needsSync(ev):
		h.sync(c, ev)
	case ev.Kind == event.KindDiscussionComment:
		h.Notifier.NotifyAsync(github.Slug(github.CanonicalTitle(ev.Discussion.Title)))
		h.count(name, ev.Action, "revalidate")
		c.String(http.StatusOK, "Revalidation scheduled")
	default:
		h.count(name, ev.Action, "ignored")
		c.String(http.StatusOK, "Event not handled")
	}
}

// needsSync is true for new discussions and for edits that dropped the locale
// prefix. Our own update arrives as an edit that already has it.
func needsSync(ev event.Event) bool {
	switch ev.Action {
	case event.ActionCreated:
		return true
	case event.ActionEdited:
		return !strings.HasPrefix(ev.Discussion.Title, github.LocalePrefix)
	default:
		return false
	}
}

func (h *WebhookHandler) sync(c *gin.Context, ev event.Event) {
	d := ev.Discussion
	rec, err := h.Syncer.SyncDiscussion(c.Request.Context(), d.NodeID, d.Title)
	if err != nil {
		h.count(ev.Name, ev.Action, "failed")
		h.Logger.Error("discussion sync failed",
			zap.String("discussionID", d.NodeID),
			zap.String("title", d.Title),
			zap.Error(err),
		)
		_ = c.Error(err)
		status, msg := syncFailure(err)
		c.String(status, "Failed: "+msg)
		return
	}

	h.Logger.Info("discussion synced",
		zap.String("discussionID", rec.ID),
		zap.String("title", rec.Title),
	)
	h.count(ev.Name, ev.Action, "synced")
	h.Notifier.NotifyAsync(github.Slug(rec.Title))
	c.String(http.StatusOK, "Discussion title processed")
}

func syncFailure(err error) (int, string) {
	var (
		resErr  *github.AuthResolutionError
		credErr *auth.CredentialError
		syncErr *github.SyncError
	)
	switch {
	case errors.As(err, &resErr):
		if resErr.Status >= 400 {
			return resErr.Status, resErr.Body
		}
		return http.StatusBadGateway, resErr.Body
	case errors.As(err, &credErr):
		return http.StatusInternalServerError, "invalid app credentials"
	case errors.As(err, &syncErr):
		return http.StatusBadGateway, "discussion update failed"
	default:
		return http.StatusBadGateway, "installation lookup failed"
	}
}

func (h *WebhookHandler) count(name, action, outcome string) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.WebhookEvents.WithLabelValues(name, action, outcome).Inc()
}
