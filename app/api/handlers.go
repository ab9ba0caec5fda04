package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rss-sentry/app/database"
	"github.com/lysyi3m/rss-sentry/app/feed"
	"github.com/lysyi3m/rss-sentry/app/proxy"
	"github.com/lysyi3m/rss-sentry/app/syncer"
)

func NewHandler(feedRepo database.FeedStore, articleRepo database.ArticleStore,
	feedGuard FeedGuard, feedSyncer FeedSyncer, images ImageFetcher) *Handler {
	return &Handler{
		feedRepo:    feedRepo,
		articleRepo: articleRepo,
		guard:       feedGuard,
		syncer:      feedSyncer,
		images:      images,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"dns_cache": h.guard.CacheLen(),
	}

	if feedCount, err := h.feedRepo.GetFeedCount(); err == nil {
		health["feeds"] = feedCount
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.GetFeeds()
	if err != nil {
		slog.Error("Database error", "operation", "get_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	result := make([]feedResponse, 0, len(feeds))
	for _, f := range feeds {
		resp := toFeedResponse(f)
		if count, err := h.articleRepo.GetArticleCount(f.ID); err == nil {
			resp.ArticleCount = &count
		}
		result = append(result, resp)
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": result,
		"total": len(result),
	})
}

// APIAddFeed registers a feed after checking its URL with the permissive
// policy. A warning from the check is returned to the caller.
func (h *Handler) APIAddFeed(c *gin.Context) {
	var req addFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be JSON with a url field"})
		return
	}

	url := strings.TrimSpace(req.URL)

	verdict := h.guard.ValidateForFeed(c.Request.Context(), url)
	if !verdict.Safe {
		slog.Warn("Feed URL rejected", "url", url, "reason", verdict.Reason)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"reason": verdict.Reason})
		return
	}
	if verdict.Warning != "" {
		slog.Warn("Feed URL allowed with warning", "url", url, "warning", verdict.Warning)
	}

	f, created, err := h.feedRepo.AddFeed(url, strings.TrimSpace(req.Title))
	if err != nil {
		slog.Error("Database error", "operation", "add_feed", "url", url, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}

	response := gin.H{"feed": toFeedResponse(*f)}
	if verdict.Warning != "" {
		response["warning"] = verdict.Warning
	}

	c.JSON(status, response)
}

// APISyncFeeds streams batch progress as newline-delimited JSON.
func (h *Handler) APISyncFeeds(c *gin.Context) {
	targets, err := h.feedRepo.ListTargets()
	if err != nil {
		slog.Error("Database error", "operation", "list_targets", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	events := h.syncer.SyncAll(c.Request.Context(), targets)

	c.Header("Content-Type", "application/x-ndjson")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)

	encoder := json.NewEncoder(c.Writer)
	for progress := range events {
		if err := encoder.Encode(progress); err != nil {
			slog.Debug("Sync stream closed by client", "error", err)
			return
		}
		c.Writer.Flush()
	}
}

func (h *Handler) APISyncFeed(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feed id"})
		return
	}

	f, err := h.feedRepo.GetFeed(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "feed_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if f == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}

	outcome, err := h.syncer.SyncOne(c.Request.Context(), feed.Target{ID: f.ID, URL: f.URL})
	if err != nil {
		slog.Warn("Feed sync failed", "feed_id", f.ID, "url", f.URL, "error", err)

		// Details stay in the log; they can describe the internal network.
		if errors.Is(err, syncer.ErrUnsafeTarget) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Feed URL rejected"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Feed sync failed"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) APIImageProxy(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.String(http.StatusBadRequest, "missing url")
		return
	}

	img, err := h.images.Fetch(c.Request.Context(), rawURL)
	if err != nil {
		switch {
		case errors.Is(err, proxy.ErrBlocked):
			c.String(http.StatusForbidden, "blocked")
		case errors.Is(err, proxy.ErrNotImage):
			c.String(http.StatusUnsupportedMediaType, "not an image")
		case errors.Is(err, proxy.ErrTooLarge):
			c.String(http.StatusRequestEntityTooLarge, "image too large")
		default:
			slog.Warn("Image proxy failed", "url", rawURL, "error", err)
			c.String(http.StatusBadGateway, "upstream error")
		}
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

func toFeedResponse(f database.Feed) feedResponse {
	return feedResponse{
		ID:           f.ID,
		URL:          f.URL,
		Title:        f.Title,
		CreatedAt:    f.CreatedAt,
		LastSyncedAt: f.LastSyncedAt,
	}
}
