package api

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/planetfeed/planetfeed/app/store"
)

type Handler struct {
	entryStore *store.Store
	outputFile string
	version    string
	startedAt  time.Time
}

func NewHandler(entryStore *store.Store, outputFile, version string) *Handler {
	return &Handler{
		entryStore: entryStore,
		outputFile: outputFile,
		version:    version,
		startedAt:  time.Now(),
	}
}

// GetFeed serves the rendered RSS document.
func (h *Handler) GetFeed(c *gin.Context) {
	data, err := os.ReadFile(h.outputFile)
	if err != nil {
		slog.Error("Rendered feed not available", "file", h.outputFile, "error", err)
		c.Status(http.StatusServiceUnavailable)
		return
	}

	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", data)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.startedAt).String(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.entryStore.Stats()
	if err != nil {
		slog.Error("Failed to collect store stats", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	total := 0
	for _, count := range stats {
		total += count
	}

	c.JSON(http.StatusOK, gin.H{
		"total_entries": total,
		"sources":       stats,
	})
}
