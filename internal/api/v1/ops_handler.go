package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/topmuch/qrsell-sub001/internal/api/response"
	loggerpkg "github.com/topmuch/qrsell-sub001/pkg/logger"
)

// ReadinessCheck reports whether a backing dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

type OpsHandler struct {
	logStore *loggerpkg.SystemLogStore
	ready    ReadinessCheck
	version  string
}

func NewOpsHandler(logStore *loggerpkg.SystemLogStore, ready ReadinessCheck, version string) *OpsHandler {
	return &OpsHandler{logStore: logStore, ready: ready, version: version}
}

func RegisterHealthRoutes(router gin.IRoutes, handler *OpsHandler) {
	router.GET("/health", handler.Health)
	router.GET("/health/ready", handler.Ready)
}

func RegisterOpsRoutes(internal gin.IRoutes, handler *OpsHandler) {
	internal.GET("/logs", handler.QueryLogs)
}

func (h *OpsHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok", "version": h.version})
}

func (h *OpsHandler) Ready(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "not ready")
			return
		}
	}
	response.Success(c, gin.H{"status": "ready"})
}

func (h *OpsHandler) QueryLogs(c *gin.Context) {
	if h.logStore == nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal, "log service unavailable")
		return
	}

	page := parseIntOrDefault(c.Query("page"), 1)
	pageSize := parseIntOrDefault(c.Query("page_size"), 20)

	from, err := parseQueryTime(c.Query("from"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid from")
		return
	}
	to, err := parseQueryTime(c.Query("to"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidRequest, "invalid to")
		return
	}

	items, total := h.logStore.QueryLogs(loggerpkg.LogQuery{
		Level:    strings.TrimSpace(c.Query("level")),
		From:     from,
		To:       to,
		Keyword:  strings.TrimSpace(c.Query("keyword")),
		Page:     page,
		PageSize: pageSize,
	})
	response.Paginated(c, items, page, pageSize, total)
}
