package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/pdf-toolkit/pkg/csvutil"
	"github.com/yourorg/pdf-toolkit/pkg/history"
	"github.com/yourorg/pdf-toolkit/pkg/httpservice"
	"github.com/yourorg/pdf-toolkit/pkg/middleware"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// HistoryHandler serves the caller's processing history.
type HistoryHandler struct {
	store history.Store
}

// NewHistoryHandler returns a HistoryHandler.
func NewHistoryHandler(store history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// Register implements httpservice.Handler.
func (h *HistoryHandler) Register(router *gin.Engine) {
	api := router.Group("/api/v1/history")
	{
		api.GET("", httpservice.Wrap("history.list", h.list))
		api.GET("/stats", httpservice.Wrap("history.stats", h.stats))
		api.GET("/export", httpservice.Wrap("history.export", h.export))
		api.GET("/:id", httpservice.Wrap("history.get", h.get))
		api.DELETE("/:id", httpservice.Wrap("history.remove", h.remove))
		api.DELETE("", httpservice.Wrap("history.clear", h.clear))
	}
}

func (h *HistoryHandler) list(c *gin.Context) error {
	var f history.Filter
	if err := httpservice.ValidateQuery(c, &f); err != nil {
		return err
	}
	entries, err := h.store.List(c.Request.Context(), middleware.GetOwnerFromGin(c), f)
	if err != nil {
		return err
	}
	httpservice.SuccessResponse(c, entries)
	return nil
}

func (h *HistoryHandler) stats(c *gin.Context) error {
	stats, err := h.store.Stats(c.Request.Context(), middleware.GetOwnerFromGin(c))
	if err != nil {
		return err
	}
	httpservice.SuccessResponse(c, stats)
	return nil
}

func (h *HistoryHandler) get(c *gin.Context) error {
	entry, err := h.store.Get(c.Request.Context(), middleware.GetOwnerFromGin(c), c.Param("id"))
	if err != nil {
		return err
	}
	httpservice.SuccessResponse(c, entry)
	return nil
}

func (h *HistoryHandler) remove(c *gin.Context) error {
	if err := h.store.Remove(c.Request.Context(), middleware.GetOwnerFromGin(c), c.Param("id")); err != nil {
		return err
	}
	c.Status(http.StatusNoContent)
	return nil
}

func (h *HistoryHandler) clear(c *gin.Context) error {
	n, err := h.store.Clear(c.Request.Context(), middleware.GetOwnerFromGin(c))
	if err != nil {
		return err
	}
	httpservice.SuccessResponse(c, gin.H{"removed": n})
	return nil
}

var exportHeaders = []string{
	"id", "fileName", "tool", "toolName", "processedAt",
	"originalSize", "resultSize", "status", "errorMessage",
}

// export writes the filtered history as CSV.
func (h *HistoryHandler) export(c *gin.Context) error {
	var f history.Filter
	if err := httpservice.ValidateQuery(c, &f); err != nil {
		return err
	}
	entries, err := h.store.List(c.Request.Context(), middleware.GetOwnerFromGin(c), f)
	if err != nil {
		return err
	}

	table := &csvutil.Table{Headers: exportHeaders, Rows: make([][]string, 0, len(entries))}
	for _, e := range entries {
		table.Rows = append(table.Rows, []string{
			e.ID,
			e.FileName,
			e.Tool,
			e.ToolName,
			e.ProcessedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.OriginalSize, 10),
			strconv.FormatInt(e.ResultSize, 10),
			string(e.Status),
			e.ErrorMessage,
		})
	}

	var buf bytes.Buffer
	if err := csvutil.NewWriter(&buf, csvutil.WithFormulaEscaping()).WriteTable(table); err != nil {
		return err
	}
	c.Header("Content-Disposition", attachment(processor.UniqueFilename("history", "csv")))
	c.Data(http.StatusOK, processor.ContentTypeCSV, buf.Bytes())
	return nil
}
