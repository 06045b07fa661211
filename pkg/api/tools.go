package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/history"
	"github.com/yourorg/pdf-toolkit/pkg/httpservice"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/middleware"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// ToolsHandler serves the tool catalog and runs tools synchronously.
type ToolsHandler struct {
	proc    *processor.Processor
	history history.Store
}

// NewToolsHandler returns a ToolsHandler. Runs are recorded in store when it
// is not nil.
func NewToolsHandler(proc *processor.Processor, store history.Store) *ToolsHandler {
	return &ToolsHandler{proc: proc, history: store}
}

// Register implements httpservice.Handler.
func (h *ToolsHandler) Register(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/tools", httpservice.Wrap("tools.list", h.list))
		api.GET("/tools/:slug", httpservice.Wrap("tools.get", h.get))
		api.POST("/tools/:slug", httpservice.Wrap("tools.run", h.run))
		api.GET("/categories", httpservice.Wrap("tools.categories", h.categories))
	}
}

func (h *ToolsHandler) list(c *gin.Context) error {
	category := c.Query("category")
	tools := make([]processor.ToolInfo, 0, len(processor.Catalog()))
	for _, t := range processor.Catalog() {
		if category == "" || t.Category == category {
			tools = append(tools, t)
		}
	}
	httpservice.SuccessResponse(c, tools)
	return nil
}

func (h *ToolsHandler) get(c *gin.Context) error {
	tool, ok := processor.Lookup(c.Param("slug"))
	if !ok {
		return errors.NewNotFoundError("tool " + c.Param("slug") + " not found")
	}
	httpservice.SuccessResponse(c, tool)
	return nil
}

func (h *ToolsHandler) categories(c *gin.Context) error {
	httpservice.SuccessResponse(c, processor.Categories())
	return nil
}

func (h *ToolsHandler) run(c *gin.Context) error {
	tool, ok := processor.Lookup(c.Param("slug"))
	if !ok {
		return errors.NewNotFoundError("tool " + c.Param("slug") + " not found")
	}

	files, err := readFiles(c)
	if err != nil {
		return err
	}
	params, err := bindParams(c)
	if err != nil {
		return err
	}

	req := processor.Request{Tool: tool.Slug, Files: files, Params: params, Source: "http"}
	res, runErr := h.proc.Run(c.Request.Context(), req)
	h.record(c, req, res, runErr)
	if runErr != nil {
		return runErr
	}

	switch tool.Slug {
	case processor.ToolMetadata, processor.ToolOCR:
		httpservice.SuccessResponse(c, res)
		return nil
	}
	return writeFiles(c, res)
}

func (h *ToolsHandler) record(c *gin.Context, req processor.Request, res *processor.Result, runErr error) {
	if h.history == nil || len(req.Files) == 0 || c.Request.Context().Err() != nil {
		return
	}
	owner := middleware.GetOwnerFromGin(c)
	if _, err := h.history.Add(c.Request.Context(), processor.HistoryEntry(owner, req, res, runErr)); err != nil {
		httpservice.GetLogger(c).Warn("Failed to record history", logging.NewField("error", err))
	}
}
