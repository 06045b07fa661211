package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/pdf-toolkit/pkg/batch"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/httpservice"
	"github.com/yourorg/pdf-toolkit/pkg/middleware"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// JobsHandler queues tools for asynchronous runs.
type JobsHandler struct {
	submitter *batch.Submitter
}

// NewJobsHandler returns a JobsHandler.
func NewJobsHandler(submitter *batch.Submitter) *JobsHandler {
	return &JobsHandler{submitter: submitter}
}

// Register implements httpservice.Handler.
func (h *JobsHandler) Register(router *gin.Engine) {
	api := router.Group("/api/v1/jobs")
	{
		api.POST("", httpservice.Wrap("jobs.submit", h.submit))
		api.GET("", httpservice.Wrap("jobs.list", h.list))
		api.GET("/:id", httpservice.Wrap("jobs.get", h.get))
		api.GET("/:id/outputs/:name", httpservice.Wrap("jobs.download", h.download))
	}
}

type submitForm struct {
	Tool string `form:"tool" validate:"required"`
}

func (h *JobsHandler) submit(c *gin.Context) error {
	var form submitForm
	if err := httpservice.ValidateRequest(c, &form); err != nil {
		return err
	}
	files, err := readFiles(c)
	if err != nil {
		return err
	}
	params, err := bindParams(c)
	if err != nil {
		return err
	}

	job, err := h.submitter.Submit(c.Request.Context(), middleware.GetOwnerFromGin(c), processor.Request{
		Tool:   form.Tool,
		Files:  files,
		Params: params,
		Source: "job",
	})
	if err != nil {
		return err
	}
	c.Header("Location", "/api/v1/jobs/"+job.ID)
	httpservice.AcceptedResponse(c, job)
	return nil
}

func (h *JobsHandler) list(c *gin.Context) error {
	jobs, err := h.submitter.List(c.Request.Context(), middleware.GetOwnerFromGin(c))
	if err != nil {
		return err
	}
	httpservice.SuccessResponse(c, jobs)
	return nil
}

func (h *JobsHandler) get(c *gin.Context) error {
	job, err := h.submitter.Get(c.Request.Context(), middleware.GetOwnerFromGin(c), c.Param("id"))
	if err != nil {
		return err
	}
	httpservice.SuccessResponse(c, job)
	return nil
}

func (h *JobsHandler) download(c *gin.Context) error {
	name := c.Param("name")
	if name == "" {
		return errors.NewValidationError("output name is required")
	}
	ref, data, err := h.submitter.Download(c.Request.Context(), middleware.GetOwnerFromGin(c), c.Param("id"), name)
	if err != nil {
		return err
	}
	c.Header("Content-Disposition", attachment(ref.Name))
	c.Data(http.StatusOK, ref.ContentType, data)
	return nil
}
