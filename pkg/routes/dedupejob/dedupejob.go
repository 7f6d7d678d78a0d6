// Package dedupejob exposes the deduplication job API
package dedupejob

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/stem/pkg/context"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/internal/repositories/dedupejob"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/processor"
)

var validate = validator.New()

// Register registers dedupe job routes
func Register(g *echo.Group) {
	g.POST("", CreateJob)
	g.GET("", ListJobs)
	g.GET("/:id", GetJob)
	g.POST("/preview", PreviewJob)
}

// CreateJob starts a new dedupe job
func CreateJob(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req models.CreateDedupeJobRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}

	ctx, proc, err := ectoinject.GetContext[*processor.DedupeProcessor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	job, err := proc.StartJob(ctx, tenantID, *req.ToConfig())
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "failed to start job: %v", err)
	}

	return c.JSON(http.StatusAccepted, job)
}

// GetJob returns a job's current state
func GetJob(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	ctx, repo, err := ectoinject.GetContext[*dedupejob.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	job, err := repo.Get(ctx, tenantID, c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, job)
}

// ListJobs lists the tenant's jobs, newest first
func ListJobs(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx, repo, err := ectoinject.GetContext[*dedupejob.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	jobs, err := repo.List(ctx, tenantID, limit, offset)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, jobs)
}

// PreviewRequest is the request body for a dry-run preview
type PreviewRequest struct {
	models.CreateDedupeJobRequest
	MaxRecords int64 `json:"max_records" validate:"gte=0"`
}

// PreviewJob scans for duplicate groups without mutating any record
func PreviewJob(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid request: %v", err)
	}

	ctx, proc, err := ectoinject.GetContext[*processor.DedupeProcessor](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := proc.Preview(ctx, tenantID, *req.ToConfig(), req.MaxRecords)
	if err != nil {
		return httperror.NewHTTPErrorf(http.StatusBadRequest, "failed to preview: %v", err)
	}

	return c.JSON(http.StatusOK, result)
}
