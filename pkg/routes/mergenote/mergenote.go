// Package mergenote exposes the merge audit trail
package mergenote

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Ramsey-B/stem/pkg/context"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sorrel/internal/repositories/mergenote"
)

// Register registers merge note routes
func Register(g *echo.Group) {
	g.GET("/:master_id", GetNotesForMaster)
}

// GetNotesForMaster returns the audit notes for merges into a master record
func GetNotesForMaster(c echo.Context) error {
	ctx := c.Request().Context()
	tenantID := context.GetTenantID(ctx)

	masterID := c.Param("master_id")
	if masterID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "master_id is required")
	}

	ctx, repo, err := ectoinject.GetContext[*mergenote.Repository](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	notes, err := repo.FindByMaster(ctx, tenantID, masterID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, notes)
}
