// Package diagnostics serves a quick view of what the store holds, for
// checking a deployment without touching the database directly.
package diagnostics

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medref/medref/internal/platform/apperr"
)

// Counter reports how many records a store holds.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Report is the diagnostics response body.
type Report struct {
	Status         string `json:"status"`
	ReferralsCount int    `json:"referralsCount"`
	CrossingsCount int    `json:"crossingsCount"`
}

type Handler struct {
	referrals Counter
	crossings Counter
}

func NewHandler(referrals, crossings Counter) *Handler {
	return &Handler{referrals: referrals, crossings: crossings}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/diagnostics", h.GetDiagnostics)
}

func (h *Handler) GetDiagnostics(c echo.Context) error {
	ctx := c.Request().Context()
	refs, err := h.referrals.Count(ctx)
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	crs, err := h.crossings.Count(ctx)
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, Report{
		Status:         "ok",
		ReferralsCount: refs,
		CrossingsCount: crs,
	})
}
