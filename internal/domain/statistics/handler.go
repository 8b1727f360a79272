package statistics

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medref/medref/internal/platform/apperr"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/statistics", h.GetStatistics)
	api.PUT("/statistics", h.UpdateStatistics)
}

func (h *Handler) GetStatistics(c echo.Context) error {
	st, err := h.svc.Get(c.Request().Context())
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) UpdateStatistics(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	st, err := h.svc.ApplyManualJSON(c.Request().Context(), body)
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, st)
}
