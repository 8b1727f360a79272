package crossing

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
	api.GET("/border-crossings", h.ListCrossings)
	api.PUT("/border-crossings/:id", h.UpdateCrossing)
}

func (h *Handler) ListCrossings(c echo.Context) error {
	items, err := h.svc.List(c.Request().Context())
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateCrossing(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	updated, err := h.svc.UpdateJSON(c.Request().Context(), c.Param("id"), body)
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, updated)
}
