package referral

import (
	"fmt"
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
	api.GET("/referrals/search", h.SearchReferrals)
	api.GET("/referrals/export", h.ExportReferrals)
	api.GET("/referrals/:id", h.GetReferral)
	api.POST("/referrals", h.CreateReferral)
}

func criteriaFromQuery(c echo.Context) SearchCriteria {
	return SearchCriteria{
		PatientID:      c.QueryParam("patientId"),
		ReferralNumber: c.QueryParam("referralNumber"),
	}
}

func (h *Handler) SearchReferrals(c echo.Context) error {
	items, err := h.svc.Search(c.Request().Context(), criteriaFromQuery(c))
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GetReferral(c echo.Context) error {
	r, err := h.svc.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) CreateReferral(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	r, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	c.Response().Header().Set("Location", "/api/v1/referrals/"+r.ID.String())
	return c.JSON(http.StatusCreated, r)
}

// ExportReferrals returns the search result as an xlsx attachment.
func (h *Handler) ExportReferrals(c echo.Context) error {
	items, err := h.svc.Search(c.Request().Context(), criteriaFromQuery(c))
	if err != nil {
		return apperr.ToHTTPError(err)
	}
	data, err := ExportWorkbook(items)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="referrals-%s.xlsx"`, h.svc.clock.Now().Format("20060102")))
	return c.Blob(http.StatusOK, XLSXMediaType, data)
}
