package crossing

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler(t *testing.T) (*Handler, *echo.Echo, *Crossing) {
	svc, _ := newTestService()
	c := seedKarama(t, svc)
	return NewHandler(svc), echo.New(), c
}

func TestListCrossings(t *testing.T) {
	h, e, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/border-crossings", nil), rec)
	if err := h.ListCrossings(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var result []map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if len(result) != 1 {
		t.Fatalf("expected 1 crossing, got %d", len(result))
	}
	if result[0]["nameEn"] != "King Hussein Bridge" {
		t.Errorf("unexpected nameEn %v", result[0]["nameEn"])
	}
	if result[0]["workingHours"] != "24 ساعة" {
		t.Errorf("unexpected workingHours %v", result[0]["workingHours"])
	}
}

func TestUpdateCrossing_Partial(t *testing.T) {
	h, e, existing := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"restricted"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())
	if err := h.UpdateCrossing(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result["status"] != "restricted" {
		t.Errorf("expected restricted, got %v", result["status"])
	}
	if result["notes"] != "مفتوح للمرضى والمرافقين" {
		t.Errorf("notes changed: %v", result["notes"])
	}
}

func TestUpdateCrossing_NotFound(t *testing.T) {
	h, e, _ := newTestHandler(t)
	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`)), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := h.UpdateCrossing(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestUpdateCrossing_BadBody(t *testing.T) {
	h, e, existing := newTestHandler(t)
	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":false}`)), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(existing.ID.String())
	err := h.UpdateCrossing(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestUpdateCrossing_UnknownIDWithInvalidBody(t *testing.T) {
	h, e, _ := newTestHandler(t)
	for _, id := range []string{uuid.New().String(), "missing"} {
		c := e.NewContext(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":null}`)), httptest.NewRecorder())
		c.SetParamNames("id")
		c.SetParamValues(id)
		err := h.UpdateCrossing(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusNotFound {
			t.Errorf("id %q: expected 404, got %v", id, err)
		}
	}
}
