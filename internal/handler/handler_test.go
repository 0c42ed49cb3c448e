package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockreport/internal/apperror"
	"stockreport/internal/middleware"
	"stockreport/internal/model"
	"stockreport/internal/service"
	"stockreport/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubParser map[string]model.Identity

func (p stubParser) ParseToken(token string) (model.Identity, error) {
	id, ok := p[token]
	if !ok {
		return model.Identity{}, errors.New("bad token")
	}
	return id, nil
}

var (
	official = model.Identity{ID: uuid.New(), Username: "alice", Role: model.RoleOfficial}
	general  = model.Identity{ID: uuid.New(), Username: "gina", Role: model.RoleGeneral}
	tokens   = stubParser{"official": official, "general": general}
)

type stubReports struct {
	err        error
	lastCreate service.CreateReportRequest
	lastUpdate service.UpdateReportRequest
	lastQuery  service.ReportQuery
	lastCaller model.Identity
}

func (s *stubReports) report() *service.ReportResponse {
	return &service.ReportResponse{ID: "r1", ProductName: "Widget", Quantity: 5, EntryDate: "2024-05-10", History: []model.HistoryEntry{}}
}

func (s *stubReports) Create(_ context.Context, req service.CreateReportRequest, by model.Identity) (*service.ReportResponse, error) {
	s.lastCreate, s.lastCaller = req, by
	if s.err != nil {
		return nil, s.err
	}
	return s.report(), nil
}

func (s *stubReports) Get(context.Context, string) (*service.ReportResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.report(), nil
}

func (s *stubReports) Update(_ context.Context, _ string, req service.UpdateReportRequest, by model.Identity) (*service.ReportResponse, error) {
	s.lastUpdate, s.lastCaller = req, by
	if s.err != nil {
		return nil, s.err
	}
	return s.report(), nil
}

func (s *stubReports) Delete(_ context.Context, _ string, by model.Identity) error {
	s.lastCaller = by
	return s.err
}

func (s *stubReports) List(_ context.Context, q service.ReportQuery) ([]service.ReportResponse, error) {
	s.lastQuery = q
	if s.err != nil {
		return nil, s.err
	}
	return []service.ReportResponse{*s.report()}, nil
}

func (s *stubReports) Summarize(_ context.Context, q service.ReportQuery) (*service.SummaryResponse, error) {
	s.lastQuery = q
	return &service.SummaryResponse{QuantityByProduct: []model.ProductTotal{{ProductName: "Widget", TotalQuantity: 5}}}, s.err
}

type stubExport struct{}

func (stubExport) Export(context.Context, service.ReportQuery) (*service.ExportFile, error) {
	return &service.ExportFile{Name: "reports_2024_05_10.xlsx", Content: []byte("xlsx")}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func newReportRouter(svc *stubReports) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewReportHandler(svc, stubExport{}, middleware.RequireAuth(tokens)).RegisterRoutes(r.Group("/api"))
	return r
}

func call(r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, response.Response) {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var res response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	return w, res
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestStatusFor(t *testing.T) {
	cases := map[apperror.Kind]int{
		apperror.KindValidation: http.StatusBadRequest,
		apperror.KindConflict:   http.StatusBadRequest,
		apperror.KindAuth:       http.StatusUnauthorized,
		apperror.KindForbidden:  http.StatusForbidden,
		apperror.KindLocked:     http.StatusForbidden,
		apperror.KindNotFound:   http.StatusNotFound,
		apperror.KindStore:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), string(kind))
	}
}

func TestCreateReport(t *testing.T) {
	svc := &stubReports{}
	r := newReportRouter(svc)

	w, res := call(r, http.MethodPost, "/api/reports", "official",
		`{"productName":"Widget","quantity":"05","entryDate":"2024-05-10"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "success", res.Status)
	require.NotNil(t, svc.lastCreate.Quantity)
	assert.Equal(t, service.Quantity(5), *svc.lastCreate.Quantity)
	assert.Equal(t, "alice", svc.lastCaller.Username)
}

func TestCreateReport_Rejections(t *testing.T) {
	svc := &stubReports{}
	r := newReportRouter(svc)

	w, _ := call(r, http.MethodPost, "/api/reports", "", `{}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, res := call(r, http.MethodPost, "/api/reports", "general",
		`{"productName":"Widget","quantity":5,"entryDate":"2024-05-10"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", res.Kind)

	w, res = call(r, http.MethodPost, "/api/reports", "official", `{"productName":"Widget","entryDate":"2024-05-10"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", res.Kind)
	assert.Contains(t, res.Error, "Quantity")

	w, res = call(r, http.MethodPost, "/api/reports", "official", `{"productName":"Widget","quantity":"lots","entryDate":"2024-05-10"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", res.Kind)
}

func TestUpdateReport_Locked(t *testing.T) {
	svc := &stubReports{err: apperror.Locked("Cannot modify a report after 48 hours")}
	r := newReportRouter(svc)

	w, res := call(r, http.MethodPut, "/api/reports/r1", "official", `{"quantity":7}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "locked", res.Kind)
	assert.Equal(t, "Cannot modify a report after 48 hours", res.Error)
}

func TestUpdateReport_PartialBody(t *testing.T) {
	svc := &stubReports{}
	r := newReportRouter(svc)

	w, _ := call(r, http.MethodPut, "/api/reports/r1", "official", `{"quantity":7}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.lastUpdate.ProductName)
	assert.Nil(t, svc.lastUpdate.EntryDate)
	assert.Equal(t, service.Quantity(7), *svc.lastUpdate.Quantity)
}

func TestGetReport_NotFound(t *testing.T) {
	r := newReportRouter(&stubReports{err: apperror.NotFound("Report not found")})

	w, res := call(r, http.MethodGet, "/api/reports/missing", "general", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", res.Kind)
}

func TestDeleteReport(t *testing.T) {
	svc := &stubReports{}
	r := newReportRouter(svc)

	w, _ := call(r, http.MethodDelete, "/api/reports/r1", "general", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = call(r, http.MethodDelete, "/api/reports/r1", "official", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", svc.lastCaller.Username)
}

func TestListReports_PassesFilters(t *testing.T) {
	svc := &stubReports{}
	r := newReportRouter(svc)

	w, _ := call(r, http.MethodGet, "/api/reports?product=Widget&startDate=2024-05-01&endDate=2024-05-10", "general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ReportQuery{Product: "Widget", StartDate: "2024-05-01", EndDate: "2024-05-10"}, svc.lastQuery)

	w, _ = call(r, http.MethodGet, "/api/reports/summary?product=Gadget", "general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quantityByProduct"`)
	assert.Equal(t, "Gadget", svc.lastQuery.Product)
}

func TestListReports_StoreFailure(t *testing.T) {
	r := newReportRouter(&stubReports{err: apperror.Store("failed to list reports", context.DeadlineExceeded)})

	w, res := call(r, http.MethodGet, "/api/reports", "general", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "store", res.Kind)
	assert.True(t, res.Retryable)
	assert.NotContains(t, res.Error, "deadline")
}

func TestExportReports(t *testing.T) {
	r := newReportRouter(&stubReports{})

	w, _ := call(r, http.MethodGet, "/api/reports/export", "general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="reports_2024_05_10.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "xlsx", w.Body.String())
}

type stubProducts struct {
	err       error
	lastName  string
	deletedID string
}

func (s *stubProducts) List(context.Context) ([]service.ProductResponse, error) {
	return []service.ProductResponse{{ID: "p1", Name: "Widget"}}, nil
}

func (s *stubProducts) Create(_ context.Context, req service.CreateProductRequest, _ model.Identity) (*service.ProductResponse, error) {
	s.lastName = req.Name
	if s.err != nil {
		return nil, s.err
	}
	return &service.ProductResponse{ID: "p2", Name: req.Name}, nil
}

func (s *stubProducts) Delete(_ context.Context, id string, _ model.Identity) error {
	s.deletedID = id
	return s.err
}

func newProductRouter(svc *stubProducts) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewProductHandler(svc, middleware.RequireAuth(tokens)).RegisterRoutes(r.Group("/api"))
	return r
}

func TestProducts_ListForAnyRole(t *testing.T) {
	r := newProductRouter(&stubProducts{})

	w, _ := call(r, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = call(r, http.MethodGet, "/api/products", "general", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Widget"`)
}

func TestProducts_WritesNeedOfficial(t *testing.T) {
	svc := &stubProducts{}
	r := newProductRouter(svc)

	w, res := call(r, http.MethodPost, "/api/products", "general", `{"name":"Gizmo"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", res.Kind)
	assert.Empty(t, svc.lastName)

	w, _ = call(r, http.MethodDelete, "/api/products/p1", "general", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, svc.deletedID)

	w, _ = call(r, http.MethodPost, "/api/products", "official", `{"name":"Gizmo"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Gizmo", svc.lastName)

	w, _ = call(r, http.MethodDelete, "/api/products/p1", "official", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p1", svc.deletedID)
}

func TestProducts_ConflictsAndValidation(t *testing.T) {
	r := newProductRouter(&stubProducts{err: apperror.Conflict("Product is referenced by existing reports")})

	w, res := call(r, http.MethodDelete, "/api/products/p1", "official", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", res.Kind)
	assert.Equal(t, "Product is referenced by existing reports", res.Error)

	w, res = call(r, http.MethodPost, "/api/products", "official", `{"name":"Widget"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "conflict", res.Kind)

	w, res = call(r, http.MethodPost, "/api/products", "official", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", res.Kind)
}
