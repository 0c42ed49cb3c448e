package handler

import (
	"net/http"
	"strconv"

	"stockreport/internal/apperror"
	"stockreport/internal/middleware"
	"stockreport/internal/model"
	"stockreport/internal/service"
	"stockreport/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
	exportService service.ExportService
	requireAuth   gin.HandlerFunc
}

func NewReportHandler(reportService service.ReportService, exportService service.ExportService, requireAuth gin.HandlerFunc) *ReportHandler {
	return &ReportHandler{reportService: reportService, exportService: exportService, requireAuth: requireAuth}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reports := router.Group("/reports")
	reports.Use(h.requireAuth)
	{
		reports.GET("", h.ListReports)
		reports.GET("/summary", h.GetSummary)
		reports.GET("/export", h.ExportReports)
		reports.GET("/:id", h.GetReport)

		official := middleware.RequireRole(model.RoleOfficial)
		reports.POST("", official, h.CreateReport)
		reports.PUT("/:id", official, h.UpdateReport)
		reports.DELETE("/:id", official, h.DeleteReport)
	}
}

// CreateReport handles POST /api/reports
// @Summary      Submit a daily report
// @Description  Records a product quantity for today or yesterday. The product must exist in the master list.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateReportRequest  true  "Report"
// @Success      201      {object}  response.Response{data=service.ReportResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/reports [post]
func (h *ReportHandler) CreateReport(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req service.CreateReportRequest
	if !bindAndValidate(c, &req) {
		return
	}

	report, err := h.reportService.Create(c.Request.Context(), req, caller)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, report))
}

// ListReports handles GET /api/reports
// @Summary      List reports
// @Description  Reports ordered by entry date then creation time, newest first
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        product    query     string  false  "Exact product name"
// @Param        startDate  query     string  false  "Inclusive lower bound (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Inclusive upper bound (YYYY-MM-DD)"
// @Success      200        {object}  response.Response{data=[]service.ReportResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/reports [get]
func (h *ReportHandler) ListReports(c *gin.Context) {
	var q service.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, apperror.Validation("Invalid query: %s", err.Error()))
		return
	}

	reports, err := h.reportService.List(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, reports))
}

// GetSummary handles GET /api/reports/summary
// @Summary      Quantity totals per product
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        product    query     string  false  "Exact product name"
// @Param        startDate  query     string  false  "Inclusive lower bound (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Inclusive upper bound (YYYY-MM-DD)"
// @Success      200        {object}  response.Response{data=service.SummaryResponse}
// @Failure      400        {object}  response.Response
// @Router       /api/reports/summary [get]
func (h *ReportHandler) GetSummary(c *gin.Context) {
	var q service.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, apperror.Validation("Invalid query: %s", err.Error()))
		return
	}

	summary, err := h.reportService.Summarize(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// ExportReports handles GET /api/reports/export
// @Summary      Export reports to Excel
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        product    query     string  false  "Exact product name"
// @Param        startDate  query     string  false  "Inclusive lower bound (YYYY-MM-DD)"
// @Param        endDate    query     string  false  "Inclusive upper bound (YYYY-MM-DD)"
// @Success      200        {file}    file
// @Failure      400        {object}  response.Response
// @Router       /api/reports/export [get]
func (h *ReportHandler) ExportReports(c *gin.Context) {
	var q service.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, apperror.Validation("Invalid query: %s", err.Error()))
		return
	}

	file, err := h.exportService.Export(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Header("Content-Length", strconv.Itoa(len(file.Content)))
	c.Data(http.StatusOK, service.ExportContentType, file.Content)
}

// GetReport handles GET /api/reports/:id
// @Summary      Get a report with its history
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response{data=service.ReportResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// UpdateReport handles PUT /api/reports/:id
// @Summary      Update a report
// @Description  Partial update within 48 hours of creation. Every effective change is appended to the history.
// @Tags         reports
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "Report ID"
// @Param        payload  body      service.UpdateReportRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.ReportResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/reports/{id} [put]
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	var req service.UpdateReportRequest
	if !bindAndValidate(c, &req) {
		return
	}

	report, err := h.reportService.Update(c.Request.Context(), c.Param("id"), req, caller)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}

// DeleteReport handles DELETE /api/reports/:id
// @Summary      Delete a report
// @Description  Allowed within 48 hours of creation
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/reports/{id} [delete]
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	caller, ok := identity(c)
	if !ok {
		return
	}

	if err := h.reportService.Delete(c.Request.Context(), c.Param("id"), caller); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{}))
}
