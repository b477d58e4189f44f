package controllers

import (
	"net/http"

	"calibration-backend/repository"
	"calibration-backend/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportController serves the dashboard, the statistics reports and the exports.
type ReportController struct {
	reports *services.ReportService
	logger  *zap.Logger
}

func NewReportController(reports *services.ReportService, logger *zap.Logger) *ReportController {
	return &ReportController{reports: reports, logger: logger}
}

// filter reads ?startDate=&endDate=&customerId=. On a parse error it writes the response.
func (rc *ReportController) filter(c *gin.Context) (repository.ReportFilter, bool) {
	f, err := services.ReportParams{
		StartDate:  c.Query("startDate"),
		EndDate:    c.Query("endDate"),
		CustomerID: queryUint(c, "customerId"),
	}.Filter()
	if err != nil {
		respondError(c, rc.logger, err)
		return f, false
	}
	return f, true
}

func (rc *ReportController) GetDashboard(c *gin.Context) {
	dashboard, err := rc.reports.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (rc *ReportController) GetCertificateStats(c *gin.Context) {
	f, ok := rc.filter(c)
	if !ok {
		return
	}
	stats, err := rc.reports.CertificateStats(c.Request.Context(), f)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (rc *ReportController) GetCustomerStats(c *gin.Context) {
	f, ok := rc.filter(c)
	if !ok {
		return
	}
	stats, err := rc.reports.CustomerStats(c.Request.Context(), f)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (rc *ReportController) GetRenewalStats(c *gin.Context) {
	f, ok := rc.filter(c)
	if !ok {
		return
	}
	stats, err := rc.reports.RenewalStats(c.Request.Context(), f)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Export streams ?type=certificates|customers|renewals as ?format=csv|xlsx.
func (rc *ReportController) Export(c *gin.Context) {
	f, ok := rc.filter(c)
	if !ok {
		return
	}
	file, err := rc.reports.Export(c.Request.Context(), c.Query("type"), c.Query("format"), f)
	if err != nil {
		respondError(c, rc.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
