package controllers

import (
	"errors"
	"net/http"

	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatusInput struct {
	Status string `json:"status" binding:"required"`
}

type CertificateController struct {
	certificates *services.CertificateService
	logger       *zap.Logger
}

func NewCertificateController(certificates *services.CertificateService, logger *zap.Logger) *CertificateController {
	return &CertificateController{certificates: certificates, logger: logger}
}

func (cc *CertificateController) list(c *gin.Context, customerID uint) {
	page, limit := utils.PageParams(c)
	rows, total, err := cc.certificates.List(c.Request.Context(), services.CertificateListParams{
		Search:     c.Query("search"),
		Status:     c.Query("status"),
		CustomerID: customerID,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, listResponse("certificates", rows, page, limit, total))
}

// GetCertificates supports ?search= (number or company), ?status= and ?customerId=.
func (cc *CertificateController) GetCertificates(c *gin.Context) {
	cc.list(c, queryUint(c, "customerId"))
}

// GetMyCertificates is the customer-portal listing, scoped to the authenticated customer.
func (cc *CertificateController) GetMyCertificates(c *gin.Context) {
	cc.list(c, c.GetUint(utils.ContextCustomerID))
}

func (cc *CertificateController) GetCertificate(c *gin.Context) {
	id, ok := pathID(c, "id", "certificate")
	if !ok {
		return
	}
	detail, err := cc.certificates.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (cc *CertificateController) CreateCertificate(c *gin.Context) {
	var req services.CreateCertificateRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.PreparedBy == 0 {
		req.PreparedBy = c.GetUint(utils.ContextUserID)
	}

	cert, err := cc.certificates.Create(c.Request.Context(), req)
	var rerr *services.RenderError
	if errors.As(err, &rerr) && cert != nil {
		cc.logger.Error("certificate render failed", requestFields(c, err)...)
		c.JSON(http.StatusInternalServerError, gin.H{
			"message":     "Failed to generate certificate PDF",
			"certificate": cert,
		})
		return
	}
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":     "Certificate created successfully",
		"certificate": cert,
	})
}

func (cc *CertificateController) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id", "certificate")
	if !ok {
		return
	}
	var input StatusInput
	if !bindJSON(c, &input) {
		return
	}
	cert, err := cc.certificates.UpdateStatus(c.Request.Context(), id, input.Status)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Certificate status updated", "certificate": cert})
}

func (cc *CertificateController) CancelCertificate(c *gin.Context) {
	id, ok := pathID(c, "id", "certificate")
	if !ok {
		return
	}
	if _, err := cc.certificates.Cancel(c.Request.Context(), id); err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Certificate cancelled successfully"})
}

func (cc *CertificateController) DownloadCertificate(c *gin.Context) {
	id, ok := pathID(c, "id", "certificate")
	if !ok {
		return
	}
	path, name, err := cc.certificates.File(c.Request.Context(), id)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.FileAttachment(path, name)
}

func (cc *CertificateController) RegenerateCertificate(c *gin.Context) {
	id, ok := pathID(c, "id", "certificate")
	if !ok {
		return
	}
	cert, err := cc.certificates.Regenerate(c.Request.Context(), id)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Certificate PDF regenerated", "certificate": cert})
}

func (cc *CertificateController) RegenerateMissing(c *gin.Context) {
	summary, err := cc.certificates.RegenerateMissing(c.Request.Context())
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
