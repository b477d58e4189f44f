package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"calibration-backend/models"
	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxSignatureSize = 5 << 20

var signatureExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

type StaffInput struct {
	StaffName   string `json:"staffName" binding:"required"`
	Designation string `json:"designation"`
	IsActive    *bool  `json:"isActive"`
}

type CalibrationStaffController struct {
	staff     *services.StaffService
	uploadDir string
	logger    *zap.Logger
}

func NewCalibrationStaffController(staff *services.StaffService, uploadDir string, logger *zap.Logger) *CalibrationStaffController {
	return &CalibrationStaffController{staff: staff, uploadDir: uploadDir, logger: logger}
}

func (sc *CalibrationStaffController) GetStaff(c *gin.Context) {
	rows, err := sc.staff.List(c.Request.Context(), queryBool(c, "active", false))
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calibrationStaff": rows})
}

// GetStaffForCertificate lists the signatories that may sign a new certificate.
func (sc *CalibrationStaffController) GetStaffForCertificate(c *gin.Context) {
	rows, err := sc.staff.List(c.Request.Context(), true)
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"calibrationStaff": rows})
}

func (sc *CalibrationStaffController) GetStaffByID(c *gin.Context) {
	id, ok := pathID(c, "id", "calibration staff")
	if !ok {
		return
	}
	staff, err := sc.staff.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

func (sc *CalibrationStaffController) CreateStaff(c *gin.Context) {
	var input StaffInput
	if !bindJSON(c, &input) {
		return
	}
	staff := models.CalibrationStaff{Name: input.StaffName, Designation: input.Designation}
	if err := sc.staff.Create(c.Request.Context(), &staff); err != nil {
		respondError(c, sc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, staff)
}

func (sc *CalibrationStaffController) UpdateStaff(c *gin.Context) {
	id, ok := pathID(c, "id", "calibration staff")
	if !ok {
		return
	}
	var input StaffInput
	if !bindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	staff, err := sc.staff.Get(ctx, id)
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}
	staff.Name = input.StaffName
	staff.Designation = input.Designation
	if input.IsActive != nil {
		staff.IsActive = *input.IsActive
	}
	if err := sc.staff.Update(ctx, staff); err != nil {
		respondError(c, sc.logger, err)
		return
	}
	c.JSON(http.StatusOK, staff)
}

// UploadSignature stores a signature image under <uploadDir>/signatures and records its public path.
func (sc *CalibrationStaffController) UploadSignature(c *gin.Context) {
	id, ok := pathID(c, "id", "calibration staff")
	if !ok {
		return
	}
	file, err := c.FormFile("signature")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "No signature file uploaded")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !signatureExtensions[ext] {
		utils.RespondWithError(c, http.StatusBadRequest, "Only image files are allowed for signatures")
		return
	}
	if file.Size > maxSignatureSize {
		utils.RespondWithError(c, http.StatusBadRequest, "Signature image must be 5MB or smaller")
		return
	}

	ctx := c.Request.Context()
	if _, err := sc.staff.Get(ctx, id); err != nil {
		respondError(c, sc.logger, err)
		return
	}

	dir := filepath.Join(sc.uploadDir, "signatures")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondError(c, sc.logger, err)
		return
	}
	name := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		respondError(c, sc.logger, err)
		return
	}

	signaturePath := "/uploads/signatures/" + name
	staff, err := sc.staff.SetSignature(ctx, id, signaturePath)
	if err != nil {
		respondError(c, sc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Signature uploaded successfully",
		"signaturePath": signaturePath,
		"staff":         staff,
	})
}

func (sc *CalibrationStaffController) DeleteStaff(c *gin.Context) {
	id, ok := pathID(c, "id", "calibration staff")
	if !ok {
		return
	}
	if err := sc.staff.Delete(c.Request.Context(), id); err != nil {
		respondError(c, sc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Calibration staff deleted successfully"})
}
