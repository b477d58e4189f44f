package controllers

import (
	"net/http"

	"calibration-backend/models"
	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TestEquipmentInput struct {
	EquipmentName       string   `json:"equipmentName"`
	ModelNumber         string   `json:"modelNumber"`
	SerialNumber        string   `json:"serialNumber"`
	Manufacturer        string   `json:"manufacturer"`
	Accuracy            string   `json:"accuracy"`
	RangeMin            *float64 `json:"rangeMin"`
	RangeMax            *float64 `json:"rangeMax"`
	Unit                string   `json:"unit"`
	CalibrationDate     *string  `json:"calibrationDate"`
	NextCalibrationDate *string  `json:"nextCalibrationDate"`
	CertificateNumber   string   `json:"certificateNumber"`
	IsActive            *bool    `json:"isActive"`
}

func (in TestEquipmentInput) apply(e *models.TestEquipment) map[string]string {
	errs := map[string]string{}
	e.Name = in.EquipmentName
	e.ModelNumber = in.ModelNumber
	e.SerialNumber = in.SerialNumber
	e.Manufacturer = in.Manufacturer
	e.Accuracy = in.Accuracy
	e.RangeMin = in.RangeMin
	e.RangeMax = in.RangeMax
	e.Unit = in.Unit
	e.CalibrationDate = optionalDate(in.CalibrationDate, "calibrationDate", errs)
	e.NextCalibrationDate = optionalDate(in.NextCalibrationDate, "nextCalibrationDate", errs)
	e.CertificateNumber = in.CertificateNumber
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	return errs
}

type TestEquipmentController struct {
	equipment *services.EquipmentService
	logger    *zap.Logger
}

func NewTestEquipmentController(equipment *services.EquipmentService, logger *zap.Logger) *TestEquipmentController {
	return &TestEquipmentController{equipment: equipment, logger: logger}
}

func (tc *TestEquipmentController) GetTestEquipment(c *gin.Context) {
	rows, err := tc.equipment.List(c.Request.Context(), queryBool(c, "active", false))
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testEquipment": rows})
}

func (tc *TestEquipmentController) GetTestEquipmentForCertificate(c *gin.Context) {
	rows, err := tc.equipment.List(c.Request.Context(), true)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testEquipment": rows})
}

// GetCalibrationStatus summarises the lab's own reference standards by calibration due date
func (tc *TestEquipmentController) GetCalibrationStatus(c *gin.Context) {
	report, err := tc.equipment.CalibrationStatus(c.Request.Context())
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (tc *TestEquipmentController) GetTestEquipmentByID(c *gin.Context) {
	id, ok := pathID(c, "id", "test equipment")
	if !ok {
		return
	}
	e, err := tc.equipment.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (tc *TestEquipmentController) CreateTestEquipment(c *gin.Context) {
	var input TestEquipmentInput
	if !bindJSON(c, &input) {
		return
	}
	var e models.TestEquipment
	if errs := input.apply(&e); len(errs) > 0 {
		utils.RespondWithErrors(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	if err := tc.equipment.Create(c.Request.Context(), &e); err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (tc *TestEquipmentController) UpdateTestEquipment(c *gin.Context) {
	id, ok := pathID(c, "id", "test equipment")
	if !ok {
		return
	}
	var input TestEquipmentInput
	if !bindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	e, err := tc.equipment.Get(ctx, id)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	if errs := input.apply(e); len(errs) > 0 {
		utils.RespondWithErrors(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	if err := tc.equipment.Update(ctx, e); err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (tc *TestEquipmentController) DeleteTestEquipment(c *gin.Context) {
	id, ok := pathID(c, "id", "test equipment")
	if !ok {
		return
	}
	if err := tc.equipment.Delete(c.Request.Context(), id); err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test equipment deleted successfully"})
}
