package controllers

import (
	"net/http"

	"calibration-backend/models"
	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InstrumentInput struct {
	CustomerID     uint    `json:"customerId"`
	InstrumentName string  `json:"instrumentName"`
	ModelNumber    string  `json:"modelNumber"`
	SerialNumber   string  `json:"serialNumber"`
	Manufacturer   string  `json:"manufacturer"`
	Specifications string  `json:"specifications"`
	PurchaseDate   *string `json:"purchaseDate"`
	WarrantyExpiry *string `json:"warrantyExpiry"`
	IsActive       *bool   `json:"isActive"`
}

// apply copies the input onto inst. Date fields that do not parse are reported in the returned map.
func (in InstrumentInput) apply(inst *models.Instrument) map[string]string {
	errs := map[string]string{}
	if in.CustomerID != 0 {
		inst.CustomerID = in.CustomerID
	}
	inst.Name = in.InstrumentName
	inst.ModelNumber = in.ModelNumber
	inst.SerialNumber = in.SerialNumber
	inst.Manufacturer = in.Manufacturer
	inst.Specifications = in.Specifications
	inst.PurchaseDate = optionalDate(in.PurchaseDate, "purchaseDate", errs)
	inst.WarrantyExpiry = optionalDate(in.WarrantyExpiry, "warrantyExpiry", errs)
	if in.IsActive != nil {
		inst.IsActive = *in.IsActive
	}
	return errs
}

type InstrumentController struct {
	instruments *services.InstrumentService
	logger      *zap.Logger
}

func NewInstrumentController(instruments *services.InstrumentService, logger *zap.Logger) *InstrumentController {
	return &InstrumentController{instruments: instruments, logger: logger}
}

func (ic *InstrumentController) list(c *gin.Context, activeOnly bool) {
	customerID, ok := pathID(c, "customerId", "customer")
	if !ok {
		return
	}
	rows, err := ic.instruments.ListForCustomer(c.Request.Context(), customerID, activeOnly)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruments": rows})
}

// GetCustomerInstruments lists every instrument of a customer, inactive ones included
// unless ?active=true.
func (ic *InstrumentController) GetCustomerInstruments(c *gin.Context) {
	ic.list(c, queryBool(c, "active", false))
}

// GetInstrumentsForCertificate lists the active instruments offered when issuing a certificate.
func (ic *InstrumentController) GetInstrumentsForCertificate(c *gin.Context) {
	ic.list(c, true)
}

func (ic *InstrumentController) GetInstrument(c *gin.Context) {
	id, ok := pathID(c, "id", "instrument")
	if !ok {
		return
	}
	inst, err := ic.instruments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (ic *InstrumentController) CreateInstrument(c *gin.Context) {
	var input InstrumentInput
	if !bindJSON(c, &input) {
		return
	}
	var inst models.Instrument
	if errs := input.apply(&inst); len(errs) > 0 {
		utils.RespondWithErrors(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	if err := ic.instruments.Create(c.Request.Context(), &inst); err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusCreated, inst)
}

func (ic *InstrumentController) UpdateInstrument(c *gin.Context) {
	id, ok := pathID(c, "id", "instrument")
	if !ok {
		return
	}
	var input InstrumentInput
	if !bindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	inst, err := ic.instruments.Get(ctx, id)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	if errs := input.apply(inst); len(errs) > 0 {
		utils.RespondWithErrors(c, http.StatusBadRequest, "Validation failed", errs)
		return
	}
	if err := ic.instruments.Update(ctx, inst); err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (ic *InstrumentController) DeleteInstrument(c *gin.Context) {
	id, ok := pathID(c, "id", "instrument")
	if !ok {
		return
	}
	if err := ic.instruments.Delete(c.Request.Context(), id); err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Instrument deleted successfully"})
}
