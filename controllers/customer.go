package controllers

import (
	"net/http"

	"calibration-backend/models"
	"calibration-backend/services"
	"calibration-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AddressInput struct {
	AddressType  string `json:"addressType"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
	IsDefault    bool   `json:"isDefault"`
}

func (in AddressInput) model() models.CustomerAddress {
	return models.CustomerAddress{
		AddressType:  in.AddressType,
		AddressLine1: in.AddressLine1,
		AddressLine2: in.AddressLine2,
		City:         in.City,
		State:        in.State,
		Pincode:      in.Pincode,
		Country:      in.Country,
		IsDefault:    in.IsDefault,
	}
}

// CreateCustomerInput defines the expected JSON structure for creating a customer
type CreateCustomerInput struct {
	CompanyName   string         `json:"companyName" binding:"required"`
	ContactPerson string         `json:"contactPerson" binding:"required"`
	Email         string         `json:"email" binding:"required"`
	Phone         string         `json:"phone"`
	Mobile        string         `json:"mobile"`
	Website       string         `json:"website"`
	GSTNumber     string         `json:"gstNumber"`
	PANNumber     string         `json:"panNumber"`
	Addresses     []AddressInput `json:"addresses"`
}

// UpdateCustomerInput defines the expected JSON structure for updating a customer
type UpdateCustomerInput struct {
	CompanyName   *string `json:"companyName"`
	ContactPerson *string `json:"contactPerson"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Mobile        *string `json:"mobile"`
	Website       *string `json:"website"`
	GSTNumber     *string `json:"gstNumber"`
	PANNumber     *string `json:"panNumber"`
	IsActive      *bool   `json:"isActive"`
}

type CustomerController struct {
	customers *services.CustomerService
	logger    *zap.Logger
}

func NewCustomerController(customers *services.CustomerService, logger *zap.Logger) *CustomerController {
	return &CustomerController{customers: customers, logger: logger}
}

// GetCustomers lists customers with instrument and certificate counts
func (cc *CustomerController) GetCustomers(c *gin.Context) {
	page, limit := utils.PageParams(c)
	rows, total, err := cc.customers.List(c.Request.Context(), c.Query("search"), page, limit)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, listResponse("customers", rows, page, limit, total))
}

func (cc *CustomerController) GetCustomer(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}
	customer, err := cc.customers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (cc *CustomerController) CreateCustomer(c *gin.Context) {
	var input CreateCustomerInput
	if !bindJSON(c, &input) {
		return
	}

	customer := models.Customer{
		CompanyName:   input.CompanyName,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Mobile:        input.Mobile,
		Website:       input.Website,
		GSTNumber:     input.GSTNumber,
		PANNumber:     input.PANNumber,
	}
	for _, a := range input.Addresses {
		customer.Addresses = append(customer.Addresses, a.model())
	}

	if err := cc.customers.Create(c.Request.Context(), &customer); err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (cc *CustomerController) UpdateCustomer(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}
	var input UpdateCustomerInput
	if !bindJSON(c, &input) {
		return
	}

	ctx := c.Request.Context()
	customer, err := cc.customers.Get(ctx, id)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}

	// Update fields if provided
	if input.CompanyName != nil {
		customer.CompanyName = *input.CompanyName
	}
	if input.ContactPerson != nil {
		customer.ContactPerson = *input.ContactPerson
	}
	if input.Email != nil {
		customer.Email = *input.Email
	}
	if input.Phone != nil {
		customer.Phone = *input.Phone
	}
	if input.Mobile != nil {
		customer.Mobile = *input.Mobile
	}
	if input.Website != nil {
		customer.Website = *input.Website
	}
	if input.GSTNumber != nil {
		customer.GSTNumber = *input.GSTNumber
	}
	if input.PANNumber != nil {
		customer.PANNumber = *input.PANNumber
	}
	if input.IsActive != nil {
		customer.IsActive = *input.IsActive
	}

	if err := cc.customers.Update(ctx, customer); err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

// DeleteCustomer deactivates a customer that no active certificate references
func (cc *CustomerController) DeleteCustomer(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}
	if err := cc.customers.Delete(c.Request.Context(), id); err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Customer deleted successfully"})
}

func (cc *CustomerController) AddAddress(c *gin.Context) {
	id, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}
	var input AddressInput
	if !bindJSON(c, &input) {
		return
	}
	address := input.model()
	if err := cc.customers.AddAddress(c.Request.Context(), id, &address); err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}
