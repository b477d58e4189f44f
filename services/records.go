package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/utils"

	"go.uber.org/zap"
)

type certificateCounter interface {
	CountActiveCertificates(ctx context.Context, ref repository.CertificateRef) (int64, error)
}

// guardDelete refuses to retire an entity that an active certificate still references.
func guardDelete(ctx context.Context, store certificateCounter, ref repository.CertificateRef, entity string) error {
	count, err := store.CountActiveCertificates(ctx, ref)
	if err != nil {
		return fmt.Errorf("count certificates for %s: %w", entity, err)
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("%s is referenced by %d active certificate(s)", entity, count)}
	}
	return nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, repository.ErrDuplicate)
}

// Customers

type CustomerStore interface {
	certificateCounter
	ListCustomers(ctx context.Context, f repository.CustomerFilter) ([]models.CustomerSummary, int64, error)
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	CustomerByEmail(ctx context.Context, email string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	SaveCustomer(ctx context.Context, customer *models.Customer) error
	DeactivateCustomer(ctx context.Context, id uint) error
	AddAddress(ctx context.Context, address *models.CustomerAddress) error
}

type CustomerService struct {
	store  CustomerStore
	logger *zap.Logger
}

func NewCustomerService(store CustomerStore, logger *zap.Logger) *CustomerService {
	return &CustomerService{store: store, logger: logger}
}

func validateCustomer(c *models.Customer) error {
	var v validator
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	c.ContactPerson = strings.TrimSpace(c.ContactPerson)
	v.check(c.CompanyName != "", "companyName", "is required")
	v.check(c.ContactPerson != "", "contactPerson", "is required")

	if email, ok := utils.NormalizeEmail(c.Email); ok {
		c.Email = email
	} else {
		v.add("email", "must be a valid email address")
	}
	if c.Phone != "" {
		v.check(utils.ValidatePhone(c.Phone), "phone", "invalid phone number format")
	}
	if c.Mobile != "" {
		v.check(utils.ValidatePhone(c.Mobile), "mobile", "invalid phone number format")
	}
	for i := range c.Addresses {
		if err := validateAddress(&c.Addresses[i]); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				for field, msg := range verr.Fields {
					v.add(fmt.Sprintf("addresses[%d].%s", i, field), msg)
				}
			}
		}
	}
	return v.err()
}

func validateAddress(a *models.CustomerAddress) error {
	var v validator
	v.check(strings.TrimSpace(a.AddressLine1) != "", "addressLine1", "is required")
	v.check(strings.TrimSpace(a.City) != "", "city", "is required")
	v.check(strings.TrimSpace(a.State) != "", "state", "is required")
	v.check(strings.TrimSpace(a.Pincode) != "", "pincode", "is required")
	switch a.AddressType {
	case "":
		a.AddressType = "both"
	case "billing", "shipping", "both":
	default:
		v.add("addressType", "must be billing, shipping or both")
	}
	if a.Country == "" {
		a.Country = "India"
	}
	return v.err()
}

func (s *CustomerService) List(ctx context.Context, search string, page, limit int) ([]models.CustomerSummary, int64, error) {
	rows, total, err := s.store.ListCustomers(ctx, repository.CustomerFilter{Search: search, Page: page, Limit: limit})
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	if rows == nil {
		rows = []models.CustomerSummary{}
	}
	return rows, total, nil
}

func (s *CustomerService) Get(ctx context.Context, id uint) (*models.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	return lookup(customer, err, "customer", id)
}

func (s *CustomerService) emailTaken(ctx context.Context, email string, except uint) (bool, error) {
	existing, err := s.store.CustomerByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != except, nil
}

// Create inserts the customer with any addresses. The first address becomes the default when none is marked.
func (s *CustomerService) Create(ctx context.Context, customer *models.Customer) error {
	if err := validateCustomer(customer); err != nil {
		return err
	}
	taken, err := s.emailTaken(ctx, customer.Email, 0)
	if err != nil {
		return fmt.Errorf("check customer email: %w", err)
	}
	if taken {
		return &ConflictError{Message: "customer with this email already exists"}
	}

	hasDefault := false
	for i := range customer.Addresses {
		if customer.Addresses[i].IsDefault {
			if hasDefault {
				customer.Addresses[i].IsDefault = false
			}
			hasDefault = true
		}
	}
	if !hasDefault && len(customer.Addresses) > 0 {
		customer.Addresses[0].IsDefault = true
	}

	customer.IsActive = true
	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		if isDuplicate(err) {
			return &ConflictError{Message: "customer with this email already exists"}
		}
		return fmt.Errorf("create customer: %w", err)
	}
	s.logger.Info("customer created", zap.Uint("customer_id", customer.ID))
	return nil
}

// Update saves changed scalar fields; addresses are managed through AddAddress.
func (s *CustomerService) Update(ctx context.Context, customer *models.Customer) error {
	customer.Addresses = nil
	if err := validateCustomer(customer); err != nil {
		return err
	}
	taken, err := s.emailTaken(ctx, customer.Email, customer.ID)
	if err != nil {
		return fmt.Errorf("check customer email: %w", err)
	}
	if taken {
		return &ConflictError{Message: "another customer with this email already exists"}
	}
	if err := s.store.SaveCustomer(ctx, customer); err != nil {
		if isDuplicate(err) {
			return &ConflictError{Message: "another customer with this email already exists"}
		}
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("customer", customer.ID)
		}
		return fmt.Errorf("update customer: %w", err)
	}
	return nil
}

func (s *CustomerService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := guardDelete(ctx, s.store, repository.CertificateRef{CustomerID: id}, "customer"); err != nil {
		return err
	}
	if err := s.store.DeactivateCustomer(ctx, id); err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	s.logger.Info("customer deactivated", zap.Uint("customer_id", id))
	return nil
}

func (s *CustomerService) AddAddress(ctx context.Context, customerID uint, address *models.CustomerAddress) error {
	customer, err := s.Get(ctx, customerID)
	if err != nil {
		return err
	}
	if err := validateAddress(address); err != nil {
		return err
	}
	address.CustomerID = customerID
	if len(customer.Addresses) == 0 {
		address.IsDefault = true
	}
	if err := s.store.AddAddress(ctx, address); err != nil {
		return fmt.Errorf("add address: %w", err)
	}
	return nil
}

// Instruments

type InstrumentStore interface {
	certificateCounter
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	ListInstruments(ctx context.Context, customerID uint, activeOnly bool) ([]models.Instrument, error)
	GetInstrument(ctx context.Context, id uint) (*models.Instrument, error)
	InstrumentBySerial(ctx context.Context, serial string) (*models.Instrument, error)
	CreateInstrument(ctx context.Context, instrument *models.Instrument) error
	SaveInstrument(ctx context.Context, instrument *models.Instrument) error
	DeactivateInstrument(ctx context.Context, id uint) error
}

type InstrumentService struct {
	store  InstrumentStore
	logger *zap.Logger
}

func NewInstrumentService(store InstrumentStore, logger *zap.Logger) *InstrumentService {
	return &InstrumentService{store: store, logger: logger}
}

func (s *InstrumentService) ListForCustomer(ctx context.Context, customerID uint, activeOnly bool) ([]models.Instrument, error) {
	customer, err := s.store.GetCustomer(ctx, customerID)
	if _, err := lookup(customer, err, "customer", customerID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListInstruments(ctx, customerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	if rows == nil {
		rows = []models.Instrument{}
	}
	return rows, nil
}

func (s *InstrumentService) Get(ctx context.Context, id uint) (*models.Instrument, error) {
	instrument, err := s.store.GetInstrument(ctx, id)
	return lookup(instrument, err, "instrument", id)
}

func (s *InstrumentService) serialTaken(ctx context.Context, serial string, except uint) (bool, error) {
	if serial == "" {
		return false, nil
	}
	existing, err := s.store.InstrumentBySerial(ctx, serial)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != except, nil
}

func (s *InstrumentService) save(ctx context.Context, instrument *models.Instrument, create bool) error {
	var v validator
	instrument.Name = strings.TrimSpace(instrument.Name)
	v.check(instrument.Name != "", "instrumentName", "is required")
	v.check(instrument.CustomerID != 0, "customerId", "is required")
	if err := v.err(); err != nil {
		return err
	}

	customer, err := s.store.GetCustomer(ctx, instrument.CustomerID)
	if customer, err = lookup(customer, err, "customer", instrument.CustomerID); err != nil {
		return err
	}
	if !customer.IsActive {
		return notFound("customer", instrument.CustomerID)
	}

	taken, err := s.serialTaken(ctx, instrument.SerialNumber, instrument.ID)
	if err != nil {
		return fmt.Errorf("check serial number: %w", err)
	}
	if taken {
		return &ConflictError{Message: "instrument with this serial number already exists"}
	}

	if create {
		instrument.IsActive = true
		err = s.store.CreateInstrument(ctx, instrument)
	} else {
		err = s.store.SaveInstrument(ctx, instrument)
	}
	if err != nil {
		return fmt.Errorf("save instrument: %w", err)
	}
	return nil
}

func (s *InstrumentService) Create(ctx context.Context, instrument *models.Instrument) error {
	return s.save(ctx, instrument, true)
}

func (s *InstrumentService) Update(ctx context.Context, instrument *models.Instrument) error {
	return s.save(ctx, instrument, false)
}

func (s *InstrumentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := guardDelete(ctx, s.store, repository.CertificateRef{InstrumentID: id}, "instrument"); err != nil {
		return err
	}
	if err := s.store.DeactivateInstrument(ctx, id); err != nil {
		return fmt.Errorf("deactivate instrument: %w", err)
	}
	return nil
}

// Test equipment

type EquipmentStore interface {
	certificateCounter
	ListTestEquipment(ctx context.Context, activeOnly bool) ([]models.TestEquipment, error)
	GetTestEquipment(ctx context.Context, id uint) (*models.TestEquipment, error)
	TestEquipmentBySerial(ctx context.Context, serial string) (*models.TestEquipment, error)
	CreateTestEquipment(ctx context.Context, equipment *models.TestEquipment) error
	SaveTestEquipment(ctx context.Context, equipment *models.TestEquipment) error
	DeactivateTestEquipment(ctx context.Context, id uint) error
}

type EquipmentService struct {
	store  EquipmentStore
	clock  Clock
	logger *zap.Logger
}

func NewEquipmentService(store EquipmentStore, clock Clock, logger *zap.Logger) *EquipmentService {
	return &EquipmentService{store: store, clock: clock, logger: logger}
}

// EquipmentWithStatus is a reference standard with its derived calibration status.
type EquipmentWithStatus struct {
	models.TestEquipment
	CalibrationStatus string `json:"calibrationStatus"`
}

type EquipmentStatusReport struct {
	Summary   map[string]int        `json:"summary"`
	Equipment []EquipmentWithStatus `json:"equipment"`
}

func (s *EquipmentService) List(ctx context.Context, activeOnly bool) ([]EquipmentWithStatus, error) {
	rows, err := s.store.ListTestEquipment(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list test equipment: %w", err)
	}
	today := utils.Today(s.clock())
	out := make([]EquipmentWithStatus, len(rows))
	for i, e := range rows {
		out[i] = EquipmentWithStatus{TestEquipment: e, CalibrationStatus: e.CalibrationStatus(today)}
	}
	return out, nil
}

// CalibrationStatus summarises active equipment by overdue, due_soon and valid.
func (s *EquipmentService) CalibrationStatus(ctx context.Context) (EquipmentStatusReport, error) {
	rows, err := s.List(ctx, true)
	if err != nil {
		return EquipmentStatusReport{}, err
	}
	report := EquipmentStatusReport{
		Summary: map[string]int{
			models.EquipmentOverdue: 0,
			models.EquipmentDueSoon: 0,
			models.EquipmentValid:   0,
		},
		Equipment: rows,
	}
	for _, e := range rows {
		report.Summary[e.CalibrationStatus]++
	}
	return report, nil
}

func (s *EquipmentService) Get(ctx context.Context, id uint) (*models.TestEquipment, error) {
	equipment, err := s.store.GetTestEquipment(ctx, id)
	return lookup(equipment, err, "test equipment", id)
}

func (s *EquipmentService) save(ctx context.Context, e *models.TestEquipment, create bool) error {
	var v validator
	e.Name = strings.TrimSpace(e.Name)
	v.check(e.Name != "", "equipmentName", "is required")
	if e.RangeMin != nil && e.RangeMax != nil {
		v.check(*e.RangeMin <= *e.RangeMax, "rangeMax", "must not be below rangeMin")
	}
	if e.CalibrationDate != nil && e.NextCalibrationDate != nil {
		v.check(!e.NextCalibrationDate.Before(*e.CalibrationDate), "nextCalibrationDate", "must not be before calibrationDate")
	}
	if err := v.err(); err != nil {
		return err
	}

	if e.SerialNumber != "" {
		existing, err := s.store.TestEquipmentBySerial(ctx, e.SerialNumber)
		switch {
		case err == nil && existing.ID != e.ID:
			return &ConflictError{Message: "test equipment with this serial number already exists"}
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return fmt.Errorf("check serial number: %w", err)
		}
	}

	var err error
	if create {
		e.IsActive = true
		err = s.store.CreateTestEquipment(ctx, e)
	} else {
		err = s.store.SaveTestEquipment(ctx, e)
	}
	if err != nil {
		return fmt.Errorf("save test equipment: %w", err)
	}
	return nil
}

func (s *EquipmentService) Create(ctx context.Context, e *models.TestEquipment) error {
	return s.save(ctx, e, true)
}

func (s *EquipmentService) Update(ctx context.Context, e *models.TestEquipment) error {
	return s.save(ctx, e, false)
}

func (s *EquipmentService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := guardDelete(ctx, s.store, repository.CertificateRef{EquipmentID: id}, "test equipment"); err != nil {
		return err
	}
	if err := s.store.DeactivateTestEquipment(ctx, id); err != nil {
		return fmt.Errorf("deactivate test equipment: %w", err)
	}
	return nil
}

// Calibration staff

type StaffStore interface {
	certificateCounter
	ListStaff(ctx context.Context, activeOnly bool) ([]models.CalibrationStaff, error)
	GetStaff(ctx context.Context, id uint) (*models.CalibrationStaff, error)
	CreateStaff(ctx context.Context, staff *models.CalibrationStaff) error
	SaveStaff(ctx context.Context, staff *models.CalibrationStaff) error
	DeactivateStaff(ctx context.Context, id uint) error
}

type StaffService struct {
	store  StaffStore
	logger *zap.Logger
}

func NewStaffService(store StaffStore, logger *zap.Logger) *StaffService {
	return &StaffService{store: store, logger: logger}
}

func (s *StaffService) List(ctx context.Context, activeOnly bool) ([]models.CalibrationStaff, error) {
	rows, err := s.store.ListStaff(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list calibration staff: %w", err)
	}
	if rows == nil {
		rows = []models.CalibrationStaff{}
	}
	return rows, nil
}

func (s *StaffService) Get(ctx context.Context, id uint) (*models.CalibrationStaff, error) {
	staff, err := s.store.GetStaff(ctx, id)
	return lookup(staff, err, "calibration staff", id)
}

func validateStaff(staff *models.CalibrationStaff) error {
	var v validator
	staff.Name = strings.TrimSpace(staff.Name)
	v.check(staff.Name != "", "staffName", "is required")
	return v.err()
}

func (s *StaffService) Create(ctx context.Context, staff *models.CalibrationStaff) error {
	if err := validateStaff(staff); err != nil {
		return err
	}
	staff.IsActive = true
	if err := s.store.CreateStaff(ctx, staff); err != nil {
		return fmt.Errorf("create calibration staff: %w", err)
	}
	return nil
}

func (s *StaffService) Update(ctx context.Context, staff *models.CalibrationStaff) error {
	if err := validateStaff(staff); err != nil {
		return err
	}
	if err := s.store.SaveStaff(ctx, staff); err != nil {
		return fmt.Errorf("update calibration staff: %w", err)
	}
	return nil
}

// SetSignature records the public path of an uploaded signature image.
func (s *StaffService) SetSignature(ctx context.Context, id uint, path string) (*models.CalibrationStaff, error) {
	staff, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	staff.SignatureImage = path
	if err := s.store.SaveStaff(ctx, staff); err != nil {
		return nil, fmt.Errorf("save signature: %w", err)
	}
	return staff, nil
}

func (s *StaffService) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := guardDelete(ctx, s.store, repository.CertificateRef{SignatureID: id}, "calibration staff"); err != nil {
		return err
	}
	if err := s.store.DeactivateStaff(ctx, id); err != nil {
		return fmt.Errorf("deactivate calibration staff: %w", err)
	}
	return nil
}
