package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/services/printer"
	"calibration-backend/utils"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// maxNumberAttempts bounds retries when a generated certificate number is already taken.
const maxNumberAttempts = 5

type CertificateStore interface {
	GetCustomer(ctx context.Context, id uint) (*models.Customer, error)
	GetAddress(ctx context.Context, id uint) (*models.CustomerAddress, error)
	GetInstrument(ctx context.Context, id uint) (*models.Instrument, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetStaff(ctx context.Context, id uint) (*models.CalibrationStaff, error)
	TestEquipmentByIDs(ctx context.Context, ids []uint) ([]models.TestEquipment, error)

	CertificateNumberExists(ctx context.Context, number string) (bool, error)
	CreateCertificate(ctx context.Context, cert *models.Certificate) error
	GetCertificate(ctx context.Context, id uint) (*models.Certificate, error)
	ListCertificates(ctx context.Context, f repository.CertificateFilter) ([]models.CertificateListItem, int64, error)
	SetCertificatePDF(ctx context.Context, id uint, path string) error
	SetCertificateStatus(ctx context.Context, id uint, status string) error
	CertificatesMissingPDF(ctx context.Context) ([]models.Certificate, error)
}

// Renderer turns a resolved document into a file.
type Renderer interface {
	Render(doc printer.Document) (printer.Result, error)
	Path(certificateNumber string) string
}

type CreateCertificateRequest struct {
	CustomerID              uint                           `json:"customerId"`
	AddressID               uint                           `json:"addressId"`
	InstrumentID            uint                           `json:"instrumentId"`
	PreparedBy              uint                           `json:"preparedBy"`
	SignatureID             uint                           `json:"signatureId"`
	CalibrationDate         string                         `json:"calibrationDate"`
	DueDate                 string                         `json:"dueDate"`
	TestEquipmentIDs        []uint                         `json:"testEquipmentIds"`
	EnvironmentalConditions models.EnvironmentalConditions `json:"environmentalConditions"`
	TestResults             []models.TestResult            `json:"testResults"`
	Remarks                 string                         `json:"remarks"`
}

// CertificateDetail is a certificate with every reference resolved.
type CertificateDetail struct {
	models.Certificate
	StatusDisplay  string                   `json:"statusDisplay"`
	Customer       *models.Customer         `json:"customer"`
	Address        *models.CustomerAddress  `json:"address,omitempty"`
	Instrument     *models.Instrument       `json:"instrument"`
	PreparedByName string                   `json:"preparedByName"`
	Staff          *models.CalibrationStaff `json:"signatureStaff"`
	TestEquipment  []models.TestEquipment   `json:"testEquipment"`
}

type RegenerateSummary struct {
	Regenerated int    `json:"regenerated"`
	Failed      []uint `json:"failed"`
}

type CertificateService struct {
	store    CertificateStore
	renderer Renderer
	numberer *Numberer
	orgName  string
	clock    Clock
	logger   *zap.Logger
}

func NewCertificateService(store CertificateStore, renderer Renderer, numberer *Numberer, orgName string, clock Clock, logger *zap.Logger) *CertificateService {
	return &CertificateService{
		store:    store,
		renderer: renderer,
		numberer: numberer,
		orgName:  orgName,
		clock:    clock,
		logger:   logger,
	}
}

func (s *CertificateService) certificate(ctx context.Context, id uint) (*models.Certificate, error) {
	cert, err := s.store.GetCertificate(ctx, id)
	return lookup(cert, err, "certificate", id)
}

func (s *CertificateService) today() time.Time {
	return utils.Today(s.clock())
}

type parsedRequest struct {
	calibrationDate time.Time
	dueDate         time.Time
}

func validateCreate(req CreateCertificateRequest) (parsedRequest, error) {
	var v validator
	var out parsedRequest

	v.check(req.CustomerID != 0, "customerId", "is required")
	v.check(req.AddressID != 0, "addressId", "is required")
	v.check(req.InstrumentID != 0, "instrumentId", "is required")
	v.check(req.PreparedBy != 0, "preparedBy", "is required")
	v.check(req.SignatureID != 0, "signatureId", "is required")

	var calOK, dueOK bool
	if req.CalibrationDate == "" {
		v.add("calibrationDate", "is required")
	} else if d, err := utils.ParseDate(req.CalibrationDate); err != nil {
		v.add("calibrationDate", "must be a date (YYYY-MM-DD)")
	} else {
		out.calibrationDate, calOK = d, true
	}
	if req.DueDate == "" {
		v.add("dueDate", "is required")
	} else if d, err := utils.ParseDate(req.DueDate); err != nil {
		v.add("dueDate", "must be a date (YYYY-MM-DD)")
	} else {
		out.dueDate, dueOK = d, true
	}
	if calOK && dueOK && out.dueDate.Before(out.calibrationDate) {
		v.add("dueDate", "must not be before calibrationDate")
	}

	seen := map[uint]bool{}
	for _, id := range req.TestEquipmentIDs {
		if id == 0 {
			v.add("testEquipmentIds", "ids must be positive")
			continue
		}
		if seen[id] {
			v.add("testEquipmentIds", "must not repeat an id")
		}
		seen[id] = true
	}
	for _, r := range req.TestResults {
		if r.TestPoint == "" {
			v.add("testResults", "every result needs a testPoint")
			break
		}
	}

	return out, v.err()
}

// resolved holds the entities a certificate references.
type resolved struct {
	customer   *models.Customer
	address    *models.CustomerAddress
	instrument *models.Instrument
	preparer   *models.User
	staff      *models.CalibrationStaff
	equipment  []models.TestEquipment
}

type refs struct {
	customerID, addressID, instrumentID, preparedBy, signatureID uint
	equipmentIDs                                                 []uint
}

// resolve loads every reference, collecting all misses into one NotFoundError.
// With requireActive, inactive rows count as missing.
func (s *CertificateService) resolve(ctx context.Context, r refs, requireActive bool) (*resolved, error) {
	var out resolved
	missing := &NotFoundError{}

	check := func(err error, entity string, id uint) (bool, error) {
		if errors.Is(err, repository.ErrNotFound) {
			missing.add(entity, id)
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("load %s %d: %w", entity, id, err)
		}
		return true, nil
	}

	customer, err := s.store.GetCustomer(ctx, r.customerID)
	ok, err := check(err, "customer", r.customerID)
	if err != nil {
		return nil, err
	}
	if ok && (customer.IsActive || !requireActive) {
		out.customer = customer
	} else if ok {
		missing.add("customer", r.customerID)
	}

	address, err := s.store.GetAddress(ctx, r.addressID)
	ok, err = check(err, "address", r.addressID)
	if err != nil {
		return nil, err
	}
	if ok && address.CustomerID == r.customerID {
		out.address = address
	} else if ok {
		missing.add("address", r.addressID)
	}

	instrument, err := s.store.GetInstrument(ctx, r.instrumentID)
	ok, err = check(err, "instrument", r.instrumentID)
	if err != nil {
		return nil, err
	}
	if ok && instrument.CustomerID == r.customerID && (instrument.IsActive || !requireActive) {
		out.instrument = instrument
	} else if ok {
		missing.add("instrument", r.instrumentID)
	}

	user, err := s.store.GetUser(ctx, r.preparedBy)
	ok, err = check(err, "user", r.preparedBy)
	if err != nil {
		return nil, err
	}
	if ok && (user.IsActive || !requireActive) {
		out.preparer = user
	} else if ok {
		missing.add("user", r.preparedBy)
	}

	staff, err := s.store.GetStaff(ctx, r.signatureID)
	ok, err = check(err, "calibration staff", r.signatureID)
	if err != nil {
		return nil, err
	}
	if ok && (staff.IsActive || !requireActive) {
		out.staff = staff
	} else if ok {
		missing.add("calibration staff", r.signatureID)
	}

	rows, err := s.store.TestEquipmentByIDs(ctx, r.equipmentIDs)
	if err != nil {
		return nil, fmt.Errorf("load test equipment: %w", err)
	}
	byID := make(map[uint]models.TestEquipment, len(rows))
	for _, e := range rows {
		byID[e.ID] = e
	}
	for _, id := range r.equipmentIDs {
		e, ok := byID[id]
		if !ok || (requireActive && !e.IsActive) {
			missing.add("test equipment", id)
			continue
		}
		out.equipment = append(out.equipment, e)
	}

	if len(missing.Missing) > 0 {
		return nil, missing
	}
	return &out, nil
}

func (s *CertificateService) document(cert *models.Certificate, r *resolved) printer.Document {
	doc := printer.Document{
		OrgName:           s.orgName,
		CertificateNumber: cert.CertificateNumber,
		CalibrationDate:   cert.CalibrationDate,
		DueDate:           cert.DueDate,
		Customer: printer.Party{
			ID:            r.customer.ID,
			CompanyName:   r.customer.CompanyName,
			ContactPerson: r.customer.ContactPerson,
			Email:         r.customer.Email,
		},
		Instrument: printer.Instrument{
			ID:           r.instrument.ID,
			Name:         r.instrument.Name,
			ModelNumber:  r.instrument.ModelNumber,
			SerialNumber: r.instrument.SerialNumber,
			Manufacturer: r.instrument.Manufacturer,
		},
		Environment: cert.EnvironmentalConditions.Data(),
		Results:     cert.TestResults.Data(),
		Remarks:     cert.Remarks,
		PreparedBy:  r.preparer.FullName(),
	}
	if a := r.address; a != nil {
		doc.Address = &printer.Address{
			Line1:   a.AddressLine1,
			Line2:   a.AddressLine2,
			City:    a.City,
			State:   a.State,
			Pincode: a.Pincode,
		}
	}
	for _, e := range r.equipment {
		doc.Equipment = append(doc.Equipment, printer.Equipment{Name: e.Name, ModelNumber: e.ModelNumber})
	}
	return doc
}

// insert persists cert under a fresh number, retrying when the number is taken.
func (s *CertificateService) insert(ctx context.Context, cert *models.Certificate) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number := s.numberer.Next()
		exists, err := s.store.CertificateNumberExists(ctx, number)
		if err != nil {
			return fmt.Errorf("check certificate number: %w", err)
		}
		if exists {
			continue
		}
		cert.CertificateNumber = number
		err = s.store.CreateCertificate(ctx, cert)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create certificate: %w", err)
		}
		return nil
	}
	return &ConflictError{Message: "could not allocate a unique certificate number"}
}

// render draws the document and records its public path on the row.
func (s *CertificateService) render(ctx context.Context, cert *models.Certificate, r *resolved) error {
	result, err := s.renderer.Render(s.document(cert, r))
	if err != nil {
		return &RenderError{Err: err}
	}
	if err := s.store.SetCertificatePDF(ctx, cert.ID, result.PublicPath); err != nil {
		return fmt.Errorf("record pdf path: %w", err)
	}
	cert.PDFPath = result.PublicPath
	return nil
}

// Create validates, resolves and persists a certificate, then renders its PDF.
// On a render failure the persisted row is returned together with the RenderError.
func (s *CertificateService) Create(ctx context.Context, req CreateCertificateRequest) (*models.Certificate, error) {
	dates, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	r, err := s.resolve(ctx, refs{
		customerID:   req.CustomerID,
		addressID:    req.AddressID,
		instrumentID: req.InstrumentID,
		preparedBy:   req.PreparedBy,
		signatureID:  req.SignatureID,
		equipmentIDs: req.TestEquipmentIDs,
	}, true)
	if err != nil {
		return nil, err
	}

	equipmentIDs := append([]uint{}, req.TestEquipmentIDs...)
	results := append([]models.TestResult{}, req.TestResults...)
	cert := &models.Certificate{
		CustomerID:              req.CustomerID,
		AddressID:               req.AddressID,
		InstrumentID:            req.InstrumentID,
		PreparedBy:              req.PreparedBy,
		SignatureID:             req.SignatureID,
		CalibrationDate:         dates.calibrationDate,
		DueDate:                 dates.dueDate,
		TestEquipmentIDs:        datatypes.NewJSONType(equipmentIDs),
		EnvironmentalConditions: datatypes.NewJSONType(req.EnvironmentalConditions),
		TestResults:             datatypes.NewJSONType(results),
		Remarks:                 req.Remarks,
		Status:                  models.CertificateActive,
	}
	if err := s.insert(ctx, cert); err != nil {
		return nil, err
	}

	if err := s.render(ctx, cert, r); err != nil {
		s.logger.Error("certificate persisted without pdf",
			zap.Uint("certificate_id", cert.ID),
			zap.String("certificate_number", cert.CertificateNumber),
			zap.Error(err))
		return cert, err
	}

	s.logger.Info("certificate created",
		zap.Uint("certificate_id", cert.ID),
		zap.String("certificate_number", cert.CertificateNumber))
	return cert, nil
}

func storedRefs(cert *models.Certificate) refs {
	return refs{
		customerID:   cert.CustomerID,
		addressID:    cert.AddressID,
		instrumentID: cert.InstrumentID,
		preparedBy:   cert.PreparedBy,
		signatureID:  cert.SignatureID,
		equipmentIDs: cert.TestEquipmentIDs.Data(),
	}
}

func (s *CertificateService) fileExists(cert *models.Certificate) bool {
	_, err := os.Stat(s.renderer.Path(cert.CertificateNumber))
	return err == nil
}

// Regenerate rebuilds the PDF purely from the stored row. A certificate whose file is
// present is immutable and is refused with a ConflictError.
func (s *CertificateService) Regenerate(ctx context.Context, id uint) (*models.Certificate, error) {
	cert, err := s.certificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert.HasPDF() && s.fileExists(cert) {
		return nil, &ConflictError{Message: "certificate PDF already exists"}
	}

	r, err := s.resolve(ctx, storedRefs(cert), false)
	if err != nil {
		return nil, err
	}
	if err := s.render(ctx, cert, r); err != nil {
		return nil, err
	}
	s.logger.Info("certificate regenerated", zap.Uint("certificate_id", cert.ID))
	return cert, nil
}

// RegenerateMissing renders every certificate that was persisted without a PDF.
func (s *CertificateService) RegenerateMissing(ctx context.Context) (RegenerateSummary, error) {
	summary := RegenerateSummary{Failed: []uint{}}
	certs, err := s.store.CertificatesMissingPDF(ctx)
	if err != nil {
		return summary, fmt.Errorf("find certificates without pdf: %w", err)
	}
	for i := range certs {
		cert := &certs[i]
		r, err := s.resolve(ctx, storedRefs(cert), false)
		if err == nil {
			err = s.render(ctx, cert, r)
		}
		if err != nil {
			s.logger.Warn("regenerate certificate failed", zap.Uint("certificate_id", cert.ID), zap.Error(err))
			summary.Failed = append(summary.Failed, cert.ID)
			continue
		}
		summary.Regenerated++
	}
	return summary, nil
}

func (s *CertificateService) Get(ctx context.Context, id uint) (*CertificateDetail, error) {
	cert, err := s.certificate(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := s.resolve(ctx, storedRefs(cert), false)
	if err != nil {
		return nil, err
	}
	detail := &CertificateDetail{
		Certificate:    *cert,
		StatusDisplay:  displayStatus(*cert, s.today()),
		Customer:       r.customer,
		Address:        r.address,
		Instrument:     r.instrument,
		PreparedByName: r.preparer.FullName(),
		Staff:          r.staff,
		TestEquipment:  r.equipment,
	}
	if detail.TestEquipment == nil {
		detail.TestEquipment = []models.TestEquipment{}
	}
	return detail, nil
}

func displayStatus(cert models.Certificate, today time.Time) string {
	if cert.Status != models.CertificateActive {
		return cert.Status
	}
	return cert.DisplayStatus(today)
}

type CertificateListParams struct {
	Search     string
	Status     string
	CustomerID uint
	Page       int
	Limit      int
}

func (s *CertificateService) List(ctx context.Context, p CertificateListParams) ([]models.CertificateListItem, int64, error) {
	today := s.today()
	rows, total, err := s.store.ListCertificates(ctx, repository.CertificateFilter{
		Search:     p.Search,
		Status:     p.Status,
		CustomerID: p.CustomerID,
		Today:      today,
		Page:       p.Page,
		Limit:      p.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list certificates: %w", err)
	}
	for i := range rows {
		rows[i].StatusDisplay = displayStatus(rows[i].Certificate, today)
	}
	if rows == nil {
		rows = []models.CertificateListItem{}
	}
	return rows, total, nil
}

var validStatuses = map[string]bool{
	models.CertificateActive:     true,
	models.CertificateCancelled:  true,
	models.CertificateSuperseded: true,
}

// UpdateStatus is the only mutation allowed on an issued certificate. Cancelled is terminal.
func (s *CertificateService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Certificate, error) {
	if !validStatuses[status] {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be one of active, cancelled, superseded"}}
	}
	cert, err := s.certificate(ctx, id)
	if err != nil {
		return nil, err
	}
	if cert.Status == status {
		return cert, nil
	}
	if cert.Status == models.CertificateCancelled {
		return nil, &ConflictError{Message: "certificate is cancelled"}
	}
	if err := s.store.SetCertificateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update certificate status: %w", err)
	}
	cert.Status = status
	s.logger.Info("certificate status changed", zap.Uint("certificate_id", id), zap.String("status", status))
	return cert, nil
}

func (s *CertificateService) Cancel(ctx context.Context, id uint) (*models.Certificate, error) {
	return s.UpdateStatus(ctx, id, models.CertificateCancelled)
}

// File returns the on-disk path of a rendered certificate.
func (s *CertificateService) File(ctx context.Context, id uint) (string, string, error) {
	cert, err := s.certificate(ctx, id)
	if err != nil {
		return "", "", err
	}
	if !cert.HasPDF() || !s.fileExists(cert) {
		return "", "", notFound("certificate PDF", id)
	}
	return s.renderer.Path(cert.CertificateNumber), printer.FileName(cert.CertificateNumber), nil
}
