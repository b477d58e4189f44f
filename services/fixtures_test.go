package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/services/printer"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2025, 1, 10, 9, 30, 0, 0, time.UTC)

type fakeRenderer struct {
	dir  string
	docs []printer.Document
	err  error
}

func (f *fakeRenderer) Render(doc printer.Document) (printer.Result, error) {
	if f.err != nil {
		return printer.Result{}, f.err
	}
	f.docs = append(f.docs, doc)
	path := f.Path(doc.CertificateNumber)
	if err := os.WriteFile(path, []byte("%PDF-1.3"), 0o644); err != nil {
		return printer.Result{}, err
	}
	return printer.Result{
		FilePath:   path,
		FileName:   printer.FileName(doc.CertificateNumber),
		PublicPath: printer.PublicPath(doc.CertificateNumber),
	}, nil
}

func (f *fakeRenderer) Path(number string) string {
	return filepath.Join(f.dir, printer.FileName(number))
}

// sequence returns the given suffixes in order, repeating the last one.
func sequence(values ...int) func(int) int {
	i := 0
	return func(int) int {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v
	}
}

type fixture struct {
	store      *repository.MemoryStore
	user       *models.User
	customer   *models.Customer
	address    *models.CustomerAddress
	instrument *models.Instrument
	staff      *models.CalibrationStaff
	equipment  []*models.TestEquipment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	f := &fixture{store: store}

	f.user = &models.User{Email: "asha@lab.test", Password: "secret123", FirstName: "Asha", LastName: "Rao", Role: models.RoleStaff, IsActive: true}
	require.NoError(t, store.CreateUser(ctx, f.user))

	f.customer = &models.Customer{
		CompanyName:   "Acme Labs",
		ContactPerson: "R. Iyer",
		Email:         "ops@acme.test",
		Mobile:        "+919800000001",
		IsActive:      true,
		Addresses: []models.CustomerAddress{{
			AddressLine1: "12 Ring Road", City: "Pune", State: "MH", Pincode: "411001", IsDefault: true,
		}},
	}
	require.NoError(t, store.CreateCustomer(ctx, f.customer))
	f.address = &f.customer.Addresses[0]

	f.instrument = &models.Instrument{CustomerID: f.customer.ID, Name: "Pressure Gauge", ModelNumber: "PG-10", SerialNumber: "SN-1", IsActive: true}
	require.NoError(t, store.CreateInstrument(ctx, f.instrument))

	f.staff = &models.CalibrationStaff{Name: "K. Menon", Designation: "Engineer", IsActive: true}
	require.NoError(t, store.CreateStaff(ctx, f.staff))

	for _, name := range []string{"Deadweight Tester", "Digital Manometer"} {
		e := &models.TestEquipment{Name: name, ModelNumber: name[:3], IsActive: true}
		require.NoError(t, store.CreateTestEquipment(ctx, e))
		f.equipment = append(f.equipment, e)
	}
	return f
}

func (f *fixture) request() CreateCertificateRequest {
	temperature, humidity := 0.0, 45.5
	return CreateCertificateRequest{
		CustomerID:              f.customer.ID,
		AddressID:               f.address.ID,
		InstrumentID:            f.instrument.ID,
		PreparedBy:              f.user.ID,
		SignatureID:             f.staff.ID,
		CalibrationDate:         "2025-01-10",
		DueDate:                 "2026-01-10",
		TestEquipmentIDs:        []uint{f.equipment[1].ID, f.equipment[0].ID},
		EnvironmentalConditions: models.EnvironmentalConditions{Temperature: &temperature, Humidity: &humidity},
		Remarks:                 "Within tolerance",
		TestResults: []models.TestResult{
			{TestPoint: "10 bar", MeasuredValue: 10.01, ExpectedValue: 10, Unit: "bar"},
			{TestPoint: "0 bar", MeasuredValue: 0, ExpectedValue: 0, Unit: "bar"},
			{TestPoint: "5 bar", MeasuredValue: 4.98, ExpectedValue: 5, Unit: "bar"},
		},
	}
}

func (f *fixture) certificateService(t *testing.T, renderer *fakeRenderer, intn func(int) int) *CertificateService {
	t.Helper()
	if renderer.dir == "" {
		renderer.dir = t.TempDir()
	}
	numberer := &Numberer{prefix: "JIC", clock: fixedClock(testNow), intn: intn}
	return NewCertificateService(f.store, renderer, numberer, "JUST INSTRUMENTS INC.", fixedClock(testNow), zap.NewNop())
}

var errBoom = errors.New("boom")
