package services

import (
	"context"
	"testing"
	"time"

	"calibration-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCustomerService_Create(t *testing.T) {
	f := newFixture(t)
	svc := NewCustomerService(f.store, zap.NewNop())
	ctx := context.Background()

	customer := &models.Customer{
		CompanyName:   "  Beta Instruments ",
		ContactPerson: "S. Nair",
		Email:         " Sales@Beta.Test ",
		Phone:         "+91 20 2612 0000",
		Addresses: []models.CustomerAddress{
			{AddressLine1: "4 MG Road", City: "Mumbai", State: "MH", Pincode: "400001"},
			{AddressLine1: "9 Hill Road", City: "Mumbai", State: "MH", Pincode: "400050"},
		},
	}
	require.NoError(t, svc.Create(ctx, customer))

	assert.Equal(t, "Beta Instruments", customer.CompanyName)
	assert.Equal(t, "sales@beta.test", customer.Email)
	assert.True(t, customer.IsActive)

	stored, err := svc.Get(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, stored.Addresses, 2)
	assert.True(t, stored.Addresses[0].IsDefault)
	assert.False(t, stored.Addresses[1].IsDefault)
	assert.Equal(t, "both", stored.Addresses[1].AddressType)
	assert.Equal(t, "India", stored.Addresses[1].Country)
}

func TestCustomerService_CreateValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewCustomerService(f.store, zap.NewNop())

	err := svc.Create(context.Background(), &models.Customer{
		Email:     "not-an-email",
		Mobile:    "abc",
		Addresses: []models.CustomerAddress{{City: "Pune"}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid phone number format", verr.Fields["mobile"])
	for _, field := range []string{"companyName", "contactPerson", "email", "addresses[0].addressLine1", "addresses[0].pincode"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestCustomerService_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	svc := NewCustomerService(f.store, zap.NewNop())
	ctx := context.Background()

	err := svc.Create(ctx, &models.Customer{CompanyName: "Copy", ContactPerson: "X", Email: "OPS@acme.test"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	other := &models.Customer{CompanyName: "Other", ContactPerson: "Y", Email: "y@other.test"}
	require.NoError(t, svc.Create(ctx, other))
	other.Email = f.customer.Email
	require.ErrorAs(t, svc.Update(ctx, other), &conflict)

	// keeping its own email is not a conflict
	f.customer.Phone = "+912000000000"
	require.NoError(t, svc.Update(ctx, f.customer))
}

func TestCustomerService_DeleteGuardedByActiveCertificates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.certificateService(t, &fakeRenderer{}, sequence(1)).Create(ctx, f.request())
	require.NoError(t, err)

	customers := NewCustomerService(f.store, zap.NewNop())
	var conflict *ConflictError
	require.ErrorAs(t, customers.Delete(ctx, f.customer.ID), &conflict)
	assert.Contains(t, conflict.Message, "1 active certificate")

	instruments := NewInstrumentService(f.store, zap.NewNop())
	require.ErrorAs(t, instruments.Delete(ctx, f.instrument.ID), &conflict)

	equipment := NewEquipmentService(f.store, fixedClock(testNow), zap.NewNop())
	require.ErrorAs(t, equipment.Delete(ctx, f.equipment[0].ID), &conflict)

	staff := NewStaffService(f.store, zap.NewNop())
	require.ErrorAs(t, staff.Delete(ctx, f.staff.ID), &conflict)

	var nf *NotFoundError
	require.ErrorAs(t, customers.Delete(ctx, 9999), &nf)
}

func TestCustomerService_DeleteUnreferenced(t *testing.T) {
	f := newFixture(t)
	svc := NewCustomerService(f.store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, f.customer.ID))
	stored, err := svc.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

func TestCustomerService_AddAddressReplacesDefault(t *testing.T) {
	f := newFixture(t)
	svc := NewCustomerService(f.store, zap.NewNop())
	ctx := context.Background()

	address := &models.CustomerAddress{AddressLine1: "1 New Street", City: "Nashik", State: "MH", Pincode: "422001", IsDefault: true}
	require.NoError(t, svc.AddAddress(ctx, f.customer.ID, address))
	assert.Equal(t, f.customer.ID, address.CustomerID)

	old, err := f.store.GetAddress(ctx, f.address.ID)
	require.NoError(t, err)
	assert.False(t, old.IsDefault)

	var nf *NotFoundError
	require.ErrorAs(t, svc.AddAddress(ctx, 404, &models.CustomerAddress{}), &nf)
}

func TestInstrumentService(t *testing.T) {
	f := newFixture(t)
	svc := NewInstrumentService(f.store, zap.NewNop())
	ctx := context.Background()

	t.Run("serial must be unique", func(t *testing.T) {
		err := svc.Create(ctx, &models.Instrument{CustomerID: f.customer.ID, Name: "Gauge", SerialNumber: "SN-1"})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("unknown customer", func(t *testing.T) {
		err := svc.Create(ctx, &models.Instrument{CustomerID: 77, Name: "Gauge"})
		var nf *NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "customer", nf.Missing[0].Entity)
	})

	t.Run("missing name", func(t *testing.T) {
		err := svc.Create(ctx, &models.Instrument{CustomerID: f.customer.ID})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "instrumentName")
	})

	t.Run("create and list", func(t *testing.T) {
		inst := &models.Instrument{CustomerID: f.customer.ID, Name: "Thermometer", SerialNumber: "SN-2"}
		require.NoError(t, svc.Create(ctx, inst))
		assert.True(t, inst.IsActive)

		rows, err := svc.ListForCustomer(ctx, f.customer.ID, true)
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		inst.ModelNumber = "T-100"
		require.NoError(t, svc.Update(ctx, inst), "an instrument keeps its own serial")

		require.NoError(t, svc.Delete(ctx, inst.ID))
		rows, err = svc.ListForCustomer(ctx, f.customer.ID, true)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestEquipmentService_CalibrationStatus(t *testing.T) {
	f := newFixture(t)
	svc := NewEquipmentService(f.store, fixedClock(testNow), zap.NewNop())
	ctx := context.Background()

	day := func(s string) *time.Time {
		d, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return &d
	}
	f.equipment[0].NextCalibrationDate = day("2025-01-05")
	require.NoError(t, svc.Update(ctx, f.equipment[0]))
	f.equipment[1].NextCalibrationDate = day("2025-02-01")
	require.NoError(t, svc.Update(ctx, f.equipment[1]))
	require.NoError(t, svc.Create(ctx, &models.TestEquipment{Name: "Reference Thermometer", NextCalibrationDate: day("2025-12-31")}))

	report, err := svc.CalibrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		models.EquipmentOverdue: 1,
		models.EquipmentDueSoon: 1,
		models.EquipmentValid:   1,
	}, report.Summary)
	require.Len(t, report.Equipment, 3)
	assert.Equal(t, models.EquipmentOverdue, report.Equipment[0].CalibrationStatus)
}

func TestEquipmentService_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewEquipmentService(f.store, fixedClock(testNow), zap.NewNop())
	lo, hi := 10.0, 1.0

	err := svc.Create(context.Background(), &models.TestEquipment{RangeMin: &lo, RangeMax: &hi})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "equipmentName")
	assert.Contains(t, verr.Fields, "rangeMax")
}

func TestStaffService_SetSignature(t *testing.T) {
	f := newFixture(t)
	svc := NewStaffService(f.store, zap.NewNop())
	ctx := context.Background()

	staff, err := svc.SetSignature(ctx, f.staff.ID, "/uploads/signatures/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/signatures/abc.png", staff.SignatureImage)

	_, err = svc.SetSignature(ctx, 999, "x")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}
