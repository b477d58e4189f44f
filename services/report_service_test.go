package services

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"calibration-backend/models"
	"calibration-backend/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type fakeReportStore struct {
	mu      sync.Mutex
	filters map[string]repository.ReportFilter
	today   time.Time

	certificates []models.CertificateListItem
	counts       models.CertificateCounts
	renewals     []models.RenewalRow
	certExport   []models.CertificateExportRow
	custExport   []models.CustomerExportRow
	err          error
}

func (s *fakeReportStore) record(name string, f repository.ReportFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.filters == nil {
		s.filters = map[string]repository.ReportFilter{}
	}
	s.filters[name] = f
}

func (s *fakeReportStore) CountActiveCustomers(context.Context) (int64, error)   { return 4, s.err }
func (s *fakeReportStore) CountActiveInstruments(context.Context) (int64, error) { return 9, nil }

func (s *fakeReportStore) ListCertificates(_ context.Context, f repository.CertificateFilter) ([]models.CertificateListItem, int64, error) {
	return s.certificates, int64(len(s.certificates)), nil
}

func (s *fakeReportStore) CertificateCounts(_ context.Context, today time.Time, f repository.ReportFilter) (models.CertificateCounts, error) {
	s.mu.Lock()
	s.today = today
	s.mu.Unlock()
	s.record("counts", f)
	return s.counts, nil
}

func (s *fakeReportStore) CertificatesByStatus(_ context.Context, f repository.ReportFilter) ([]models.StatusCount, error) {
	return []models.StatusCount{{Status: "active", Count: 3}}, nil
}

func (s *fakeReportStore) CertificatesByMonth(_ context.Context, f repository.ReportFilter) ([]models.MonthCount, error) {
	s.record("byMonth", f)
	return nil, nil
}

func (s *fakeReportStore) TopCustomers(_ context.Context, f repository.ReportFilter, limit int) ([]models.CustomerCertificateCount, error) {
	return []models.CustomerCertificateCount{{CustomerID: 1, CompanyName: "Acme Labs", CertificateCount: 3}}, nil
}

func (s *fakeReportStore) RenewalRows(_ context.Context, f repository.ReportFilter, limit int) ([]models.RenewalRow, error) {
	s.record("renewals", f)
	return append([]models.RenewalRow(nil), s.renewals...), nil
}

func (s *fakeReportStore) RenewalCounts(_ context.Context, today time.Time, f repository.ReportFilter) (models.RenewalCounts, error) {
	return models.RenewalCounts{Total: 2, Overdue: 1, DueIn7Days: 1}, nil
}

func (s *fakeReportStore) RenewalsByMonth(context.Context, repository.ReportFilter) ([]models.MonthCount, error) {
	return []models.MonthCount{{Month: "2025-01", Count: 2}}, nil
}

func (s *fakeReportStore) CustomerCounts(context.Context, repository.ReportFilter) (models.CustomerCounts, error) {
	return models.CustomerCounts{Total: 4, WithCertificates: 1, AvgCertificates: 0.75}, nil
}

func (s *fakeReportStore) CustomerCertificateRanges(context.Context, repository.ReportFilter) ([]models.RangeCount, error) {
	return []models.RangeCount{{Range: "0", Count: 3}, {Range: "1-5", Count: 1}}, nil
}

func (s *fakeReportStore) NewCustomersByMonth(context.Context, repository.ReportFilter) ([]models.MonthCount, error) {
	return []models.MonthCount{{Month: "2024-12", Count: 4}}, nil
}

func (s *fakeReportStore) ExportCertificates(context.Context, repository.ReportFilter) ([]models.CertificateExportRow, error) {
	return s.certExport, nil
}

func (s *fakeReportStore) ExportCustomers(context.Context, repository.ReportFilter) ([]models.CustomerExportRow, error) {
	return s.custExport, nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestReportParams_Filter(t *testing.T) {
	f, err := ReportParams{StartDate: "2025-01-01", EndDate: "2025-01-31", CustomerID: 3}.Filter()
	require.NoError(t, err)
	assert.Equal(t, uint(3), f.CustomerID)
	require.NotNil(t, f.StartDate)
	require.NotNil(t, f.EndDate)
	assert.Equal(t, "2025-01-31T23:59:59.999999999Z", f.EndDate.Format(time.RFC3339Nano))

	_, err = ReportParams{StartDate: "01/01/2025", EndDate: "2024-01-01"}.Filter()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "startDate")

	_, err = ReportParams{StartDate: "2025-02-01", EndDate: "2025-01-01"}.Filter()
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "endDate")

	f, err = ReportParams{}.Filter()
	require.NoError(t, err)
	assert.Nil(t, f.StartDate)
}

func TestReportService_Dashboard(t *testing.T) {
	store := &fakeReportStore{
		counts: models.CertificateCounts{Total: 5, Active: 4, Expired: 1, ExpiringSoon: 2, Valid: 1},
		certificates: []models.CertificateListItem{
			{Certificate: models.Certificate{CertificateNumber: "JIC-1", Status: models.CertificateActive, DueDate: day(t, "2025-01-20")}},
			{Certificate: models.Certificate{CertificateNumber: "JIC-2", Status: models.CertificateCancelled, DueDate: day(t, "2025-01-20")}},
		},
		renewals: []models.RenewalRow{{CertificateNumber: "JIC-1", DueDate: day(t, "2025-01-20")}},
	}
	svc := NewReportService(store, fixedClock(testNow), zap.NewNop())

	dash, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 4, dash.Overview.TotalCustomers)
	assert.EqualValues(t, 9, dash.Overview.TotalInstruments)
	assert.EqualValues(t, 2, dash.Overview.ExpiringSoon)
	assert.Equal(t, day(t, "2025-01-10"), store.today)

	require.Len(t, dash.RecentCertificates, 2)
	assert.Equal(t, models.DisplayExpiringSoon, dash.RecentCertificates[0].StatusDisplay)
	assert.Equal(t, models.CertificateCancelled, dash.RecentCertificates[1].StatusDisplay)

	require.Len(t, dash.ExpiringCertificates, 1)
	assert.Equal(t, 10, dash.ExpiringCertificates[0].DaysRemaining)
	expiring := store.filters["renewals"]
	assert.Equal(t, day(t, "2025-01-10"), *expiring.StartDate)
	assert.Equal(t, day(t, "2025-02-09"), *expiring.EndDate)

	monthly := store.filters["byMonth"]
	require.NotNil(t, monthly.StartDate)
	assert.Equal(t, day(t, "2024-02-01"), *monthly.StartDate, "twelve calendar months including the current one")
	assert.NotNil(t, dash.MonthlyStats)
}

func TestReportService_DashboardPropagatesErrors(t *testing.T) {
	svc := NewReportService(&fakeReportStore{err: errBoom}, fixedClock(testNow), zap.NewNop())
	_, err := svc.Dashboard(context.Background())
	assert.ErrorIs(t, err, errBoom)
}

func TestReportService_Stats(t *testing.T) {
	store := &fakeReportStore{renewals: []models.RenewalRow{
		{CertificateNumber: "JIC-1", DueDate: day(t, "2025-01-05")},
		{CertificateNumber: "JIC-2", DueDate: day(t, "2025-01-15")},
	}}
	svc := NewReportService(store, fixedClock(testNow), zap.NewNop())
	ctx := context.Background()

	certs, err := svc.CertificateStats(ctx, repository.ReportFilter{CustomerID: 1})
	require.NoError(t, err)
	assert.Len(t, certs.TopCustomers, 1)
	assert.Equal(t, uint(1), store.filters["counts"].CustomerID)

	customers, err := svc.CustomerStats(ctx, repository.ReportFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, customers.Summary.AvgCertificates, 1e-9)
	assert.Len(t, customers.ByRange, 2)

	renewals, err := svc.RenewalStats(ctx, repository.ReportFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, renewals.Statistics.Overdue)
	require.Len(t, renewals.Upcoming, 2)
	assert.Equal(t, -5, renewals.Upcoming[0].DaysRemaining)
	assert.Equal(t, 5, renewals.Upcoming[1].DaysRemaining)
}

func TestReportService_ExportCSV(t *testing.T) {
	store := &fakeReportStore{certExport: []models.CertificateExportRow{{
		CertificateNumber:   "JIC-20250110-042",
		CalibrationDate:     day(t, "2025-01-10"),
		DueDate:             day(t, "2026-01-10"),
		Status:              "active",
		CompanyName:         `Acme "Precision" Labs`,
		InstrumentName:      "Gauge, 0-10 bar",
		PreparedByFirstName: "Asha",
		PreparedByLastName:  "Rao",
		SignatureStaff:      "K. Menon",
	}}}
	svc := NewReportService(store, fixedClock(testNow), zap.NewNop())

	file, err := svc.Export(context.Background(), ExportCertificates, "", repository.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "certificates_export.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := bytes.Split(bytes.TrimSpace(file.Data), []byte("\r\n"))
	require.Len(t, lines, 2)
	assert.True(t, bytes.HasPrefix(lines[0], []byte(`"Certificate Number","Calibration Date"`)))
	assert.Equal(t,
		`"JIC-20250110-042","2025-01-10","2026-01-10","active","Acme ""Precision"" Labs","","","","Gauge, 0-10 bar","","","","Asha Rao","K. Menon"`,
		string(lines[1]))
}

func TestReportService_ExportXLSX(t *testing.T) {
	store := &fakeReportStore{custExport: []models.CustomerExportRow{
		{CompanyName: "Acme Labs", Email: "ops@acme.test", CreatedAt: testNow, CertificateCount: 3},
		{CompanyName: "Beta", Email: "b@beta.test", CreatedAt: testNow},
	}}
	svc := NewReportService(store, fixedClock(testNow), zap.NewNop())

	file, err := svc.Export(context.Background(), ExportCustomers, FormatXLSX, repository.ReportFilter{})
	require.NoError(t, err)
	assert.Equal(t, "customers_export.xlsx", file.FileName)

	book, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer book.Close()

	assert.Equal(t, []string{"Customers"}, book.GetSheetList())
	rows, err := book.GetRows("Customers")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Company Name", rows[0][0])
	assert.Equal(t, "Acme Labs", rows[1][0])
	assert.Equal(t, "2025-01-10 09:30:00", rows[1][8])
	assert.Equal(t, "3", rows[1][9])
}

func TestReportService_ExportRenewalsDaysRemaining(t *testing.T) {
	store := &fakeReportStore{renewals: []models.RenewalRow{{CertificateNumber: "JIC-1", DueDate: day(t, "2025-01-17")}}}
	svc := NewReportService(store, fixedClock(testNow), zap.NewNop())

	file, err := svc.Export(context.Background(), ExportRenewals, FormatCSV, repository.ReportFilter{})
	require.NoError(t, err)
	assert.Contains(t, string(file.Data), `"JIC-1","2025-01-17","","","","","","","","7"`)
}

func TestReportService_ExportErrors(t *testing.T) {
	svc := NewReportService(&fakeReportStore{}, fixedClock(testNow), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Export(ctx, "invoices", "pdf", repository.ReportFilter{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "format")

	_, err = svc.Export(ctx, ExportCustomers, FormatCSV, repository.ReportFilter{})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "data for export not found", nf.Error())
}
