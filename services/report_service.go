package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"calibration-backend/models"
	"calibration-backend/repository"
	"calibration-backend/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardRecentLimit   = 10
	dashboardExpiringLimit = 20
	topCustomersLimit      = 10
	upcomingRenewalsLimit  = 50
	monthlyStatsMonths     = 12
)

type ReportStore interface {
	CountActiveCustomers(ctx context.Context) (int64, error)
	CountActiveInstruments(ctx context.Context) (int64, error)
	ListCertificates(ctx context.Context, f repository.CertificateFilter) ([]models.CertificateListItem, int64, error)

	CertificateCounts(ctx context.Context, today time.Time, f repository.ReportFilter) (models.CertificateCounts, error)
	CertificatesByStatus(ctx context.Context, f repository.ReportFilter) ([]models.StatusCount, error)
	CertificatesByMonth(ctx context.Context, f repository.ReportFilter) ([]models.MonthCount, error)
	TopCustomers(ctx context.Context, f repository.ReportFilter, limit int) ([]models.CustomerCertificateCount, error)

	RenewalRows(ctx context.Context, f repository.ReportFilter, limit int) ([]models.RenewalRow, error)
	RenewalCounts(ctx context.Context, today time.Time, f repository.ReportFilter) (models.RenewalCounts, error)
	RenewalsByMonth(ctx context.Context, f repository.ReportFilter) ([]models.MonthCount, error)

	CustomerCounts(ctx context.Context, f repository.ReportFilter) (models.CustomerCounts, error)
	CustomerCertificateRanges(ctx context.Context, f repository.ReportFilter) ([]models.RangeCount, error)
	NewCustomersByMonth(ctx context.Context, f repository.ReportFilter) ([]models.MonthCount, error)

	ExportCertificates(ctx context.Context, f repository.ReportFilter) ([]models.CertificateExportRow, error)
	ExportCustomers(ctx context.Context, f repository.ReportFilter) ([]models.CustomerExportRow, error)
}

type ReportService struct {
	store  ReportStore
	clock  Clock
	logger *zap.Logger
}

func NewReportService(store ReportStore, clock Clock, logger *zap.Logger) *ReportService {
	return &ReportService{store: store, clock: clock, logger: logger}
}

// ReportParams are the raw query parameters shared by the statistics endpoints.
type ReportParams struct {
	StartDate  string
	EndDate    string
	CustomerID uint
}

// Filter parses the date bounds. EndDate includes the whole day.
func (p ReportParams) Filter() (repository.ReportFilter, error) {
	var v validator
	f := repository.ReportFilter{CustomerID: p.CustomerID}
	if strings.TrimSpace(p.StartDate) != "" {
		start, err := utils.ParseDate(p.StartDate)
		if err != nil {
			v.add("startDate", "must be YYYY-MM-DD")
		} else {
			f.StartDate = &start
		}
	}
	if strings.TrimSpace(p.EndDate) != "" {
		end, err := utils.ParseDate(p.EndDate)
		if err != nil {
			v.add("endDate", "must be YYYY-MM-DD")
		} else {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
			f.EndDate = &end
		}
	}
	if f.StartDate != nil && f.EndDate != nil {
		v.check(!f.EndDate.Before(*f.StartDate), "endDate", "must not be before startDate")
	}
	return f, v.err()
}

type DashboardOverview struct {
	TotalCustomers   int64 `json:"totalCustomers"`
	TotalInstruments int64 `json:"totalInstruments"`
	models.CertificateCounts
}

type Dashboard struct {
	Overview             DashboardOverview            `json:"overview"`
	RecentCertificates   []models.CertificateListItem `json:"recentCertificates"`
	ExpiringCertificates []models.RenewalRow          `json:"expiringCertificates"`
	MonthlyStats         []models.MonthCount          `json:"monthlyStats"`
}

type CertificateStats struct {
	Summary      models.CertificateCounts          `json:"summary"`
	ByStatus     []models.StatusCount              `json:"byStatus"`
	ByMonth      []models.MonthCount               `json:"byMonth"`
	TopCustomers []models.CustomerCertificateCount `json:"topCustomers"`
}

type CustomerStats struct {
	Summary    models.CustomerCounts `json:"summary"`
	ByRange    []models.RangeCount   `json:"byCertificateRange"`
	NewByMonth []models.MonthCount   `json:"newCustomersByMonth"`
}

type RenewalStats struct {
	Statistics models.RenewalCounts `json:"statistics"`
	ByMonth    []models.MonthCount  `json:"byMonth"`
	Upcoming   []models.RenewalRow  `json:"upcomingRenewals"`
}

func (s *ReportService) today() time.Time {
	return utils.Today(s.clock())
}

func (s *ReportService) withDaysRemaining(rows []models.RenewalRow, today time.Time) []models.RenewalRow {
	if rows == nil {
		return []models.RenewalRow{}
	}
	for i := range rows {
		rows[i].DaysRemaining = utils.DaysBetween(today, rows[i].DueDate)
	}
	return rows
}

// Dashboard gathers the overview counters and lists in parallel.
func (s *ReportService) Dashboard(ctx context.Context) (*Dashboard, error) {
	today := s.today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthlyStatsMonths - 1), 0)
	soon := today.AddDate(0, 0, models.ExpiringSoonDays)

	out := &Dashboard{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Overview.TotalCustomers, err = s.store.CountActiveCustomers(ctx)
		return wrap(err, "count customers")
	})
	g.Go(func() (err error) {
		out.Overview.TotalInstruments, err = s.store.CountActiveInstruments(ctx)
		return wrap(err, "count instruments")
	})
	g.Go(func() (err error) {
		out.Overview.CertificateCounts, err = s.store.CertificateCounts(ctx, today, repository.ReportFilter{})
		return wrap(err, "count certificates")
	})
	g.Go(func() (err error) {
		out.RecentCertificates, _, err = s.store.ListCertificates(ctx, repository.CertificateFilter{Today: today, Page: 1, Limit: dashboardRecentLimit})
		return wrap(err, "recent certificates")
	})
	g.Go(func() (err error) {
		out.ExpiringCertificates, err = s.store.RenewalRows(ctx, repository.ReportFilter{StartDate: &today, EndDate: &soon}, dashboardExpiringLimit)
		return wrap(err, "expiring certificates")
	})
	g.Go(func() (err error) {
		out.MonthlyStats, err = s.store.CertificatesByMonth(ctx, repository.ReportFilter{StartDate: &monthStart})
		return wrap(err, "monthly statistics")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range out.RecentCertificates {
		out.RecentCertificates[i].StatusDisplay = displayStatus(out.RecentCertificates[i].Certificate, today)
	}
	if out.RecentCertificates == nil {
		out.RecentCertificates = []models.CertificateListItem{}
	}
	out.ExpiringCertificates = s.withDaysRemaining(out.ExpiringCertificates, today)
	if out.MonthlyStats == nil {
		out.MonthlyStats = []models.MonthCount{}
	}
	return out, nil
}

func (s *ReportService) CertificateStats(ctx context.Context, f repository.ReportFilter) (*CertificateStats, error) {
	today := s.today()
	out := &CertificateStats{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Summary, err = s.store.CertificateCounts(ctx, today, f)
		return wrap(err, "certificate summary")
	})
	g.Go(func() (err error) {
		out.ByStatus, err = s.store.CertificatesByStatus(ctx, f)
		return wrap(err, "certificates by status")
	})
	g.Go(func() (err error) {
		out.ByMonth, err = s.store.CertificatesByMonth(ctx, f)
		return wrap(err, "certificates by month")
	})
	g.Go(func() (err error) {
		out.TopCustomers, err = s.store.TopCustomers(ctx, f, topCustomersLimit)
		return wrap(err, "top customers")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ReportService) CustomerStats(ctx context.Context, f repository.ReportFilter) (*CustomerStats, error) {
	out := &CustomerStats{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Summary, err = s.store.CustomerCounts(ctx, f)
		return wrap(err, "customer summary")
	})
	g.Go(func() (err error) {
		out.ByRange, err = s.store.CustomerCertificateRanges(ctx, f)
		return wrap(err, "customer certificate ranges")
	})
	g.Go(func() (err error) {
		out.NewByMonth, err = s.store.NewCustomersByMonth(ctx, f)
		return wrap(err, "new customers by month")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// RenewalStats reports on active certificates; the date range applies to the due date.
func (s *ReportService) RenewalStats(ctx context.Context, f repository.ReportFilter) (*RenewalStats, error) {
	today := s.today()
	out := &RenewalStats{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Statistics, err = s.store.RenewalCounts(ctx, today, f)
		return wrap(err, "renewal counts")
	})
	g.Go(func() (err error) {
		out.ByMonth, err = s.store.RenewalsByMonth(ctx, f)
		return wrap(err, "renewals by month")
	})
	g.Go(func() (err error) {
		out.Upcoming, err = s.store.RenewalRows(ctx, f, upcomingRenewalsLimit)
		return wrap(err, "upcoming renewals")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.Upcoming = s.withDaysRemaining(out.Upcoming, today)
	return out, nil
}

func wrap(err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
