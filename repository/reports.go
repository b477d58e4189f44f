package repository

import (
	"context"
	"time"

	"calibration-backend/models"

	"gorm.io/gorm"
)

// Report queries take "today" from the caller so results follow the service clock.

func applyRange(query *gorm.DB, column string, f ReportFilter) *gorm.DB {
	if f.StartDate != nil {
		query = query.Where(column+" >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		query = query.Where(column+" <= ?", *f.EndDate)
	}
	return query
}

// certificateScope filters calibration_certificates aliased cc by creation range and customer.
func (s *Store) certificateScope(ctx context.Context, f ReportFilter) *gorm.DB {
	query := s.conn(ctx).Table("calibration_certificates AS cc")
	query = applyRange(query, "cc.created_at", f)
	if f.CustomerID != 0 {
		query = query.Where("cc.customer_id = ?", f.CustomerID)
	}
	return query
}

func (s *Store) CountActiveCustomers(ctx context.Context) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Customer{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (s *Store) CountActiveInstruments(ctx context.Context) (int64, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Instrument{}).Where("is_active = ?", true).Count(&count).Error
	return count, err
}

func (s *Store) CertificateCounts(ctx context.Context, today time.Time, f ReportFilter) (models.CertificateCounts, error) {
	soon := today.AddDate(0, 0, models.ExpiringSoonDays)
	var counts models.CertificateCounts
	err := s.certificateScope(ctx, f).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE cc.status = @active) AS active,
			COUNT(*) FILTER (WHERE cc.status = @active AND cc.due_date < @today) AS expired,
			COUNT(*) FILTER (WHERE cc.status = @active AND cc.due_date BETWEEN @today AND @soon) AS expiring_soon,
			COUNT(*) FILTER (WHERE cc.status = @active AND cc.due_date > @soon) AS valid`,
			map[string]any{"active": models.CertificateActive, "today": today, "soon": soon}).
		Scan(&counts).Error
	return counts, err
}

func (s *Store) CertificatesByStatus(ctx context.Context, f ReportFilter) ([]models.StatusCount, error) {
	var rows []models.StatusCount
	err := s.certificateScope(ctx, f).
		Select("cc.status AS status, COUNT(*) AS count").
		Group("cc.status").
		Order("cc.status").
		Scan(&rows).Error
	return rows, err
}

// CertificatesByMonth groups issued certificates by creation month (YYYY-MM).
func (s *Store) CertificatesByMonth(ctx context.Context, f ReportFilter) ([]models.MonthCount, error) {
	var rows []models.MonthCount
	err := s.certificateScope(ctx, f).
		Select("to_char(cc.created_at, 'YYYY-MM') AS month, COUNT(*) AS count").
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}

func (s *Store) TopCustomers(ctx context.Context, f ReportFilter, limit int) ([]models.CustomerCertificateCount, error) {
	var rows []models.CustomerCertificateCount
	err := s.certificateScope(ctx, f).
		Joins("JOIN customers c ON c.id = cc.customer_id").
		Select("c.id AS customer_id, c.company_name, COUNT(cc.id) AS certificate_count").
		Group("c.id, c.company_name").
		Order("certificate_count DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// renewalScope selects active certificates, filtering the range on due_date.
func (s *Store) renewalScope(ctx context.Context, f ReportFilter) *gorm.DB {
	query := s.conn(ctx).Table("calibration_certificates AS cc").Where("cc.status = ?", models.CertificateActive)
	query = applyRange(query, "cc.due_date", f)
	if f.CustomerID != 0 {
		query = query.Where("cc.customer_id = ?", f.CustomerID)
	}
	return query
}

// RenewalRows lists active certificates ordered by due date. The filter range applies to due_date;
// limit 0 returns every row.
func (s *Store) RenewalRows(ctx context.Context, f ReportFilter, limit int) ([]models.RenewalRow, error) {
	query := s.renewalScope(ctx, f).
		Joins("JOIN customers c ON c.id = cc.customer_id").
		Joins("JOIN instruments i ON i.id = cc.instrument_id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.RenewalRow
	err := query.
		Select(`cc.id AS certificate_id, cc.certificate_number, cc.calibration_date, cc.due_date,
			c.company_name, c.contact_person, c.email, c.phone,
			i.instrument_name, i.model_number, i.serial_number`).
		Order("cc.due_date ASC").
		Scan(&rows).Error
	return rows, err
}

// RenewalCounts buckets active certificates by how soon they fall due. The range applies to due_date.
func (s *Store) RenewalCounts(ctx context.Context, today time.Time, f ReportFilter) (models.RenewalCounts, error) {
	var counts models.RenewalCounts
	err := s.renewalScope(ctx, f).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE cc.due_date < @today) AS overdue,
			COUNT(*) FILTER (WHERE cc.due_date BETWEEN @today AND @week) AS due_in_7_days,
			COUNT(*) FILTER (WHERE cc.due_date BETWEEN @eighth AND @month) AS due_in_30_days`,
			map[string]any{
				"today":  today,
				"week":   today.AddDate(0, 0, 7),
				"eighth": today.AddDate(0, 0, 8),
				"month":  today.AddDate(0, 0, 30),
			}).
		Scan(&counts).Error
	return counts, err
}

// RenewalsByMonth groups active certificates by due month.
func (s *Store) RenewalsByMonth(ctx context.Context, f ReportFilter) ([]models.MonthCount, error) {
	var rows []models.MonthCount
	err := s.renewalScope(ctx, f).
		Select("to_char(cc.due_date, 'YYYY-MM') AS month, COUNT(*) AS count").
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}

const certificateCountsByCustomer = `LEFT JOIN (
	SELECT customer_id, COUNT(*) AS certificate_count
	FROM calibration_certificates
	GROUP BY customer_id
) cert_count ON cert_count.customer_id = c.id`

func (s *Store) customerScope(ctx context.Context, f ReportFilter) *gorm.DB {
	return applyRange(s.conn(ctx).Table("customers AS c"), "c.created_at", f)
}

func (s *Store) CustomerCounts(ctx context.Context, f ReportFilter) (models.CustomerCounts, error) {
	var counts models.CustomerCounts
	err := s.customerScope(ctx, f).
		Joins(certificateCountsByCustomer).
		Select(`COUNT(*) AS total,
			COUNT(cert_count.customer_id) AS with_certificates,
			COALESCE(AVG(COALESCE(cert_count.certificate_count, 0)), 0) AS avg_certificates`).
		Scan(&counts).Error
	return counts, err
}

// CustomerCertificateRanges buckets customers by certificate count: 0, 1-5, 6-10, 11-20, 20+.
func (s *Store) CustomerCertificateRanges(ctx context.Context, f ReportFilter) ([]models.RangeCount, error) {
	var rows []models.RangeCount
	err := s.customerScope(ctx, f).
		Joins(certificateCountsByCustomer).
		Select(`CASE
				WHEN COALESCE(cert_count.certificate_count, 0) = 0 THEN '0'
				WHEN cert_count.certificate_count BETWEEN 1 AND 5 THEN '1-5'
				WHEN cert_count.certificate_count BETWEEN 6 AND 10 THEN '6-10'
				WHEN cert_count.certificate_count BETWEEN 11 AND 20 THEN '11-20'
				ELSE '20+'
			END AS certificate_range,
			COUNT(*) AS count`).
		Group("certificate_range").
		Order("certificate_range").
		Scan(&rows).Error
	return rows, err
}

func (s *Store) NewCustomersByMonth(ctx context.Context, f ReportFilter) ([]models.MonthCount, error) {
	var rows []models.MonthCount
	err := s.customerScope(ctx, f).
		Select("to_char(c.created_at, 'YYYY-MM') AS month, COUNT(*) AS count").
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}

func (s *Store) ExportCertificates(ctx context.Context, f ReportFilter) ([]models.CertificateExportRow, error) {
	var rows []models.CertificateExportRow
	err := s.certificateScope(ctx, f).
		Joins("JOIN customers c ON c.id = cc.customer_id").
		Joins("JOIN instruments i ON i.id = cc.instrument_id").
		Joins("LEFT JOIN users u ON u.id = cc.prepared_by").
		Joins("LEFT JOIN calibration_staff cs ON cs.id = cc.signature_id").
		Select(`cc.certificate_number, cc.calibration_date, cc.due_date, cc.status,
			c.company_name, c.contact_person, c.email, c.phone,
			i.instrument_name, i.model_number, i.serial_number, i.manufacturer,
			u.first_name AS prepared_by_first_name, u.last_name AS prepared_by_last_name,
			cs.staff_name AS signature_staff`).
		Order("cc.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (s *Store) ExportCustomers(ctx context.Context, f ReportFilter) ([]models.CustomerExportRow, error) {
	var rows []models.CustomerExportRow
	err := s.customerScope(ctx, f).
		Joins(certificateCountsByCustomer).
		Select(`c.company_name, c.contact_person, c.email, c.phone, c.mobile, c.website,
			c.gst_number, c.pan_number, c.created_at,
			COALESCE(cert_count.certificate_count, 0) AS certificate_count`).
		Order("c.created_at DESC").
		Scan(&rows).Error
	return rows, err
}
