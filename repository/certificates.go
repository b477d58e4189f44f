package repository

import (
	"context"
	"fmt"
	"time"

	"calibration-backend/models"

	"gorm.io/gorm"
)

func (s *Store) certificateListQuery(ctx context.Context) *gorm.DB {
	return s.conn(ctx).
		Table("calibration_certificates AS cc").
		Joins("JOIN customers c ON c.id = cc.customer_id").
		Joins("JOIN instruments i ON i.id = cc.instrument_id").
		Joins("LEFT JOIN calibration_staff cs ON cs.id = cc.signature_id")
}

// ListCertificates returns joined rows newest first along with the unpaged total.
func (s *Store) ListCertificates(ctx context.Context, f CertificateFilter) ([]models.CertificateListItem, int64, error) {
	query := s.certificateListQuery(ctx)

	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("cc.certificate_number ILIKE ? OR c.company_name ILIKE ? OR i.instrument_name ILIKE ?", like, like, like)
	}
	if f.CustomerID != 0 {
		query = query.Where("cc.customer_id = ?", f.CustomerID)
	}

	soon := f.Today.AddDate(0, 0, models.ExpiringSoonDays)
	switch f.Status {
	case models.DisplayExpired:
		query = query.Where("cc.status = ? AND cc.due_date < ?", models.CertificateActive, f.Today)
	case models.DisplayExpiringSoon:
		query = query.Where("cc.status = ? AND cc.due_date BETWEEN ? AND ?", models.CertificateActive, f.Today, soon)
	case models.DisplayActive:
		query = query.Where("cc.status = ? AND cc.due_date > ?", models.CertificateActive, soon)
	case models.CertificateCancelled, models.CertificateSuperseded:
		query = query.Where("cc.status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CertificateListItem
	err := query.
		Select("cc.*, c.company_name, i.instrument_name, i.model_number, i.serial_number, cs.staff_name").
		Order("cc.created_at DESC").
		Offset(offset(f.Page, f.Limit)).
		Limit(f.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *Store) GetCertificate(ctx context.Context, id uint) (*models.Certificate, error) {
	var cert models.Certificate
	if err := s.conn(ctx).First(&cert, id).Error; err != nil {
		return nil, translate(err)
	}
	return &cert, nil
}

func (s *Store) CertificateNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Certificate{}).Where("certificate_number = ?", number).Count(&count).Error
	return count > 0, err
}

// CreateCertificate inserts the row; a taken number surfaces as ErrDuplicate.
func (s *Store) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	return translate(s.conn(ctx).Create(cert).Error)
}

func (s *Store) SetCertificatePDF(ctx context.Context, id uint, path string) error {
	return s.updateCertificate(ctx, id, "pdf_path", path)
}

func (s *Store) SetCertificateStatus(ctx context.Context, id uint, status string) error {
	return s.updateCertificate(ctx, id, "status", status)
}

func (s *Store) updateCertificate(ctx context.Context, id uint, column string, value any) error {
	res := s.conn(ctx).Model(&models.Certificate{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CertificatesMissingPDF finds rows persisted without a rendered document.
func (s *Store) CertificatesMissingPDF(ctx context.Context) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := s.conn(ctx).
		Where("pdf_path IS NULL OR pdf_path = ''").
		Where("status <> ?", models.CertificateCancelled).
		Order("id ASC").
		Find(&certs).Error
	return certs, err
}

// CertificatesDueOn returns active certificates whose due date is the given day.
func (s *Store) CertificatesDueOn(ctx context.Context, day time.Time) ([]models.Certificate, error) {
	var certs []models.Certificate
	err := s.conn(ctx).
		Where("status = ? AND due_date = ?", models.CertificateActive, day).
		Order("id ASC").
		Find(&certs).Error
	return certs, err
}

// CountActiveCertificates counts active certificates referencing the entity named in ref.
func (s *Store) CountActiveCertificates(ctx context.Context, ref CertificateRef) (int64, error) {
	query := s.conn(ctx).Model(&models.Certificate{}).Where("status = ?", models.CertificateActive)
	switch {
	case ref.CustomerID != 0:
		query = query.Where("customer_id = ?", ref.CustomerID)
	case ref.InstrumentID != 0:
		query = query.Where("instrument_id = ?", ref.InstrumentID)
	case ref.SignatureID != 0:
		query = query.Where("signature_id = ?", ref.SignatureID)
	case ref.EquipmentID != 0:
		query = query.Where("test_equipment_ids::jsonb @> ?::jsonb", fmt.Sprintf("[%d]", ref.EquipmentID))
	default:
		return 0, fmt.Errorf("certificate reference is empty")
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
