package repository

import (
	"context"

	"calibration-backend/models"
)

func (s *Store) ListStaff(ctx context.Context, activeOnly bool) ([]models.CalibrationStaff, error) {
	query := s.conn(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var staff []models.CalibrationStaff
	if err := query.Order("staff_name ASC").Find(&staff).Error; err != nil {
		return nil, err
	}
	return staff, nil
}

func (s *Store) GetStaff(ctx context.Context, id uint) (*models.CalibrationStaff, error) {
	var staff models.CalibrationStaff
	if err := s.conn(ctx).First(&staff, id).Error; err != nil {
		return nil, translate(err)
	}
	return &staff, nil
}

func (s *Store) CreateStaff(ctx context.Context, staff *models.CalibrationStaff) error {
	return translate(s.conn(ctx).Create(staff).Error)
}

func (s *Store) SaveStaff(ctx context.Context, staff *models.CalibrationStaff) error {
	return translate(s.conn(ctx).Save(staff).Error)
}

func (s *Store) DeactivateStaff(ctx context.Context, id uint) error {
	return s.deactivate(ctx, &models.CalibrationStaff{}, id)
}
