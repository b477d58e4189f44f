package repository

import (
	"context"

	"calibration-backend/models"
)

func (s *Store) ListTestEquipment(ctx context.Context, activeOnly bool) ([]models.TestEquipment, error) {
	query := s.conn(ctx)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var equipment []models.TestEquipment
	if err := query.Order("equipment_name ASC").Find(&equipment).Error; err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *Store) GetTestEquipment(ctx context.Context, id uint) (*models.TestEquipment, error) {
	var equipment models.TestEquipment
	if err := s.conn(ctx).First(&equipment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &equipment, nil
}

// TestEquipmentByIDs returns the rows that exist for ids, in no particular order.
func (s *Store) TestEquipmentByIDs(ctx context.Context, ids []uint) ([]models.TestEquipment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var equipment []models.TestEquipment
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&equipment).Error; err != nil {
		return nil, err
	}
	return equipment, nil
}

func (s *Store) TestEquipmentBySerial(ctx context.Context, serial string) (*models.TestEquipment, error) {
	var equipment models.TestEquipment
	err := s.conn(ctx).Where("serial_number = ? AND is_active = ?", serial, true).First(&equipment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &equipment, nil
}

func (s *Store) CreateTestEquipment(ctx context.Context, equipment *models.TestEquipment) error {
	return translate(s.conn(ctx).Create(equipment).Error)
}

func (s *Store) SaveTestEquipment(ctx context.Context, equipment *models.TestEquipment) error {
	return translate(s.conn(ctx).Save(equipment).Error)
}

func (s *Store) DeactivateTestEquipment(ctx context.Context, id uint) error {
	return s.deactivate(ctx, &models.TestEquipment{}, id)
}
