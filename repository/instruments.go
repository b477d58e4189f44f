package repository

import (
	"context"

	"calibration-backend/models"
)

// ListInstruments returns a customer's instruments ordered by name.
func (s *Store) ListInstruments(ctx context.Context, customerID uint, activeOnly bool) ([]models.Instrument, error) {
	query := s.conn(ctx).Where("customer_id = ?", customerID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var instruments []models.Instrument
	if err := query.Order("instrument_name ASC").Find(&instruments).Error; err != nil {
		return nil, err
	}
	return instruments, nil
}

func (s *Store) GetInstrument(ctx context.Context, id uint) (*models.Instrument, error) {
	var instrument models.Instrument
	if err := s.conn(ctx).First(&instrument, id).Error; err != nil {
		return nil, translate(err)
	}
	return &instrument, nil
}

// InstrumentBySerial finds an active instrument carrying the serial number.
func (s *Store) InstrumentBySerial(ctx context.Context, serial string) (*models.Instrument, error) {
	var instrument models.Instrument
	err := s.conn(ctx).Where("serial_number = ? AND is_active = ?", serial, true).First(&instrument).Error
	if err != nil {
		return nil, translate(err)
	}
	return &instrument, nil
}

func (s *Store) CreateInstrument(ctx context.Context, instrument *models.Instrument) error {
	return translate(s.conn(ctx).Create(instrument).Error)
}

func (s *Store) SaveInstrument(ctx context.Context, instrument *models.Instrument) error {
	return translate(s.conn(ctx).Save(instrument).Error)
}

func (s *Store) DeactivateInstrument(ctx context.Context, id uint) error {
	return s.deactivate(ctx, &models.Instrument{}, id)
}
