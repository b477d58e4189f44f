package repository

import (
	"context"
	"errors"
	"fmt"

	"calibration-backend/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the gorm-backed persistence layer. The *gorm.DB must be opened with TranslateError.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates every table the service owns.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.CustomerAddress{},
		&models.Instrument{},
		&models.TestEquipment{},
		&models.CalibrationStaff{},
		&models.Certificate{},
		&models.Notification{},
		&models.MobileUser{},
	)
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

// deactivate flips is_active off on the row with the given id.
func (s *Store) deactivate(ctx context.Context, model any, id uint) error {
	res := s.conn(ctx).Model(model).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
