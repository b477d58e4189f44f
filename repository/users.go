package repository

import (
	"context"
	"time"

	"calibration-backend/models"
)

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// CreateUser inserts a user; the model hook hashes the plain password.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.conn(ctx).Create(user).Error)
}

func (s *Store) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	return translate(s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", at).Error)
}

// UpdatePassword stores an already hashed password.
func (s *Store) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) MobileUserByCustomer(ctx context.Context, customerID uint) (*models.MobileUser, error) {
	var user models.MobileUser
	if err := s.conn(ctx).Where("customer_id = ?", customerID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) SaveMobileUser(ctx context.Context, user *models.MobileUser) error {
	return translate(s.conn(ctx).Save(user).Error)
}
