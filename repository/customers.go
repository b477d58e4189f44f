package repository

import (
	"context"

	"calibration-backend/models"

	"gorm.io/gorm"
)

func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter) ([]models.CustomerSummary, int64, error) {
	query := s.conn(ctx).Model(&models.Customer{}).Where("customers.is_active = ?", true)
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("customers.company_name ILIKE ? OR customers.contact_person ILIKE ? OR customers.email ILIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.CustomerSummary
	err := query.
		Select(`customers.*,
			(SELECT COUNT(*) FROM instruments i WHERE i.customer_id = customers.id AND i.is_active) AS instrument_count,
			(SELECT COUNT(*) FROM calibration_certificates cc WHERE cc.customer_id = customers.id) AS certificate_count`).
		Order("customers.created_at DESC").
		Offset(offset(f.Page, f.Limit)).
		Limit(f.Limit).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetCustomer loads the customer with its addresses, default first.
func (s *Store) GetCustomer(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := s.conn(ctx).
		Preload("Addresses", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_default DESC, id ASC")
		}).
		First(&customer, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (s *Store) CustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.conn(ctx).Where("email = ?", email).First(&customer).Error; err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

// CreateCustomer inserts the customer and any addresses attached to it.
func (s *Store) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return translate(s.conn(ctx).Create(customer).Error)
}

func (s *Store) SaveCustomer(ctx context.Context, customer *models.Customer) error {
	return translate(s.conn(ctx).Omit("Addresses").Save(customer).Error)
}

func (s *Store) DeactivateCustomer(ctx context.Context, id uint) error {
	return s.deactivate(ctx, &models.Customer{}, id)
}

// AddAddress inserts an address. A default address clears the flag on the customer's others.
func (s *Store) AddAddress(ctx context.Context, address *models.CustomerAddress) error {
	return translate(s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := tx.Model(&models.CustomerAddress{}).
				Where("customer_id = ? AND is_default = ?", address.CustomerID, true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(address).Error
	}))
}

func (s *Store) GetAddress(ctx context.Context, id uint) (*models.CustomerAddress, error) {
	var address models.CustomerAddress
	if err := s.conn(ctx).First(&address, id).Error; err != nil {
		return nil, translate(err)
	}
	return &address, nil
}
