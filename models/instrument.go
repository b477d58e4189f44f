package models

import "time"

// Instrument is customer-owned equipment that gets calibrated.
type Instrument struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CustomerID     uint       `gorm:"index;not null" json:"customerId"`
	Name           string     `gorm:"column:instrument_name;not null" json:"instrumentName"`
	ModelNumber    string     `json:"modelNumber"`
	SerialNumber   string     `gorm:"index" json:"serialNumber"`
	Manufacturer   string     `json:"manufacturer"`
	Specifications string     `gorm:"type:text" json:"specifications"`
	PurchaseDate   *time.Time `gorm:"type:date" json:"purchaseDate,omitempty"`
	WarrantyExpiry *time.Time `gorm:"type:date" json:"warrantyExpiry,omitempty"`
	IsActive       bool       `gorm:"default:true;index" json:"isActive"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
