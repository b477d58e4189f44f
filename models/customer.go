package models

import (
	"time"
)

type Customer struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	CompanyName   string `gorm:"not null" json:"companyName"`
	ContactPerson string `gorm:"not null" json:"contactPerson"`
	Email         string `gorm:"uniqueIndex;not null" json:"email"`
	Phone         string `json:"phone"`
	Mobile        string `json:"mobile"`
	Website       string `json:"website"`
	GSTNumber     string `gorm:"column:gst_number" json:"gstNumber"`
	PANNumber     string `gorm:"column:pan_number" json:"panNumber"`
	IsActive      bool   `gorm:"default:true;index" json:"isActive"`

	Addresses []CustomerAddress `gorm:"foreignKey:CustomerID" json:"addresses,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CustomerAddress struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	CustomerID   uint   `gorm:"index;not null" json:"customerId"`
	AddressType  string `gorm:"type:varchar(20);default:'both'" json:"addressType"` // billing, shipping, both
	AddressLine1 string `gorm:"not null" json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `gorm:"not null" json:"city"`
	State        string `gorm:"not null" json:"state"`
	Pincode      string `gorm:"not null" json:"pincode"`
	Country      string `gorm:"default:'India'" json:"country"`
	IsDefault    bool   `gorm:"default:false" json:"isDefault"`

	CreatedAt time.Time `json:"createdAt"`
}

// CustomerSummary is a list row with reference counts.
type CustomerSummary struct {
	Customer
	InstrumentCount  int64 `json:"instrumentCount"`
	CertificateCount int64 `json:"certificateCount"`
}
