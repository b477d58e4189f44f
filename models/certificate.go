package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CertificateActive     = "active"
	CertificateCancelled  = "cancelled"
	CertificateSuperseded = "superseded"
)

// Display statuses derived from the due date.
const (
	DisplayExpired      = "expired"
	DisplayExpiringSoon = "expiring_soon"
	DisplayActive       = "active"
)

// ExpiringSoonDays is the window in which an active certificate counts as expiring soon.
const ExpiringSoonDays = 30

type EnvironmentalConditions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	Pressure    *float64 `json:"pressure,omitempty"`
}

func (e EnvironmentalConditions) IsEmpty() bool {
	return e.Temperature == nil && e.Humidity == nil && e.Pressure == nil
}

type TestResult struct {
	TestPoint     string  `json:"testPoint"`
	MeasuredValue float64 `json:"measuredValue"`
	ExpectedValue float64 `json:"expectedValue"`
	Unit          string  `json:"unit"`
}

type Certificate struct {
	ID                uint   `gorm:"primaryKey" json:"id"`
	CertificateNumber string `gorm:"uniqueIndex;not null" json:"certificateNumber"`
	CustomerID        uint   `gorm:"index;not null" json:"customerId"`
	AddressID         uint   `gorm:"not null" json:"addressId"`
	InstrumentID      uint   `gorm:"index;not null" json:"instrumentId"`
	PreparedBy        uint   `gorm:"not null" json:"preparedBy"`
	SignatureID       uint   `gorm:"index;not null" json:"signatureId"`

	CalibrationDate time.Time `gorm:"type:date;not null" json:"calibrationDate"`
	DueDate         time.Time `gorm:"type:date;index;not null" json:"dueDate"`

	TestEquipmentIDs        datatypes.JSONType[[]uint]                  `json:"testEquipmentIds"`
	EnvironmentalConditions datatypes.JSONType[EnvironmentalConditions] `json:"environmentalConditions"`
	TestResults             datatypes.JSONType[[]TestResult]            `json:"testResults"`

	Remarks string `gorm:"type:text" json:"remarks"`
	Status  string `gorm:"type:varchar(20);default:'active';index" json:"status"`
	PDFPath string `gorm:"column:pdf_path" json:"pdfPath"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Certificate) TableName() string {
	return "calibration_certificates"
}

// HasPDF reports whether the document has been rendered for this row.
func (c Certificate) HasPDF() bool {
	return c.PDFPath != ""
}

// DisplayStatus classifies the certificate by due date relative to today.
func (c Certificate) DisplayStatus(today time.Time) string {
	switch {
	case c.DueDate.Before(today):
		return DisplayExpired
	case !c.DueDate.After(today.AddDate(0, 0, ExpiringSoonDays)):
		return DisplayExpiringSoon
	default:
		return DisplayActive
	}
}

// CertificateListItem is a certificate row joined with the names shown in listings.
type CertificateListItem struct {
	Certificate
	CompanyName    string `json:"companyName"`
	InstrumentName string `json:"instrumentName"`
	ModelNumber    string `json:"modelNumber"`
	SerialNumber   string `json:"serialNumber"`
	StaffName      string `json:"staffName"`
	StatusDisplay  string `gorm:"-" json:"statusDisplay"`
}
