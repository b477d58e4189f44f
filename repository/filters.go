package repository

import "time"

type CustomerFilter struct {
	Search string
	Page   int
	Limit  int
}

// CertificateFilter drives certificate listings. Status is a display status
// (expired, expiring_soon, active) evaluated against Today.
type CertificateFilter struct {
	Search     string
	Status     string
	CustomerID uint
	Today      time.Time
	Page       int
	Limit      int
}

// CertificateRef selects active certificates that reference one entity.
type CertificateRef struct {
	CustomerID   uint
	InstrumentID uint
	SignatureID  uint
	EquipmentID  uint
}

// NotificationFilter drives notification listings. Status is "sent" or "pending".
type NotificationFilter struct {
	Type       string
	Status     string
	CustomerID uint
	Page       int
	Limit      int
}

// ReportFilter narrows report and export queries; zero values are ignored.
type ReportFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CustomerID uint
}
