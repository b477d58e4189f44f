package models

import "time"

type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type RangeCount struct {
	Range string `gorm:"column:certificate_range" json:"range"`
	Count int64  `json:"count"`
}

type CustomerCertificateCount struct {
	CustomerID       uint   `json:"customerId"`
	CompanyName      string `json:"companyName"`
	CertificateCount int64  `json:"certificateCount"`
}

type CertificateCounts struct {
	Total        int64 `json:"totalCertificates"`
	Active       int64 `json:"activeCertificates"`
	Expired      int64 `json:"expiredCertificates"`
	ExpiringSoon int64 `json:"expiringSoon"`
	Valid        int64 `json:"validCertificates"`
}

type CustomerCounts struct {
	Total            int64   `json:"totalCustomers"`
	WithCertificates int64   `json:"customersWithCertificates"`
	AvgCertificates  float64 `json:"avgCertificatesPerCustomer"`
}

type RenewalCounts struct {
	Total       int64 `json:"totalDueForRenewal"`
	Overdue     int64 `json:"overdue"`
	DueIn7Days  int64 `gorm:"column:due_in_7_days" json:"dueIn7Days"`
	DueIn30Days int64 `gorm:"column:due_in_30_days" json:"dueIn30Days"`
}

// RenewalRow is an active certificate with the contact details needed to chase its renewal.
type RenewalRow struct {
	CertificateID     uint      `json:"certificateId"`
	CertificateNumber string    `json:"certificateNumber"`
	CalibrationDate   time.Time `json:"calibrationDate"`
	DueDate           time.Time `json:"dueDate"`
	CompanyName       string    `json:"companyName"`
	ContactPerson     string    `json:"contactPerson"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	InstrumentName    string    `json:"instrumentName"`
	ModelNumber       string    `json:"modelNumber"`
	SerialNumber      string    `json:"serialNumber"`
	DaysRemaining     int       `gorm:"-" json:"daysRemaining"`
}

type CertificateExportRow struct {
	CertificateNumber   string
	CalibrationDate     time.Time
	DueDate             time.Time
	Status              string
	CompanyName         string
	ContactPerson       string
	Email               string
	Phone               string
	InstrumentName      string
	ModelNumber         string
	SerialNumber        string
	Manufacturer        string
	PreparedByFirstName string
	PreparedByLastName  string
	SignatureStaff      string
}

type CustomerExportRow struct {
	CompanyName      string
	ContactPerson    string
	Email            string
	Phone            string
	Mobile           string
	Website          string
	GSTNumber        string `gorm:"column:gst_number"`
	PANNumber        string `gorm:"column:pan_number"`
	CreatedAt        time.Time
	CertificateCount int64
}
