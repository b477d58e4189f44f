package models

import "time"

const (
	EquipmentOverdue = "overdue"
	EquipmentDueSoon = "due_soon"
	EquipmentValid   = "valid"
)

// TestEquipment is a lab reference standard used to perform calibrations.
type TestEquipment struct {
	ID                  uint       `gorm:"primaryKey" json:"id"`
	Name                string     `gorm:"column:equipment_name;not null" json:"equipmentName"`
	ModelNumber         string     `json:"modelNumber"`
	SerialNumber        string     `gorm:"index" json:"serialNumber"`
	Manufacturer        string     `json:"manufacturer"`
	Accuracy            string     `json:"accuracy"`
	RangeMin            *float64   `json:"rangeMin,omitempty"`
	RangeMax            *float64   `json:"rangeMax,omitempty"`
	Unit                string     `json:"unit"`
	CalibrationDate     *time.Time `gorm:"type:date" json:"calibrationDate,omitempty"`
	NextCalibrationDate *time.Time `gorm:"type:date;index" json:"nextCalibrationDate,omitempty"`
	CertificateNumber   string     `json:"certificateNumber"`
	IsActive            bool       `gorm:"default:true;index" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CalibrationStatus classifies the equipment's own calibration against today.
func (e TestEquipment) CalibrationStatus(today time.Time) string {
	if e.NextCalibrationDate == nil {
		return EquipmentValid
	}
	next := *e.NextCalibrationDate
	switch {
	case next.Before(today):
		return EquipmentOverdue
	case !next.After(today.AddDate(0, 0, 30)):
		return EquipmentDueSoon
	default:
		return EquipmentValid
	}
}
