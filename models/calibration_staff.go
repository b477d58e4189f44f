package models

import "time"

type CalibrationStaff struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"column:staff_name;not null" json:"staffName"`
	Designation    string `json:"designation"`
	SignatureImage string `json:"signatureImage"`
	IsActive       bool   `gorm:"default:true;index" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (CalibrationStaff) TableName() string {
	return "calibration_staff"
}
