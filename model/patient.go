package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Gender values accepted for a patient record.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// BloodTypes lists the eight valid ABO/Rh blood types.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// IsValidBloodType reports whether bt is one of the eight known blood types.
func IsValidBloodType(bt string) bool {
	for _, v := range BloodTypes {
		if v == bt {
			return true
		}
	}
	return false
}

// Patient is the sole domain entity: a patient account with demographics,
// insurance and clinical details. The email uniqueness the service checks
// before writes is ultimately guaranteed by the unique index here.
type Patient struct {
	gorm.Model
	Email             string         `json:"email" gorm:"type:varchar(191);uniqueIndex;not null"`
	Name              string         `json:"name" gorm:"type:varchar(255)"`
	Password          string         `json:"-" gorm:"type:varchar(255)"`
	Role              string         `json:"role" gorm:"type:varchar(32);default:USER"`
	IsEmailVerified   bool           `json:"is_email_verified" gorm:"default:false"`
	InsuranceProvider string         `json:"insurance_provider" gorm:"type:varchar(255)"`
	InsuranceNumber   string         `json:"insurance_number" gorm:"type:varchar(64)"`
	DateOfBirth       *time.Time     `json:"date_of_birth"`
	Gender            string         `json:"gender" gorm:"type:varchar(16)"`
	Phone             string         `json:"phone" gorm:"type:varchar(32)"`
	Address           datatypes.JSON `json:"address" gorm:"type:json"`
	BloodType         string         `json:"blood_type" gorm:"type:varchar(3)"`
	Allergies         datatypes.JSON `json:"allergies" gorm:"type:json"`
	Conditions        datatypes.JSON `json:"conditions" gorm:"type:json"`
	Medications       datatypes.JSON `json:"medications" gorm:"type:json"`
	LastVisit         *time.Time     `json:"last_visit"`
}
