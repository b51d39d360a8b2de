package models

import "gorm.io/gorm"

// Employee is the authenticated user. Initials attribute audit-log
// lines and LastActivity stamps; Number holds the RSM code used by the
// "My Journeys" filter.
type Employee struct {
	gorm.Model
	Name         string `gorm:"not null" json:"name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	Initials     string `gorm:"not null" json:"initials"`
	Number       string `json:"number"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`
	TokenVersion int    `gorm:"default:0" json:"-"`
}
