package models

import "gorm.io/gorm"

// Tag attaches to any parent record via (ParentTable, ParentID).
// Journey tags use ParentTable="Journey". Tag search compares against
// the upper-cased description.
type Tag struct {
	gorm.Model
	ParentTable string `gorm:"not null;index:idx_tags_parent" json:"parentTable"`
	ParentID    string `gorm:"not null;index:idx_tags_parent" json:"parentId"`
	Description string `gorm:"not null" json:"description"`
	CreatedBy   string `json:"createdBy"`
}
