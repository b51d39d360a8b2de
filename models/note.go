package models

import (
	"time"

	"gorm.io/gorm"
)

// Note types share one table, discriminated by Type.
const (
	NoteTypeNote         = "note"
	NoteTypeNextStep     = "nextstep"
	NoteTypeLastActivity = "LastActivity"
)

// Note is a free-form child record keyed by (EntityType, EntityID).
// Next steps and LastActivity stamps are notes with a different type;
// LastActivity stores the timestamp in the body.
type Note struct {
	gorm.Model
	EntityType string     `gorm:"not null;index:idx_notes_entity" json:"entityType"`
	EntityID   string     `gorm:"not null;index:idx_notes_entity" json:"entityId"`
	Type       string     `gorm:"not null;default:note;index" json:"type"`
	Body       string     `gorm:"type:text" json:"body"`
	CreatedBy  string     `json:"createdBy"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	Completed  bool       `gorm:"default:false" json:"completed"`
}
