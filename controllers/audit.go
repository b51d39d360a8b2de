package controller

import (
	"log"
	"strconv"
	"time"

	"gorm.io/gorm"

	"salespipe/models"
)

// LogJourneyAction appends one line to the journey audit trail.
func LogJourneyAction(db *gorm.DB, logger *log.Logger, journeyID uint, action, initials string) {
	entry := models.JourneyLog{
		JrnID:      journeyID,
		Action:     action,
		CreateDtTm: time.Now().Format("2006-01-02 15:04:05"),
		CreateInit: initials,
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.Printf("failed to write journey log for %d: %v", journeyID, err)
	}
}

// StampLastActivity records an activity note against a journey.
func StampLastActivity(db *gorm.DB, logger *log.Logger, journeyID uint, body, initials string) {
	note := models.Note{
		EntityType: "Journey",
		EntityID:   strconv.FormatUint(uint64(journeyID), 10),
		Type:       models.NoteTypeLastActivity,
		Body:       body,
		CreatedBy:  initials,
	}
	if err := db.Create(&note).Error; err != nil {
		logger.Printf("failed to stamp last activity for %d: %v", journeyID, err)
	}
}
