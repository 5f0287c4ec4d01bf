package models

import (
	"time"

	"gorm.io/gorm"
)

// Option belongs to exactly one question. Position defines the voting index;
// Votes is the running tally and is only ever changed through the store's
// atomic increment or a reset.
type Option struct {
	ID         uint           `json:"-" gorm:"primaryKey"`
	QuestionID uint           `json:"-" gorm:"not null;index"`
	Text       string         `json:"text" gorm:"not null"`
	ImageURL   string         `json:"image_url,omitempty"`
	Position   int            `json:"position" gorm:"not null"`
	Votes      int64          `json:"votes" gorm:"not null;default:0"`
	CreatedAt  time.Time      `json:"-"`
	UpdatedAt  time.Time      `json:"-"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}
