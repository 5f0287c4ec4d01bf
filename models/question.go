package models

import (
	"time"

	"gorm.io/gorm"
)

// Question is a single poll unit. Options are ordered by Position and the
// Results slice is index-aligned with them; it is derived from the option
// rows, not stored on the question itself.
type Question struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Text      string         `json:"text" gorm:"not null"`
	Active    bool           `json:"active" gorm:"not null;default:false"`
	Closed    bool           `json:"closed" gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Options []Option `json:"options" gorm:"foreignKey:QuestionID"`

	// Results mirrors Options by index. Populated via SyncResults before a
	// question leaves the store.
	Results []int64 `json:"results" gorm:"-"`
}

// SyncResults rebuilds the index-aligned tally slice from the option rows.
func (q *Question) SyncResults() {
	results := make([]int64, len(q.Options))
	for i, opt := range q.Options {
		results[i] = opt.Votes
	}
	q.Results = results
}

// TotalVotes sums all option tallies.
func (q *Question) TotalVotes() int64 {
	var total int64
	for _, opt := range q.Options {
		total += opt.Votes
	}
	return total
}
