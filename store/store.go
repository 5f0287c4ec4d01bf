package store

import (
	"context"
	"errors"

	"github.com/ChristophStock/tvteam-ted/models"
)

// ErrNotFound is returned when a question id does not exist.
var ErrNotFound = errors.New("question not found")

// QuestionStore is the persistence port of the session core. IncrementVote
// must be atomic at the storage layer: concurrent callers may never lose an
// increment, regardless of interleaving.
type QuestionStore interface {
	FindAll(ctx context.Context) ([]models.Question, error)
	FindByID(ctx context.Context, id uint) (*models.Question, error)
	// FindActive returns the currently active question, or (nil, nil) when
	// no question is active.
	FindActive(ctx context.Context) (*models.Question, error)
	Insert(ctx context.Context, q *models.Question) error
	// SetFlags updates the lifecycle flags of a single question.
	SetFlags(ctx context.Context, id uint, active, closed bool) (*models.Question, error)
	// DeactivateAll clears the active flag on every question.
	DeactivateAll(ctx context.Context) error
	// ReplaceOptions swaps the full option set of a question and updates its
	// text. Vote tallies carried on the new options are kept as-is.
	ReplaceOptions(ctx context.Context, id uint, text string, options []models.Option) (*models.Question, error)
	// IncrementVote adds one vote to the option at the given position.
	IncrementVote(ctx context.Context, id uint, optionIndex int) (*models.Question, error)
	// ResetVotes zeroes every tally of a question and reopens it.
	ResetVotes(ctx context.Context, id uint) (*models.Question, error)
	// Delete removes a question. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

// ModeStore persists the single global display mode so it survives restarts.
type ModeStore interface {
	// Mode returns the persisted mode, or "" when none was ever set.
	Mode(ctx context.Context) (string, error)
	SetMode(ctx context.Context, mode string) error
}
