package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ChristophStock/tvteam-ted/models"
	"github.com/ChristophStock/tvteam-ted/store"
	"github.com/ChristophStock/tvteam-ted/telemetry"
)

// SessionService is the in-process authority over the voting session: which
// question is active, the global display mode, and vote application. It is
// the sole writer of question and mode state; every state change that the
// audience needs to see is emitted as an event through the publisher.
type SessionService struct {
	store     store.QuestionStore
	modes     store.ModeStore
	publisher Publisher
	known     map[string]bool
}

func NewSessionService(questions store.QuestionStore, modes store.ModeStore, assets []VideoAsset) *SessionService {
	return &SessionService{
		store: questions,
		modes: modes,
		known: knownModes(assets),
	}
}

// SetPublisher attaches the event dispatcher. The hub needs the service for
// intent handling and the service needs the hub for fan-out, so the link is
// completed after both exist.
func (s *SessionService) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *SessionService) publish(eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(Event{Type: eventType, Payload: payload})
}

// OptionInput is one proposed option when creating or editing a question.
type OptionInput struct {
	Text     string `json:"text" binding:"required"`
	ImageURL string `json:"image_url"`
}

// VotingStatus reports whether voting is open and on which question.
type VotingStatus struct {
	Active   bool             `json:"active"`
	Question *models.Question `json:"question"`
}

func validateQuestionInput(text string, options []OptionInput) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: question text must not be empty", ErrValidation)
	}
	if len(options) < 2 {
		return fmt.Errorf("%w: a question needs at least 2 options", ErrValidation)
	}
	for i, opt := range options {
		if strings.TrimSpace(opt.Text) == "" {
			return fmt.Errorf("%w: option %d text must not be empty", ErrValidation, i)
		}
	}
	return nil
}

// CreateQuestion stores a new draft question with zero votes. Nothing is
// broadcast; only the control console lists draft questions.
func (s *SessionService) CreateQuestion(ctx context.Context, text string, options []OptionInput) (*models.Question, error) {
	if err := validateQuestionInput(text, options); err != nil {
		return nil, err
	}
	question := &models.Question{Text: strings.TrimSpace(text)}
	for i, opt := range options {
		question.Options = append(question.Options, models.Option{
			Text:     opt.Text,
			ImageURL: opt.ImageURL,
			Position: i,
		})
	}
	if err := s.store.Insert(ctx, question); err != nil {
		return nil, err
	}
	log.Printf("Question %d created with %d options", question.ID, len(question.Options))
	return question, nil
}

func (s *SessionService) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return s.store.FindAll(ctx)
}

func (s *SessionService) GetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	return s.store.FindByID(ctx, id)
}

// ActivateQuestion makes the target question the single active one. Every
// other question is deactivated first so at most one question is ever
// accepting votes. Re-activating a closed question reopens it.
func (s *SessionService) ActivateQuestion(ctx context.Context, id uint) (*models.Question, error) {
	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.DeactivateAll(ctx); err != nil {
		return nil, err
	}
	question, err := s.store.SetFlags(ctx, id, true, false)
	if err != nil {
		return nil, err
	}
	log.Printf("Question %d activated", id)
	s.publish(EventQuestionActivated, question)
	return question, nil
}

// CloseQuestion stops voting on the target question regardless of which
// question is currently active.
func (s *SessionService) CloseQuestion(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.store.SetFlags(ctx, id, false, true)
	if err != nil {
		return nil, err
	}
	log.Printf("Question %d closed with %d votes", id, question.TotalVotes())
	s.publish(EventQuestionClosed, question)
	return question, nil
}

// ResetQuestion zeroes all tallies and reopens the question. This is an
// administrative correction, not a live event; the console re-fetches.
func (s *SessionService) ResetQuestion(ctx context.Context, id uint) (*models.Question, error) {
	question, err := s.store.ResetVotes(ctx, id)
	if err != nil {
		return nil, err
	}
	log.Printf("Question %d reset", id)
	return question, nil
}

// DeleteQuestion removes a question. Deleting an unknown id succeeds.
func (s *SessionService) DeleteQuestion(ctx context.Context, id uint) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("Question %d deleted", id)
	return nil
}

// UpdateQuestion edits text and options. Once any vote has been recorded the
// option count is frozen: resizing the tally array would either invent or
// discard votes, so equal-count edits keep tallies by position and anything
// else is rejected.
func (s *SessionService) UpdateQuestion(ctx context.Context, id uint, text string, options []OptionInput) (*models.Question, error) {
	if err := validateQuestionInput(text, options); err != nil {
		return nil, err
	}
	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.TotalVotes() > 0 && len(options) != len(current.Options) {
		return nil, fmt.Errorf("%w: option count cannot change after votes were cast", ErrValidation)
	}
	replacement := make([]models.Option, len(options))
	for i, opt := range options {
		replacement[i] = models.Option{Text: opt.Text, ImageURL: opt.ImageURL, Position: i}
		if i < len(current.Options) {
			replacement[i].Votes = current.Options[i].Votes
		}
	}
	return s.store.ReplaceOptions(ctx, id, strings.TrimSpace(text), replacement)
}

// CastVote applies a single vote. The tally bump happens as an atomic
// increment inside the store, so concurrent votes never lose an update; the
// eligibility check here may race with a concurrent close, which the
// protocol tolerates (last state wins).
func (s *SessionService) CastVote(ctx context.Context, id uint, optionIndex int) (*models.Question, error) {
	question, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !question.Active || question.Closed {
		return nil, ErrIneligibleVote
	}
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return nil, fmt.Errorf("%w: index %d, question has %d options", ErrIndexOutOfRange, optionIndex, len(question.Options))
	}
	updated, err := s.store.IncrementVote(ctx, id, optionIndex)
	if err != nil {
		return nil, err
	}
	telemetry.VotesTotal.Inc()
	s.publish(EventVoteUpdate, updated)
	return updated, nil
}

// GetVotingStatus derives the current voting state: the single active, open
// question, or none.
func (s *SessionService) GetVotingStatus(ctx context.Context) (*VotingStatus, error) {
	question, err := s.store.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return &VotingStatus{Active: question != nil, Question: question}, nil
}

// SetDisplayMode persists and broadcasts the global display mode. Validation
// is advisory only: unknown modes are logged and accepted so new video ids
// work without a code change.
func (s *SessionService) SetDisplayMode(ctx context.Context, mode string) error {
	if strings.TrimSpace(mode) == "" {
		return fmt.Errorf("%w: display mode must not be empty", ErrValidation)
	}
	if !s.known[mode] {
		log.Printf("Display mode %q is not in the known set, storing anyway", mode)
	}
	if err := s.modes.SetMode(ctx, mode); err != nil {
		return err
	}
	log.Printf("Display mode set to %q", mode)
	s.publish(EventResultView, mode)
	return nil
}

// DisplayMode returns the persisted mode, defaulting to not_started before
// the first operator action.
func (s *SessionService) DisplayMode(ctx context.Context) (string, error) {
	mode, err := s.modes.Mode(ctx)
	if err != nil {
		return "", err
	}
	if mode == "" {
		return ModeNotStarted, nil
	}
	return mode, nil
}
