package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ChristophStock/tvteam-ted/models"
)

// MemoryStore is an in-memory QuestionStore. It backs unit tests and the
// optional storeless dev mode; the mutex gives it the same atomic-increment
// guarantee as the SQL implementation.
type MemoryStore struct {
	mu        sync.Mutex
	questions map[uint]*models.Question
	nextID    uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: make(map[uint]*models.Question),
		nextID:    1,
	}
}

func cloneQuestion(q *models.Question) *models.Question {
	clone := *q
	clone.Options = make([]models.Option, len(q.Options))
	copy(clone.Options, q.Options)
	clone.SyncResults()
	return &clone
}

func (s *MemoryStore) FindAll(ctx context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	questions := make([]models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		questions = append(questions, *cloneQuestion(q))
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id uint) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneQuestion(q), nil
}

func (s *MemoryStore) FindActive(ctx context.Context) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions {
		if q.Active && !q.Closed {
			return cloneQuestion(q), nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Insert(ctx context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.nextID
	s.nextID++
	for i := range q.Options {
		q.Options[i].QuestionID = q.ID
		q.Options[i].Position = i
	}
	s.questions[q.ID] = cloneQuestion(q)
	q.SyncResults()
	return nil
}

func (s *MemoryStore) SetFlags(ctx context.Context, id uint, active, closed bool) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	q.Active = active
	q.Closed = closed
	return cloneQuestion(q), nil
}

func (s *MemoryStore) DeactivateAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions {
		q.Active = false
	}
	return nil
}

func (s *MemoryStore) ReplaceOptions(ctx context.Context, id uint, text string, options []models.Option) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	q.Text = text
	q.Options = make([]models.Option, len(options))
	copy(q.Options, options)
	for i := range q.Options {
		q.Options[i].QuestionID = id
		q.Options[i].Position = i
	}
	return cloneQuestion(q), nil
}

func (s *MemoryStore) IncrementVote(ctx context.Context, id uint, optionIndex int) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return nil, ErrNotFound
	}
	q.Options[optionIndex].Votes++
	return cloneQuestion(q), nil
}

func (s *MemoryStore) ResetVotes(ctx context.Context, id uint) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range q.Options {
		q.Options[i].Votes = 0
	}
	q.Closed = false
	return cloneQuestion(q), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.questions, id)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.questions)), nil
}
