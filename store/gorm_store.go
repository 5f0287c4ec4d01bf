package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ChristophStock/tvteam-ted/models"
)

// GormStore is the Postgres-backed QuestionStore.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Options", func(db *gorm.DB) *gorm.DB {
		return db.Order("options.position")
	})
}

func (s *GormStore) FindAll(ctx context.Context) ([]models.Question, error) {
	var questions []models.Question
	if err := s.preloaded(ctx).Order("created_at").Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	for i := range questions {
		questions[i].SyncResults()
	}
	return questions, nil
}

func (s *GormStore) FindByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	err := s.preloaded(ctx).First(&question, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find question %d: %w", id, err)
	}
	question.SyncResults()
	return &question, nil
}

func (s *GormStore) FindActive(ctx context.Context) (*models.Question, error) {
	var question models.Question
	err := s.preloaded(ctx).Where("active = ? AND closed = ?", true, false).First(&question).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active question: %w", err)
	}
	question.SyncResults()
	return &question, nil
}

func (s *GormStore) Insert(ctx context.Context, q *models.Question) error {
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	q.SyncResults()
	return nil
}

func (s *GormStore) SetFlags(ctx context.Context, id uint, active, closed bool) (*models.Question, error) {
	res := s.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).
		Updates(map[string]interface{}{"active": active, "closed": closed})
	if res.Error != nil {
		return nil, fmt.Errorf("update question %d flags: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *GormStore) DeactivateAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Model(&models.Question{}).Where("active = ?", true).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("deactivate questions: %w", err)
	}
	return nil
}

func (s *GormStore) ReplaceOptions(ctx context.Context, id uint, text string, options []models.Option) (*models.Question, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Question{}).Where("id = ?", id).Update("text", text)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Unscoped().Where("question_id = ?", id).Delete(&models.Option{}).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].ID = 0
			options[i].QuestionID = id
			options[i].Position = i
		}
		return tx.Create(&options).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("replace options of question %d: %w", id, err)
	}
	return s.FindByID(ctx, id)
}

// IncrementVote bumps the tally with a single UPDATE so concurrent votes on
// the same option never overwrite each other.
func (s *GormStore) IncrementVote(ctx context.Context, id uint, optionIndex int) (*models.Question, error) {
	res := s.db.WithContext(ctx).Model(&models.Option{}).
		Where("question_id = ? AND position = ?", id, optionIndex).
		UpdateColumn("votes", gorm.Expr("votes + ?", 1))
	if res.Error != nil {
		return nil, fmt.Errorf("increment vote on question %d option %d: %w", id, optionIndex, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *GormStore) ResetVotes(ctx context.Context, id uint) (*models.Question, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Question{}).Where("id = ?", id).Update("closed", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Option{}).Where("question_id = ?", id).
			UpdateColumn("votes", 0).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reset question %d: %w", id, err)
	}
	return s.FindByID(ctx, id)
}

func (s *GormStore) Delete(ctx context.Context, id uint) error {
	// Deleting an absent id affects zero rows and is deliberately not an error.
	if err := s.db.WithContext(ctx).Delete(&models.Question{}, id).Error; err != nil {
		return fmt.Errorf("delete question %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Question{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}
