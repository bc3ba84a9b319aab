package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"research-repository-api/models"
	"research-repository-api/services"

	"gorm.io/gorm"
)

// GormStore implements the paper and user repositories on a SQL database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the users and papers tables.
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&models.User{}, &models.Paper{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *GormStore) CreatePaper(ctx context.Context, paper *models.Paper) error {
	return s.db.WithContext(ctx).Omit("Owner").Create(paper).Error
}

// ListPapers returns the papers matching filter with their owners preloaded.
func (s *GormStore) ListPapers(ctx context.Context, filter services.PaperFilter) ([]models.Paper, error) {
	var papers []models.Paper
	err := s.db.WithContext(ctx).
		Preload("Owner").
		Scopes(filter.Apply).
		Find(&papers).Error
	if err != nil {
		return nil, err
	}
	return papers, nil
}

func (s *GormStore) FindPaper(ctx context.Context, id uint) (models.Paper, bool, error) {
	var paper models.Paper
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&paper).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Paper{}, false, nil
		}
		return models.Paper{}, false, err
	}
	return paper, true, nil
}

// TransitionStatus issues UPDATE ... WHERE id = ? AND status = ? so two
// reviewers cannot both move the same paper out of from.
func (s *GormStore) TransitionStatus(ctx context.Context, id uint, from, to models.PaperStatus, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Paper{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return services.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id uint) (models.User, bool, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (models.User, bool, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *GormStore) findUser(ctx context.Context, query string, arg interface{}) (models.User, bool, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, false, nil
		}
		return models.User{}, false, err
	}
	return user, true, nil
}
