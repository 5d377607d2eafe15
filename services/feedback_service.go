package services

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"

	"servicesync-server/models"
)

type FeedbackService struct {
	db *gorm.DB
}

func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{db: db}
}

func (s *FeedbackService) List(ctx context.Context) ([]models.Feedback, error) {
	var feedback []models.Feedback
	err := s.db.WithContext(ctx).
		Preload("Store").
		Preload("RatedBy").
		Order("created_at DESC").
		Find(&feedback).Error
	return feedback, err
}

// ListForStore returns the feedback left about a store owner.
func (s *FeedbackService) ListForStore(ctx context.Context, storeID uint) ([]models.Feedback, error) {
	var feedback []models.Feedback
	err := s.db.WithContext(ctx).
		Preload("RatedBy").
		Where("store_id = ?", storeID).
		Order("created_at DESC").
		Find(&feedback).Error
	return feedback, err
}

// Get returns one feedback entry to its rater, its store or an administrator.
func (s *FeedbackService) Get(ctx context.Context, actor Actor, id uint) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := s.db.WithContext(ctx).Preload("Store").Preload("RatedBy").First(&feedback, id).Error; err != nil {
		return nil, notFound("feedback", err)
	}
	if !actor.IsSuperAdmin() && feedback.RatedByID != actor.ID && feedback.StoreID != actor.ID {
		return nil, fmt.Errorf("%w: feedback %d belongs to another user", ErrForbidden, id)
	}
	return &feedback, nil
}

// Delete removes feedback, unlinks it from its request and recomputes the
// store's rating aggregate.
func (s *FeedbackService) Delete(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var feedback models.Feedback
		if err := tx.First(&feedback, id).Error; err != nil {
			return notFound("feedback", err)
		}
		if err := tx.Model(&models.Request{}).Where("feedback_id = ?", feedback.ID).Update("feedback_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Delete(&feedback).Error; err != nil {
			return err
		}
		return refreshStoreRating(tx, feedback.StoreID)
	})
	if err != nil {
		return err
	}
	log.Printf("✅ Feedback %d deleted", id)
	return nil
}

// refreshStoreRating recomputes a store owner's rating count and average
// from its feedback rows.
func refreshStoreRating(tx *gorm.DB, storeID uint) error {
	var summary struct {
		Total   int64
		Average float64
	}
	if err := tx.Model(&models.Feedback{}).
		Select("COUNT(*) AS total, COALESCE(AVG(rating * 1.0), 0) AS average").
		Where("store_id = ?", storeID).
		Scan(&summary).Error; err != nil {
		return err
	}

	return tx.Model(&models.User{}).Where("id = ?", storeID).Updates(map[string]interface{}{
		"total_ratings":  summary.Total,
		"average_rating": summary.Average,
	}).Error
}
