package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// ActivityRepository reads quiz and assignment definitions owned by the
// authoring service.
type ActivityRepository interface {
	GetByID(ctx context.Context, kind models.ActivityKind, status models.ActivityStatus, id uuid.UUID) (models.Activity, error)
	ListIDs(ctx context.Context, kind models.ActivityKind, organizationID string) ([]string, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository instantiates the repository.
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) GetByID(ctx context.Context, kind models.ActivityKind, status models.ActivityStatus, id uuid.UUID) (models.Activity, error) {
	var activity models.Activity
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("kind = ?", kind).
		Where("status = ?", status).
		First(&activity).Error; err != nil {
		return models.Activity{}, err
	}

	return activity, nil
}

func (r *activityRepository) ListIDs(ctx context.Context, kind models.ActivityKind, organizationID string) ([]string, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Activity{}).
		Where("kind = ?", kind).
		Where("organization_id = ?", organizationID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, id.String())
	}
	return result, nil
}
