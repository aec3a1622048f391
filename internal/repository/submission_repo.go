package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	OrganizationID *string
	UserKey        *string
	ActivityID     *string
}

// SubmissionRepository persists graded submissions. Quiz and assignment
// submissions are kept in separate stores selected by kind.
type SubmissionRepository interface {
	Create(ctx context.Context, kind models.ActivityKind, submission *models.Submission) error
	Exists(ctx context.Context, kind models.ActivityKind, userKey, activityID string) (bool, error)
	List(ctx context.Context, kind models.ActivityKind, filter SubmissionFilter) ([]models.Submission, error)
	SumScoresByUser(ctx context.Context, kind models.ActivityKind, organizationID *string) ([]models.UserScoreTotal, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) table(ctx context.Context, kind models.ActivityKind) *gorm.DB {
	return r.db.WithContext(ctx).Table(kind.SubmissionTable())
}

// Create inserts a new attempt. A second non-retake attempt for the same user
// and activity is rejected by the store and reported as ErrDuplicateEntry.
func (r *submissionRepository) Create(ctx context.Context, kind models.ActivityKind, submission *models.Submission) error {
	return translateWriteError(r.table(ctx, kind).Create(submission).Error)
}

func (r *submissionRepository) Exists(ctx context.Context, kind models.ActivityKind, userKey, activityID string) (bool, error) {
	var count int64
	if err := r.table(ctx, kind).
		Where("user_key = ?", userKey).
		Where("activity_id = ?", activityID).
		Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *submissionRepository) List(ctx context.Context, kind models.ActivityKind, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.table(ctx, kind)

	if filter.OrganizationID != nil {
		query = query.Where("organization_id = ?", *filter.OrganizationID)
	}

	if filter.UserKey != nil {
		query = query.Where("user_key = ?", *filter.UserKey)
	}

	if filter.ActivityID != nil {
		query = query.Where("activity_id = ?", *filter.ActivityID)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC").Order("id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// SumScoresByUser groups the store by the raw user identifier and sums scores.
// Rows are ordered by the first appearance of each identifier.
func (r *submissionRepository) SumScoresByUser(ctx context.Context, kind models.ActivityKind, organizationID *string) ([]models.UserScoreTotal, error) {
	query := r.table(ctx, kind).Select("user_id, SUM(score) AS total, MIN(id) AS first_id")
	if organizationID != nil {
		query = query.Where("organization_id = ?", *organizationID)
	}

	var rows []struct {
		UserID  string
		Total   int
		FirstID uint
	}
	if err := query.Group("user_id").Order("first_id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make([]models.UserScoreTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, models.UserScoreTotal{UserID: row.UserID, Total: row.Total})
	}
	return totals, nil
}
