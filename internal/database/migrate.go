package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-assessment-api/internal/models"
)

// Migrate creates the tables and indexes the service reads and writes.
// Quiz and assignment submissions share a schema but live in separate tables,
// so their indexes are created explicitly with per-table names.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Activity{}, &models.User{}); err != nil {
		return fmt.Errorf("migrate activities and users: %w", err)
	}

	for _, kind := range []models.ActivityKind{models.ActivityKindQuiz, models.ActivityKindAssignment} {
		table := kind.SubmissionTable()
		if err := db.Table(table).AutoMigrate(&models.Submission{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}

		statements := []string{
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_user_activity ON %[1]s (user_key, activity_id)", table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%[1]s_organization ON %[1]s (organization_id)", table),
			// at most one attempt per user and activity unless retakes were allowed
			fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS uq_%[1]s_single_attempt ON %[1]s (user_key, activity_id) WHERE NOT retakes_allowed", table),
		}
		for _, statement := range statements {
			if err := db.Exec(statement).Error; err != nil {
				return fmt.Errorf("index %s: %w", table, err)
			}
		}
	}

	return nil
}
