package migration

import (
	"fmt"

	"github.com/devscore/integrity/domain/model"
	"gorm.io/gorm"
)

// Up1 creates the submissions and proctor_logs tables. Submissions must exist
// first for the cascading foreign key.
func Up1(database *gorm.DB) error {
	if err := database.AutoMigrate(&model.Submission{}, &model.ProctorLog{}); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	return nil
}
