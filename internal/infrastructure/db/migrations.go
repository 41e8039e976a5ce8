package db

import (
	"github.com/composedeck/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.DeploymentLog{}); err != nil {
		return err
	}

	// History is listed by file more often than by id.
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_deployment_logs_file_created
		ON deployment_logs (file_path, created_at)
	`).Error
}
