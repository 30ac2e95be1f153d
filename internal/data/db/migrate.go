package db

import (
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/types"
)

// AutoMigrateAll migrates every planner table.
func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrate(s.db)
}

func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&types.PlannerSettings{},
		&types.SubjectPriority{},
		&types.PlannerSchedule{},
		&types.PlannerStudySession{},
		&types.AdaptationEvent{},
	)
}
