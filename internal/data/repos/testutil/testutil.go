package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/memoapp/planner-backend/internal/data/db"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/types"
)

// DB opens the test database named by TEST_POSTGRES_DSN and skips the
// test when the variable is unset. Migrations run once per call; they
// are idempotent.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("TEST_POSTGRES_DSN not set; skipping database test")
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		tb.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

// Tx returns a transaction that is rolled back when the test finishes,
// so tests never leak rows into each other.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()

	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback()
	})
	return tx
}

// Logger returns a quiet development logger for repo constructors.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()

	log, err := logger.New("dev")
	if err != nil {
		tb.Fatalf("new logger: %v", err)
	}
	tb.Cleanup(log.Sync)
	return log
}

// SeedSettings inserts planner settings with sane defaults for userID.
func SeedSettings(tb testing.TB, tx *gorm.DB, userID uuid.UUID) *types.PlannerSettings {
	tb.Helper()

	s := &types.PlannerSettings{
		UserID:         userID,
		StudyStartTime: "16:00",
		StudyEndTime:   "22:00",
		SleepStartTime: "23:00",
		SleepEndTime:   "07:00",
	}
	if err := tx.Create(s).Error; err != nil {
		tb.Fatalf("seed settings: %v", err)
	}
	return s
}

// SeedSchedule inserts a draft schedule for userID covering one week.
func SeedSchedule(tb testing.TB, tx *gorm.DB, userID uuid.UUID, status string) *types.PlannerSchedule {
	tb.Helper()

	now := time.Now().UTC().Truncate(24 * time.Hour)
	sch := &types.PlannerSchedule{
		UserID:           userID,
		StartDate:        now,
		EndDate:          now.AddDate(0, 0, 7),
		Status:           status,
		Mode:             "auto",
		AlgorithmVersion: "v1",
		GeneratedAt:      time.Now().UTC(),
	}
	if err := tx.Create(sch).Error; err != nil {
		tb.Fatalf("seed schedule: %v", err)
	}
	return sch
}

// SeedSession inserts a scheduled study session on the given schedule.
func SeedSession(tb testing.TB, tx *gorm.DB, sch *types.PlannerSchedule, startsAt time.Time, minutes int) *types.PlannerStudySession {
	tb.Helper()

	subjectID := uuid.New()
	sess := &types.PlannerStudySession{
		ScheduleID:      sch.ID,
		UserID:          sch.UserID,
		SubjectID:       &subjectID,
		StartsAt:        startsAt,
		EndsAt:          startsAt.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
		Kind:            types.SessionKindStudy,
		RequiredEnergy:  4,
		Status:          types.SessionStatusScheduled,
	}
	if err := tx.Create(sess).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return sess
}
