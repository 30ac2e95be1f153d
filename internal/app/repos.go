package app

import (
	"gorm.io/gorm"

	"github.com/memoapp/planner-backend/internal/data/aggregates"
	plannerrepo "github.com/memoapp/planner-backend/internal/data/repos/planner"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
)

type Repos struct {
	Settings        plannerrepo.SettingsRepo
	Priority        plannerrepo.PriorityRepo
	Schedule        plannerrepo.ScheduleRepo
	Session         plannerrepo.SessionRepo
	AdaptationEvent plannerrepo.AdaptationEventRepo

	Tx    aggregates.TxRunner
	Guard aggregates.Guard
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Settings:        plannerrepo.NewSettingsRepo(db, log),
		Priority:        plannerrepo.NewPriorityRepo(db, log),
		Schedule:        plannerrepo.NewScheduleRepo(db, log),
		Session:         plannerrepo.NewSessionRepo(db, log),
		AdaptationEvent: plannerrepo.NewAdaptationEventRepo(db, log),
		Tx:              aggregates.NewGormTxRunner(db),
		Guard:           aggregates.NewStatusGuard(db),
	}
}
