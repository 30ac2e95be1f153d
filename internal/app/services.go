package app

import (
	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/planner/adaptation"
	"github.com/memoapp/planner-backend/internal/planner/availability"
	"github.com/memoapp/planner-backend/internal/planner/lifecycle"
	"github.com/memoapp/planner-backend/internal/planner/priority"
	"github.com/memoapp/planner-backend/internal/services"
)

type Services struct {
	Priority     *priority.Service
	Availability *availability.Model
	Adaptation   *adaptation.Engine
	Lifecycle    *lifecycle.Manager
	Planner      *services.PlannerService
}

func wireServices(log *logger.Logger, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")

	prioritySvc := priority.NewService(clients.Academics, clients.Academics, repos.Priority, repos.Session, log)
	availabilityModel := availability.NewModel(clients.PrayerTimes, log)
	adaptationEngine := adaptation.NewEngine(
		repos.Settings, repos.Schedule, repos.Session, repos.Priority, repos.AdaptationEvent,
		repos.Tx, prioritySvc, log)
	lifecycleManager := lifecycle.NewManager(repos.Schedule, repos.Session, repos.Tx, repos.Guard, log)

	plannerSvc := services.NewPlannerService(
		repos.Settings, repos.Priority, repos.AdaptationEvent,
		prioritySvc, availabilityModel, adaptationEngine, lifecycleManager,
		clients.Academics, clients.Content, clients.Notify, log)

	return Services{
		Priority:     prioritySvc,
		Availability: availabilityModel,
		Adaptation:   adaptationEngine,
		Lifecycle:    lifecycleManager,
		Planner:      plannerSvc,
	}
}
