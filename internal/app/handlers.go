package app

import (
	"github.com/memoapp/planner-backend/internal/handlers"
	"github.com/memoapp/planner-backend/internal/middleware"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
	"github.com/memoapp/planner-backend/internal/server"
)

type Handlers struct {
	Planner  *handlers.PlannerHandler
	Identity *middleware.IdentityMiddleware
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Planner:  handlers.NewPlannerHandler(log, serviceset.Planner),
		Identity: middleware.NewIdentityMiddleware(log),
	}
}

func wireRouter(cfg Config, log *logger.Logger, handlerset Handlers) *server.RouterConfig {
	return &server.RouterConfig{
		Log:            log,
		PlannerHandler: handlerset.Planner,
		Identity:       handlerset.Identity,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}
