package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/memoapp/planner-backend/internal/handlers"
	"github.com/memoapp/planner-backend/internal/middleware"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	PlannerHandler *handlers.PlannerHandler
	Identity       *middleware.IdentityMiddleware
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthz", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.Identity.RequireUser())

	planner := api.Group("/planner")
	{
		planner.POST("/schedules/generate", cfg.PlannerHandler.GenerateSchedule)
		planner.POST("/schedules/:id/activate", cfg.PlannerHandler.ActivateSchedule)
		planner.DELETE("/schedules/:id", cfg.PlannerHandler.DeleteSchedule)
		planner.GET("/schedules/active", cfg.PlannerHandler.GetActiveSchedule)

		planner.PUT("/settings", cfg.PlannerHandler.UpdateSettings)

		planner.POST("/exams/:id/result", cfg.PlannerHandler.RecordExamResult)
		planner.POST("/sessions/:id/topic-test-result", cfg.PlannerHandler.RecordTopicTestResult)
		planner.POST("/sessions/:id/status", cfg.PlannerHandler.MarkSessionStatus)
		planner.POST("/sessions/check-missed", cfg.PlannerHandler.RunMissedSessionCheck)

		planner.POST("/priorities/recompute", cfg.PlannerHandler.RecomputePriorities)
		planner.GET("/priorities", cfg.PlannerHandler.GetPriorities)
		planner.GET("/adaptations", cfg.PlannerHandler.ListAdaptationEvents)
	}

	return router
}
