package app

import (
	goredis "github.com/redis/go-redis/v9"

	"github.com/memoapp/planner-backend/internal/clients/academics"
	"github.com/memoapp/planner-backend/internal/clients/content"
	"github.com/memoapp/planner-backend/internal/clients/notify"
	"github.com/memoapp/planner-backend/internal/clients/prayertimes"
	redisclient "github.com/memoapp/planner-backend/internal/clients/redis"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
)

type Clients struct {
	Redis       *goredis.Client
	PrayerTimes *prayertimes.Client
	Academics   *academics.Client
	Content     *content.Client
	Notify      *notify.Client
}

func wireClients(cfg Config, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	rdb, err := redisclient.New(log)
	if err != nil {
		return Clients{}, err
	}

	return Clients{
		Redis:       rdb,
		PrayerTimes: prayertimes.New(cfg.PrayerAPIBaseURL, rdb, log),
		Academics:   academics.NewClient(cfg.AcademicAPIBaseURL, log),
		Content:     content.NewClient(cfg.ContentAPIBaseURL, log),
		Notify:      notify.NewClient(rdb, log),
	}, nil
}
