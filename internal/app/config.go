package app

import (
	"strings"

	"github.com/memoapp/planner-backend/internal/pkg/envutil"
	"github.com/memoapp/planner-backend/internal/pkg/logger"
)

type Config struct {
	HTTPPort           string
	AllowedOrigins     []string
	PrayerAPIBaseURL   string
	AcademicAPIBaseURL string
	ContentAPIBaseURL  string
}

func LoadConfig(log *logger.Logger) Config {
	origins := strings.Split(envutil.GetEnv("ALLOWED_ORIGINS", "http://localhost:3000", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return Config{
		HTTPPort:           envutil.GetEnv("PORT", "8080", log),
		AllowedOrigins:     origins,
		PrayerAPIBaseURL:   envutil.GetEnv("PRAYER_API_BASE_URL", "https://api.aladhan.com", log),
		AcademicAPIBaseURL: envutil.GetEnv("ACADEMIC_API_BASE_URL", "http://localhost:8081", log),
		ContentAPIBaseURL:  envutil.GetEnv("CONTENT_API_BASE_URL", "http://localhost:8082", log),
	}
}
