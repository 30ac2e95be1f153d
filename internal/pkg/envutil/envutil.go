package envutil

import (
	"os"
	"strconv"
	"strings"

	"github.com/memoapp/planner-backend/internal/pkg/logger"
)

func GetEnv(key, fallback string, log *logger.Logger) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		if log != nil {
			log.Debug("env var not set, using fallback", "key", key, "fallback", fallback)
		}
		return fallback
	}
	return val
}

func GetEnvAsInt(key string, fallback int, log *logger.Logger) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		if log != nil {
			log.Warn("env var is not an integer, using fallback", "key", key, "value", val)
		}
		return fallback
	}
	return parsed
}
