// Package utils holds the handful of tiny helpers cmd/main.go needs
// before an App exists to hand them a logger, grounded on the teacher's
// internal/utils env helpers.
package utils

import (
	"os"
	"strings"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// GetEnv reads key, falling back to def and logging that fallback when
// log is non-nil. Component wiring past process startup uses
// internal/platform/config and internal/platform/envutil instead; this
// exists only for the handful of reads cmd/main.go makes before an App
// (and its logger) is constructed.
func GetEnv(key, def string, log *logger.Logger) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v != "" {
		return v
	}
	if log != nil {
		log.Debug("env var unset, using default", "key", key, "default", def)
	}
	return def
}
