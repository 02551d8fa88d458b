package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	checkHealthy     = "healthy"
	checkUnhealthy   = "unhealthy"
	checkUnavailable = "unavailable"
)

// LivenessCheck reports that the process is serving requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck pings the database and, when configured, Redis.
// A missing or failing Redis degrades the service but keeps it ready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{
		"database": s.pingDatabase(ctx),
		"redis":    s.pingRedis(ctx),
	}

	code, overall := fiber.StatusOK, checkHealthy
	switch {
	case checks["database"] != checkHealthy:
		code, overall = fiber.StatusServiceUnavailable, checkUnhealthy
	case checks["redis"] != checkHealthy:
		overall = "degraded"
	}

	return c.Status(code).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}

func (s *Server) pingDatabase(ctx context.Context) string {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		return checkUnhealthy
	}
	return checkHealthy
}

func (s *Server) pingRedis(ctx context.Context) string {
	if s.redis == nil {
		return checkUnavailable
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return checkUnhealthy
	}
	return checkHealthy
}
