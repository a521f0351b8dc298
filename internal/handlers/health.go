package handlers

import (
	"context"
	"time"

	"dealflow/internal/database"
	"dealflow/internal/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	mongoDB      *database.MongoDB // nil in store-less dev mode
	redisService *services.RedisService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(mongoDB *database.MongoDB, redisService *services.RedisService) *HealthHandler {
	return &HealthHandler{mongoDB: mongoDB, redisService: redisService}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	mongoStatus := "disabled"
	if h.mongoDB != nil {
		mongoStatus = "ok"
		if err := h.mongoDB.Ping(ctx); err != nil {
			mongoStatus = "unreachable"
		}
	}

	redisStatus := "disabled"
	if h.redisService != nil {
		redisStatus = "ok"
		if err := h.redisService.Ping(ctx); err != nil {
			redisStatus = "unreachable"
		}
	}

	status := "healthy"
	if mongoStatus == "unreachable" || redisStatus == "unreachable" {
		status = "degraded"
	}

	return c.JSON(fiber.Map{
		"status":    status,
		"mongodb":   mongoStatus,
		"redis":     redisStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
