package controller

import (
	"ai-research-agent-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Check(ctx *fiber.Ctx) error
}

type healthController struct {
	db *gorm.DB
}

func NewHealthController(db *gorm.DB) IHealthController {
	return &healthController{db: db}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/health/v1")
	h.Get("", c.Check)
}

func (c *healthController) Check(ctx *fiber.Ctx) error {
	dbStatus := "up"
	sqlDB, err := c.db.DB()
	if err != nil || sqlDB.PingContext(ctx.Context()) != nil {
		dbStatus = "down"
	}

	if dbStatus != "up" {
		return ctx.Status(fiber.StatusServiceUnavailable).
			JSON(serverutils.ErrorResponse(fiber.StatusServiceUnavailable, "Database unreachable"))
	}

	return ctx.JSON(serverutils.SuccessResponse("OK", map[string]string{
		"status":   "up",
		"database": dbStatus,
	}))
}
