package api

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/passbi/passbi_netex/internal/middleware"
	"github.com/redis/go-redis/v9"
)

// ServerConfig configures NewApp
type ServerConfig struct {
	// Redis enables per-IP rate limiting when set
	Redis          redis.UniversalClient
	RateLimit      int // requests per minute and client
	AccessLog      bool
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	DisableStartup bool
}

// NewApp builds the fiber application serving h
func NewApp(h *Handler, config ServerConfig) *fiber.App {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 5 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}

	app := fiber.New(fiber.Config{
		AppName:               "NeTEx graph API",
		ReadTimeout:           config.ReadTimeout,
		WriteTimeout:          config.WriteTimeout,
		IdleTimeout:           120 * time.Second,
		UnescapePath:          true,
		DisableStartupMessage: config.DisableStartup,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	if config.AccessLog {
		app.Use(logger.New(logger.Config{
			Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	if config.Redis != nil && config.RateLimit > 0 {
		app.Use(middleware.RateLimit(config.Redis, middleware.RateLimitConfig{PerMinute: config.RateLimit}))
	}

	h.Register(app)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	return app
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		log.Printf("Error: %v", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
