// Package http provides the HTTP server implementation for the tutor.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/xiaot623/gogo/tutor/internal/config"
	"github.com/xiaot623/gogo/tutor/internal/logger"
	"github.com/xiaot623/gogo/tutor/internal/service"
	v1 "github.com/xiaot623/gogo/tutor/internal/transport/http/v1"
)

// NewServer creates and configures the public HTTP server.
func NewServer(svc *service.Service, cfg *config.Config, log *logger.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc, cfg, log)

	// Register Routes
	v1Handler.RegisterRoutes(e)

	return e
}
