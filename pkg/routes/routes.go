// Package routes wires the HTTP API
package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/sorrel/pkg/routes/dedupejob"
	"github.com/Ramsey-B/sorrel/pkg/routes/health"
	"github.com/Ramsey-B/sorrel/pkg/routes/mergenote"
)

// Register attaches middleware and all API routes to the echo instance
func Register(e *echo.Echo, checker *health.Checker) {
	e.Use(otelecho.Middleware("sorrel"))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	dedupejob.Register(api.Group("/dedupe/jobs"))
	mergenote.Register(api.Group("/merge-notes"))
}
