package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"feedboard/snapshot"
)

// NotFoundBody is sent for every path missing from the current snapshot
const NotFoundBody = "404!"

type ServerConfig struct {
	// Source of the pages to serve
	Publisher *snapshot.Publisher

	// Path of the Prometheus endpoint, disabled when empty
	MetricsPath string
}

// Returns a fiber.App instance serving the published snapshot
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Debug("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))

	if config.MetricsPath != "" {
		app.Get(config.MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Get("/*", func(c *fiber.Ctx) error {
		snap := config.Publisher.Current()
		if snap == nil {
			return c.Status(fiber.StatusNotFound).SendString(NotFoundBody)
		}

		doc, ok := snap.Lookup(c.Path())
		if !ok {
			return c.Status(fiber.StatusNotFound).SendString(NotFoundBody)
		}

		c.Set(fiber.HeaderContentType, doc.ContentType)
		c.Set(fiber.HeaderContentEncoding, "gzip")
		c.Set("X-Snapshot-Version", snap.Version)
		return c.Send(doc.Body)
	})

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).SendString(NotFoundBody)
	})

	return app
}
