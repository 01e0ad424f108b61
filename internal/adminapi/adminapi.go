// Package adminapi serves the read-only operator HTTP surface
// alongside the signing protocol listener, generalized from the
// teacher's app/host status page (recover + compact request log
// middleware, fiber.Map JSON responses) onto this repo's health
// monitor and known-keys set instead of e-ink UI/lock state.
package adminapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tez-capital/tezsign-core/internal/encoding"
	"github.com/tez-capital/tezsign-core/internal/health"
	"github.com/tez-capital/tezsign-core/internal/signercore"
)

// New builds the admin fiber.App. It never touches secret key material
// or the watermark store directly — everything goes through core, the
// same entrypoint the protocol server uses.
func New(core *signercore.Core, monitor *health.Monitor) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${method} ${path} ${status} ${latency}\n",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if monitor != nil && !monitor.IsHealthy() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"healthy": false,
			})
		}
		resp := fiber.Map{"healthy": true}
		if monitor != nil {
			resp["seconds_since_activity"] = monitor.SecondsSinceActivity()
			resp["request_count"] = monitor.RequestCount()
		}
		return c.JSON(resp)
	})

	app.Get("/known-keys", func(c *fiber.Ctx) error {
		pkhs := core.KnownKeys()
		encoded := make([]string, 0, len(pkhs))
		for _, pkh := range pkhs {
			tz4, err := encoding.Encode(encoding.PrefixPKH, pkh[:])
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
			}
			encoded = append(encoded, tz4)
		}
		return c.JSON(fiber.Map{"keys": encoded})
	})

	return app
}
