package handlers

import (
	"time"

	"gatekeeper/internal/domain"
	applog "gatekeeper/internal/log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

// LoginLimiter throttles login attempts per client address. It answers 429
// before the handler touches the store. A nil storage keeps counters in memory.
func LoginLimiter(max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "login|" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Status(fiber.StatusTooManyRequests)
			applog.Security(c, "rate.login.hit", nil)
			return writeError(c, domain.ErrRateLimited)
		},
	})
}

// NewApp builds the fiber app with middleware and routes.
func NewApp(d *Deps, storage fiber.Storage) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		Views:        NewViews(),
		ErrorHandler: ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
		ProxyHeader:  cfg.ProxyHeader,
	})

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Content-Type",
	}))

	api := app.Group("/api")
	api.Post("/register", d.AuthHandler.Register)
	api.Post("/login", LoginLimiter(cfg.LoginRateMax, cfg.LoginRateWindow, storage), d.AuthHandler.Login)
	api.Get("/me", RequireSession(d.AuthService), d.AuthHandler.Me)
	api.Post("/logout", d.AuthHandler.Logout)

	users := api.Group("/users", RequireAdmin(d.AuthService))
	users.Post("/", d.UserHandler.Create)
	users.Get("/pending", d.UserHandler.Pending)
	users.Patch("/:id/approve", d.UserHandler.Approve)

	admin := app.Group("/admin", RequireAdmin(d.AuthService))
	admin.Get("/pending", d.AdminHandler.PendingPage)

	// Health & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})

	return app
}
