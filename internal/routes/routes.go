package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/orbit-crm/orbit-server/internal/admin"
	"github.com/orbit-crm/orbit-server/internal/config"
	"github.com/orbit-crm/orbit-server/internal/kvstore"
	"github.com/orbit-crm/orbit-server/internal/logging"
	"github.com/orbit-crm/orbit-server/internal/middleware"
	"github.com/orbit-crm/orbit-server/internal/phoneauth"
	"github.com/orbit-crm/orbit-server/internal/qrauth"
	"github.com/orbit-crm/orbit-server/internal/seed"
	"github.com/orbit-crm/orbit-server/internal/session"
	"github.com/orbit-crm/orbit-server/internal/telephony"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Auth state must survive restarts outside of dev.
	if !isDev(d.Cfg.AppEnv) && d.DB == nil && d.Cache == nil {
		return fmt.Errorf("a database or redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backend: Postgres when available, then Redis, then memory.
	var store kvstore.Store
	switch {
	case d.DB != nil:
		if err := kvstore.EnsureSchema(context.Background(), d.DB); err != nil {
			return err
		}
		store = kvstore.NewPostgres(d.DB)
	case d.Cache != nil:
		store = kvstore.NewRedis(d.Cache)
	default:
		d.Logger.Warn("no database or redis configured, auth state is in-memory only")
		store = kvstore.NewMemory()
	}

	// Services and handlers
	sessions := session.NewManager(store, d.Cfg.UserSessionTTL, d.Cfg.AdminSessionTTL)

	var gateway telephony.Gateway
	if d.Cfg.GatewayEnabled() {
		gateway = telephony.NewHTTPGateway(d.Cfg.GatewayAPIURL, d.Cfg.GatewayToken)
	} else {
		d.Logger.Warn("telephony gateway not configured, using static stub")
		gateway = telephony.StaticGateway{}
	}

	seeder := seed.NewLoggerSeeder(logging.Component(d.Logger, "seed"))
	phoneSvc := phoneauth.NewService(store, gateway, sessions, seeder,
		logging.Component(d.Logger, "phoneauth"), phoneauth.Options{
			TTL:        d.Cfg.PhoneAuthTTL,
			Throttle:   d.Cfg.CallThrottle,
			TestPhone:  d.Cfg.TestPhone,
			WebhookURL: d.Cfg.WebhookURL(),
		})
	phoneHandler := phoneauth.NewHandler(phoneSvc, logging.Component(d.Logger, "phoneauth"))

	qrSvc := qrauth.NewService(store, sessions, logging.Component(d.Logger, "qrauth"), d.Cfg.QrAuthTTL)
	qrHandler := qrauth.NewHandler(qrSvc, d.Cfg.WebhookBaseURL)

	adminSvc := admin.NewService(store, sessions, logging.Component(d.Logger, "admin"), admin.Bootstrap{
		Secret:   d.Cfg.AdminSecret,
		Username: d.Cfg.AdminDefaultUsername,
		Password: d.Cfg.AdminDefaultPassword,
	})
	if err := adminSvc.EnsureDefaultAdmin(context.Background()); err != nil {
		return err
	}
	adminHandler := admin.NewHandler(adminSvc, sessions)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	userAuth := middleware.UserAuth(sessions, d.Cfg.LegacyPhoneHeader)
	adminAuth := middleware.AdminAuth(sessions)

	phoneLimiter := middleware.RateLimit(d.Cache, "phone", 10, time.Minute, middleware.BodyField("phone"))
	adminLoginLimiter := middleware.RateLimit(d.Cache, "admin_login", 5, time.Minute, middleware.BodyField("username"))

	RegisterPhoneAuthRoutes(api, phoneHandler, phoneLimiter)
	RegisterQrAuthRoutes(api, qrHandler, userAuth)
	RegisterUserRoutes(api, sessions, userAuth)
	RegisterAdminRoutes(api, adminHandler, adminSvc, adminAuth, adminLoginLimiter)

	return nil
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}
