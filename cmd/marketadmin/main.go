package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"

	"marketadmin/internal/config"
	"marketadmin/internal/http/handlers"
	applog "marketadmin/internal/log"
	"marketadmin/internal/metrics"
	"marketadmin/internal/notify"
	"marketadmin/internal/repos"
	"marketadmin/internal/services"
	"marketadmin/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[warn] no .env loaded: %v", err)
	}
	cfg := config.Load()

	if cfg.LogFile != "" {
		log.SetOutput(applog.Output(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups))
	}

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := repos.SeedAdmin(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// ---------- Providers ----------
	local, err := storage.NewLocal(cfg.MediaDir)
	if err != nil {
		log.Fatal(err)
	}
	var files storage.Store = local
	if cfg.StorageDriver == "s3" {
		files, err = storage.NewS3(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			log.Fatal(err)
		}
	}
	log.Printf("[storage] driver=%s media=%s", cfg.StorageDriver, local.Root)

	renderer, err := notify.NewRenderer(cfg.AppURL)
	if err != nil {
		log.Fatal(err)
	}
	var mailer notify.Mailer = &notify.LogMailer{Renderer: renderer}
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, renderer)
	}

	var events notify.Publisher = notify.LogPublisher{}
	if cfg.RedisAddr != "" {
		rp := notify.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB)
		defer rp.Close()
		events = rp
	}

	authSvc, err := services.NewAuthService(repos.NewUserRepo(db), cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatal(err)
	}
	m := metrics.New()
	deps := handlers.NewDeps(db, authSvc, files, mailer, events, m)

	// ---------- App ----------
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimitMB << 20,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(m.Middleware())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return strings.HasPrefix(p, "/media/") || p == "/healthz" || p == "/metrics"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))

	app.Get("/media/*", handlers.Media(local))
	app.Get("/metrics", m.Handler())
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	deps.Mount(app, limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|login"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many attempts. Please try again later."})
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	})

	log.Fatal(app.Listen(":" + cfg.Port))
}
