package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/joho/godotenv"

	"github.com/dawamr/dramabox-astro/config"
	"github.com/dawamr/dramabox-astro/database"
	"github.com/dawamr/dramabox-astro/handlers"
	"github.com/dawamr/dramabox-astro/logging"
	"github.com/dawamr/dramabox-astro/services/dramabox"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	// Logger: console sink always, file sink only when configured and the
	// directory is writable.
	var sink logging.DurableSink = logging.NopSink{}
	if cfg.LogToFile {
		fileSink, err := logging.NewFileSink(cfg.LogDir, cfg.MaxFileSizeMB, cfg.MaxLogFiles)
		if err != nil {
			log.Printf("File logging disabled: %v", err)
		} else {
			sink = fileSink
		}
	}
	appLog := logging.New(logging.Options{
		Level:             logging.ParseLevel(cfg.LogLevel),
		Console:           cfg.LogToConsole,
		Sink:              sink,
		IncludeStackTrace: cfg.IncludeStackTrace,
	})
	defer appLog.Stop()

	tracker := logging.NewRequestTracker(appLog.WithSource("upstream"), logging.TrackerOptions{
		SlowThreshold:   time.Duration(cfg.SlowRequestMs) * time.Millisecond,
		LogRequests:     cfg.LogRequests,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
	})

	// Periodic eviction of requests nobody ever completed.
	sweepTicker := time.NewTicker(time.Minute)
	defer sweepTicker.Stop()
	go func() {
		for range sweepTicker.C {
			tracker.Sweep()
		}
	}()

	db, err := database.Connect()
	if err != nil {
		log.Fatal("Failed to connect to database. \n", err)
	}

	tokens := dramabox.NewTokenClient(cfg.TokenEndpoint, appLog)
	drama := dramabox.New(dramabox.Options{
		BaseURL:   cfg.UpstreamBase,
		Headers:   tokens,
		Logger:    appLog.WithSource("dramabox"),
		Tracker:   tracker,
		PageSize:  cfg.PageSize,
		PageDelay: cfg.PageDelay,
	})

	app := fiber.New()

	// Security Middleware
	app.Use(helmet.New())

	// Rate Limiting (100 reqs / min)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status":  "error",
				"message": "Too many requests, please try again later.",
			})
		},
	}))

	// CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(handlers.RequestLogger(appLog))

	h := handlers.NewHandler(cfg, db, appLog, tracker, drama, tokens)

	// Routes
	api := app.Group("/api")

	api.Get("/home", h.GetHome)
	api.Get("/search", h.GetSearch)
	api.Get("/detail/:bookId", h.GetDetail)
	api.Get("/stream", h.GetStream)

	// Proxies
	api.Get("/proxy", h.ProxyStream)
	api.All("/dramabox/*", h.ProxyAPI)

	// My List (Bookmarks)
	api.Get("/mylist", h.GetBookmarks)
	api.Post("/mylist", h.AddBookmark)
	api.Delete("/mylist/:bookId", h.RemoveBookmark)
	api.Get("/mylist/check/:bookId", h.CheckBookmark)

	// History
	api.Post("/history", h.SaveHistory)
	api.Get("/history", h.GetHistory)
	api.Get("/history/check", h.CheckHistory)

	// Admin (Protected)
	api.Post("/admin/login", h.AdminLogin)
	admin := api.Group("/admin", h.RequireAdmin)
	admin.Get("/requests", h.GetRequestStats)
	admin.Get("/logs", h.GetLogFiles)
	admin.Post("/cache/clear", h.ClearCache)

	appLog.Info("server starting", map[string]interface{}{
		"port":      cfg.Port,
		"env":       cfg.Env,
		"sessionId": appLog.SessionID(),
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal("Server Listen Error: ", err)
		}
	}()

	// Wait for interrupt, then drain: stop accepting, flush the log buffer.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("server shutting down")
	if err := app.Shutdown(); err != nil {
		log.Println("Forced shutdown:", err)
	}
	appLog.Stop()
}
