package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eduvibe/config"
	authController "eduvibe/controllers/auth"
	courseController "eduvibe/controllers/course"
	liveClassController "eduvibe/controllers/liveClass"
	videoController "eduvibe/controllers/video"
	"eduvibe/database"
	"eduvibe/middleware"
	"eduvibe/realtime"
	authRoutes "eduvibe/routers/authRoutes"
	courseRoutes "eduvibe/routers/courseRoutes"
	liveClassRoutes "eduvibe/routers/liveClassRoutes"
	videoRoutes "eduvibe/routers/videoRoutes"
	"eduvibe/services/aadhar"
	"eduvibe/services/liveclass"
	"eduvibe/services/otp"
	"eduvibe/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func notifier(cfg *config.Config, log *zap.Logger) *utils.Dispatcher {
	var sms utils.SMSSender = utils.NewLogSMS(log)
	if cfg.SmsApiKey != "" {
		sms = utils.NewFast2SMS(cfg.SmsApiUrl, cfg.SmsApiKey, cfg.SmsSenderID, cfg.ExternalTimeout, log)
	}

	var mail utils.EmailSender = utils.NewLogMailer(log)
	switch {
	case cfg.SendgridApiKey != "":
		mail = utils.NewSendgridMailer(cfg.SendgridApiKey, cfg.EmailSender, log)
	case cfg.SmtpPassword != "":
		mail = utils.NewSMTPMailer(cfg.SmtpHost, cfg.SmtpPort, cfg.EmailSender, cfg.SmtpPassword, log)
	}

	return utils.NewDispatcher(sms, mail, cfg.ExternalTimeout, log)
}

func main() {
	cfg := config.LoadConfig()

	log, err := utils.NewLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.Connect(cfg, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}

	var otpOpts []otp.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		otpOpts = append(otpOpts, otp.WithLimiter(otp.NewRedisLimiter(rdb, otp.MaxIssued, otp.RateWindow)))
		log.Info("otp issuance limited through redis", zap.String("addr", cfg.RedisAddr))
	}
	dispatcher := notifier(cfg, log)
	otps := otp.NewService(db, dispatcher, log.Named("otp"), otpOpts...)

	verifier := aadhar.NewClient(cfg.AadharApiURL, cfg.AadharApiKey, cfg.ExternalTimeout, cfg.AadharSimulate, log)
	tokens := middleware.NewTokenIssuerFromConfig(cfg)

	hub := realtime.NewHub(log.Named("hub"))
	engine := liveclass.NewEngine(db, hub, log.Named("engine"))

	scheduler := cron.New()
	if _, err := otps.ScheduleReaper(scheduler, cfg.OTPReaperSpec); err != nil {
		log.Fatal("invalid otp reaper schedule", zap.String("spec", cfg.OTPReaperSpec), zap.Error(err))
	}
	if _, err := engine.ScheduleReminders(scheduler, cfg.ReminderSpec, dispatcher, cfg.ReminderLead); err != nil {
		log.Fatal("invalid class reminder schedule", zap.String("spec", cfg.ReminderSpec), zap.Error(err))
	}
	scheduler.Start()
	defer scheduler.Stop()

	gateway := realtime.NewGateway(hub, engine, tokens, strings.Split(cfg.FrontendURL, ","), log.Named("gateway"))

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(log, cfg.IsDevelopment()),
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.FrontendURL,
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization,Range",
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))
	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDevelopment()}))
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/videos")
		},
	}))
	app.Use("/api", limiter.New(limiter.Config{
		Max:        100,
		Expiration: 15 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return utils.NewApiError(utils.KindRateLimitExceeded, "TooManyRequests", "Too many requests, please try again later")
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		status := fiber.Map{"database": "up", "aadhar": "up"}
		code := fiber.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			status["database"] = "down"
			code = fiber.StatusServiceUnavailable
		}
		if !verifier.CheckStatus(c.UserContext()) {
			status["aadhar"] = "down"
		}
		return middleware.JsonResponse(c, code, code == fiber.StatusOK, "Service health", status)
	})

	app.Use("/ws", gateway.Upgrade)
	app.Get("/ws", gateway.Handler())

	api := app.Group("/api")
	authRoutes.SetupAuthRoutes(api, authController.New(db, otps, verifier, tokens, log), tokens)
	courseRoutes.SetupCourseRoutes(api, courseController.New(db, log), tokens)
	liveClassRoutes.SetupLiveClassRoutes(api, liveClassController.New(engine, log), tokens)
	videoRoutes.SetupVideoRoutes(api, videoController.New(cfg.VideoDir, db, log), tokens)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server is running", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
