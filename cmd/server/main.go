package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/placement-portal/internal/config"
	"github.com/iliyamo/placement-portal/internal/database"
	"github.com/iliyamo/placement-portal/internal/handler"
	"github.com/iliyamo/placement-portal/internal/mail"
	"github.com/iliyamo/placement-portal/internal/middleware"
	"github.com/iliyamo/placement-portal/internal/queue"
	"github.com/iliyamo/placement-portal/internal/repository"
	"github.com/iliyamo/placement-portal/internal/router"
	"github.com/iliyamo/placement-portal/internal/service"
	"github.com/iliyamo/placement-portal/internal/session"
	"github.com/iliyamo/placement-portal/internal/storage"
)

func main() {
	// .env is a development convenience; real deployments set the environment
	_ = godotenv.Load()

	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(parseLevel(cfg.LogLevel))
	log.SetPrefix("portal")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser,
		Pass: cfg.DBPass,
		Host: cfg.DBHost,
		Port: cfg.DBPort,
		Name: cfg.DBName,
	})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	// Redis is optional: without it sessions live in memory and the rate
	// limiter and response cache are disabled.
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		log.Fatal(err)
	}
	rateCfg, err := config.LoadRateLimitConfig()
	if err != nil {
		log.Fatal(err)
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		log.Fatal(err)
	}
	rdb := config.NewRedisClient(redisCfg)
	var sessions session.Store
	if rdb != nil {
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		log.Warn("redis unavailable; using in-memory sessions, rate limiting and caching off")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}
	cache := middleware.NewResponseCache(cacheCfg, rdb)

	files, uploadDir, err := newUploader(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	users := repository.NewUserRepo(db)
	jobs := repository.NewJobRepo(db)
	apps := repository.NewApplicationRepo(db)
	settings := repository.NewSettingsRepo(db)
	publisher := queue.NewPublisher(cfg.RabbitURL, cfg.MailQueue)

	identitySvc := service.NewIdentityService(users, settings, publisher, service.IdentityConfig{
		AdminKey:     cfg.AdminKey,
		BcryptCost:   cfg.BcryptCost,
		ResetTTL:     cfg.ResetTTL,
		ResetBaseURL: cfg.PublicURL,
	})
	jobSvc := service.NewJobService(jobs, users, cache)
	appSvc := service.NewApplicationService(apps, jobs, users, settings, publisher)
	userSvc := service.NewUserService(users, cache, cfg.BcryptCost)
	dashSvc := service.NewDashboardService(users, jobs, apps)
	settingsSvc := service.NewSettingsService(settings)

	sender := &mail.SMTPSender{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}
	go func() {
		if err := queue.StartMailConsumer(ctx, cfg.RabbitURL, cfg.MailQueue, sender); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorf("mail-consumer: stopped: %v", err)
		}
	}()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Logger.SetLevel(parseLevel(cfg.LogLevel))
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Errorf("%s %s %d %s: %v", v.Method, v.URI, v.Status, v.Latency, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	gateCfg := middleware.AuthConfig{Sessions: sessions, Users: identitySvc, JWTSecret: cfg.JWTSecret}
	gate := middleware.Authenticate(gateCfg)
	gateCfg.Optional = true
	optional := middleware.Authenticate(gateCfg)
	limiter := middleware.NewTokenBucket(rateCfg, rdb)

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db}, &handler.PublicHandler{Jobs: jobSvc}, cache.Middleware())
	if uploadDir != "" {
		router.RegisterUploads(e, &handler.FileHandler{Apps: appSvc, Dir: uploadDir, URLPrefix: "/uploads"}, gate)
	}
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, identitySvc, sessions), gate, optional, limiter)
	router.RegisterStudent(e, &handler.StudentHandler{
		Identity:  identitySvc,
		Jobs:      jobSvc,
		Apps:      appSvc,
		Dashboard: dashSvc,
		Files:     files,
		MaxUpload: cfg.MaxUpload,
	}, gate)
	router.RegisterCompany(e, &handler.CompanyHandler{
		Identity:  identitySvc,
		Jobs:      jobSvc,
		Apps:      appSvc,
		Dashboard: dashSvc,
		Files:     files,
		MaxUpload: cfg.MaxUpload,
	}, gate)
	router.RegisterAdmin(e, &handler.AdminHandler{
		Users:     userSvc,
		Jobs:      jobSvc,
		Apps:      appSvc,
		Dashboard: dashSvc,
		Settings:  settingsSvc,
		Sessions:  sessions,
	}, gate)

	addr := ":" + cfg.Port
	log.Infof("listening on %s (env=%s)", addr, cfg.Env)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

// newUploader picks Cloudinary when CLOUDINARY_URL is set and local disk
// otherwise.  The returned directory backs /uploads; it is empty for
// Cloudinary.
func newUploader(cfg config.Config) (storage.Uploader, string, error) {
	if cfg.Cloudinary != "" {
		c, err := storage.NewCloudinary(cfg.Cloudinary, "placement-portal")
		return c, "", err
	}
	return storage.NewDisk(cfg.UploadDir, "/uploads"), cfg.UploadDir, nil
}

func parseLevel(s string) log.Lvl {
	switch strings.ToLower(s) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}
