package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"siteplanner/internal/adminsession"
	"siteplanner/internal/cascade"
	"siteplanner/internal/config"
	"siteplanner/internal/database"
	"siteplanner/internal/handlers"
	"siteplanner/internal/identity"
	"siteplanner/internal/logging"
	"siteplanner/internal/mailer"
	"siteplanner/internal/middleware"
	"siteplanner/internal/otp"
	"siteplanner/internal/ratelimit"
)

func main() {
	config.Load()
	cfg := config.AppEnv
	logging.Setup(cfg.Log.Level, cfg.Log.File, !cfg.IsDevelopment())

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal(err)
	}
	db := client.Database(cfg.DBName)
	log.WithField("db", db.Name()).Info("MongoDB connected")

	if err := database.EnsureIndexes(db); err != nil {
		log.WithError(err).Warn("index bootstrap incomplete")
	}

	users, err := identity.NewFirebaseProvider(context.Background(), cfg.Firebase.CredentialsPath)
	if err != nil {
		log.Fatal(err)
	}

	creds, err := handlers.NewAdminCredentials(cfg.Admin.Email, cfg.Admin.PasswordHash, cfg.Admin.Password)
	if err != nil {
		log.Fatal(err)
	}
	admins := adminsession.NewManager(cfg.Admin.SessionSecret, cfg.Admin.SessionTTL, !cfg.IsDevelopment())

	limiter := newOTPLimiter(cfg)
	sender := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.Sender)
	codes := otp.NewService(otp.NewMongoStore(db), sender, limiter, cfg.OTP.RequestsPerWindow, cfg.OTP.TTL)

	workflow := cascade.New(database.NewStore(db))
	stats := handlers.NewAnalyticsCache(cfg.Analytics.CacheTTL)
	session := handlers.SessionSettings{TTL: cfg.Firebase.SessionCookieTTL, Secure: !cfg.IsDevelopment()}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.AccessGate(users, admins))

	r.LoadHTMLGlob("templates/**/*")
	r.Static("/public", "./public")

	r.GET("/health", handlers.Health(db))
	r.GET("/healthz", handlers.Health(db))

	handlers.RegisterPages(r, handlers.UserPages)
	handlers.RegisterPages(r, handlers.AdminPages)

	api := r.Group("/api")
	{
		api.POST("/auth/otp", handlers.RequestOTP(codes))
		api.POST("/auth/signup", handlers.Signup(db, codes, users))
		api.POST("/auth/session", handlers.CreateSession(db, users, session))
		api.POST("/auth/logout", handlers.Logout(session))
		api.POST("/webhooks/identity", handlers.IdentityWebhook(db, cfg.WebhookSecret))
		api.POST("/admin/login", handlers.AdminLogin(db, admins, creds))
	}

	user := api.Group("")
	user.Use(middleware.UserAuth(users))
	{
		user.GET("/me", handlers.GetMe(db))
		user.PUT("/me", handlers.UpdateMe(db))
		user.GET("/activities", handlers.GetActivities(db))

		user.GET("/projects", handlers.ListProjects(db))
		user.POST("/projects", handlers.CreateProject(db))
		user.GET("/projects/:id", handlers.GetProject(db))
		user.PUT("/projects/:id", handlers.UpdateProject(db))
		user.DELETE("/projects/:id", handlers.DeleteProject(db, workflow))

		user.GET("/projects/:id/floorplans", handlers.ListFloorPlans(db))
		user.POST("/projects/:id/floorplans", handlers.CreateFloorPlan(db))
		user.DELETE("/projects/:id/floorplans/:planId", handlers.DeleteFloorPlan(db))

		user.GET("/queries", handlers.ListQueries(db))
		user.POST("/queries", handlers.CreateQuery(db))
		user.DELETE("/queries/:id", handlers.DeleteQuery(db))
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(admins))
	{
		admin.GET("/me", handlers.AdminMe(admins))
		admin.POST("/logout", handlers.AdminLogout(admins))

		admin.GET("/users", handlers.AdminListUsers(db))
		admin.DELETE("/users/:id", handlers.AdminDeleteUser(workflow, admins, stats))
		admin.GET("/projects", handlers.AdminListProjects(db))
		admin.DELETE("/projects/:id", handlers.AdminDeleteProject(workflow, admins, stats))
		admin.GET("/queries", handlers.AdminListQueries(db))
		admin.GET("/activities", handlers.AdminListActivities(db))

		admin.GET("/export/:collection", handlers.AdminExport(db))
		admin.GET("/analytics", handlers.AdminAnalytics(db, stats))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		log.WithError(err).Error("mongo disconnect error")
	}
	log.Info("server stopped")
}

// newOTPLimiter shares counters through Redis when REDIS_ADDR is set and
// falls back to per-process counters otherwise.
func newOTPLimiter(cfg config.Config) ratelimit.Limiter {
	memory := ratelimit.NewMemoryLimiter(cfg.OTP.Window)
	if cfg.Redis.Addr == "" {
		log.Warn("REDIS_ADDR not set, OTP rate limits are per process")
		return memory
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return ratelimit.NewFallback(ratelimit.NewRedisLimiter(client, "siteplanner", cfg.OTP.Window), memory)
}
