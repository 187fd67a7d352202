package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"vendorcompliance/activity"
	"vendorcompliance/config"
	"vendorcompliance/database"
	"vendorcompliance/email"
	"vendorcompliance/filestore"
	"vendorcompliance/handlers"
	"vendorcompliance/logger"
	"vendorcompliance/metrics"
	"vendorcompliance/middleware"
	"vendorcompliance/realtime"
	"vendorcompliance/routes"
	"vendorcompliance/service"
	"vendorcompliance/store"
)

const serviceName = "vendor-compliance"

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	config.LoadConfig()

	if err := logger.Init(config.LogLevel, config.Env, serviceName); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Get()

	if envErr != nil {
		log.Debug("no .env file loaded", zap.Error(envErr))
	}
	for _, w := range config.Warnings {
		log.Warn(w)
	}

	ctx := context.Background()

	// Database connection
	if err := database.Connect(ctx); err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.EnsureIndexes(ctx, database.DB); err != nil {
		log.Fatal("failed to create indexes", zap.Error(err))
	}

	submissions := store.NewMongoSubmissionStore(database.DB)
	users := store.NewMongoUserStore(database.DB)
	activityLogs := store.NewMongoActivityStore(database.DB)

	files, uploadDir := openFileStorage(ctx, log)

	mailer := email.NewMailer(
		email.ProviderConfig{
			URL:        config.EmailProviderURL,
			ServiceID:  config.EmailServiceID,
			TemplateID: config.EmailTemplateID,
			PublicKey:  config.EmailPublicKey,
			PrivateKey: config.EmailPrivateKey,
		},
		email.SMTPConfig{
			Host:     config.SMTPHost,
			Port:     config.SMTPPort,
			User:     config.SMTPUser,
			Password: config.SMTPPassword,
			From:     config.SMTPFrom,
		},
		config.AppURL,
	)

	hub := realtime.NewHub()
	go hub.Run()

	recorder := activity.NewRecorder(activityLogs, hub)
	submissionService := service.NewSubmissionService(service.Options{
		Submissions:   submissions,
		Users:         users,
		Files:         files,
		Notifier:      mailer,
		Pusher:        hub,
		Activity:      recorder,
		MaxUploadSize: config.MaxUploadSize,
	})
	userService := service.NewUserService(users, recorder)

	if config.AdminEmail != "" && config.AdminPassword != "" {
		created, err := userService.EnsureAdmin(ctx, config.AdminEmail, config.AdminPassword)
		if err != nil {
			log.Fatal("failed to create admin user", zap.Error(err))
		}
		if created {
			log.Info("created admin user", zap.String("email", config.AdminEmail))
		}
	}

	middleware.SetUserStore(users)
	handlers.Init(handlers.Deps{
		Submissions: submissionService,
		Users:       userService,
		Activity:    activityLogs,
		Ping:        database.Ping,
	})

	// Router setup
	router := mux.NewRouter()
	routes.RegisterRoutes(router, routes.Options{
		Realtime:  hub.Handler(),
		UploadDir: uploadDir,
	})

	// Global middlewares (order matters!)
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.CorsMiddleware)
	router.Use(metrics.NewHTTPMetrics(serviceName).Middleware)

	// HTTP server configuration
	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("storage", config.FileStorage))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced shutdown", zap.Error(err))
	}
	hub.Close()
	submissionService.Wait()
	database.Disconnect()
	log.Info("server stopped")
}

// openFileStorage returns the configured backend and, for local storage, the
// directory to serve under /uploads/.
func openFileStorage(ctx context.Context, log *zap.Logger) (filestore.FileStorage, string) {
	if config.FileStorage == "s3" {
		s3Store, err := filestore.NewS3Storage(ctx, filestore.S3Options{
			Bucket:    config.S3Bucket,
			Region:    config.S3Region,
			Endpoint:  config.S3Endpoint,
			AccessKey: config.S3AccessKey,
			SecretKey: config.S3SecretKey,
		})
		if err != nil {
			log.Fatal("failed to configure S3 storage", zap.Error(err))
		}
		return s3Store, ""
	}

	local, err := filestore.NewLocalStorage(config.UploadDir)
	if err != nil {
		log.Fatal("failed to prepare upload directory", zap.Error(err))
	}
	return local, local.Dir()
}
