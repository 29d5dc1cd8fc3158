//	@title			uploadgate API
//	@version		1.0
//	@description	Login, session and permission-gated file upload to object storage.
//
//	@host		localhost:5000
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	SessionCookie
//	@in							cookie
//	@name						session
//	@description				Signed session cookie set by /auth/login.

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/uploadgate/service/internal/auth"
	"github.com/uploadgate/service/internal/config"
	"github.com/uploadgate/service/internal/credential"
	"github.com/uploadgate/service/internal/db"
	"github.com/uploadgate/service/internal/session"
	"github.com/uploadgate/service/internal/storage"
	"github.com/uploadgate/service/internal/upload"
	"github.com/uploadgate/service/internal/web"

	_ "github.com/uploadgate/service/docs/swagger"
)

const dialTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx := context.Background()

	// Credentials: Postgres when configured, process memory otherwise.
	repo, closeRepo := openRepository(ctx, cfg)
	defer closeRepo()

	seeds := credential.DefaultSeeds
	if cfg.SeedUsers != "" {
		parsed, err := credential.ParseSeeds(cfg.SeedUsers)
		if err != nil {
			log.Fatalf("invalid SEED_USERS: %v", err)
		}
		seeds = parsed
	}

	creds, err := credential.Open(ctx, repo, credential.NewHasher(credential.DefaultHashParams), seeds)
	if err != nil {
		log.Fatalf("credential store init failed: %v", err)
	}

	// Sessions: Redis when configured, process memory otherwise.
	sessionStore, closeSessions := openSessionStore(ctx, cfg)
	defer closeSessions()

	sessions := session.NewManager(sessionStore, []byte(cfg.SecretKey), session.Options{
		TTL:    cfg.SessionTTL,
		Secure: cfg.IsProduction(),
	})

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	render, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("template init failed: %v", err)
	}

	// Wire dependencies: store → service → handler
	authSvc := auth.NewService(creds, sessions)
	gateway := upload.NewGateway(objects)

	router := newRouter(handlers{
		sessions: sessions,
		auth:     auth.NewHandler(authSvc, render),
		upload:   upload.NewHandler(gateway, sessions, upload.Destination{BucketName: cfg.BucketName}),
		web:      web.NewHandler(render, sessions),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s, store=%s)", cfg.Port, cfg.AppEnv, cfg.ObjectStore)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL=%q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func openRepository(ctx context.Context, cfg *config.Config) (credential.Repository, func()) {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL not set, keeping credentials in memory")
		return credential.NewMemoryRepository(), func() {}
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		pool.Close()
		log.Fatalf("database migration failed: %v", err)
	}
	return credential.NewPGRepository(pool), pool.Close
}

func openSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func()) {
	if cfg.RedisURL == "" {
		log.Info("REDIS_URL not set, keeping sessions in memory")
		return session.NewMemoryStore(), func() {}
	}

	rdb, err := session.DialRedis(ctx, cfg.RedisURL, dialTimeout)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	return session.NewRedisStore(rdb, ""), func() { _ = rdb.Close() }
}
