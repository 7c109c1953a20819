package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/database"
	"github.com/AnshRaj112/serenify-journal/internal/handlers"
	"github.com/AnshRaj112/serenify-journal/internal/logging"
	"github.com/AnshRaj112/serenify-journal/internal/routes"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/AnshRaj112/serenify-journal/pkg/clientip"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load env
	envErr := godotenv.Load()
	// Load configuration
	cfg := config.Load()

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		logger.Info("No .env file found")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		entryStore services.EntryStore
		userStore  services.UserStore
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		memory := database.NewMemoryStore()
		entryStore, userStore = memory, memory
		logger.Warn("⚠️  Using the in-memory store; entries are lost on restart")
	default:
		logger.Info("Connecting to PostgreSQL...")
		db, err := database.ConnectPostgres(ctx, cfg.PostgresURI)
		if err != nil {
			return err
		}
		defer closeQuietly(logger, "postgres", db.Close)

		if err := database.MigrateUp(db); err != nil {
			return err
		}
		logMigrationVersion(logger, db)
		entryStore, userStore = database.NewEntryStore(db), database.NewUserStore(db)
	}

	logger.Info("Connecting to Redis...")
	rdb, err := database.ConnectRedis(ctx, cfg.RedisURI)
	if err != nil {
		return err
	}
	defer closeQuietly(logger, "redis", rdb.Close)
	logger.Info("✅ Redis connected")

	opts := services.EntryServiceOptions{
		Cache:  services.NewEntryListCache(rdb, cfg.EntryCacheTTL),
		Logger: logger,
	}

	if cfg.MongoURI != "" {
		logger.Info("Connecting to MongoDB...", "uri", redactURI(cfg.MongoURI))
		client, mdb, err := database.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			logger.Warn("⚠️  MongoDB unavailable; entry history disabled", "err", err)
		} else {
			defer disconnectMongo(logger, client)
			history := services.NewEntryHistory(mdb)
			if err := history.EnsureIndexes(ctx); err != nil {
				logger.Warn("⚠️  failed to ensure entry history indexes", "err", err)
			} else {
				logger.Info("✅ MongoDB entry history indexes ensured")
			}
			opts.Events = history
		}
	} else {
		logger.Info("MONGODB_URI not set; entry history disabled")
	}

	if cfg.CloudinaryConfigured() {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logger.Warn("Failed to initialize Cloudinary; image uploads will not be available", "err", err)
		} else {
			opts.Blobs = cld
			logger.Info("✅ Cloudinary service initialized")
		}
	} else {
		logger.Warn("Cloudinary credentials not found. Image uploads will not be available")
	}

	entries := services.NewEntryService(entryStore, opts)
	sessions := services.NewSessionStore(rdb, cfg.SessionTTL)

	router := routes.NewRouter(routes.Options{
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.IsProduction(),
		ClientIPs:      clientip.Resolver{TrustProxy: cfg.TrustProxyHeaders},
		RateLimitRedis: rdb,
		Identity:       sessions,
	}, routes.Handlers{
		Entries:   handlers.NewEntryHandler(entries, logger),
		Analytics: handlers.NewAnalyticsHandler(services.NewAnalytics(entries), logger),
		Auth:      handlers.NewAuthHandler(services.NewAccountService(userStore, sessions), logger),
	})
	if cfg.IsProduction() {
		logger.Info("✅ Production security enabled (security headers, per-IP + login rate limiting)")
	}

	srv := &http.Server{
		Addr:              cfg.Host + ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("🚀 Journal backend running", "addr", srv.Addr, "env", cfg.Environment, "store", cfg.StoreDriver)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logMigrationVersion(logger *log.Logger, db *sql.DB) {
	version, dirty, err := database.MigrationVersion(db)
	if err != nil {
		logger.Warn("could not read migration version", "err", err)
		return
	}
	logger.Info("✅ PostgreSQL connected and migrated", "version", version, "dirty", dirty)
}

func closeQuietly(logger *log.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil && !errors.Is(err, redis.ErrClosed) {
		logger.Warn("close failed", "resource", name, "err", err)
	}
}

func disconnectMongo(logger *log.Logger, client *mongo.Client) {
	if err := database.DisconnectMongo(client); err != nil {
		logger.Warn("mongo disconnect failed", "err", err)
	}
}

// redactURI hides the password in a connection string before logging it.
func redactURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
