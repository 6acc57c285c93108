package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/events"
	"github.com/danielhkuo/quickly-vote/router"
	"github.com/danielhkuo/quickly-vote/voting"
)

func main() {
	var err error

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		slog.Warn("unknown log level, using info", "log_level", cfg.LogLevel)
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the database
	dbConn, err := db.Open(db.Dialect(cfg.DatabaseType), cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err, "database_type", cfg.DatabaseType)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "database_type", cfg.DatabaseType)

	clock := clockwork.NewRealClock()
	store := db.NewStore(dbConn, db.Dialect(cfg.DatabaseType), clock)

	// Rate limiter: Redis when shared across instances, otherwise in-process
	var limiter voting.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("redis ping failed, rate limiter will fail open until it recovers", "error", err)
		}
		limiter = voting.NewRedisLimiter(rdb, clock, cfg.RateLimitMaxAttempts, cfg.RateLimitWindow)
		slog.Info("Using redis rate limiter")
	} else {
		mem := voting.NewMemoryLimiter(clock, cfg.RateLimitMaxAttempts, cfg.RateLimitWindow)
		go mem.Run(ctx, cfg.RateLimitWindow)
		limiter = mem
	}

	// Vote events always land in poll_analytics; Kafka is optional
	sinks := events.Fanout{store}
	var kafkaSink *events.KafkaSink
	var kafkaQueue *events.Background
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err = events.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			slog.Error("kafka setup failed", "error", err)
			os.Exit(1)
		}
		kafkaQueue = events.NewBackground(kafkaSink, 1024, 5*time.Second)
		sinks = append(sinks, kafkaQueue)
		slog.Info("Publishing vote events", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	svc := voting.NewService(store, voting.Options{
		Clock:           clock,
		Limiter:         limiter,
		Sink:            sinks,
		AllowVoteChange: cfg.AllowVoteChange,
	})

	// Create router
	handler := router.NewRouter(router.Dependencies{
		Store:   store,
		Service: svc,
		Clock:   clock,
	}, cfg)

	// Create server
	server := http.Server{
		Handler:           handler,
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		cancel()

		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}

	if kafkaSink != nil {
		drainCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		if err := kafkaQueue.Close(drainCtx); err != nil {
			slog.Error("vote events still queued at shutdown", "error", err)
		}
		done()
		if err := kafkaSink.Close(); err != nil {
			slog.Error("kafka writer close failed", "error", err)
		}
	}
}
