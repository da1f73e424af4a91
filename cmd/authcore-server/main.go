// Command authcore-server runs the member, session and image HTTP API.
//
// Configuration comes from the environment (optionally a .env file):
//
//	DATABASE_URL      postgres DSN, required
//	JWT_SECRET        base64 HS256 key, at least 32 bytes decoded
//	REFRESH_BACKEND   redis (default), postgres or memory
//	REDIS_URL         used by the redis backend
//	S3_ENABLED        enables POST/DELETE /images
//	KAFKA_BROKERS     comma separated; enables the Kafka audit sink
//
// Run:
//
//	go run ./cmd/authcore-server
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/comment"
	"github.com/contentshare/authcore/httpapi"
	"github.com/contentshare/authcore/internal/envconfig"
	"github.com/contentshare/authcore/member"
	"github.com/contentshare/authcore/metrics/export/prometheus"
	"github.com/contentshare/authcore/migrations"
	"github.com/contentshare/authcore/password"
	"github.com/contentshare/authcore/post"
	"github.com/contentshare/authcore/refresh"
	"github.com/contentshare/authcore/storage"
)

const appName = "authcore"

func main() {
	envconfig.LoadDotEnv(".env", "../.env")

	cfg, err := envconfig.LoadServer()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := newLogger(cfg)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(cfg envconfig.Server) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	logger = logger.Level(level).With().Timestamp().Str("app", appName).Logger()
	log.Logger = logger
	return logger
}

func run(cfg envconfig.Server, logger zerolog.Logger) error {
	figure.NewFigure(appName, "cybermedium", true).Print()
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = db.PingContext(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}

	logger.Info().Msg("running database migrations")
	if err := migrations.Up(ctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	store, closeStore, err := openRefreshStore(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	argon, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return err
	}
	legacy, err := password.NewBcrypt(0, 0)
	if err != nil {
		return err
	}
	hasher := password.NewMulti(argon, legacy)

	repo := member.NewPostgresRepository(db)
	members := member.NewService(repo, hasher, logger)
	verifier := member.NewVerifier(repo, hasher, logger)

	builder := authcore.New().
		WithConfig(cfg.Auth).
		WithRefreshStore(store).
		WithCredentialVerifier(verifier).
		WithLogger(logger)

	var closeKafka func() error
	if cfg.Auth.Audit.Enabled {
		sinks := []authcore.AuditSink{authcore.NewLoggerSink(logger)}
		if len(cfg.KafkaBrokers) > 0 {
			kafka := authcore.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
			closeKafka = kafka.Close
			sinks = append(sinks, kafka)
			logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("kafka audit sink enabled")
		}
		builder = builder.WithAuditSink(authcore.MultiSink(sinks...))
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer func() {
		engine.Close()
		if closeKafka != nil {
			if err := closeKafka(); err != nil {
				logger.Warn().Err(err).Msg("closing kafka writer")
			}
		}
	}()

	opts := httpapi.Options{
		Engine:  engine,
		Members: members,
		Logger:  logger,
		Admin:   map[string]http.Handler{"GET /metrics": prometheus.NewExporter(engine).Handler()},
	}
	var images post.ImageStore
	if cfg.S3Enabled {
		s3, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return fmt.Errorf("s3: %w", err)
		}
		images = s3
		opts.Images = s3
		opts.MaxUploadBytes = cfg.S3.MaxBytes
		logger.Info().Str("bucket", cfg.S3.Bucket).Msg("image storage enabled")
	}

	postRepo := post.NewPostgresRepository(db)
	comments := comment.NewService(comment.NewPostgresRepository(db), postRepo, logger)
	opts.Posts = post.NewService(postRepo, images, comments, logger)
	opts.Comments = comments

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.New(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("refresh_backend", cfg.RefreshBackend).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openRefreshStore returns the configured backend and its cleanup. The
// postgres backend also starts a janitor bound to ctx.
func openRefreshStore(ctx context.Context, cfg envconfig.Server, db *sql.DB, logger zerolog.Logger) (refresh.Store, func(), error) {
	ttl := cfg.Auth.JWT.RefreshTTL

	switch cfg.RefreshBackend {
	case envconfig.BackendMemory:
		logger.Warn().Msg("memory refresh backend: sessions do not survive restarts")
		return refresh.NewMemoryStore(ttl), func() {}, nil

	case envconfig.BackendPostgres:
		store := refresh.NewPostgresStore(db, ttl)
		go refresh.NewJanitor(store, cfg.JanitorInterval, logger).Run(ctx)
		return store, func() {}, nil

	default:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return refresh.NewRedisStore(client, refresh.DefaultKeyPrefix, ttl), func() { _ = client.Close() }, nil
	}
}
