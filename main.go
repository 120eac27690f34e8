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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"meetscribe/config"
	"meetscribe/controllers"
	"meetscribe/logger"
	"meetscribe/routes"
	"meetscribe/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	awsCfg, err := services.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return err
	}

	repo, closeRepo, err := newRepository(ctx, cfg, awsCfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	engine, err := services.NewTranscriptionEngine(cfg)
	if err != nil {
		return err
	}

	store := services.NewS3Storage(awsCfg, cfg.S3Bucket, cfg.S3Endpoint, cfg.S3ForcePathStyle)
	gateway := services.NewStorageGateway(store, cfg.MaxUploadBytes)
	ingestion := services.NewIngestionService(engine, gateway, repo, services.IngestionConfig{
		TempDir:              cfg.TempDir,
		MaxUploadBytes:       cfg.MaxUploadBytes,
		TranscriptionTimeout: cfg.TranscriptionTimeout,
	})

	router := routes.SetupRouter(routes.Dependencies{
		Uploads:    controllers.NewUploadController(gateway),
		Transcribe: controllers.NewTranscribeController(ingestion, cfg.MaxUploadBytes),
		Meetings:   controllers.NewMeetingController(ingestion),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("repository", cfg.RepositoryDriver).
			Str("engine", cfg.TranscriptionEngine).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	// Transcriptions may run up to the engine timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.TranscriptionTimeout+5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRepository builds the backend selected by REPOSITORY_DRIVER and makes
// sure its table exists.
func newRepository(ctx context.Context, cfg *config.Config, awsCfg aws.Config) (services.MeetingRepository, func(), error) {
	noop := func() {}
	logger := log.With().Str("repository", cfg.RepositoryDriver).Logger()
	ctx = logger.WithContext(ctx)

	switch cfg.RepositoryDriver {
	case config.DriverDynamoDB:
		client := services.NewDynamoDBClient(awsCfg, cfg.DynamoDBEndpoint)
		repo := services.NewDynamoMeetingRepository(client, cfg.DynamoDBTable, nil)
		if err := repo.EnsureTable(ctx); err != nil {
			return nil, noop, err
		}
		return repo, noop, nil

	case config.DriverPostgres:
		var (
			db  *sql.DB
			err error
		)
		// The database may still be starting next to us.
		for i := 0; i < 3; i++ {
			if db, err = services.OpenPostgres(ctx, cfg.DatabaseURL); err == nil {
				break
			}
			logger.Warn().Err(err).Int("attempt", i+1).Msg("postgres not reachable")
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, noop, err
		}
		repo := services.NewPostgresMeetingRepository(db, nil)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return repo, func() { db.Close() }, nil

	case config.DriverMemory:
		logger.Warn().Msg("meetings are kept in memory and lost on restart")
		return services.NewMemoryMeetingRepository(nil), noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown repository driver %q", cfg.RepositoryDriver)
	}
}
