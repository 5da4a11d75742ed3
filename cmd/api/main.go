package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/campusrun/backend/internal/auth"
	"github.com/campusrun/backend/internal/chat"
	"github.com/campusrun/backend/internal/config"
	"github.com/campusrun/backend/internal/database"
	"github.com/campusrun/backend/internal/handlers"
	"github.com/campusrun/backend/internal/ledger"
	"github.com/campusrun/backend/internal/maintenance"
	"github.com/campusrun/backend/internal/notify"
	"github.com/campusrun/backend/internal/ratings"
	"github.com/campusrun/backend/internal/router"
	"github.com/campusrun/backend/internal/tasks"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL database successfully!")

	// Schema migrations
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("Migrations applied")

	// Notification enqueue func is set after the River client is created
	// (breaks the init cycle between services and the client).
	var enqueueMu sync.Mutex
	var enqueueFn notify.EnqueueTxFunc
	enqueueEvent := func(ctx context.Context, tx pgx.Tx, args notify.EventArgs) error {
		enqueueMu.Lock()
		fn := enqueueFn
		enqueueMu.Unlock()
		if fn == nil {
			panic("river insert not wired")
		}
		return fn(ctx, tx, args)
	}

	// Repositories
	profileRepo := auth.NewRepository(pool)
	taskRepo := tasks.NewRepository(pool)
	requestRepo := tasks.NewRequestRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	ratingRepo := ratings.NewRepository(pool)
	messageRepo := chat.NewRepository(pool)
	notifyRepo := notify.NewRepository(pool)

	// Services
	authSvc := auth.NewService(profileRepo, cfg.JWTSecret)
	ledgerSvc := ledger.NewService(pool, ledgerRepo, ledgerRepo)
	taskSvc := tasks.NewService(pool, taskRepo, requestRepo, ledgerSvc, enqueueEvent, logger)
	ratingSvc := ratings.NewService(pool, ratingRepo, taskRepo, enqueueEvent)
	chatSvc := chat.NewService(pool, messageRepo, taskRepo, enqueueEvent)

	// Workers
	workers := river.NewWorkers()
	river.AddWorker(workers, notify.NewEventWorker(notifyRepo, logger))
	river.AddWorker(workers, maintenance.NewSweepWorker(taskSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.SweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return maintenance.SweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	enqueueMu.Lock()
	enqueueFn = func(ctx context.Context, tx pgx.Tx, args notify.EventArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	enqueueMu.Unlock()

	// Handlers
	apiRouter := router.New(router.Handlers{
		Auth:          auth.NewHandler(authSvc, logger),
		Tasks:         &handlers.TaskHandler{Tasks: taskSvc, Logger: logger},
		Requests:      &handlers.RequestHandler{Requests: taskSvc, Logger: logger},
		Ratings:       &handlers.RatingHandler{Ratings: ratingSvc, Logger: logger},
		Wallet:        &handlers.WalletHandler{Ledger: ledgerRepo, Logger: logger},
		Profiles:      &handlers.ProfileHandler{Profiles: profileRepo, Ratings: ratingSvc, Logger: logger},
		Chat:          &handlers.ChatHandler{Chat: chatSvc, Logger: logger},
		Notifications: &handlers.NotificationHandler{Store: notifyRepo, Logger: logger},
		Admin:         &handlers.AdminHandler{Ledger: ledgerSvc, Tasks: taskSvc, Users: profileRepo, Logger: logger},
	}, authSvc, authSvc)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (notifications + expiry sweep)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
