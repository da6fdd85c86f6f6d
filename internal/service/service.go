package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/insurezeal/backoffice/internal/api/handlers"
	"github.com/insurezeal/backoffice/internal/ledger"
	"github.com/insurezeal/backoffice/internal/model"
	"github.com/insurezeal/backoffice/internal/repo"
	"github.com/insurezeal/backoffice/internal/router"
	"github.com/insurezeal/backoffice/internal/service/config"
	"github.com/insurezeal/backoffice/internal/service/dbmanager"
	"github.com/insurezeal/backoffice/internal/service/dto"
	"github.com/insurezeal/backoffice/internal/service/lookup"
	"github.com/insurezeal/backoffice/internal/service/watcher"
	"github.com/insurezeal/backoffice/internal/utils/logger"
)

// initService wires the repositories, the ledger lookup pipeline and
// the HTTP surface. ctx must live as long as the process: the watcher
// and the lookup pool run on it.
func initService(ctx context.Context, log *slog.Logger) (*chi.Mux, string) {
	jobsCh := make(chan dto.LookupJob, model.DefaultChannelCapacity)
	resultsCh := make(chan dto.LookupResult, model.DefaultChannelCapacity)

	cfg := config.NewBuilder(log).
		FromEnv().
		FromFlags().
		GetConfig()

	const connectTO = 2 * time.Second
	connectCtx, cancel := context.WithTimeout(ctx, connectTO)
	defer cancel()
	dbManager := dbmanager.New(cfg.DatabaseURI, log).
		Connect(connectCtx).
		ApplyMigrations(connectCtx).
		Ping(connectCtx)
	if err := dbManager.Error(); err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to start service: db connection error",
			slog.Any(model.KeyLoggerError, err),
		)
		return nil, ""
	}

	db, err := dbManager.GetPool(ctx)
	if err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to start service: failed to get DB pool",
			slog.Any(model.KeyLoggerError, err),
		)
		return nil, ""
	}

	agentRepo := repo.NewAgentRepository(db, log)
	transactionRepo := repo.NewTransactionRepository(db, log)

	var cache ledger.Cache
	if cfg.RedisAddr != "" {
		cache = ledger.NewRedisCache(cfg.RedisAddr, log)
	}

	workerCtx := logger.WithContext(ctx, log)
	w := watcher.New(transactionRepo, jobsCh, resultsCh)
	go w.Run(workerCtx)
	l := lookup.New(jobsCh, resultsCh, cfg.LedgerAddr, cache)
	go l.Run(workerCtx, cfg.LookupRequestLimit)

	rr := router.New(cfg, log)
	rr.SetRouter(&struct {
		*handlers.AgentsHandler
		*handlers.TransactionsHandler
		*handlers.HealthHandler
	}{
		AgentsHandler:       handlers.NewAgentsHandler(agentRepo, log),
		TransactionsHandler: handlers.NewTransactionsHandler(agentRepo, transactionRepo, log),
		HealthHandler:       handlers.NewHealthHandler(db),
	})

	return rr.GetRouter(), cfg.RunAddr
}

func RunServer() {
	log := slog.Default()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux, addr := initService(ctx, log)
	if mux == nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to init service",
		)
		return
	}

	const readHeaderTO = 5 * time.Second
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTO,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.LogAttrs(ctx,
			slog.LevelInfo,
			"listening",
			slog.String("address", addr),
		)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.LogAttrs(ctx,
			slog.LevelError,
			"listen and serve error",
			slog.Any(model.KeyLoggerError, err),
		)
		return
	case <-quit:
		log.LogAttrs(ctx, slog.LevelInfo, "shutting down...")
	}

	const shutdownTO = 10 * time.Second
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTO)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to shut down gracefully",
			slog.Any(model.KeyLoggerError, err),
		)
	}
}
