package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"allowly/internal/channel"
	"allowly/internal/config"
	"allowly/internal/notify"
	"allowly/internal/obs"
	pg "allowly/internal/repository/postgres"
	"allowly/internal/sched"
	"allowly/internal/sched/tasks"
	"allowly/internal/services/api"

	"go.uber.org/zap"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", "config/server.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting server",
		zap.String("env", cfg.App.Env),
		zap.String("ver", cfg.App.Version),
		zap.String("channel_backend", cfg.Channel.Backend),
	)

	otel, err := obs.SetupOTel(rootCtx, cfg.OTEL)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otel.Shutdown(context.Background()) }()

	db, err := pg.New(rootCtx, cfg.DB)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	var backend channel.Backend
	switch cfg.Channel.Backend {
	case "kafka":
		k := channel.NewKafka(cfg.Channel.Kafka, logger)
		defer func() { _ = k.Close() }()
		backend = k
	case "memory", "":
		backend = channel.NewMemory()
	default:
		logger.Fatal("unknown channel backend", zap.String("backend", cfg.Channel.Backend))
	}

	tx := pg.NewTransactor(db, logger)
	users := pg.NewUserRepo(db)
	allowances := pg.NewAllowanceRepo(db)
	invites := pg.NewInvitationRepo(db)
	dispatch := notify.NewDispatcher(users, backend, logger)

	srv := &api.Server{
		Log:        logger,
		Auth:       cfg.Auth,
		Tx:         tx,
		Users:      users,
		Families:   pg.NewFamilyRepo(db),
		Passwords:  pg.NewPasswordRepo(db),
		Allowances: allowances,
		Requests:   pg.NewRequestRepo(db),
		Ledger:     pg.NewTransactionRepo(db),
		Invites:    invites,
		Dispatch:   dispatch,
		Channels:   backend,
		Mail:       api.NopMailer{Log: logger},
	}

	runner := sched.NewRunner(tx, pg.NewTaskRunRepo(db), logger).
		Register(&tasks.AllowancePayer{Allowances: allowances, Log: logger}, sched.Daily()).
		Register(&tasks.InvitationReaper{Invitations: invites, TTL: cfg.Sched.InvitationTTL, Log: logger}, sched.Daily())

	schedErrCh := make(chan error, 1)
	go func() { schedErrCh <- runner.Start(rootCtx) }()

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, logger)

	httpSrv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	httpErrCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		httpErrCh <- httpSrv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case runErr = <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	case runErr = <-schedErrCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("scheduler", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	_ = ms.Shutdown(shCtx)
	logger.Info("bye")
}
