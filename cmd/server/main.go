package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"underwrite/internal/catalog"
	"underwrite/internal/decision"
	decisionmetrics "underwrite/internal/decision/metrics"
	"underwrite/internal/fraud"
	"underwrite/internal/fraud/store/signals"
	"underwrite/internal/notify"
	notifymetrics "underwrite/internal/notify/metrics"
	"underwrite/internal/notify/transport"
	"underwrite/internal/platform/config"
	"underwrite/internal/platform/httpserver"
	"underwrite/internal/platform/logger"
	platformredis "underwrite/internal/platform/redis"
	"underwrite/internal/reporting"
	"underwrite/internal/risk"
	"underwrite/internal/session"
	sessionhandler "underwrite/internal/session/handler"
	sessionmetrics "underwrite/internal/session/metrics"
	sessionservice "underwrite/internal/session/service"
	httptransport "underwrite/internal/transport/http"
	"underwrite/pkg/platform/audit"
	auditmemory "underwrite/pkg/platform/audit/store/memory"
	auditpostgres "underwrite/pkg/platform/audit/store/postgres"
	auditworker "underwrite/pkg/platform/audit/worker"
)

// main wires the stores, engines, and background workers and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session state: Postgres when a DSN is configured, otherwise the
	// in-memory store for local development.
	var sessionStore session.Store
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		sessionStore = session.NewPostgres(db)
	} else {
		log.Warn("POSTGRES_DSN not set, sessions are held in memory")
		sessionStore = session.NewInMemoryStore()
	}

	// Audit trail: append-only store drained by a background worker so
	// domain operations never block on audit writes.
	var auditStore audit.Store
	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Error("open audit pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		auditStore = auditpostgres.New(pool)
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}
	auditPublisher := audit.NewPublisher(256, log)
	worker := auditworker.NewWorker(auditStore, auditPublisher.Inbox(), log)
	go func() {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	// Fraud signal history: shared Redis when configured, process-local
	// otherwise.
	var signalStore fraud.SignalStore
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		signalStore = signals.NewRedisStore(redisClient.Client, cfg.Fraud.AverageWindow)
	} else {
		log.Warn("REDIS_URL not set, fraud signals are held in memory")
		signalStore = signals.NewInMemoryStore()
	}

	cat := catalog.Default()
	riskEngine := risk.NewEngine(cat, risk.DefaultConfig())
	fraudEngine := fraud.NewEngine(fraud.Config{
		VelocityWindow:    cfg.Fraud.VelocityWindow,
		VelocityThreshold: cfg.Fraud.VelocityThreshold,
		MinDaysAfterStart: cfg.Fraud.MinDaysAfterStart,
		AmountMultiple:    cfg.Fraud.AmountMultiple,
		AverageWindow:     cfg.Fraud.AverageWindow,
	})
	decisionEngine := decision.NewEngine(decision.Thresholds{
		Approve:          cfg.Decision.ApproveThreshold,
		Reject:           cfg.Decision.RejectThreshold,
		ConditionalFloor: cfg.Decision.ConditionalFloor,
	})

	// Decision notices. Email and SMS log until the gateway integrations
	// land; signed documents and the portal are served in process.
	deliveries := notify.NewInMemoryDeliveryStore()
	archive := transport.NewInMemoryArchive()
	transports := map[notify.Channel]notify.Transport{
		notify.ChannelEmail:          transport.NewLogging(notify.ChannelEmail, log),
		notify.ChannelSMS:            transport.NewLogging(notify.ChannelSMS, log),
		notify.ChannelSignedDocument: transport.NewSignedDocument([]byte(cfg.Server.SigningKey), "underwrite", 90*24*time.Hour, archive),
		notify.ChannelPortal:         transport.NewPortal(),
	}
	dispatcher, err := notify.New(deliveries, transports, notify.Settings{
		Workers:     cfg.Dispatch.Workers,
		MaxAttempts: cfg.Dispatch.MaxAttempts,
		BaseDelay:   cfg.Dispatch.BaseDelay,
		QueueSize:   cfg.Dispatch.QueueSize,
	},
		notify.WithLogger(log),
		notify.WithAuditPublisher(auditPublisher),
		notify.WithMetrics(notifymetrics.New()),
	)
	if err != nil {
		log.Error("build dispatcher", "error", err)
		os.Exit(1)
	}
	go dispatcher.Run(ctx)

	reporter, err := reporting.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.DecisionTopic, log)
	if err != nil {
		log.Error("connect kafka", "error", err)
		os.Exit(1)
	}
	defer reporter.Close(context.Background())

	requiredDocs := make([]session.DocumentType, 0, len(cfg.Session.RequiredDocuments))
	for _, d := range cfg.Session.RequiredDocuments {
		if !session.ValidDocumentType(d) {
			log.Error("unknown required document type", "type", d)
			os.Exit(1)
		}
		requiredDocs = append(requiredDocs, session.DocumentType(d))
	}

	svcOpts := []sessionservice.Option{
		sessionservice.WithLogger(log),
		sessionservice.WithAuditPublisher(auditPublisher),
		sessionservice.WithDispatcher(dispatcher),
		sessionservice.WithDecisionMetrics(decisionmetrics.New()),
		sessionservice.WithSessionMetrics(sessionmetrics.New()),
		sessionservice.WithRequiredDocuments(requiredDocs),
	}
	if reporter != nil {
		svcOpts = append(svcOpts, sessionservice.WithReporter(reporter))
	}
	svc, err := sessionservice.New(sessionStore, cat, riskEngine, fraudEngine, decisionEngine, signalStore, svcOpts...)
	if err != nil {
		log.Error("build session service", "error", err)
		os.Exit(1)
	}
	go svc.RunReaper(ctx, cfg.Session.Timeout)

	handler := sessionhandler.New(svc, cat, deliveries, log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting underwrite", "addr", cfg.Server.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
