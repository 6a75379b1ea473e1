// Command grievance runs the municipal grievance lifecycle service: the
// HTTP API (package api), the periodic escalation sweep (internal/escalation),
// and their shared internal/* components, wired against MySQL (jmoiron/sqlx)
// and an optional Redis leader lock.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"grievance/api"
	"grievance/internal/audit"
	"grievance/internal/clock"
	"grievance/internal/complaint"
	"grievance/internal/config"
	"grievance/internal/duplicate"
	"grievance/internal/escalation"
	"grievance/internal/external"
	"grievance/internal/grievance"
	"grievance/internal/httpauth"
	"grievance/internal/intake"
	"grievance/internal/metrics"
	"grievance/internal/notify"
	"grievance/internal/policy"
	"grievance/internal/proof"
	"grievance/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connection established")

	if err := store.InitializeSchema(db.DB); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database schema")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	clk := clock.RealClock{}

	complaintRepo := store.NewComplaintRepository(db)
	auditRepo := store.NewAuditRepository(db)
	proofRepo := store.NewProofRepository(db)
	notifyRepo := store.NewNotifyRepository(db)
	masterRepo := store.NewMasterDataRepository(db)

	auditSink := audit.New(auditRepo, clk, m)
	pol := policy.New()

	objectStore := external.NewLocalObjectStore(objectStoreDir())
	messaging := external.NewShadowMessagingClient()
	// ai.required=true hard-fails intake on oracle errors instead of
	// degrading to the OTHER/LOW manual-routing fallback.
	var oracle external.AIOracle = external.NewKeywordOracle()
	if !cfg.AI.Required {
		oracle = external.NewDegradingAIOracle(oracle, cfg.AI.CallTimeout, defaultFallbackSLADays(cfg))
	}

	dispatcher := notify.New(notifyRepo, messaging, notifyRepo)

	engineCfg := complaint.Config{
		DefaultDepartmentID:   cfg.DefaultDepartmentID,
		PerCategorySLADays:    cfg.SLADays,
		AIConfidenceThreshold: cfg.AI.ConfidenceThreshold,
	}

	engine := complaint.New(complaintRepo, proofChecker{proofRepo}, auditSink, dispatcher, masterRepo, pol, clk, engineCfg, m)
	protocol := proof.New(proofRepo, engine, auditSink, clk)
	resolver := duplicate.New(complaintRepo, clk, cfg.Duplicate.RadiusMeters, cfg.Duplicate.FlagThreshold, cfg.Duplicate.BlockThreshold)
	orchestrator := intake.New(objectStore, resolver, oracle, engine)

	leaderLock := newLeaderLock(cfg)
	scheduler := escalation.New(complaintRepo, engine, auditSink, dispatcher, masterRepo, leaderLock, clk, escalation.Config{
		CronExpr:            cfg.Escalation.Cron,
		SignoffWindow:       cfg.SignoffWindowDuration(),
		StaleFiledThreshold: cfg.Escalation.StaleFiledThreshold,
	}, m)

	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start escalation scheduler")
	}
	defer scheduler.Stop()

	app := &api.App{
		Engine:       engine,
		Protocol:     protocol,
		Resolver:     resolver,
		Scheduler:    scheduler,
		Audit:        auditSink,
		Orchestrator: orchestrator,
		Policy:       pol,
		Auth:         httpauth.New(cfg.Auth.JWTSecret),
		Store:        objectStore,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	router := api.NewRouter(app)
	handler := withCORS(router)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("grievance service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// withCORS applies permissive CORS headers for the browser front-ends.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// proofChecker adapts *store.ProofRepository's HasProof to
// complaint.ProofChecker without internal/complaint importing internal/proof.
type proofChecker struct {
	repo *store.ProofRepository
}

func (p proofChecker) HasProof(ctx context.Context, complaintID int64) (bool, error) {
	return p.repo.HasProof(ctx, complaintID)
}

func objectStoreDir() string {
	dir := os.Getenv("GRIEVANCE_OBJECT_STORE_DIR")
	if dir == "" {
		dir = "./data/objects"
	}
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

func defaultFallbackSLADays(cfg *config.Config) int {
	if days, ok := cfg.SLADays[grievance.CategoryOther]; ok && days > 0 {
		return days
	}
	return 14
}

// newLeaderLock returns a Redis-backed leader lock when redis.addr is
// configured, falling back to an in-process mutex for single-instance
// deployments.
func newLeaderLock(cfg *config.Config) escalation.LeaderLock {
	if cfg.Redis.Addr == "" {
		return escalation.NewLocalLock()
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	return escalation.NewRedisLock(client, "grievance:escalation-sweep", 5*time.Minute)
}
