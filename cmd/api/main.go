package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/outreach-pipeline/cmd/mainconfig"
	"github.com/wolfman30/outreach-pipeline/internal/api/router"
	"github.com/wolfman30/outreach-pipeline/internal/audit"
	"github.com/wolfman30/outreach-pipeline/internal/auth"
	"github.com/wolfman30/outreach-pipeline/internal/backup"
	appconfig "github.com/wolfman30/outreach-pipeline/internal/config"
	"github.com/wolfman30/outreach-pipeline/internal/creatives"
	"github.com/wolfman30/outreach-pipeline/internal/dashboard"
	"github.com/wolfman30/outreach-pipeline/internal/drafts"
	httpmiddleware "github.com/wolfman30/outreach-pipeline/internal/http/middleware"
	"github.com/wolfman30/outreach-pipeline/internal/identity"
	"github.com/wolfman30/outreach-pipeline/internal/meta"
	"github.com/wolfman30/outreach-pipeline/internal/notify"
	"github.com/wolfman30/outreach-pipeline/internal/observability/metrics"
	"github.com/wolfman30/outreach-pipeline/internal/outreach"
	"github.com/wolfman30/outreach-pipeline/internal/store/memory"
	"github.com/wolfman30/outreach-pipeline/internal/store/postgres"
	"github.com/wolfman30/outreach-pipeline/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting outreach-pipeline API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("JWT_SECRET is required", "error", err)
		os.Exit(1)
	}

	registry, metricsHandler := setupMetrics()
	outreachMetrics := metrics.NewOutreachMetrics(registry)

	data, cleanup, err := setupStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	redisClient := newRedisClient(cfg)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable; hunted email staging will fail until it recovers", "addr", cfg.RedisAddr, "error", err)
	}

	identitySvc := identity.NewService(data.identities, issuer, cfg.BootstrapAdminID, logger)
	seedRoster(ctx, identitySvc, cfg.RosterSeedPath, logger)

	outreachSvc := outreach.NewService(data.prospects, outreachMetrics, logger)

	llm, closeLLM := setupLLM(ctx, cfg, awsCfg, logger)
	defer closeLLM()
	gateway := drafts.NewGateway(llm, drafts.GatewayConfig{
		Model:     cfg.BedrockModelID,
		EventName: cfg.EventName,
		Timeout:   cfg.LLMTimeout,
		MaxTokens: int32(cfg.LLMMaxTokens),
	}, outreachMetrics, logger)

	sender, err := notify.NewEmailSender(notify.ProviderConfig{
		Provider:          cfg.EmailProvider,
		SendGridAPIKey:    cfg.SendGridAPIKey,
		SendGridFromEmail: cfg.SendGridFromEmail,
		FromName:          cfg.SendGridFromName,
		SESFromEmail:      cfg.SESFromEmail,
	}, sesv2.NewFromConfig(awsCfg), logger)
	if err != nil {
		logger.Error("failed to configure email sender", "error", err)
		os.Exit(1)
	}

	draftSvc := drafts.NewService(drafts.ServiceConfig{
		Gateway:   gateway,
		Prospects: outreachSvc,
		Staging:   drafts.NewStagingStore(redisClient, cfg.HuntStageTTL),
		Sender:    sender,
		Metrics:   outreachMetrics,
		Logger:    logger,
	})

	var archiver *backup.Archiver
	if cfg.BackupBucket != "" {
		archiver = backup.NewArchiver(mainconfig.NewS3Client(awsCfg, cfg), cfg.BackupBucket, logger)
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.LoginRatePerSec, cfg.LoginRateBurst)
	go limiter.RunEviction(ctx, 5*time.Minute, 30*time.Minute)

	r := router.New(&router.Config{
		Logger:             logger,
		Verifier:           issuer,
		Directory:          identitySvc,
		LoginLimiter:       limiter,
		MaxBodyBytes:       cfg.MaxBodyBytes,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MetricsHandler:     metricsHandler,
		Identity:           identity.NewHandler(identitySvc, logger),
		Prospects:          outreach.NewHandler(outreachSvc, logger),
		Audit:              audit.NewHandler(data.auditLog, logger),
		Drafts:             drafts.NewHandler(draftSvc, logger),
		Creatives:          creatives.NewHandler(creatives.NewService(data.creatives, logger), logger),
		Meta:               meta.NewHandler(meta.NewService(data.meta, logger), logger),
		Backup:             backup.NewHandler(backup.NewService(data.backup, archiver, logger), logger),
		Dashboard:          dashboard.NewHandler(outreachSvc, data.auditLog, registry, logger),
	})

	// Create HTTP server; AI calls can take most of LLM_TIMEOUT.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

type auditSource interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
	ActivityByDay(ctx context.Context, start, end time.Time) ([]audit.ActivityDay, error)
}

type stores struct {
	prospects  outreach.Store
	identities identity.Store
	creatives  creatives.Store
	meta       meta.Store
	backup     backup.Store
	auditLog   auditSource
}

// setupStores uses Postgres when DATABASE_URL is set and the in-memory
// twin otherwise. Audit reads go through database/sql.
func setupStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (stores, func(), error) {
	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		if cfg.IsProduction() {
			return stores{}, nil, errors.New("DATABASE_URL is required in production")
		}
		logger.Warn("DATABASE_URL not set; using in-memory store")
		db := memory.New()
		return stores{
			prospects:  db.Prospects(),
			identities: db.Identities(),
			creatives:  db.Creatives(),
			meta:       db.Meta(),
			backup:     db.Backup(),
			auditLog:   memoryAudit{db: db},
		}, func() {}, nil
	}

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return stores{}, nil, err
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	pg := postgres.New(pool)
	return stores{
			prospects:  pg.Prospects(),
			identities: pg.Identities(),
			creatives:  pg.Creatives(),
			meta:       pg.Meta(),
			backup:     pg.Backup(),
			auditLog:   audit.NewReader(sqlDB),
		}, func() {
			_ = sqlDB.Close()
			pool.Close()
		}, nil
}

type memoryAudit struct{ db *memory.DB }

func (m memoryAudit) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error) {
	return m.db.ListAudit(ctx, filter)
}

func (m memoryAudit) ActivityByDay(ctx context.Context, start, end time.Time) ([]audit.ActivityDay, error) {
	return m.db.ActivityByDay(ctx, start, end)
}

func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if url == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func newRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// setupLLM prefers Bedrock with Gemini as fallback. Either alone works; with
// neither configured the gateway reports drafts as unavailable.
func setupLLM(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) (drafts.LLMClient, func()) {
	var primary, fallback drafts.LLMClient
	closeFn := func() {}

	if cfg.BedrockModelID != "" {
		primary = drafts.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := drafts.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Warn("gemini client unavailable", "error", err)
		} else {
			fallback = gemini
			closeFn = func() { _ = gemini.Close() }
		}
	}

	switch {
	case primary != nil && fallback != nil:
		return drafts.NewFallbackClient(primary, fallback, logger), closeFn
	case primary != nil:
		return primary, closeFn
	case fallback != nil:
		return fallback, closeFn
	default:
		logger.Warn("no LLM configured; AI drafting disabled")
		return nil, closeFn
	}
}

func seedRoster(ctx context.Context, svc *identity.Service, path string, logger *logging.Logger) {
	if path == "" {
		return
	}
	roster, err := identity.LoadRoster(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no roster seed file", "path", path)
			return
		}
		logger.Error("failed to load roster seed", "error", err, "path", path)
		return
	}
	if _, err := svc.Seed(ctx, roster); err != nil {
		logger.Error("failed to seed roster", "error", err)
	}
}
