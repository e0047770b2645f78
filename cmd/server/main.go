// main wires the engine's dependencies and keeps the server lifecycle small.
// Stores are in-memory by default; AGRIPASS_POSTGRES_URL, AGRIPASS_REDIS_URL,
// and AGRIPASS_KAFKA_BROKERS switch on the durable backends.
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

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"agripass/internal/audit"
	audithandler "agripass/internal/audit/handler"
	"agripass/internal/audit/relay"
	"agripass/internal/consent"
	consenthandler "agripass/internal/consent/handler"
	consentservice "agripass/internal/consent/service"
	"agripass/internal/disclosure"
	disclosurehandler "agripass/internal/disclosure/handler"
	"agripass/internal/eligibility"
	eligibilityhandler "agripass/internal/eligibility/handler"
	"agripass/internal/identity"
	identityhandler "agripass/internal/identity/handler"
	"agripass/internal/platform/config"
	"agripass/internal/platform/httpserver"
	"agripass/internal/platform/logger"
	"agripass/internal/platform/metrics"
	"agripass/internal/platform/ratelimit"
	platformredis "agripass/internal/platform/redis"
	"agripass/internal/scope"
	"agripass/internal/subject"
	httptransport "agripass/internal/transport/http"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	catalog := scope.Default()

	// The Identity Directory is upstream; the engine keeps a seeded local
	// replica that the issuer also registers into.
	directory := subject.NewInMemoryDirectory()
	if err := subject.Seed(ctx, directory); err != nil {
		log.Error("seeding subject directory failed", "error", err)
		os.Exit(1)
	}

	var (
		db           *sql.DB
		auditStore   audit.Store
		consentStore consent.Store
		consentTx    consentservice.StoreTx
		health       httptransport.HealthChecker
	)
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Error("opening postgres failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres unreachable", "error", err)
			os.Exit(1)
		}
		pgConsent := consent.NewPostgres(db)
		auditStore = audit.NewPostgres(db)
		consentStore = pgConsent
		consentTx = newConsentPostgresTx(db, pgConsent)
		health = func() error { return db.Ping() }
	} else {
		memStore := consent.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		consentStore = memStore
		consentTx = consentservice.NewShardedTx(memStore)
	}

	recorderOpts := []audit.Option{audit.WithLogger(log)}
	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		log.Error("connecting to redis failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		recorderOpts = append(recorderOpts,
			audit.WithIdempotency(audit.NewRedisIdempotencyStore(redisClient.Client)))
	} else {
		recorderOpts = append(recorderOpts,
			audit.WithIdempotency(audit.NewInMemoryIdempotencyStore()))
	}
	recorder := audit.NewRecorder(auditStore, recorderOpts...)

	consentSvc := consentservice.NewService(consentTx, consentStore, recorder, catalog, directory, log, m)
	disclosureSvc := disclosure.NewService(consentSvc, directory, recorder, catalog, log, m)
	eligibilitySvc := eligibility.NewService(eligibility.NewEngine(), consentSvc, directory, recorder, log, m)
	credentials := identity.NewCredentialService(cfg.CredentialSigningKey, cfg.CredentialIssuer)
	issuer := identity.NewIssuer(cfg.IssuerRegion, directory, directory, credentials, recorder, log, m)

	var limiter ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewSlidingWindow(cfg.RateLimitPerMinute, time.Minute)
	}

	router := httptransport.NewRouter(log, m, health, limiter,
		consenthandler.New(consentSvc, log),
		disclosurehandler.New(disclosureSvc, log),
		eligibilityhandler.New(eligibilitySvc, catalog, log),
		identityhandler.New(issuer, credentials, log),
		audithandler.New(recorder, log),
	)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	if db != nil && len(cfg.KafkaBrokers) > 0 {
		publisher, err := relay.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("connecting to kafka failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		outboxRelay := relay.New(db, publisher, log, relay.WithMetrics(m))
		g.Go(func() error {
			err := outboxRelay.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		log.Info("starting agripass engine", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
