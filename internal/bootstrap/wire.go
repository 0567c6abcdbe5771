package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/audit"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/redis"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/seed"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/logger"
	http_handlers "github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/handlers"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/response"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

// Server is the configured HTTP server plus how long shutdown may take.
type Server struct {
	*http.Server
	ShutdownTimeout time.Duration
}

func NewServer() (*Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	// optional; tests leave it nil to keep the package logger untouched
	InitLogger func(level, format string)

	NewDB   func(dsn string, debug bool) (*sql.DB, error)
	Migrate func(ctx context.Context, db *sql.DB) error

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(url, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

type Publisher interface {
	account.EventPublisher
	Ping(ctx context.Context) error
	Close() error
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if deps.InitLogger != nil {
		deps.InitLogger(cfg.LogLevel, cfg.LogFormat)
	}
	log := logger.Logger
	log.Info().Str("env", cfg.Env).Str("storage", cfg.Storage).Msg("starting account-service")

	var cleanupFns []func()
	fail := func(err error) (*Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1) storage
	var (
		users account.UserRepo
		tx    account.TxManager
		ready = map[string]http_handlers.Pinger{}
	)
	switch cfg.Storage {
	case config.StorageMemory:
		repo := memory.NewUserRepo()
		users, tx = repo, repo
		log.Warn().Msg("using in-memory storage; data is lost on restart")

	default:
		db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
		if err != nil {
			return fail(fmt.Errorf("bootstrap: db: %w", err))
		}
		cleanupFns = append(cleanupFns, func() { _ = db.Close() })

		if cfg.RunMigrations && deps.Migrate != nil {
			if err := deps.Migrate(ctx, db); err != nil {
				return fail(err)
			}
			log.Info().Msg("migrations applied")
		}
		if err := postgres.CheckRoleCatalog(ctx, db); err != nil {
			return fail(err)
		}

		users, tx = postgres.NewUserRepo(db), postgres.NewTxManager(db)
		ready["db"] = http_handlers.PingFunc(db.PingContext)
	}

	// 2) redis rate limiter (best-effort)
	var limiter middleware.RateLimiter
	if cfg.RLEnabled && cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := c.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unavailable; rate limiting disabled")
			_ = c.Close()
		} else {
			log.Info().Msg("redis connected")
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
			limiter = redis.NewFixedWindowLimiter(c)
		}
	}

	// 3) publisher
	var (
		pub       account.EventPublisher
		brokerChk http_handlers.Pinger
	)
	switch {
	case cfg.RabbitURL == "" || deps.NewPublisher == nil:
		log.Info().Msg("no RABBIT_URL; account events are logged only")
		pub = memory.NewNoopPublisher(log)
	default:
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if !cfg.IsDev() {
				return fail(err)
			}
			log.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
			pub = memory.NewNoopPublisher(log)
			break
		}
		cleanupFns = append(cleanupFns, func() { _ = p.Close() })
		pub, brokerChk = p, p
	}

	// 4) security
	log.Info().Str("issuer", cfg.JWTIssuer).Int("bcrypt_cost", cfg.BcryptCost).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer)

	if cfg.SeedDevUsers {
		n := seed.SeedUsers(ctx, users, hasher, seed.DevSeeds, log)
		log.Info().Int("created", n).Msg("dev users seeded")
	}

	// 5) service
	svc := account.NewService(users, tx, hasher, signer, pub).
		WithAudit(audit.New(log).Record)

	// 6) handlers + middleware
	usersH := http_handlers.NewUserHandler(svc)
	healthH := http_handlers.NewHealthHandler(ready).WithOptional("rabbitmq", brokerChk)

	rl := func(scope string, limit int) router.Middleware {
		if limiter == nil {
			return nil
		}
		return middleware.RateLimit(limiter, scope, redis.Rule{Limit: limit, Window: cfg.RLWindow}, response.WriteError)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health:     healthH,
		Users:      usersH,
		AuthMW:     middleware.Authenticate(signer, response.WriteError),
		AnyMW:      middleware.Authorize(account.Require(users, domain.RoleAny), response.WriteError),
		AdminMW:    middleware.Authorize(account.Require(users, domain.RoleAdmin), response.WriteError),
		LoginRL:    rl("login", cfg.RLLoginLimit),
		RegisterRL: rl("register", cfg.RLSignupLimit),
		Metrics:    promhttp.Handler(),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &Server{
		Server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           mux,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: cfg.HTTPReadTimeout,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
		ShutdownTimeout: cfg.ShutdownTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
		log.Info().Msg("resources released")
	}
	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		InitLogger: logger.Init,
		NewDB: func(dsn string, debug bool) (*sql.DB, error) {
			return config.NewDB(dsn, debug, logger.Logger)
		},
		Migrate: postgres.RunMigrations,
		NewRedis: func(addr, password string, db int) *redis.Client {
			return redis.New(addr, password, db)
		},
		NewPublisher: func(url, exchange string) (Publisher, error) {
			p, err := rabbitmq_pub.NewPublisher(url, exchange)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
