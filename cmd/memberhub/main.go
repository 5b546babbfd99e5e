// memberhub es el gateway de autenticación y membresías del sitio: login
// social federado, emisión y validación de access tokens, y la máquina de
// estados de roles que el resto del backend consulta.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/memberhub/internal/authstate"
	"github.com/dropDatabas3/memberhub/internal/config"
	"github.com/dropDatabas3/memberhub/internal/directory"
	httpserver "github.com/dropDatabas3/memberhub/internal/http"
	"github.com/dropDatabas3/memberhub/internal/http/handlers"
	"github.com/dropDatabas3/memberhub/internal/http/router"
	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/identity/normalize"
	"github.com/dropDatabas3/memberhub/internal/membership"
	"github.com/dropDatabas3/memberhub/internal/metrics"
	"github.com/dropDatabas3/memberhub/internal/notify"
	"github.com/dropDatabas3/memberhub/internal/oauth"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
	"github.com/dropDatabas3/memberhub/internal/rate"
	"github.com/dropDatabas3/memberhub/internal/security/secretbox"
	pgstore "github.com/dropDatabas3/memberhub/internal/store/pg"
	"github.com/dropDatabas3/memberhub/internal/token"
)

func main() {
	var (
		flagConfig  = flag.String("config", "config.yaml", "ruta del YAML de configuración")
		flagEnvFile = flag.String("env-file", ".env", "archivo .env opcional con secretos")
	)
	flag.Parse()

	// .env es best-effort: en deploys reales los secretos vienen del entorno
	if _, err := os.Stat(*flagEnvFile); err == nil {
		if err := godotenv.Load(*flagEnvFile); err != nil {
			log.Printf("env-file %s no se pudo cargar: %v", *flagEnvFile, err)
		}
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: "info"})
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.L().Fatal("el servicio terminó con error", logger.Err(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ───── crypto: cookie de handshake y emisor de tokens ─────
	box, err := secretbox.NewFromBase64(cfg.Auth.StateCookie.Secret)
	if err != nil {
		return err
	}
	issuer, err := token.New(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.AccessTTL())
	if err != nil {
		return err
	}

	// ───── persistencia: postgres, o memoria para dev local ─────
	var (
		pool  *pgxpool.Pool
		users directory.Store
		roles membership.RoleUpdater
		apps  membership.Store
	)
	if cfg.Storage.DSN != "" {
		opts := pgstore.Options{MaxConns: int32(cfg.Storage.Postgres.MaxOpenConns)}
		if cfg.Storage.Postgres.ConnMaxLifetime != "" {
			opts.ConnMaxLifetime, _ = time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		}
		pool, err = pgstore.Connect(ctx, cfg.Storage.DSN, opts)
		if err != nil {
			return err
		}
		defer pool.Close()

		if cfg.Flags.Migrate {
			n, err := pgstore.Migrate(ctx, pool)
			if err != nil {
				return err
			}
			logger.L().Info("migraciones al día", logger.Int("applied", n))
		}

		pgUsers := directory.NewPG(pool)
		users, roles = pgUsers, pgUsers
		apps = membership.NewPG(pool)
	} else {
		logger.L().Warn("sin storage.dsn: usando stores en memoria (solo dev)")
		mem := directory.NewMemory()
		users, roles = mem, mem
		apps = membership.NewMemory(mem)
	}

	// ───── notificaciones ─────
	var sink notify.Sink = notify.Log{}
	var smtpSink *notify.SMTPSink
	if cfg.SMTP.Host != "" {
		smtpSink = notify.NewSMTPSink(notify.SMTPConfig{
			Host:               cfg.SMTP.Host,
			Port:               cfg.SMTP.Port,
			Username:           cfg.SMTP.Username,
			Password:           cfg.SMTP.Password,
			From:               cfg.SMTP.From,
			TLSMode:            cfg.SMTP.TLS,
			InsecureSkipVerify: cfg.SMTP.InsecureSkipVerify,
		}, users)
		sink = smtpSink
		defer smtpSink.Close()
	}

	svc := membership.NewService(apps, users, roles, sink)

	// ───── rate limiting de login ─────
	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		switch cfg.Cache.Kind {
		case "redis":
			client := rdb.NewClient(&rdb.Options{Addr: cfg.Cache.Redis.Addr, DB: cfg.Cache.Redis.DB})
			defer func() { _ = client.Close() }()
			limiter = rate.NewRedisLimiter(client, cfg.Cache.Redis.Prefix, cfg.Rate.Login.Limit, cfg.LoginRateWindow())
		default:
			limiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.LoginRateWindow())
		}
	}

	// ───── providers sociales ─────
	var clients []oauth.Client
	if p := cfg.Providers.Kakao; p.Enabled {
		clients = append(clients, oauth.NewKakao(providerConfig(p)))
	}
	if p := cfg.Providers.Naver; p.Enabled {
		clients = append(clients, oauth.NewNaver(providerConfig(p)))
	}
	if p := cfg.Providers.Google; p.Enabled {
		clients = append(clients, oauth.NewGoogle(providerConfig(p)))
	}
	providers := oauth.NewRegistry(clients...)
	logger.L().Info("providers habilitados", logger.Any("names", providers.Names()))

	// ───── métricas ─────
	metricsHandler, err := metrics.Register(metrics.Config{
		Pool: func() *pgxpool.Pool { return pool },
	})
	if err != nil {
		return err
	}

	// ───── http ─────
	signupRole, _ := identity.ParseRole(cfg.Auth.SignupRole)

	health := &handlers.Health{Checks: map[string]func(context.Context) error{}}
	if pool != nil {
		health.Checks["postgres"] = pool.Ping
	}

	handler := router.New(router.Deps{
		Auth: &handlers.Auth{
			Providers:   providers,
			States:      authstate.NewStore(box, cfg.Auth.StateCookie.Secure),
			Normalizers: normalize.NewRegistry(),
			Users:       users,
			Issuer:      issuer,
			SignupRole:  signupRole,
			SuccessURL:  cfg.Frontend.SuccessURL,
			ErrorURL:    cfg.Frontend.ErrorURL,
		},
		Users:          &handlers.Users{Directory: users, Membership: svc},
		Membership:     &handlers.Membership{Service: svc},
		AdminUsers:     &handlers.AdminUsers{Directory: users, Roles: roles},
		Health:         health,
		Issuer:         issuer,
		AdminAPIKey:    cfg.Auth.AdminAPIKey,
		LoginLimiter:   limiter,
		MetricsHandler: metricsHandler,
	})

	srv := httpserver.NewServer(cfg.Server.Addr, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func providerConfig(p config.Provider) oauth.Config {
	return oauth.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
	}
}
