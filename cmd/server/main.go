package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"backoffice/boilerplate/internal/config"
	"backoffice/boilerplate/internal/domain/product"
	"backoffice/boilerplate/internal/domain/profile"
	"backoffice/boilerplate/internal/domain/resource"
	"backoffice/boilerplate/internal/httpserver"
	"backoffice/boilerplate/internal/infrastructure/mail"
	"backoffice/boilerplate/internal/infrastructure/memory"
	mongostore "backoffice/boilerplate/internal/infrastructure/mongo"
	"backoffice/boilerplate/internal/infrastructure/postgres"
	redisstore "backoffice/boilerplate/internal/infrastructure/redis"
	"backoffice/boilerplate/internal/infrastructure/token"
	"backoffice/boilerplate/internal/logging"
	authusecase "backoffice/boilerplate/internal/usecase/auth"
	resourceusecase "backoffice/boilerplate/internal/usecase/resource"

	"go.uber.org/zap"
)

// stores holds the persistence selected by STORE_DRIVER.
type stores struct {
	auth     authusecase.Repositories
	profiles resource.Store[profile.Profile]
	products resource.Store[product.Product]
	close    func(context.Context)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Development(), cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	rootCtx := context.Background()
	st, err := openStores(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open stores", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}

	mailer, err := newMailer(cfg.Mail, logger)
	if err != nil {
		logger.Fatal("failed to configure mailer", zap.Error(err))
	}

	tokenManager := token.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry, cfg.JWTIssuer)
	authService := authusecase.NewService(st.auth, tokenManager, mailer, authusecase.Config{
		SessionTTL:            cfg.SessionTTL,
		CodeTTL:               cfg.VerificationCodeTTL,
		BcryptCost:            cfg.BcryptCost,
		RevokeSessionsOnReset: cfg.RevokeSessionsOnReset,
	}, logger)

	opts := resourceusecase.Options{CacheTTL: cfg.CacheTTL, Logger: logger}
	closeRedis := func() {}
	if cfg.RedisEnabled {
		rdb, err := redisstore.Connect(rootCtx, cfg.RedisURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		closeRedis = func() { _ = rdb.Close() }
		opts.Cache = redisstore.NewCache(rdb)
		opts.Limiter = redisstore.NewRateLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow)
		opts.Locker = redisstore.NewLocker(rdb, redisstore.LockConfig{
			TTL:        cfg.LockTTL,
			RetryCount: cfg.LockRetryCount,
			RetryDelay: cfg.LockRetryDelay,
		})
	} else {
		logger.Info("redis disabled, caching, rate limiting and locking are off")
	}

	server := httpserver.NewServer(cfg, authService, logger)
	httpserver.MountResource(server, resourceusecase.NewGateway(profile.Definition, st.profiles, opts))
	httpserver.MountResource(server, resourceusecase.NewGateway(product.Definition, st.products, opts))
	logger.Info("HTTP server listening", zap.String("addr", server.Addr()), zap.String("base_path", cfg.BasePath))

	go func() {
		if err := server.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("HTTP server closed")
				return
			}
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("graceful shutdown completed")
	}
	st.close(ctx)
	closeRedis()
}

func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := mongostore.Connect(ctx, cfg.MongoURI, logger)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongostore.EnsureAuthIndexes(ctx, db); err != nil {
			return nil, err
		}
		profiles := mongostore.NewCollection[profile.Profile](db, profile.Definition)
		products := mongostore.NewCollection[product.Product](db, product.Definition)
		for _, c := range []interface{ EnsureIndexes(context.Context) error }{profiles, products} {
			if err := c.EnsureIndexes(ctx); err != nil {
				return nil, err
			}
		}
		return &stores{
			auth: authusecase.Repositories{
				Users:    mongostore.NewUserRepository(db),
				Sessions: mongostore.NewSessionRepository(db),
				Codes:    mongostore.NewVerificationRepository(db),
			},
			profiles: profiles,
			products: products,
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					logger.Error("mongo disconnect failed", zap.Error(err))
				}
			},
		}, nil

	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return &stores{
			auth: authusecase.Repositories{
				Users:    postgres.NewUserRepository(db.Pool),
				Sessions: postgres.NewSessionRepository(db.Pool),
				Codes:    postgres.NewVerificationRepository(db.Pool),
			},
			profiles: postgres.NewTable[profile.Profile](db.Pool, profile.Definition),
			products: postgres.NewTable[product.Product](db.Pool, product.Definition),
			close:    func(context.Context) { db.Close() },
		}, nil

	case config.DriverMemory:
		logger.Warn("memory store selected, data is lost on restart")
		return &stores{
			auth: authusecase.Repositories{
				Users:    memory.NewUserRepository(),
				Sessions: memory.NewSessionRepository(),
				Codes:    memory.NewVerificationRepository(),
			},
			profiles: memory.NewCollection[profile.Profile](profile.Definition),
			products: memory.NewCollection[product.Product](product.Definition),
			close:    func(context.Context) {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newMailer(cfg config.Mail, logger *zap.Logger) (authusecase.Mailer, error) {
	var next authusecase.Mailer
	switch cfg.Driver {
	case config.MailSMTP:
		smtp, err := mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
			FromName: cfg.FromName,
		})
		if err != nil {
			return nil, err
		}
		next = smtp
	case config.MailBrevo:
		next = mail.NewBrevoMailer(cfg.BrevoAPIKey, cfg.From, cfg.FromName)
	default:
		return mail.NewLogMailer(logger), nil
	}
	return mail.WithBreaker(next, mail.BreakerConfig{
		MaxFailures: uint32(cfg.BreakerMaxFailures),
		Timeout:     cfg.BreakerTimeout,
	}, logger), nil
}
