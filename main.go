// main.go

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	limiterSweepEvery = time.Minute
	limiterIdleAfter  = 10 * time.Minute
	seedTimeout       = 15 * time.Second
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel, cfg.LogEncoding)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)

	// Connect to MongoDB
	log.Info("connecting to MongoDB", zap.String("database", cfg.MongoDatabase))
	client, err := connectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Warn("mongo disconnect", zap.Error(err))
		}
	}()
	db := client.Database(cfg.MongoDatabase)
	if err := ensureCollections(ctx, db, log); err != nil {
		return err
	}

	// Optional collaborators stay untyped nil when disabled.
	var cache Cache
	if cfg.RedisAddr != "" {
		rc, err := newRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer func(rc *redis.Client) { _ = rc.Close() }(rc)
		cache = newRedisCache(rc, cfg.CacheTTL, log)
		log.Info("catalog cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	var events EventPublisher
	if cfg.NATSURL != "" {
		nc, err := newNATSConn(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer func(nc *nats.Conn) {
			if err := nc.Drain(); err != nil {
				log.Warn("nats drain", zap.Error(err))
			}
		}(nc)
		pub, err := newNATSPublisher(nc)
		if err != nil {
			return err
		}
		events = pub
		log.Info("order events enabled", zap.String("url", nc.ConnectedUrl()))
	}

	var notifier OrderNotifier
	if cfg.SMTPHost != "" {
		m, err := newSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPSender, log)
		if err != nil {
			return err
		}
		notifier = m
		log.Info("order confirmation mail enabled", zap.String("host", cfg.SMTPHost))
	}

	tokens := NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	auth := NewAuthService(newMongoUserStore(db), tokens, cfg.BcryptCost, log)
	catalog := NewCatalogService(newMongoProductStore(db), cache, log)
	orders := NewOrderService(newMongoOrderStore(db), events, notifier, log)
	defer orders.Wait()

	seedCtx, cancelSeed := context.WithTimeout(ctx, seedTimeout)
	err = seedAdmin(seedCtx, auth, cfg.AdminEmail, cfg.AdminPassword)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	metrics := NewMetrics()
	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go sweepLimiter(ctx, limiter)

	r, err := newRouter(cfg, routerDeps{
		api:     NewAPI(auth, catalog, orders, metrics, cfg.AuthEnforce, log),
		tokens:  tokens,
		metrics: metrics,
		limiter: limiter,
		log:     log,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.Bool("authEnforce", cfg.AuthEnforce))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func sweepLimiter(ctx context.Context, rl *RateLimiter) {
	t := time.NewTicker(limiterSweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rl.Cleanup(limiterIdleAfter)
		}
	}
}
