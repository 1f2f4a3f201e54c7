package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/vendoriq-client/internal/config"
	"github.com/jrsteele09/vendoriq-client/internal/logging"
	"github.com/jrsteele09/vendoriq-client/resources"
	"github.com/jrsteele09/vendoriq-client/session"
	"github.com/jrsteele09/vendoriq-client/store"
	"github.com/jrsteele09/vendoriq-client/store/filestore"
	"github.com/jrsteele09/vendoriq-client/store/memstore"
	"github.com/jrsteele09/vendoriq-client/store/redisstore"
	"github.com/jrsteele09/vendoriq-client/store/sqlitestore"
	"github.com/jrsteele09/vendoriq-client/token"
	"github.com/jrsteele09/vendoriq-client/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userAgent = "vendoriq-cli/1.0"

// app is everything a command needs, built once from configuration.
type app struct {
	cfg      config.Config
	store    store.Store
	gateway  *transport.Gateway
	manager  *session.Manager
	api      *resources.API
	registry *prometheus.Registry
}

func newApp(cfg config.Config) (*app, error) {
	logging.ConfigureRuntime(cfg.GetLogLevel())

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	logger := log.Logger.With().Str("component", "transport").Logger()
	gw, err := transport.New(
		transport.Config{BaseEndpoint: cfg.GetBaseEndpoint(), RequestTimeout: cfg.GetRequestTimeout()},
		transport.WithRequestStages(
			transport.RequestIDStage(),
			transport.UserAgentStage(userAgent),
			transport.BearerStage(token.NewStoreSource(st)),
		),
		transport.WithResponseStages(
			transport.LoggingStage(logger),
			transport.MetricsStage(transport.NewMetrics(registry)),
		),
		transport.WithLogger(logger),
	)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	manager, err := session.NewManager(st, gw, session.WithLogger(log.Logger.With().Str("component", "session").Logger()))
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	log.Debug().
		Str("endpoint", gw.BaseEndpoint()).
		Str("store", cfg.GetStoreBackend()).
		Msg("[newApp] configured")

	return &app{
		cfg:      cfg,
		store:    st,
		gateway:  gw,
		manager:  manager,
		api:      resources.New(gw),
		registry: registry,
	}, nil
}

// start runs startup reconciliation and waits for it to settle so the
// command sees the authoritative identity.
func (a *app) start(ctx context.Context) (session.State, error) {
	if err := a.manager.Start(ctx); err != nil {
		return session.State{}, err
	}
	a.manager.Wait()
	return a.manager.State(), nil
}

func (a *app) close() {
	a.manager.Close()
	if err := a.store.Close(); err != nil {
		log.Err(err).Msg("[app] failed to close store")
	}
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	switch backend := cfg.GetStoreBackend(); backend {
	case config.StoreBackendMemory:
		return memstore.New(), nil
	case config.StoreBackendFile, "":
		return filestore.New(cfg.GetStorePath())
	case config.StoreBackendSQLite:
		path := cfg.GetStorePath()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("[openStore] create store directory: %w", err)
		}
		return sqlitestore.New(path)
	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		return redisstore.New(client, cfg.GetRedisPrefix()), nil
	default:
		return nil, fmt.Errorf("[openStore] unknown store backend %q", backend)
	}
}
