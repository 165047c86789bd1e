package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kalpovskii/nervetask/internal/app/handlers"
	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/app/security"
	"github.com/kalpovskii/nervetask/internal/app/services"
	"github.com/kalpovskii/nervetask/internal/config"
	"github.com/kalpovskii/nervetask/internal/kafka"
	"github.com/kalpovskii/nervetask/internal/logging"
	"github.com/redis/go-redis/v9"
)

type app struct {
	cfg     *config.Config
	network repositories.Network
	plugin  *services.Plugin
	router  *gin.Engine
	closers []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logging.Logger.Warnf("Event ID: SHUTDOWN_CLOSE_FAILED, Description: %v", err)
		}
	}
}

func openNetwork(cfg *config.Config) (repositories.Network, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logging.Logger.Warn("Event ID: STORE_MEMORY, Description: using the in-memory store, data is lost on restart")
		return repositories.NewMemoryNetwork(), nil
	}
	return repositories.NewPostgresNetwork(cfg.PostgresDSN)
}

func openCache(ctx context.Context, cfg *config.Config) (repositories.Cache, func() error, error) {
	if cfg.RedisAddr == "" {
		return repositories.NewMemoryCache(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	logging.Logger.Infof("Event ID: REDIS_CONNECTED, Description: connected to %s", cfg.RedisAddr)
	return repositories.NewRedisCache(rdb), rdb.Close, nil
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	network, err := openNetwork(cfg)
	if err != nil {
		return nil, err
	}
	a.network = network
	a.closers = append(a.closers, network.Close)

	cache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeCache)

	var events services.EventPublisher
	if cfg.KafkaBroker != "" {
		producer := kafka.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		events = producer
		a.closers = append(a.closers, producer.Close)
	}

	var relations services.RelationManager
	if cfg.RelationsEnabled {
		relations = services.StoreRelations{}
	}

	tokens := security.NewTokens(cfg.JWTSecret)
	a.plugin = services.NewPlugin(
		services.NewProvisioner(network, network, cache, events, relations),
		services.NewAccessGate(cfg.LoginURL),
		services.NewTagService(tokens, cache, events),
		services.NewTaskService(cache, events, relations),
	)

	if _, err := a.plugin.Handle(ctx, services.InitEvent{}); err != nil {
		a.Close()
		return nil, err
	}

	a.router = handlers.New(a.plugin, network, network, tokens, cfg.DefaultDomain).Router()
	return a, nil
}

// provisionOnStart makes sure the default tenant exists and runs activation
// with the configured scope.
func (a *app) provisionOnStart(ctx context.Context) error {
	tenant, err := a.network.EnsureTenant(ctx, a.cfg.DefaultDomain)
	if err != nil {
		return fmt.Errorf("default tenant: %w", err)
	}
	scope, err := services.ParseScope(a.cfg.ProvisionScope)
	if err != nil {
		return err
	}

	report, err := a.plugin.Provisioner.Activate(ctx, scope, tenant.ID)
	if err != nil {
		return err
	}
	if err := report.Err(); err != nil {
		logging.Logger.Warnf("Event ID: PROVISION_PARTIAL, Description: %d of %d tenants failed: %v", len(report.Failed), len(report.Visited), err)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}
	if err := logging.Init(logging.Options{System: "nervetask", File: cfg.LogFile, Level: cfg.LogLevel}); err != nil {
		logging.Logger.Fatalf("Event ID: LOGGER_INIT_FAILED, Description: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	ctx := context.Background()
	a, err := build(ctx, cfg)
	if err != nil {
		logging.Logger.Fatalf("Event ID: STARTUP_FAILED, Description: %v", err)
	}
	defer a.Close()

	if cfg.ProvisionOnStart {
		if err := a.provisionOnStart(ctx); err != nil {
			logging.Logger.Fatalf("Event ID: PROVISION_FAILED, Description: %v", err)
		}
	}

	logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on :%s", cfg.HTTPPort)
	if err := a.router.Run(":" + cfg.HTTPPort); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
	}
}
