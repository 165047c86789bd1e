package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kalpovskii/nervetask/internal/app/repositories"
	"github.com/kalpovskii/nervetask/internal/app/services"
	"github.com/kalpovskii/nervetask/internal/config"
	"github.com/kalpovskii/nervetask/internal/kafka"
	"github.com/kalpovskii/nervetask/internal/logging"
	"github.com/redis/go-redis/v9"
)

const usage = "usage: provision activate|deactivate"

func run(ctx context.Context, cfg *config.Config, command string) (*services.Report, error) {
	scope, err := services.ParseScope(cfg.ProvisionScope)
	if err != nil {
		return nil, err
	}

	var network repositories.Network
	if cfg.StoreDriver == config.DriverMemory {
		network = repositories.NewMemoryNetwork()
	} else {
		network, err = repositories.NewPostgresNetwork(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
	}
	defer network.Close()

	var claims repositories.Cache = repositories.NewMemoryCache()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		claims = repositories.NewRedisCache(rdb)
	}

	var events services.EventPublisher
	if cfg.KafkaBroker != "" {
		producer := kafka.NewProducer(cfg.KafkaBroker, cfg.KafkaTopic)
		defer producer.Close()
		events = producer
	}

	var relations services.RelationManager
	if cfg.RelationsEnabled {
		relations = services.StoreRelations{}
	}
	provisioner := services.NewProvisioner(network, network, claims, events, relations)

	current, err := network.EnsureTenant(ctx, cfg.DefaultDomain)
	if err != nil {
		return nil, fmt.Errorf("default tenant: %w", err)
	}

	switch command {
	case "activate":
		return provisioner.Activate(ctx, scope, current.ID)
	case "deactivate":
		return provisioner.Deactivate(ctx, scope, current.ID)
	}
	return nil, fmt.Errorf("unknown command %q, %s", command, usage)
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}
	if err := logging.Init(logging.Options{System: "nervetask-provision", File: cfg.LogFile, Level: cfg.LogLevel}); err != nil {
		logging.Logger.Fatalf("Event ID: LOGGER_INIT_FAILED, Description: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := run(ctx, cfg, os.Args[1])
	if err != nil {
		logging.Logger.Fatalf("Event ID: PROVISION_FAILED, Description: %v", err)
	}

	logging.Logger.Infof("Event ID: PROVISION_REPORT, Description: %s visited %v", os.Args[1], report.Visited)
	for _, f := range report.Failed {
		logging.Logger.Errorf("Event ID: PROVISION_REPORT, Description: %v", f)
	}
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
