package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/OrderSync/config"
	"github.com/BearBump/OrderSync/internal/broker/kafka"
)

type syncAPIApp struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     syncAPIOpts
	producer *kafka.Producer
}

func bootstrapSyncAPI(cfgPath string) (*syncAPIApp, error) {
	if cfgPath == "" {
		return nil, fmt.Errorf("--config or configPath env var is required")
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	httpAddr := cfg.API.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	swaggerPath := cfg.API.SwaggerPath
	if swaggerPath == "" {
		swaggerPath = os.Getenv("swaggerPath")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers())
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &syncAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: syncAPIOpts{
			httpAddr:    httpAddr,
			swaggerPath: swaggerPath,
			topic:       cfg.Kafka.TopicName(),
			storeIDs:    cfg.StoreIDs(),
		},
		producer: producer,
	}, nil
}

func (a *syncAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.producer != nil {
		_ = a.producer.Close()
	}
}

func (a *syncAPIApp) Run() error {
	return runSyncAPI(a.ctx, a.opts, a.producer)
}
