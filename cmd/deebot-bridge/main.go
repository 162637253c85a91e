package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/joshp123/deebot-bridge/internal/config"
	"github.com/joshp123/deebot-bridge/internal/ecovacs"
	"github.com/joshp123/deebot-bridge/internal/manager"
	"github.com/joshp123/deebot-bridge/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client, err := ecovacs.NewClient(ecovacs.Config{
		Email:     cfg.Email,
		Password:  cfg.Password,
		Country:   cfg.Country,
		Continent: cfg.Continent,
	})
	if err != nil {
		log.Fatalf("ecovacs client: %v", err)
	}
	defer client.Close()

	deviceManager := manager.New(client)

	log.Printf("initializing device manager for region %s/%s", cfg.Country, cfg.Continent)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	err = deviceManager.Initialize(ctx)
	cancel()
	switch {
	case err == nil:
		log.Printf("discovered %d devices", deviceManager.Connected())
	case errors.Is(err, manager.ErrNoDevices):
		log.Printf("warning: %v, serving with an empty device list", err)
	default:
		log.Fatalf("initialize: %v", err)
	}

	registry := prometheus.NewRegistry()
	for _, collector := range manager.Collectors(deviceManager) {
		registry.MustRegister(collector)
	}
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "deebot_bridge_build_info",
		Help: "Build information",
	}, func() float64 { return 1 }))

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, server.Routes(deviceManager, registry))

	log.Printf("listening on %s", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("http serve: %v", err)
	}
}
