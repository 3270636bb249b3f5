package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"EquityPulse/internal/di"
	"EquityPulse/pkg/config"
)

// version is stamped by the build (-ldflags "-X main.version=...").
var version = "dev"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("equitypulse", version)
		return
	}

	// The structured logger needs the config, so everything before
	// InitializeApp logs through the stdlib.
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("equitypulse %s env=%s backend=%s", version, cfg.Environment, cfg.Backend.Type)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	log.Printf("clickhouse ready db=%s", cfg.ClickHouse.Database)
	if len(cfg.Kafka.Brokers) > 0 {
		log.Printf("kafka ready brokers=%v topic=%s", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
