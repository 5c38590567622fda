package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"depthsignal/config"
	"depthsignal/internal/aggregator"
	"depthsignal/internal/enrichment"
	"depthsignal/internal/metrics"
	"depthsignal/internal/server"
	"depthsignal/internal/venue"
	"depthsignal/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Depthsignal.Name,
		"version": cfg.Depthsignal.Version,
	}).Info("starting depthsignal")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.Prometheus {
		metrics.Init()
	}

	var adapters []venue.Adapter
	if cfg.Source.Binance.Enabled {
		adapters = append(adapters, venue.NewBinanceAdapter(cfg.Source.Binance, cfg.Reader.Timeout))
	}
	if cfg.Source.Bybit.Enabled {
		adapters = append(adapters, venue.NewBybitAdapter(cfg.Source.Bybit, cfg.Reader.Timeout))
	}
	if cfg.Source.Kucoin.Enabled {
		adapters = append(adapters, venue.NewKucoinAdapter(cfg.Source.Kucoin, cfg.Reader.Timeout))
	}
	if len(adapters) == 0 {
		log.Error("no venue sources enabled")
		os.Exit(1)
	}

	agg := aggregator.New(cfg.Aggregator, cfg.Reader.Timeout, adapters)

	var enrich *enrichment.Service
	if cfg.Enrichment.Enabled {
		enrich = enrichment.NewService(cfg.Enrichment, cfg.Source.Binance, cfg.Reader.Timeout)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := agg.Run(ctx); err != nil {
			log.WithError(err).Error("aggregator failed")
			cancel()
		}
	}()

	srv := server.NewServer(cfg.Server, agg, enrich)
	if srv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				log.WithError(err).Error("server failed")
				cancel()
			}
		}()
	} else {
		log.WithComponent("main").Info("API server disabled")
	}

	if cfg.Metrics.CloudWatch.Enabled {
		publisher, err := metrics.NewCloudWatchPublisher(ctx, cfg.Metrics.CloudWatch)
		if err != nil {
			log.WithError(err).Warn("cloudwatch publishing disabled")
		} else {
			wg.Add(1)
			go func() {
				defer wg.Done()
				publisher.Run(ctx)
			}()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()
	log.Info("depthsignal stopped")
}
