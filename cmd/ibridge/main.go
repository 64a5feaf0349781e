package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/peter-kozarec/ibridge/internal/dbg"
	"github.com/peter-kozarec/ibridge/pkg/bus"
	"github.com/peter-kozarec/ibridge/pkg/client"
	"github.com/peter-kozarec/ibridge/pkg/gateway/wsbridge"
	"github.com/peter-kozarec/ibridge/pkg/middleware"
	"github.com/peter-kozarec/ibridge/pkg/model"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	symbol := flag.String("symbol", "AAPL", "stock to stream quotes for")
	production := flag.Bool("production", false, "JSON logging")
	level := flag.String("level", "", "log level")
	flag.Parse()

	logger, err := dbg.NewLogger(*production, *level)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("ibridge started", zap.String("version", Version))
	defer logger.Info("ibridge finished")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := client.NewConfig()
	if *configPath != "" {
		if cfg, err = client.LoadConfig(*configPath); err != nil {
			logger.Fatal("unable to load config", zap.Error(err))
		}
	} else if err := cfg.ApplyEnv(); err != nil {
		logger.Fatal("invalid environment", zap.Error(err))
	}

	monitor := middleware.NewMonitor(logger, MonitorFlags)
	performance := middleware.NewPerformance(logger)
	defer performance.PrintStatistics()

	c := client.New(wsbridge.New(logger), cfg,
		client.WithLogger(logger),
		client.WithMiddleware(middleware.Chain[bus.Handler](monitor.Wrap, performance.Wrap)))

	if err := c.Connect(ctx); err != nil {
		logger.Fatal("unable to connect", zap.Error(err))
	}
	defer func() {
		if err := c.Disconnect(); err != nil {
			logger.Warn("disconnect failed", zap.Error(err))
		}
	}()

	contract, err := c.QualifyContract(ctx, model.NewStock(*symbol, "SMART", "USD"))
	if err != nil {
		logger.Error("unable to qualify contract", zap.String("symbol", *symbol), zap.Error(err))
		return
	}

	ticker, err := c.ReqMktData(contract, "")
	if err != nil {
		logger.Error("unable to request market data", zap.Error(err))
		return
	}
	defer ticker.Cancel()

	updates := ticker.Updates(ctx, 64)
	for {
		select {
		case <-ctx.Done():
			if stats, err := c.Statistics(); err == nil {
				stats.Print(logger)
			}
			return
		case gwErr := <-c.Errors():
			logger.Warn("gateway", gwErr.Fields()...)
		case _, ok := <-updates:
			if !ok {
				logger.Warn("market data stream ended", zap.Error(ticker.Err()))
				return
			}
			logger.Info("quote",
				append(contract.Fields(),
					zap.Float64("bid", ticker.Bid()),
					zap.Float64("ask", ticker.Ask()),
					zap.Float64("last", ticker.Last()))...)
		}
	}
}
