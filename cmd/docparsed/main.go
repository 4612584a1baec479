package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/document"
	"github.com/wvf-labs/docparse/internal/export"
	"github.com/wvf-labs/docparse/internal/extract"
	"github.com/wvf-labs/docparse/internal/gateway/openai"
	"github.com/wvf-labs/docparse/internal/normalize"
	"github.com/wvf-labs/docparse/internal/pipeline"
	"github.com/wvf-labs/docparse/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	gw := openai.NewClient(openai.Config{
		APIKey:      cfg.Gateway.APIKey,
		BaseURL:     cfg.Gateway.BaseURL,
		Model:       cfg.Gateway.Model,
		VisionModel: cfg.Gateway.VisionModel,
		Temperature: cfg.Gateway.Temperature,
		MaxTokens:   cfg.Gateway.MaxTokens,
		Timeout:     cfg.Gateway.Timeout,
	}, logger)

	processor := pipeline.NewProcessor(
		extract.NewFitzExtractor(cfg.Pipeline.RenderDPI, logger),
		pipeline.NewPageProcessor(gw, normalize.New(logger), logger),
		document.NewAggregator(logger),
		cfg.Pipeline.Workers,
		logger,
	)
	svc := server.NewService(processor, export.NewAdapter(logger), logger)

	app := fiber.New(fiber.Config{
		AppName:      "docparsed",
		BodyLimit:    cfg.Server.MaxUploadMB * 1024 * 1024,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	svc.RegisterRoutes(app)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("http serving", "addr", cfg.Server.Addr)
	if err := app.Listen(cfg.Server.Addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
