package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/document"
	"github.com/wvf-labs/docparse/internal/export"
	"github.com/wvf-labs/docparse/internal/extract"
	"github.com/wvf-labs/docparse/internal/gateway/openai"
	"github.com/wvf-labs/docparse/internal/ingest"
	"github.com/wvf-labs/docparse/internal/normalize"
	"github.com/wvf-labs/docparse/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "mode",
			Value: string(document.ModePreservePages),
			Usage: "aggregation mode: preserve-pages or flatten",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "both",
			Usage: "export format: json, xlsx or both",
		},
		&cli.StringFlag{
			Name:  "out-dir",
			Usage: "output directory (defaults to EXPORT_OUTPUT_DIR)",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "concurrent page workers (defaults to PIPELINE_WORKERS)",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "debug logging",
		},
	}

	app := &cli.App{
		Name:      "docparse",
		Usage:     "extract structured data from PDF invoices, receipts and bills",
		ArgsUsage: "<file.pdf>",
		Flags:     flags,
		Action:    runFile,
		Commands: []*cli.Command{
			{
				Name:      "batch",
				Usage:     "process every PDF under a directory",
				ArgsUsage: "<dir>",
				Flags:     flags,
				Action:    runBatch,
			},
			{
				Name:      "watch",
				Usage:     "watch a directory and process PDFs as they arrive",
				ArgsUsage: "<dir>",
				Flags:     flags,
				Action:    runWatch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// env holds the wired-up pipeline shared by all commands.
type env struct {
	processor *pipeline.Processor
	exporter  *export.Adapter
	logger    *slog.Logger
	mode      document.AggregationMode
	format    string
	outDir    string
}

func setup(c *cli.Context) (*env, error) {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if w := c.Int("workers"); w > 0 {
		cfg.Pipeline.Workers = w
	}
	outDir := cfg.Export.OutputDir
	if d := c.String("out-dir"); d != "" {
		outDir = d
	}

	mode, err := document.ParseMode(c.String("mode"))
	if err != nil {
		return nil, err
	}
	format := c.String("format")
	if format != "json" && format != "xlsx" && format != "both" {
		return nil, cli.Exit(fmt.Sprintf("unknown format %q", format), 2)
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

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &env{
		processor: processor,
		exporter:  export.NewAdapter(logger),
		logger:    logger,
		mode:      mode,
		format:    format,
		outDir:    outDir,
	}, nil
}

func runFile(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one PDF path is required", 2)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	return e.processOne(c.Context, c.Args().First())
}

func runBatch(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one directory is required", 2)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	paths, err := ingest.ScanDirectory(c.Args().First())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return cli.Exit("no PDF files found", 1)
	}

	var failed int
	for _, p := range paths {
		if err := e.processOne(c.Context, p); err != nil {
			e.logger.Error("batch.file_failed", "path", p, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d files failed", failed, len(paths)), 1)
	}
	return nil
}

func runWatch(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("exactly one directory is required", 2)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Root:        c.Args().First(),
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	}, e.logger)
	if err != nil {
		return err
	}

	e.logger.Info("watch.started", "root", c.Args().First())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok {
				e.logger.Error("watch.error", "error", err)
			}
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			if err := e.processOne(ctx, p); err != nil {
				e.logger.Error("watch.file_failed", "path", p, "error", err)
			}
		}
	}
}

// processOne runs the pipeline on one PDF and writes the requested exports.
func (e *env) processOne(ctx context.Context, pdfPath string) error {
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return fmt.Errorf("read pdf: %w", err)
	}
	if err := common.ValidatePDFUpload(filepath.Base(pdfPath), pdf, 0); err != nil {
		return err
	}

	doc, err := e.processor.Process(ctx, pdf, filepath.Base(pdfPath), e.mode)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))

	if e.format == "json" || e.format == "both" {
		out, err := e.exporter.Render(doc, export.FormatJSON)
		if err != nil {
			return err
		}
		path := filepath.Join(e.outDir, base+"_data.json")
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("write json export: %w", err)
		}
		fmt.Println("wrote", path)
	}
	if e.format == "xlsx" || e.format == "both" {
		out, err := e.exporter.Render(doc, export.FormatXLSX)
		if err != nil {
			return err
		}
		path := filepath.Join(e.outDir, export.OutputFilename("xlsx"))
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("write xlsx export: %w", err)
		}
		fmt.Println("wrote", path)
	}
	return nil
}
