package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/camillabonomo02/CSS-project/internal/config"
	"github.com/camillabonomo02/CSS-project/internal/pipeline"
	"github.com/camillabonomo02/CSS-project/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	rawDir := flag.String("raw-dir", "", "Override raw data directory")
	interimDir := flag.String("interim-dir", "", "Override interim data directory")
	processedDir := flag.String("processed-dir", "", "Override processed data directory")
	reportsDir := flag.String("reports-dir", "", "Override reports directory")
	catalogPath := flag.String("catalog", "", "Override results catalog path (empty string in config disables)")
	radii := flag.String("radii", "", "Override buffer radii, comma-separated meters (e.g. 300,500,800)")
	kMin := flag.Int("k-min", 0, "Override minimum candidate k for clustering")
	kMax := flag.Int("k-max", 0, "Override maximum candidate k for clustering")
	seed := flag.Int64("seed", -1, "Override clustering seed (non-negative)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *rawDir != "" {
		cfg.Paths.RawDir = *rawDir
	}
	if *interimDir != "" {
		cfg.Paths.InterimDir = *interimDir
	}
	if *processedDir != "" {
		cfg.Paths.ProcessedDir = *processedDir
	}
	if *reportsDir != "" {
		cfg.Paths.ReportsDir = *reportsDir
	}
	if *catalogPath != "" {
		cfg.Paths.CatalogPath = *catalogPath
	}
	if *radii != "" {
		parsed, err := parseRadii(*radii)
		if err != nil {
			fmt.Fprintf(os.Stderr, "-radii: %v\n", err)
			os.Exit(1)
		}
		cfg.Build.BufferRadii = parsed
	}
	if *kMin > 0 {
		cfg.Cluster.KMin = *kMin
	}
	if *kMax > 0 {
		cfg.Cluster.KMax = *kMax
	}
	if *seed >= 0 {
		cfg.Cluster.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}
	stage := flag.Arg(0)

	// Cancel cleanly on interrupt; partial files are overwritten on rerun.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if stage == "history" {
		if err := printHistory(ctx, cfg, logger); err != nil {
			fmt.Fprintf(os.Stderr, "history: %v\n", err)
			os.Exit(1)
		}
		return
	}

	p := pipeline.New(cfg, logger)
	if stage == "all" {
		err = p.RunAll(ctx)
	} else {
		err = p.RunStage(ctx, stage)
	}
	if err != nil {
		logger.Error("run failed", "stage", stage, "error", err)
		os.Exit(1)
	}
}

// printHistory lists the most recent catalog runs, newest first.
func printHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Paths.CatalogPath == "" {
		return fmt.Errorf("no catalog path configured")
	}
	db, err := storage.Open(cfg.Paths.CatalogPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.RunHistory(ctx, 50)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %-9s  started %s  finished %s  %s\n",
			r.RunID, r.Stage, r.StartedAt.Format(time.RFC3339), finished, r.Parameters)
	}
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: mobility [flags] <stage>\n\nStages: %s, all\n\nOther commands:\n  history\tlist recent catalog runs\n\nFlags:\n",
		strings.Join(pipeline.Order, ", "))
	flag.PrintDefaults()
}

func parseRadii(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("radius %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
