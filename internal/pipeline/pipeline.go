// Package pipeline registers the analysis stages and runs them in order,
// cataloging each run's manifest and outputs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/camillabonomo02/CSS-project/internal/clean"
	"github.com/camillabonomo02/CSS-project/internal/cluster"
	"github.com/camillabonomo02/CSS-project/internal/config"
	"github.com/camillabonomo02/CSS-project/internal/dataset"
	"github.com/camillabonomo02/CSS-project/internal/model"
	"github.com/camillabonomo02/CSS-project/internal/proximity"
	"github.com/camillabonomo02/CSS-project/internal/report"
	"github.com/camillabonomo02/CSS-project/internal/storage"
)

// Stage is one runnable pipeline step.
type Stage struct {
	Name     string
	Requires []string // files that must exist before the stage runs
	Run      func(ctx context.Context) error
}

// Pipeline holds the registered stages for one configuration.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	stages []Stage
}

// Order is the canonical stage sequence for `all`.
var Order = []string{"clean", "build", "proximity", "model", "cluster", "report"}

// New wires every stage against the configuration.
func New(cfg *config.Config, logger *slog.Logger) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: logger}
	interim := cfg.Paths.InterimDir
	processed := cfg.Paths.ProcessedDir

	p.stages = []Stage{
		{
			Name: "clean",
			Run: func(ctx context.Context) error {
				return p.catalog(ctx, "clean", cfg.Clean, func() error {
					return clean.New(cfg, logger).Run()
				})
			},
		},
		{
			Name: "build",
			Requires: []string{
				filepath.Join(interim, clean.WeatherFile),
				filepath.Join(interim, clean.MobilityFile),
				filepath.Join(interim, clean.StationsFile),
				filepath.Join(interim, clean.StopsFile),
			},
			Run: func(ctx context.Context) error {
				return p.catalog(ctx, "build", cfg.Build, func() error {
					if err := dataset.NewBuilder(cfg, logger).Run(); err != nil {
						return err
					}
					return p.catalogBuildOutputs(ctx)
				})
			},
		},
		{
			Name: "proximity",
			Requires: []string{
				filepath.Join(interim, clean.StationsFile),
				filepath.Join(interim, clean.StopsFile),
			},
			Run: func(ctx context.Context) error {
				return p.catalog(ctx, "proximity", cfg.Proximity, func() error {
					return proximity.NewRunner(cfg, logger).Run()
				})
			},
		},
		{
			Name:     "model",
			Requires: []string{filepath.Join(processed, dataset.TemporalFile)},
			Run: func(ctx context.Context) error {
				return p.catalog(ctx, "model", cfg.Model, func() error {
					return model.NewRunner(cfg, logger).Run()
				})
			},
		},
		{
			Name:     "cluster",
			Requires: []string{filepath.Join(processed, dataset.SpatialFile)},
			Run: func(ctx context.Context) error {
				return p.catalog(ctx, "cluster", cfg.Cluster, func() error {
					if err := cluster.NewRunner(cfg, logger).Run(); err != nil {
						return err
					}
					return p.catalogClusterOutputs(ctx)
				})
			},
		},
		{
			Name: "report",
			Requires: []string{
				filepath.Join(processed, dataset.TemporalFile),
				filepath.Join(processed, dataset.SpatialFile),
				filepath.Join(processed, "proximity", proximity.StationIndexFile),
			},
			Run: func(ctx context.Context) error {
				return p.catalog(ctx, "report", nil, func() error {
					return report.NewRunner(cfg, logger).Run()
				})
			},
		},
	}
	return p
}

// StageNames lists the registered stages in run order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// RunStage executes one named stage after checking its required inputs.
func (p *Pipeline) RunStage(ctx context.Context, name string) error {
	for _, s := range p.stages {
		if s.Name != name {
			continue
		}
		if err := requireFiles(s.Name, s.Requires); err != nil {
			return err
		}
		p.logger.Info("stage starting", "stage", s.Name)
		if err := s.Run(ctx); err != nil {
			return err
		}
		p.logger.Info("stage finished", "stage", s.Name)
		return nil
	}
	known := p.StageNames()
	sort.Strings(known)
	return fmt.Errorf("unknown stage %q, known stages: %v", name, known)
}

// RunAll executes every stage in order, halting at the first failure.
func (p *Pipeline) RunAll(ctx context.Context) error {
	for _, name := range Order {
		if err := p.RunStage(ctx, name); err != nil {
			return fmt.Errorf("pipeline halted at stage %s: %w", name, err)
		}
	}
	return nil
}

// catalog runs fn inside a manifest record when the catalog is configured.
// The catalog is an observer: a catalog failure never fails the stage.
func (p *Pipeline) catalog(ctx context.Context, stage string, params any, fn func() error) error {
	if p.cfg.Paths.CatalogPath == "" {
		return fn()
	}
	db, err := storage.Open(p.cfg.Paths.CatalogPath, p.logger)
	if err != nil {
		p.logger.Warn("catalog unavailable, running uncataloged", "stage", stage, "error", err)
		return fn()
	}
	defer db.Close()

	runID, err := db.BeginRun(ctx, stage, params)
	if err != nil {
		p.logger.Warn("catalog run insert failed", "stage", stage, "error", err)
		return fn()
	}
	if err := fn(); err != nil {
		return err
	}
	if err := db.FinishRun(ctx, runID); err != nil {
		p.logger.Warn("catalog run finish failed", "stage", stage, "error", err)
	}
	return nil
}

// catalogBuildOutputs appends the freshly built processed tables to the
// catalog under their own run record.
func (p *Pipeline) catalogBuildOutputs(ctx context.Context) error {
	if p.cfg.Paths.CatalogPath == "" {
		return nil
	}
	db, err := storage.Open(p.cfg.Paths.CatalogPath, p.logger)
	if err != nil {
		p.logger.Warn("catalog unavailable, build outputs not cataloged", "error", err)
		return nil
	}
	defer db.Close()

	runID, err := db.BeginRun(ctx, "build-outputs", p.cfg.Build)
	if err != nil {
		p.logger.Warn("catalog run insert failed", "error", err)
		return nil
	}
	temporal, err := dataset.ReadTemporal(filepath.Join(p.cfg.Paths.ProcessedDir, dataset.TemporalFile))
	if err != nil {
		return err
	}
	spatial, err := dataset.ReadSpatial(filepath.Join(p.cfg.Paths.ProcessedDir, dataset.SpatialFile))
	if err != nil {
		return err
	}
	if err := db.InsertTemporal(ctx, runID, temporal); err != nil {
		p.logger.Warn("temporal rows not cataloged", "error", err)
	}
	if err := db.InsertSpatial(ctx, runID, spatial); err != nil {
		p.logger.Warn("accessibility rows not cataloged", "error", err)
	}
	if err := db.FinishRun(ctx, runID); err != nil {
		p.logger.Warn("catalog run finish failed", "error", err)
	}
	return nil
}

// catalogClusterOutputs appends the cluster assignment to the catalog.
func (p *Pipeline) catalogClusterOutputs(ctx context.Context) error {
	if p.cfg.Paths.CatalogPath == "" {
		return nil
	}
	db, err := storage.Open(p.cfg.Paths.CatalogPath, p.logger)
	if err != nil {
		p.logger.Warn("catalog unavailable, cluster outputs not cataloged", "error", err)
		return nil
	}
	defer db.Close()

	runID, err := db.BeginRun(ctx, "cluster-outputs", p.cfg.Cluster)
	if err != nil {
		p.logger.Warn("catalog run insert failed", "error", err)
		return nil
	}
	ids, assign, err := cluster.ReadAssignments(
		filepath.Join(p.cfg.Paths.ProcessedDir, "cluster", cluster.AssignmentsFile))
	if err != nil {
		return err
	}
	if err := db.InsertClusters(ctx, runID, ids, assign); err != nil {
		p.logger.Warn("cluster assignments not cataloged", "error", err)
	}
	if err := db.FinishRun(ctx, runID); err != nil {
		p.logger.Warn("catalog run finish failed", "error", err)
	}
	return nil
}

// requireFiles reports the first missing required input with its stage.
func requireFiles(stage string, paths []string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("stage %s: required input %s does not exist", stage, path)
		} else if err != nil {
			return fmt.Errorf("stage %s: stat %s: %w", stage, path, err)
		}
	}
	return nil
}
