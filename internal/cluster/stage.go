package cluster

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/camillabonomo02/CSS-project/internal/config"
	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/dataset"
)

// Output files under <processed>/cluster/.
const (
	AssignmentsFile = "station_clusters.csv"
	SilhouetteFile  = "silhouette_by_k.csv"
	ProfilesFile    = "cluster_profiles.csv"
)

var featureNames = []string{"dist_to_center", "nearest_stop_dist", "route_count", "stop_density"}

// Runner drives the cluster stage.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

// Run clusters stations on their accessibility profile and writes the
// assignment, the silhouette sweep and per-cluster feature means.
func (r *Runner) Run() error {
	rows, err := dataset.ReadSpatial(filepath.Join(r.cfg.Paths.ProcessedDir, dataset.SpatialFile))
	if err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}

	radius := r.cfg.Cluster.BufferRadius
	var ids []string
	var raw [][]float64
	for _, row := range rows {
		if row.NearestDistance == nil {
			r.logger.Warn("station excluded from clustering", "station_id", row.StationID, "reason", "no transit stops in feed")
			continue
		}
		b, ok := row.BufferAt(radius)
		if !ok {
			return fmt.Errorf("cluster stage: radius %gm not present in the accessibility table", radius)
		}
		ids = append(ids, row.StationID)
		raw = append(raw, []float64{
			row.DistToCenter,
			*row.NearestDistance,
			float64(b.RouteCount),
			row.ServiceDensity(radius),
		})
	}
	if len(raw) == 0 {
		return fmt.Errorf("cluster stage: no stations with usable features")
	}

	features := make([][]float64, len(raw))
	for i, row := range raw {
		features[i] = append([]float64(nil), row...)
	}
	if err := Standardize(features, featureNames); err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}

	sel, err := SelectK(features, r.cfg.Cluster.KMin, r.cfg.Cluster.KMax, r.cfg.Cluster.Seed, r.cfg.Cluster.MaxIter)
	if err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}
	best := sel.Best
	r.logger.Info("clustering done",
		"stations", len(ids), "k", best.K,
		"silhouette", sel.Scores[best.K], "inertia", best.Inertia)

	outDir := filepath.Join(r.cfg.Paths.ProcessedDir, "cluster")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}
	if err := writeAssignments(filepath.Join(outDir, AssignmentsFile), ids, raw, best.Assignments); err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}
	if err := writeSilhouettes(filepath.Join(outDir, SilhouetteFile), sel, best.K); err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}
	if err := writeProfiles(filepath.Join(outDir, ProfilesFile), raw, best.Assignments, best.K); err != nil {
		return fmt.Errorf("cluster stage: %w", err)
	}
	return nil
}

func writeAssignments(path string, ids []string, raw [][]float64, assign []int) error {
	header := append([]string{"station_id", "cluster"}, featureNames...)
	out := make([][]string, len(ids))
	for i, id := range ids {
		rec := []string{id, strconv.Itoa(assign[i])}
		for _, v := range raw[i] {
			rec = append(rec, fmtFloat(v))
		}
		out[i] = rec
	}
	return csvio.WriteFile(path, header, out)
}

func writeSilhouettes(path string, sel *Selection, chosen int) error {
	ks := make([]int, 0, len(sel.Scores))
	for k := range sel.Scores {
		ks = append(ks, k)
	}
	sort.Ints(ks)
	out := make([][]string, len(ks))
	for i, k := range ks {
		picked := "0"
		if k == chosen {
			picked = "1"
		}
		out[i] = []string{strconv.Itoa(k), fmtFloat(sel.Scores[k]), picked}
	}
	return csvio.WriteFile(path, []string{"k", "mean_silhouette", "chosen"}, out)
}

// writeProfiles reports per-cluster means in original feature units.
func writeProfiles(path string, raw [][]float64, assign []int, k int) error {
	dims := len(raw[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, row := range raw {
		counts[assign[i]]++
		for j, v := range row {
			sums[assign[i]][j] += v
		}
	}
	header := append([]string{"cluster", "stations"}, featureNames...)
	out := make([][]string, 0, k)
	for c := 0; c < k; c++ {
		rec := []string{strconv.Itoa(c), strconv.Itoa(counts[c])}
		for j := 0; j < dims; j++ {
			mean := 0.0
			if counts[c] > 0 {
				mean = sums[c][j] / float64(counts[c])
			}
			rec = append(rec, fmtFloat(mean))
		}
		out = append(out, rec)
	}
	return csvio.WriteFile(path, header, out)
}

// ReadAssignments loads the cluster assignment table back: station ids and
// labels in file order.
func ReadAssignments(path string) ([]string, []int, error) {
	type assignmentRow struct {
		StationID string `csv:"station_id"`
		Cluster   string `csv:"cluster"`
	}
	rows, err := csvio.ReadFile[assignmentRow](path)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]string, len(rows))
	assign := make([]int, len(rows))
	for i, row := range rows {
		c, err := strconv.Atoi(row.Cluster)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: row %d: cluster: %w", path, i+1, err)
		}
		ids[i] = row.StationID
		assign[i] = c
	}
	return ids, assign, nil
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
