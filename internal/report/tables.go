package report

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/camillabonomo02/CSS-project/internal/csvio"
	"github.com/camillabonomo02/CSS-project/internal/dataset"
	"gonum.org/v1/gonum/stat"
)

// StationIndex is one station's intermodality record as written by the
// proximity stage.
type StationIndex struct {
	StationID  string
	Name       string
	StopCount  int
	RouteCount int
	Index      float64
}

type stationIndexRow struct {
	StationID  string `csv:"station_id"`
	Name       string `csv:"name"`
	StopCount  string `csv:"stop_count"`
	RouteCount string `csv:"route_count"`
	Index      string `csv:"intermodality_index"`
}

// ReadStationIndex loads the proximity stage's station index table.
func ReadStationIndex(path string) ([]StationIndex, error) {
	rows, err := csvio.ReadFile[stationIndexRow](path)
	if err != nil {
		return nil, err
	}
	out := make([]StationIndex, 0, len(rows))
	for i, row := range rows {
		stops, err := strconv.Atoi(row.StopCount)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: stop_count: %w", path, i+1, err)
		}
		routes, err := strconv.Atoi(row.RouteCount)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: route_count: %w", path, i+1, err)
		}
		idx, err := strconv.ParseFloat(row.Index, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: row %d: intermodality_index: %w", path, i+1, err)
		}
		out = append(out, StationIndex{
			StationID:  row.StationID,
			Name:       row.Name,
			StopCount:  stops,
			RouteCount: routes,
			Index:      idx,
		})
	}
	return out, nil
}

// RankStations returns the top-n and bottom-n stations by index. Ties break
// on station id so the ranking is stable across runs.
func RankStations(stations []StationIndex, n int) (top, bottom []StationIndex) {
	sorted := append([]StationIndex(nil), stations...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Index != sorted[j].Index {
			return sorted[i].Index > sorted[j].Index
		}
		return sorted[i].StationID < sorted[j].StationID
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	top = sorted[:n]
	bottom = make([]StationIndex, n)
	for i := 0; i < n; i++ {
		bottom[i] = sorted[len(sorted)-1-i]
	}
	return top, bottom
}

func writeRanking(path string, stations []StationIndex) error {
	header := []string{"rank", "station_id", "name", "stop_count", "route_count", "intermodality_index"}
	out := make([][]string, len(stations))
	for i, s := range stations {
		out[i] = []string{
			strconv.Itoa(i + 1), s.StationID, s.Name,
			strconv.Itoa(s.StopCount), strconv.Itoa(s.RouteCount),
			fmtFloat(s.Index),
		}
	}
	return csvio.WriteFile(path, header, out)
}

// summaryStats writes count/mean/std/min/max per temporal column with data.
func summaryStats(path string, rows []dataset.TemporalRow, targets []string) error {
	cols := map[string]func(dataset.TemporalRow) *float64{
		"temp_mean": func(r dataset.TemporalRow) *float64 { return r.TempMean },
		"temp_max":  func(r dataset.TemporalRow) *float64 { return r.TempMax },
		"precip_mm": func(r dataset.TemporalRow) *float64 { return r.PrecipMM },
		"wind_max":  func(r dataset.TemporalRow) *float64 { return r.WindMax },
	}
	names := append([]string(nil), targets...)
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([][]string, 0, len(names))
	for _, name := range names {
		var vals []float64
		for _, row := range rows {
			var v *float64
			if get, ok := cols[name]; ok {
				v = get(row)
			} else {
				m, err := row.Mobility(name)
				if err != nil {
					return err
				}
				v = m
			}
			if v != nil {
				vals = append(vals, *v)
			}
		}
		if len(vals) == 0 {
			out = append(out, []string{name, "0", "", "", "", ""})
			continue
		}
		mean, std := stat.MeanStdDev(vals, nil)
		if len(vals) == 1 {
			std = 0
		}
		mn, mx := math.Inf(1), math.Inf(-1)
		for _, v := range vals {
			mn = math.Min(mn, v)
			mx = math.Max(mx, v)
		}
		out = append(out, []string{
			name, strconv.Itoa(len(vals)),
			fmtFloat(mean), fmtFloat(std), fmtFloat(mn), fmtFloat(mx),
		})
	}
	return csvio.WriteFile(path, []string{"column", "n", "mean", "std", "min", "max"}, out)
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
