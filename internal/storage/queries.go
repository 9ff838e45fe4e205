package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/camillabonomo02/CSS-project/internal/dataset"
)

// InsertTemporal appends the daily table under a run id.
func (db *DB) InsertTemporal(ctx context.Context, runID string, rows []dataset.TemporalRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin temporal insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO temporal_days (
			run_id, date,
			mob_retail, mob_grocery, mob_parks, mob_transit, mob_work, mob_residential,
			temp_mean, temp_min, temp_max, precip_mm, wind_max,
			dow, is_weekend, is_holiday, has_weather
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare temporal insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			runID, row.Date.Format("2006-01-02"),
			nullable(row.Retail), nullable(row.Grocery), nullable(row.Parks),
			nullable(row.Transit), nullable(row.Work), nullable(row.Residential),
			nullable(row.TempMean), nullable(row.TempMin), nullable(row.TempMax),
			nullable(row.PrecipMM), nullable(row.WindMax),
			row.DOW, row.IsWeekend, row.IsHoliday, row.HasWeather)
		if err != nil {
			return fmt.Errorf("insert temporal day %s: %w", row.Date.Format("2006-01-02"), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit temporal insert: %w", err)
	}
	db.logger.Info("temporal rows cataloged", "run_id", runID, "rows", len(rows))
	return nil
}

// InsertSpatial appends station accessibility rows, one per station and radius.
func (db *DB) InsertSpatial(ctx context.Context, runID string, rows []dataset.SpatialRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin spatial insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO station_accessibility (
			run_id, station_id, name, lat, lon,
			nearest_stop_id, nearest_distance_m, dist_to_center_m,
			radius_m, stop_count, route_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare spatial insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		for _, b := range row.Buffers {
			_, err := stmt.ExecContext(ctx,
				runID, row.StationID, row.Name, row.Lat, row.Lon,
				row.NearestStopID, nullable(row.NearestDistance), row.DistToCenter,
				b.Radius, b.StopCount, b.RouteCount)
			if err != nil {
				return fmt.Errorf("insert accessibility for station %s: %w", row.StationID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit spatial insert: %w", err)
	}
	db.logger.Info("accessibility rows cataloged", "run_id", runID, "stations", len(rows))
	return nil
}

// InsertClusters appends a cluster assignment.
func (db *DB) InsertClusters(ctx context.Context, runID string, stationIDs []string, clusters []int) error {
	if len(stationIDs) != len(clusters) {
		return fmt.Errorf("%d station ids for %d cluster labels", len(stationIDs), len(clusters))
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cluster insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO station_clusters (run_id, station_id, cluster)
		VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cluster insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range stationIDs {
		if _, err := stmt.ExecContext(ctx, runID, id, clusters[i]); err != nil {
			return fmt.Errorf("insert cluster for station %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cluster insert: %w", err)
	}
	db.logger.Info("cluster assignments cataloged", "run_id", runID, "stations", len(stationIDs))
	return nil
}

// Run is one row of the manifest.
type Run struct {
	RunID      string
	Stage      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Parameters string
}

// RunHistory lists the most recent runs, newest first.
func (db *DB) RunHistory(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, stage, started_at, finished_at, parameters
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.RunID, &r.Stage, &started, &finished, &r.Parameters); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse run start time: %w", err)
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339, finished.String)
			if err != nil {
				return nil, fmt.Errorf("parse run finish time: %w", err)
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// nullable maps a nil pointer to SQL NULL.
func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
