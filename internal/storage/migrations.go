package storage

import "fmt"

// migrate creates the catalog schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Info("catalog migrations applied")
	return nil
}

var migrations = []string{
	// Run manifest
	`CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		stage       TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		finished_at TEXT,
		parameters  TEXT NOT NULL DEFAULT '{}'
	)`,

	// Daily mobility + weather rows as built by the build stage
	`CREATE TABLE IF NOT EXISTS temporal_days (
		run_id      TEXT NOT NULL REFERENCES runs(run_id),
		date        TEXT NOT NULL,
		mob_retail      REAL,
		mob_grocery     REAL,
		mob_parks       REAL,
		mob_transit     REAL,
		mob_work        REAL,
		mob_residential REAL,
		temp_mean   REAL,
		temp_min    REAL,
		temp_max    REAL,
		precip_mm   REAL,
		wind_max    REAL,
		dow         INTEGER NOT NULL,
		is_weekend  INTEGER NOT NULL DEFAULT 0,
		is_holiday  INTEGER NOT NULL DEFAULT 0,
		has_weather INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, date)
	)`,

	// Station accessibility, one row per station and buffer radius
	`CREATE TABLE IF NOT EXISTS station_accessibility (
		run_id             TEXT NOT NULL REFERENCES runs(run_id),
		station_id         TEXT NOT NULL,
		name               TEXT NOT NULL DEFAULT '',
		lat                REAL NOT NULL,
		lon                REAL NOT NULL,
		nearest_stop_id    TEXT,
		nearest_distance_m REAL,
		dist_to_center_m   REAL NOT NULL,
		radius_m           REAL NOT NULL,
		stop_count         INTEGER NOT NULL DEFAULT 0,
		route_count        INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (run_id, station_id, radius_m)
	)`,

	// Cluster assignments
	`CREATE TABLE IF NOT EXISTS station_clusters (
		run_id     TEXT NOT NULL REFERENCES runs(run_id),
		station_id TEXT NOT NULL,
		cluster    INTEGER NOT NULL,
		PRIMARY KEY (run_id, station_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_runs_stage ON runs(stage, started_at)`,
}
