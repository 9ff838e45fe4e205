package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration. Every stage receives it as an
// immutable value; reruns with different parameters go through a new Config,
// never through mutation of a shared one.
type Config struct {
	LogLevel  string       `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Paths     Paths        `yaml:"paths" validate:"required"`
	Clean     CleanStage   `yaml:"clean"`
	Build     BuildStage   `yaml:"build"`
	Proximity Proximity    `yaml:"proximity"`
	Model     ModelStage   `yaml:"model"`
	Cluster   ClusterStage `yaml:"cluster"`
}

// Paths locates input and output directories for the pipeline stages.
type Paths struct {
	RawDir       string `yaml:"raw" validate:"required"`
	InterimDir   string `yaml:"interim" validate:"required"`
	ProcessedDir string `yaml:"processed" validate:"required"`
	ReportsDir   string `yaml:"reports" validate:"required"`
	CatalogPath  string `yaml:"catalog"` // optional SQLite results catalog
}

// CleanStage configures the raw-to-interim stage.
type CleanStage struct {
	WeatherFile    string `yaml:"weather_file" validate:"required"`
	MobilityFile   string `yaml:"mobility_file" validate:"required"`
	StationsFile   string `yaml:"stations_file" validate:"required"`
	GTFSDir        string `yaml:"gtfs_dir" validate:"required"`
	BoundariesFile string `yaml:"boundaries_file"`
	PopulationFile string `yaml:"population_file"`

	// Mobility report rows are filtered to this sub-region.
	SubRegion1 string `yaml:"sub_region_1"`
	SubRegion2 string `yaml:"sub_region_2"`

	// UTM zone of the station WKT coordinates (Trento exports use 32N).
	StationUTMZone int `yaml:"station_utm_zone" validate:"gte=1,lte=60"`
}

// BuildStage configures the dataset builder.
type BuildStage struct {
	// Year selects the weather slice joined with the mobility report.
	Year int `yaml:"year" validate:"gte=2000"`

	// Urban centroid: distance-to-center reference, constant across runs.
	CenterLat float64 `yaml:"center_lat" validate:"gte=-90,lte=90"`
	CenterLon float64 `yaml:"center_lon" validate:"gte=-180,lte=180"`

	// Buffer radii (meters) precomputed into the spatial table.
	BufferRadii []float64 `yaml:"buffer_radii" validate:"min=1,dive,gte=0"`
}

// Proximity configures buffer aggregation and the intermodality index.
type Proximity struct {
	// Radius used for the intermodality index and rankings, meters.
	IndexRadius float64 `yaml:"index_radius" validate:"gt=0"`
	// Radius used for household coverage of administrative units, meters.
	CoverageRadius float64 `yaml:"coverage_radius" validate:"gt=0"`
	// Top/bottom ranking size.
	RankN int `yaml:"rank_n" validate:"gt=0"`
}

// ModelStage configures the temporal modeler.
type ModelStage struct {
	// Mobility columns regressed on weather and calendar covariates.
	Targets []string `yaml:"targets" validate:"min=1"`
	// Degrees of freedom per smooth term.
	SplineDF int `yaml:"spline_df" validate:"gte=4,lte=20"`
	// Candidate smoothing parameters searched by GCV.
	LambdaGrid []float64 `yaml:"lambda_grid" validate:"min=1,dive,gt=0"`
	// Points in each partial-effect evaluation grid.
	GridPoints int `yaml:"grid_points" validate:"gte=10"`
}

// ClusterStage configures station clustering.
type ClusterStage struct {
	KMin         int     `yaml:"k_min" validate:"gte=2"`
	KMax         int     `yaml:"k_max" validate:"gtefield=KMin"`
	Seed         int64   `yaml:"seed"`
	BufferRadius float64 `yaml:"buffer_radius" validate:"gt=0"` // route-count feature radius
	MaxIter      int     `yaml:"max_iter" validate:"gt=0"`
}

// Default returns the configuration used when no config file is given.
// Values mirror the Trento coursework setup.
func Default() *Config {
	return &Config{
		LogLevel: envStr("MOBILITY_LOG_LEVEL", "info"),
		Paths: Paths{
			RawDir:       envStr("MOBILITY_RAW_DIR", "data/raw"),
			InterimDir:   envStr("MOBILITY_INTERIM_DIR", "data/interim"),
			ProcessedDir: envStr("MOBILITY_PROCESSED_DIR", "data/processed"),
			ReportsDir:   envStr("MOBILITY_REPORTS_DIR", "reports"),
			CatalogPath:  envStr("MOBILITY_CATALOG", ""),
		},
		Clean: CleanStage{
			WeatherFile:    "trento_era5_daily_2020_2022.json",
			MobilityFile:   "2022_IT_Region_Mobility_Report.csv",
			StationsFile:   "stazioni_trento.csv",
			GTFSDir:        "gtfs",
			BoundariesFile: "circoscrizioni.geojson",
			PopulationFile: "famiglie_circoscrizioni_2024.csv",
			SubRegion1:     "Trentino-South Tyrol",
			SubRegion2:     "Autonomous Province of Trento",
			StationUTMZone: 32,
		},
		Build: BuildStage{
			Year:        2022,
			CenterLat:   46.0679,
			CenterLon:   11.1211,
			BufferRadii: []float64{300, 500, 800},
		},
		Proximity: Proximity{
			IndexRadius:    300,
			CoverageRadius: 300,
			RankN:          10,
		},
		Model: ModelStage{
			Targets:    []string{"mob_transit", "mob_work"},
			SplineDF:   8,
			LambdaGrid: []float64{0.01, 0.1, 1, 10, 100, 1000},
			GridPoints: 200,
		},
		Cluster: ClusterStage{
			KMin:         2,
			KMax:         6,
			Seed:         envInt64("MOBILITY_CLUSTER_SEED", 42),
			BufferRadius: 300,
			MaxIter:      100,
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural constraints on the configuration.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
