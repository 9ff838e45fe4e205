package clean

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/camillabonomo02/CSS-project/internal/csvio"
)

// WeatherDay is one canonical daily weather observation. Nil fields mean the
// source reported no value for that variable.
type WeatherDay struct {
	Date     time.Time
	TempMean *float64
	TempMin  *float64
	TempMax  *float64
	PrecipMM *float64
	WindMax  *float64
}

// openMeteoDaily mirrors the `daily` block of an open-meteo / ERA5 archive
// export: parallel arrays keyed by date.
type openMeteoDaily struct {
	Daily struct {
		Time     []string   `json:"time"`
		TempMean []*float64 `json:"temperature_2m_mean"`
		TempMin  []*float64 `json:"temperature_2m_min"`
		TempMax  []*float64 `json:"temperature_2m_max"`
		Precip   []*float64 `json:"precipitation_sum"`
		WindMax  []*float64 `json:"windspeed_10m_max"`
	} `json:"daily"`
}

func (c *Cleaner) cleanWeather(path string) ([]WeatherDay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw openMeteoDaily
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(raw.Daily.Time) == 0 {
		return nil, fmt.Errorf("%s: daily block is empty", path)
	}

	days := make([]WeatherDay, 0, len(raw.Daily.Time))
	for i, ds := range raw.Daily.Time {
		date, err := time.Parse("2006-01-02", ds)
		if err != nil {
			c.drop("weather", ds, "unparsable date")
			continue
		}
		days = append(days, WeatherDay{
			Date:     date.UTC(),
			TempMean: at(raw.Daily.TempMean, i),
			TempMin:  at(raw.Daily.TempMin, i),
			TempMax:  at(raw.Daily.TempMax, i),
			PrecipMM: at(raw.Daily.Precip, i),
			WindMax:  at(raw.Daily.WindMax, i),
		})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

var weatherHeader = []string{"date", "temp_mean", "temp_min", "temp_max", "precip_mm", "wind_max"}

// WriteWeather writes the canonical daily weather table.
func WriteWeather(path string, days []WeatherDay) error {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			fmtOpt(d.TempMean), fmtOpt(d.TempMin), fmtOpt(d.TempMax),
			fmtOpt(d.PrecipMM), fmtOpt(d.WindMax),
		})
	}
	return csvio.WriteFile(path, weatherHeader, rows)
}

type weatherRow struct {
	Date     string `csv:"date"`
	TempMean string `csv:"temp_mean"`
	TempMin  string `csv:"temp_min"`
	TempMax  string `csv:"temp_max"`
	PrecipMM string `csv:"precip_mm"`
	WindMax  string `csv:"wind_max"`
}

// ReadWeather loads the interim weather table.
func ReadWeather(path string) ([]WeatherDay, error) {
	raw, err := csvio.ReadFile[weatherRow](path)
	if err != nil {
		return nil, err
	}
	days := make([]WeatherDay, 0, len(raw))
	for _, r := range raw {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", path, r.Date, err)
		}
		days = append(days, WeatherDay{
			Date:     date.UTC(),
			TempMean: parseOpt(r.TempMean),
			TempMin:  parseOpt(r.TempMin),
			TempMax:  parseOpt(r.TempMax),
			PrecipMM: parseOpt(r.PrecipMM),
			WindMax:  parseOpt(r.WindMax),
		})
	}
	return days, nil
}
