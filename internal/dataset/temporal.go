package dataset

import (
	"fmt"
	"strconv"
	"time"

	"github.com/camillabonomo02/CSS-project/internal/clean"
	"github.com/camillabonomo02/CSS-project/internal/csvio"
)

// TemporalRow is one day of the joined mobility + weather + calendar table.
// Weather fields are nil when the weather source had no matching date: the
// row is retained and flagged, never silently dropped.
type TemporalRow struct {
	Date time.Time

	Retail      *float64
	Grocery     *float64
	Parks       *float64
	Transit     *float64
	Work        *float64
	Residential *float64

	TempMean *float64
	TempMin  *float64
	TempMax  *float64
	PrecipMM *float64
	WindMax  *float64

	// Derived weather features.
	TempMaxSq  *float64
	RainBinary *float64 // 1 if precip > 0 mm
	RainHeavy  *float64 // 1 if precip >= 10 mm

	DOW        int // 0 = Monday
	IsWeekend  bool
	IsHoliday  bool
	HasWeather bool
}

// Mobility returns the value of a mobility metric column by name.
func (r TemporalRow) Mobility(name string) (*float64, error) {
	switch name {
	case "mob_retail":
		return r.Retail, nil
	case "mob_grocery":
		return r.Grocery, nil
	case "mob_parks":
		return r.Parks, nil
	case "mob_transit":
		return r.Transit, nil
	case "mob_work":
		return r.Work, nil
	case "mob_residential":
		return r.Residential, nil
	default:
		return nil, fmt.Errorf("unknown mobility metric %q", name)
	}
}

const heavyRainMM = 10

// buildTemporal joins the mobility report with the weather slice of the
// configured year on exact date match and attaches calendar flags. Mobility
// rows drive the table: one row per mobility date, in date order.
func buildTemporal(mobility []clean.MobilityDay, weather []clean.WeatherDay, year int) []TemporalRow {
	byDate := make(map[time.Time]clean.WeatherDay, len(weather))
	for _, w := range weather {
		if w.Date.Year() == year {
			byDate[w.Date] = w
		}
	}

	rows := make([]TemporalRow, 0, len(mobility))
	for _, m := range mobility {
		row := TemporalRow{
			Date:        m.Date,
			Retail:      m.Retail,
			Grocery:     m.Grocery,
			Parks:       m.Parks,
			Transit:     m.Transit,
			Work:        m.Work,
			Residential: m.Residential,
			DOW:         (int(m.Date.Weekday()) + 6) % 7,
			IsHoliday:   IsItalianHoliday(m.Date),
		}
		row.IsWeekend = row.DOW >= 5
		if w, ok := byDate[m.Date]; ok {
			row.HasWeather = true
			row.TempMean, row.TempMin, row.TempMax = w.TempMean, w.TempMin, w.TempMax
			row.PrecipMM, row.WindMax = w.PrecipMM, w.WindMax
			if w.TempMax != nil {
				sq := *w.TempMax * *w.TempMax
				row.TempMaxSq = &sq
			}
			if w.PrecipMM != nil {
				rain := boolFloat(*w.PrecipMM > 0)
				heavy := boolFloat(*w.PrecipMM >= heavyRainMM)
				row.RainBinary = &rain
				row.RainHeavy = &heavy
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var temporalHeader = []string{
	"date",
	"mob_retail", "mob_grocery", "mob_parks", "mob_transit", "mob_work", "mob_residential",
	"temp_mean", "temp_min", "temp_max", "precip_mm", "wind_max",
	"temp_max_sq", "rain_binary", "rain_heavy",
	"dow", "is_weekend", "is_holiday", "has_weather",
}

// WriteTemporal writes the processed temporal table.
func WriteTemporal(path string, rows []TemporalRow) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.Date.Format("2006-01-02"),
			fmtOpt(r.Retail), fmtOpt(r.Grocery), fmtOpt(r.Parks),
			fmtOpt(r.Transit), fmtOpt(r.Work), fmtOpt(r.Residential),
			fmtOpt(r.TempMean), fmtOpt(r.TempMin), fmtOpt(r.TempMax),
			fmtOpt(r.PrecipMM), fmtOpt(r.WindMax),
			fmtOpt(r.TempMaxSq), fmtOpt(r.RainBinary), fmtOpt(r.RainHeavy),
			strconv.Itoa(r.DOW), fmtBool(r.IsWeekend), fmtBool(r.IsHoliday), fmtBool(r.HasWeather),
		})
	}
	return csvio.WriteFile(path, temporalHeader, out)
}

type temporalCSVRow struct {
	Date        string `csv:"date"`
	Retail      string `csv:"mob_retail"`
	Grocery     string `csv:"mob_grocery"`
	Parks       string `csv:"mob_parks"`
	Transit     string `csv:"mob_transit"`
	Work        string `csv:"mob_work"`
	Residential string `csv:"mob_residential"`
	TempMean    string `csv:"temp_mean"`
	TempMin     string `csv:"temp_min"`
	TempMax     string `csv:"temp_max"`
	PrecipMM    string `csv:"precip_mm"`
	WindMax     string `csv:"wind_max"`
	TempMaxSq   string `csv:"temp_max_sq"`
	RainBinary  string `csv:"rain_binary"`
	RainHeavy   string `csv:"rain_heavy"`
	DOW         string `csv:"dow"`
	IsWeekend   string `csv:"is_weekend"`
	IsHoliday   string `csv:"is_holiday"`
	HasWeather  string `csv:"has_weather"`
}

// ReadTemporal loads the processed temporal table.
func ReadTemporal(path string) ([]TemporalRow, error) {
	raw, err := csvio.ReadFile[temporalCSVRow](path)
	if err != nil {
		return nil, err
	}
	rows := make([]TemporalRow, 0, len(raw))
	for _, r := range raw {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", path, r.Date, err)
		}
		dow, err := strconv.Atoi(r.DOW)
		if err != nil {
			return nil, fmt.Errorf("%s: bad dow %q: %w", path, r.DOW, err)
		}
		rows = append(rows, TemporalRow{
			Date:        date.UTC(),
			Retail:      parseOpt(r.Retail),
			Grocery:     parseOpt(r.Grocery),
			Parks:       parseOpt(r.Parks),
			Transit:     parseOpt(r.Transit),
			Work:        parseOpt(r.Work),
			Residential: parseOpt(r.Residential),
			TempMean:    parseOpt(r.TempMean),
			TempMin:     parseOpt(r.TempMin),
			TempMax:     parseOpt(r.TempMax),
			PrecipMM:    parseOpt(r.PrecipMM),
			WindMax:     parseOpt(r.WindMax),
			TempMaxSq:   parseOpt(r.TempMaxSq),
			RainBinary:  parseOpt(r.RainBinary),
			RainHeavy:   parseOpt(r.RainHeavy),
			DOW:         dow,
			IsWeekend:   r.IsWeekend == "true",
			IsHoliday:   r.IsHoliday == "true",
			HasWeather:  r.HasWeather == "true",
		})
	}
	return rows, nil
}

func fmtBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func fmtOpt(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func parseOpt(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
