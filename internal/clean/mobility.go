package clean

import (
	"fmt"
	"sort"
	"time"

	"github.com/camillabonomo02/CSS-project/internal/csvio"
)

// MobilityDay is one day of the community mobility report for the configured
// sub-region: percent change from baseline per place category. Nil means the
// source left the cell empty.
type MobilityDay struct {
	Date        time.Time
	Retail      *float64
	Grocery     *float64
	Parks       *float64
	Transit     *float64
	Work        *float64
	Residential *float64
}

// gmrRow mirrors the relevant columns of the Google community mobility
// report. Unexpected columns are ignored by the decoder.
type gmrRow struct {
	SubRegion1  string `csv:"sub_region_1"`
	SubRegion2  string `csv:"sub_region_2"`
	Date        string `csv:"date"`
	Retail      string `csv:"retail_and_recreation_percent_change_from_baseline"`
	Grocery     string `csv:"grocery_and_pharmacy_percent_change_from_baseline"`
	Parks       string `csv:"parks_percent_change_from_baseline"`
	Transit     string `csv:"transit_stations_percent_change_from_baseline"`
	Work        string `csv:"workplaces_percent_change_from_baseline"`
	Residential string `csv:"residential_percent_change_from_baseline"`
}

func (c *Cleaner) cleanMobility(path string) ([]MobilityDay, error) {
	raw, err := csvio.ReadFile[gmrRow](path)
	if err != nil {
		return nil, err
	}

	var days []MobilityDay
	for _, r := range raw {
		if r.SubRegion1 != c.cfg.Clean.SubRegion1 || r.SubRegion2 != c.cfg.Clean.SubRegion2 {
			continue
		}
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			c.drop("mobility", r.Date, "unparsable date")
			continue
		}
		days = append(days, MobilityDay{
			Date:        date.UTC(),
			Retail:      parseOpt(r.Retail),
			Grocery:     parseOpt(r.Grocery),
			Parks:       parseOpt(r.Parks),
			Transit:     parseOpt(r.Transit),
			Work:        parseOpt(r.Work),
			Residential: parseOpt(r.Residential),
		})
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("%s: no rows match sub-region %q / %q",
			path, c.cfg.Clean.SubRegion1, c.cfg.Clean.SubRegion2)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

var mobilityHeader = []string{
	"date", "mob_retail", "mob_grocery", "mob_parks", "mob_transit", "mob_work", "mob_residential",
}

// WriteMobility writes the canonical mobility table.
func WriteMobility(path string, days []MobilityDay) error {
	rows := make([][]string, 0, len(days))
	for _, d := range days {
		rows = append(rows, []string{
			d.Date.Format("2006-01-02"),
			fmtOpt(d.Retail), fmtOpt(d.Grocery), fmtOpt(d.Parks),
			fmtOpt(d.Transit), fmtOpt(d.Work), fmtOpt(d.Residential),
		})
	}
	return csvio.WriteFile(path, mobilityHeader, rows)
}

type mobilityRow struct {
	Date        string `csv:"date"`
	Retail      string `csv:"mob_retail"`
	Grocery     string `csv:"mob_grocery"`
	Parks       string `csv:"mob_parks"`
	Transit     string `csv:"mob_transit"`
	Work        string `csv:"mob_work"`
	Residential string `csv:"mob_residential"`
}

// ReadMobility loads the interim mobility table.
func ReadMobility(path string) ([]MobilityDay, error) {
	raw, err := csvio.ReadFile[mobilityRow](path)
	if err != nil {
		return nil, err
	}
	days := make([]MobilityDay, 0, len(raw))
	for _, r := range raw {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", path, r.Date, err)
		}
		days = append(days, MobilityDay{
			Date:        date.UTC(),
			Retail:      parseOpt(r.Retail),
			Grocery:     parseOpt(r.Grocery),
			Parks:       parseOpt(r.Parks),
			Transit:     parseOpt(r.Transit),
			Work:        parseOpt(r.Work),
			Residential: parseOpt(r.Residential),
		})
	}
	return days, nil
}
