package dataset

import "time"

// easterSunday computes western Easter for a year (anonymous Gregorian
// computus).
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// IsItalianHoliday reports whether the date is an Italian public holiday.
// Fixed-date holidays plus Easter Monday.
func IsItalianHoliday(date time.Time) bool {
	d := date.UTC()
	switch [2]int{int(d.Month()), d.Day()} {
	case [2]int{1, 1}, // Capodanno
		[2]int{1, 6},   // Epifania
		[2]int{4, 25},  // Liberazione
		[2]int{5, 1},   // Festa del Lavoro
		[2]int{6, 2},   // Festa della Repubblica
		[2]int{8, 15},  // Ferragosto
		[2]int{11, 1},  // Ognissanti
		[2]int{12, 8},  // Immacolata
		[2]int{12, 25}, // Natale
		[2]int{12, 26}: // Santo Stefano
		return true
	}
	easter := easterSunday(d.Year())
	monday := easter.AddDate(0, 0, 1)
	return d.Month() == monday.Month() && d.Day() == monday.Day()
}
