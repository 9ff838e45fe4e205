package clean

import "strconv"

// fmtOpt formats an optional float for CSV output; nil becomes the empty
// string, the explicit missing marker.
func fmtOpt(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// parseOpt parses an optional CSV cell; empty means absent.
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

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
