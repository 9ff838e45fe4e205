package gtfs

// Feed holds the parsed GTFS static tables. Fields are raw strings; numeric
// conversion happens during cleaning so that a single bad row can be dropped
// with a reason instead of failing the feed.
type Feed struct {
	Routes    []Route
	Stops     []Stop
	Trips     []Trip
	StopTimes []StopTime
	Calendar  []CalendarEntry
	Shapes    []ShapePoint
}

type Route struct {
	RouteID        string `csv:"route_id"`
	AgencyID       string `csv:"agency_id"`
	RouteShortName string `csv:"route_short_name"`
	RouteLongName  string `csv:"route_long_name"`
	RouteType      string `csv:"route_type"`
}

type Stop struct {
	StopID       string `csv:"stop_id"`
	StopCode     string `csv:"stop_code"`
	StopName     string `csv:"stop_name"`
	StopDesc     string `csv:"stop_desc"`
	StopLat      string `csv:"stop_lat"`
	StopLon      string `csv:"stop_lon"`
	ZoneID       string `csv:"zone_id"`
	LocationType string `csv:"location_type"`
}

type Trip struct {
	TripID       string `csv:"trip_id"`
	RouteID      string `csv:"route_id"`
	ServiceID    string `csv:"service_id"`
	TripHeadsign string `csv:"trip_headsign"`
	DirectionID  string `csv:"direction_id"`
	ShapeID      string `csv:"shape_id"`
}

type StopTime struct {
	TripID        string `csv:"trip_id"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
	StopID        string `csv:"stop_id"`
	StopSequence  string `csv:"stop_sequence"`
}

type CalendarEntry struct {
	ServiceID string `csv:"service_id"`
	Monday    string `csv:"monday"`
	Tuesday   string `csv:"tuesday"`
	Wednesday string `csv:"wednesday"`
	Thursday  string `csv:"thursday"`
	Friday    string `csv:"friday"`
	Saturday  string `csv:"saturday"`
	Sunday    string `csv:"sunday"`
	StartDate string `csv:"start_date"`
	EndDate   string `csv:"end_date"`
}

type ShapePoint struct {
	ShapeID         string `csv:"shape_id"`
	ShapePtLat      string `csv:"shape_pt_lat"`
	ShapePtLon      string `csv:"shape_pt_lon"`
	ShapePtSequence string `csv:"shape_pt_sequence"`
}
