package gtfs

import "sort"

// RoutesPerStop returns, for each stop id, the sorted set of distinct route
// ids serving it, derived from stop_times → trips → routes. A stop served by
// the same route on many trips contributes that route once.
func (f *Feed) RoutesPerStop() map[string][]string {
	tripRoute := make(map[string]string, len(f.Trips))
	for _, t := range f.Trips {
		tripRoute[t.TripID] = t.RouteID
	}

	seen := make(map[string]map[string]struct{})
	for _, st := range f.StopTimes {
		routeID, ok := tripRoute[st.TripID]
		if !ok || routeID == "" {
			continue
		}
		set, ok := seen[st.StopID]
		if !ok {
			set = make(map[string]struct{})
			seen[st.StopID] = set
		}
		set[routeID] = struct{}{}
	}

	out := make(map[string][]string, len(seen))
	for stopID, set := range seen {
		routes := make([]string, 0, len(set))
		for r := range set {
			routes = append(routes, r)
		}
		sort.Strings(routes)
		out[stopID] = routes
	}
	return out
}

// TripsPerRoute returns, for each route id, the sorted list of trip ids.
func (f *Feed) TripsPerRoute() map[string][]string {
	out := make(map[string][]string)
	for _, t := range f.Trips {
		if t.RouteID == "" {
			continue
		}
		out[t.RouteID] = append(out[t.RouteID], t.TripID)
	}
	for _, trips := range out {
		sort.Strings(trips)
	}
	return out
}
