package geo

// Ring is a closed sequence of lon/lat vertices. The closing vertex may be
// repeated or omitted; both forms are handled.
type Ring [][2]float64

// Polygon is an outer ring with optional holes.
type Polygon struct {
	Outer Ring
	Holes []Ring
}

// MultiPolygon groups polygons belonging to one administrative unit.
type MultiPolygon []Polygon

// Contains reports whether the lon/lat point lies inside the ring, using
// even-odd ray casting. Points exactly on an edge count as inside, so a
// station sitting on a shared boundary is claimed by whichever unit is tested
// first, so it lands in exactly one unit.
func (r Ring) Contains(lon, lat float64) bool {
	n := len(r)
	if n < 3 {
		return false
	}
	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := r[i][0], r[i][1]
		xj, yj := r[j][0], r[j][1]
		if onSegment(lon, lat, xi, yi, xj, yj) {
			return true
		}
		if (yi > lat) != (yj > lat) {
			xCross := (xj-xi)*(lat-yi)/(yj-yi) + xi
			if lon < xCross {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// Contains reports whether the point is inside the polygon (outer ring minus holes).
func (p Polygon) Contains(lon, lat float64) bool {
	if !p.Outer.Contains(lon, lat) {
		return false
	}
	for _, h := range p.Holes {
		if h.Contains(lon, lat) {
			return false
		}
	}
	return true
}

// Contains reports whether the point is inside any member polygon.
func (mp MultiPolygon) Contains(lon, lat float64) bool {
	for _, p := range mp {
		if p.Contains(lon, lat) {
			return true
		}
	}
	return false
}

// Centroid returns the area-weighted centroid of the outer rings.
// Degenerate rings fall back to the vertex mean.
func (mp MultiPolygon) Centroid() (lon, lat float64) {
	var cx, cy, area float64
	for _, p := range mp {
		px, py, pa := ringCentroid(p.Outer)
		cx += px * pa
		cy += py * pa
		area += pa
	}
	if area == 0 {
		var n int
		for _, p := range mp {
			for _, v := range p.Outer {
				cx += v[0]
				cy += v[1]
				n++
			}
		}
		if n == 0 {
			return 0, 0
		}
		return cx / float64(n), cy / float64(n)
	}
	return cx / area, cy / area
}

// BoundingBox returns (minLon, minLat, maxLon, maxLat) over all outer rings.
func (mp MultiPolygon) BoundingBox() (minLon, minLat, maxLon, maxLat float64) {
	first := true
	for _, p := range mp {
		for _, v := range p.Outer {
			if first {
				minLon, maxLon = v[0], v[0]
				minLat, maxLat = v[1], v[1]
				first = false
				continue
			}
			minLon = min(minLon, v[0])
			maxLon = max(maxLon, v[0])
			minLat = min(minLat, v[1])
			maxLat = max(maxLat, v[1])
		}
	}
	return minLon, minLat, maxLon, maxLat
}

func ringCentroid(r Ring) (cx, cy, area float64) {
	n := len(r)
	if n < 3 {
		return 0, 0, 0
	}
	var a, sx, sy float64
	j := n - 1
	for i := 0; i < n; i++ {
		cross := r[j][0]*r[i][1] - r[i][0]*r[j][1]
		a += cross
		sx += (r[j][0] + r[i][0]) * cross
		sy += (r[j][1] + r[i][1]) * cross
		j = i
	}
	a /= 2
	if a == 0 {
		return 0, 0, 0
	}
	return sx / (6 * a), sy / (6 * a), absf(a)
}

func onSegment(px, py, x1, y1, x2, y2 float64) bool {
	const eps = 1e-12
	sq := (x2-x1)*(x2-x1) + (y2-y1)*(y2-y1)
	if sq <= eps {
		// Zero-length edge, as produced by the repeated closing vertex of a
		// GeoJSON ring: only the vertex itself lies on it.
		return absf(px-x1) <= eps && absf(py-y1) <= eps
	}
	cross := (x2-x1)*(py-y1) - (y2-y1)*(px-x1)
	if absf(cross) > eps {
		return false
	}
	dot := (px-x1)*(x2-x1) + (py-y1)*(y2-y1)
	if dot < -eps {
		return false
	}
	return dot <= sq+eps
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
