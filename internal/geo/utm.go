package geo

import (
	"fmt"
	"math"
)

// WGS84 ellipsoid.
const (
	wgs84A          = 6378137.0
	wgs84F          = 1 / 298.257223563
	utmK0           = 0.9996
	utmFalseEasting = 500000.0
)

// UTMToWGS84 converts UTM northern-hemisphere easting/northing in the given
// zone to latitude/longitude degrees. Station exports for Trento carry WKT
// points in EPSG:32632 (UTM 32N); all spatial comparison happens in WGS84, so
// coordinates are reprojected once at the load boundary.
func UTMToWGS84(easting, northing float64, zone int) (lat, lon float64, err error) {
	if zone < 1 || zone > 60 {
		return 0, 0, fmt.Errorf("utm zone %d out of range 1..60", zone)
	}

	e2 := wgs84F * (2 - wgs84F)
	ep2 := e2 / (1 - e2)
	x := easting - utmFalseEasting
	y := northing

	// Footpoint latitude.
	m := y / utmK0
	mu := m / (wgs84A * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := wgs84A / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := wgs84A * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * utmK0)

	latRad := phi1 - (n1*tanPhi1/r1)*
		(d*d/2-
			(5+3*t1+10*c1-4*c1*c1-9*ep2)*d*d*d*d/24+
			(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d*d*d*d*d*d/720)
	lonRad := (d -
		(1+2*t1+c1)*d*d*d/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d*d*d*d*d/120) / cosPhi1

	lon0 := float64(zone*6 - 183)
	return toDeg(latRad), lon0 + toDeg(lonRad), nil
}
