/*
Copyright © 2026 the terrain authors.
This file is part of terrain.

terrain is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

terrain is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with terrain.  If not, see <http://www.gnu.org/licenses/>.
*/

package terrain

import "math"

// WGS84 ellipsoid constants.
const (
	wgs84a  = 6378137.0             // semi-major axis [m]
	wgs84f  = 1 / 298.257223563     // flattening
	wgs84e2 = wgs84f * (2 - wgs84f) // first eccentricity squared
)

const degToRad = math.Pi / 180

// ECEFFromGeodetic converts geodetic coordinates (degrees, meters
// above the WGS84 ellipsoid) to Earth-centered, Earth-fixed Cartesian
// coordinates in meters.
func ECEFFromGeodetic(lat, lon, alt float64) [3]float64 {
	sinLat, cosLat := math.Sincos(lat * degToRad)
	sinLon, cosLon := math.Sincos(lon * degToRad)
	n := wgs84a / math.Sqrt(1-wgs84e2*sinLat*sinLat)
	return [3]float64{
		(n + alt) * cosLat * cosLon,
		(n + alt) * cosLat * sinLon,
		(n*(1-wgs84e2) + alt) * sinLat,
	}
}

// ECEFToGeodetic converts ECEF coordinates in meters to geodetic
// latitude, longitude (degrees) and altitude above the WGS84
// ellipsoid (meters). The latitude is found iteratively; convergence
// is well below a nanometer everywhere off the exact polar axis.
func ECEFToGeodetic(p [3]float64) (lat, lon, alt float64) {
	x, y, z := p[0], p[1], p[2]
	lon = math.Atan2(y, x) / degToRad
	r := math.Hypot(x, y)
	if r == 0 {
		// Exactly on the polar axis.
		b := wgs84a * (1 - wgs84f)
		lat = math.Copysign(90, z)
		alt = math.Abs(z) - b
		return lat, lon, alt
	}
	latr := math.Atan2(z, r*(1-wgs84e2))
	for i := 0; i < 10; i++ {
		sinLat := math.Sin(latr)
		n := wgs84a / math.Sqrt(1-wgs84e2*sinLat*sinLat)
		alt = r/math.Cos(latr) - n
		next := math.Atan2(z, r*(1-wgs84e2*n/(n+alt)))
		if math.Abs(next-latr) < 1e-14 {
			latr = next
			break
		}
		latr = next
	}
	sinLat := math.Sin(latr)
	n := wgs84a / math.Sqrt(1-wgs84e2*sinLat*sinLat)
	alt = r/math.Cos(latr) - n
	return latr / degToRad, lon, alt
}

// ECEFFromHorizontal converts a horizontal direction (azimuth
// clockwise from north, elevation above the horizon, both degrees) at
// geodetic location (lat, lon) into an ECEF unit direction vector.
func ECEFFromHorizontal(lat, lon, az, el float64) [3]float64 {
	sinLat, cosLat := math.Sincos(lat * degToRad)
	sinLon, cosLon := math.Sincos(lon * degToRad)
	sinAz, cosAz := math.Sincos(az * degToRad)
	sinEl, cosEl := math.Sincos(el * degToRad)
	e := cosEl * sinAz
	n := cosEl * cosAz
	u := sinEl
	return [3]float64{
		-sinLon*e - sinLat*cosLon*n + cosLat*cosLon*u,
		cosLon*e - sinLat*sinLon*n + cosLat*sinLon*u,
		cosLat*n + sinLat*u,
	}
}

// ECEFToHorizontal converts an ECEF direction vector at geodetic
// location (lat, lon) into azimuth in [0, 360) and elevation, both in
// degrees. The direction need not be normalized.
func ECEFToHorizontal(lat, lon float64, dir [3]float64) (az, el float64) {
	sinLat, cosLat := math.Sincos(lat * degToRad)
	sinLon, cosLon := math.Sincos(lon * degToRad)
	e := -sinLon*dir[0] + cosLon*dir[1]
	n := -sinLat*cosLon*dir[0] - sinLat*sinLon*dir[1] + cosLat*dir[2]
	u := cosLat*cosLon*dir[0] + cosLat*sinLon*dir[1] + sinLat*dir[2]
	az = math.Atan2(e, n) / degToRad
	if az < 0 {
		az += 360
	}
	el = math.Atan2(u, math.Hypot(e, n)) / degToRad
	return az, el
}
