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

import (
	"math"
	"testing"
)

func TestECEFRoundTrip(t *testing.T) {
	cases := []struct {
		lat, lon, alt float64
	}{
		{0, 0, 0},
		{45, 3, 1000},
		{-33.5, 151.2, 50},
		{71, -156.8, -20},
		{89.9, 10, 3000},
		{-89.9, -170, 0},
		{0, 179.999, 8848},
	}
	for _, c := range cases {
		p := ECEFFromGeodetic(c.lat, c.lon, c.alt)
		lat, lon, alt := ECEFToGeodetic(p)
		if math.Abs(lat-c.lat) > 1e-9 || math.Abs(lon-c.lon) > 1e-9 {
			t.Errorf("round trip of (%g, %g, %g): got (%g, %g)", c.lat, c.lon, c.alt, lat, lon)
		}
		if math.Abs(alt-c.alt) > 1e-6 {
			t.Errorf("round trip of (%g, %g, %g): alt = %g", c.lat, c.lon, c.alt, alt)
		}
	}
}

func TestECEFFromGeodeticKnown(t *testing.T) {
	// On the equator at the prime meridian the ECEF x axis pierces the
	// ellipsoid at the semi-major axis.
	p := ECEFFromGeodetic(0, 0, 0)
	if math.Abs(p[0]-wgs84a) > 1e-6 || math.Abs(p[1]) > 1e-6 || math.Abs(p[2]) > 1e-6 {
		t.Errorf("ECEFFromGeodetic(0, 0, 0) = %v", p)
	}
	// At the pole, z is the semi-minor axis.
	b := wgs84a * (1 - wgs84f)
	p = ECEFFromGeodetic(90, 0, 0)
	if math.Abs(p[2]-b) > 1e-6 || math.Hypot(p[0], p[1]) > 1e-6 {
		t.Errorf("ECEFFromGeodetic(90, 0, 0) = %v", p)
	}
}

func TestECEFToGeodeticPolarAxis(t *testing.T) {
	b := wgs84a * (1 - wgs84f)
	lat, _, alt := ECEFToGeodetic([3]float64{0, 0, b + 100})
	if lat != 90 || math.Abs(alt-100) > 1e-6 {
		t.Errorf("north polar axis: lat = %g, alt = %g", lat, alt)
	}
	lat, _, alt = ECEFToGeodetic([3]float64{0, 0, -(b + 100)})
	if lat != -90 || math.Abs(alt-100) > 1e-6 {
		t.Errorf("south polar axis: lat = %g, alt = %g", lat, alt)
	}
}

func TestHorizontalDirections(t *testing.T) {
	// Straight up along the ellipsoid normal increases altitude by the
	// traveled distance.
	up := ECEFFromHorizontal(45, 3, 0, 90)
	p := ECEFFromGeodetic(45, 3, 0)
	q := [3]float64{p[0] + 100*up[0], p[1] + 100*up[1], p[2] + 100*up[2]}
	_, _, alt := ECEFToGeodetic(q)
	if math.Abs(alt-100) > 1e-6 {
		t.Errorf("100 m along the up direction gives alt = %g", alt)
	}

	// North at the equator is the ECEF z axis.
	n := ECEFFromHorizontal(0, 0, 0, 0)
	if math.Abs(n[2]-1) > 1e-12 || math.Abs(n[0]) > 1e-12 || math.Abs(n[1]) > 1e-12 {
		t.Errorf("north at (0, 0) = %v", n)
	}

	// Azimuth and elevation survive a round trip.
	for _, c := range [][4]float64{
		{45, 3, 30, 10},
		{-20, 100, 250, -5},
		{60, -45, 359, 45},
		{0, 0, 0, -89},
	} {
		dir := ECEFFromHorizontal(c[0], c[1], c[2], c[3])
		az, el := ECEFToHorizontal(c[0], c[1], dir)
		if math.Abs(az-c[2]) > 1e-9 || math.Abs(el-c[3]) > 1e-9 {
			t.Errorf("round trip of az %g el %g at (%g, %g): got az %g el %g",
				c[2], c[3], c[0], c[1], az, el)
		}
	}

	// The result is a unit vector.
	dir := ECEFFromHorizontal(12, 34, 56, 78)
	if math.Abs(norm3(dir)-1) > 1e-12 {
		t.Errorf("|direction| = %g, want 1", norm3(dir))
	}
}
