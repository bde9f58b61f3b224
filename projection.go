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
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
)

// wellKnownProjections maps textual projection tags found in grid file
// metadata to PROJ4 definitions.
var wellKnownProjections = map[string]string{
	"lambert 93": "+proj=lcc +lat_1=49 +lat_2=44 +lat_0=46.5 +lon_0=3 " +
		"+x_0=700000 +y_0=6600000 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs",
	"lambert 2e": "+proj=lcc +lat_1=46.8 +lat_0=46.8 +lon_0=2.337229166666667 " +
		"+k_0=0.99987742 +x_0=600000 +y_0=2200000 +a=6378249.2 +b=6356515 " +
		"+towgs84=-168,-60,320,0,0,0,0 +units=m +no_defs",
}

// Projection maps geodetic coordinates to a planar coordinate system
// and back.
type Projection struct {
	name    string
	forward proj.Transformer // lon/lat degrees -> x/y
	inverse proj.Transformer // x/y -> lon/lat degrees
}

// NewProjection creates a projection from a textual tag. Recognized
// forms are "UTM <zone><N|S>" (e.g. "UTM 31N"), the named projections
// "Lambert 93" and "Lambert 2E", and raw PROJ4 strings beginning
// with '+'.
func NewProjection(tag string) (*Projection, error) {
	code, err := projCode(tag)
	if err != nil {
		return nil, report(err)
	}
	sr, err := proj.Parse(code)
	if err != nil {
		return nil, report(fmt.Errorf("in terrain.NewProjection: %w: parsing %q: %v", ErrBadFormat, tag, err))
	}
	longlat, err := proj.Parse("+proj=longlat +ellps=WGS84 +no_defs")
	if err != nil {
		return nil, report(fmt.Errorf("in terrain.NewProjection: %v", err))
	}
	forward, err := longlat.NewTransform(sr)
	if err != nil {
		return nil, report(fmt.Errorf("in terrain.NewProjection: %w: %q: %v", ErrBadFormat, tag, err))
	}
	inverse, err := sr.NewTransform(longlat)
	if err != nil {
		return nil, report(fmt.Errorf("in terrain.NewProjection: %w: %q: %v", ErrBadFormat, tag, err))
	}
	return &Projection{name: tag, forward: forward, inverse: inverse}, nil
}

// projCode translates a textual tag into a PROJ4 definition.
func projCode(tag string) (string, error) {
	t := strings.TrimSpace(tag)
	if strings.HasPrefix(t, "+") {
		return t, nil
	}
	if p, ok := wellKnownProjections[strings.ToLower(t)]; ok {
		return p, nil
	}
	if f := strings.Fields(t); len(f) == 2 && strings.EqualFold(f[0], "utm") {
		zs := f[1]
		south := false
		switch zs[len(zs)-1] {
		case 'N', 'n':
			zs = zs[:len(zs)-1]
		case 'S', 's':
			south = true
			zs = zs[:len(zs)-1]
		}
		zone, err := strconv.Atoi(zs)
		if err == nil && zone >= 1 && zone <= 60 {
			code := fmt.Sprintf("+proj=utm +zone=%d +ellps=WGS84 +units=m +no_defs", zone)
			if south {
				code += " +south"
			}
			return code, nil
		}
	}
	return "", fmt.Errorf("in terrain.projCode: %w: unknown projection tag %q", ErrBadFormat, tag)
}

// Name returns the tag the projection was created from.
func (p *Projection) Name() string { return p.name }

// Project converts geodetic (lat, lon) in degrees to planar (x, y).
func (p *Projection) Project(lat, lon float64) (x, y float64, err error) {
	x, y, err = p.forward(lon, lat)
	if err != nil {
		return 0, 0, report(fmt.Errorf("in terrain.Projection.Project: %w: %v", ErrDomain, err))
	}
	return x, y, nil
}

// Unproject converts planar (x, y) to geodetic (lat, lon) in degrees.
func (p *Projection) Unproject(x, y float64) (lat, lon float64, err error) {
	lon, lat, err = p.inverse(x, y)
	if err != nil {
		return 0, 0, report(fmt.Errorf("in terrain.Projection.Unproject: %w: %v", ErrDomain, err))
	}
	return lat, lon, nil
}
