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

	"github.com/ctessum/geom"
)

// Tile is one loaded elevation map: a grid, an optional projection
// tagging the grid's planar coordinate system (nil means the grid is
// geographic, x=longitude and y=latitude in degrees), and a pin count.
// A tile with a nonzero pin count is never evicted from its Stack.
type Tile struct {
	grid *Grid
	proj *Projection
	path string // source file; empty for tiles built in memory

	// clients counts active pins. It is protected by the owning
	// Stack's lock; standalone tiles are never pinned.
	clients int
}

// NewTile creates a standalone tile from a grid and an optional
// projection.
func NewTile(g *Grid, p *Projection) (*Tile, error) {
	if g == nil {
		return nil, report(fmt.Errorf("in terrain.NewTile: %w: nil grid", ErrBadAddress))
	}
	return &Tile{grid: g, proj: p}, nil
}

// Grid returns the tile's sample grid.
func (t *Tile) Grid() *Grid { return t.grid }

// Projection returns the tile's projection, or nil for geographic
// tiles.
func (t *Tile) Projection() *Projection { return t.proj }

// Path returns the file the tile was loaded from, if any.
func (t *Tile) Path() string { return t.path }

// Pinned reports whether any client currently holds the tile.
func (t *Tile) Pinned() bool { return t.clients > 0 }

// Bounds returns the extent of the tile's samples in grid coordinates.
func (t *Tile) Bounds() *geom.Bounds {
	g := t.grid
	b := geom.NewBoundsPoint(geom.Point{X: g.X0, Y: g.Y0})
	b.Extend(geom.NewBoundsPoint(geom.Point{
		X: g.X0 + g.Dx*float64(g.Nx-1),
		Y: g.Y0 + g.Dy*float64(g.Ny-1),
	}))
	return b
}

// planar maps geodetic (lat, lon) into the tile's grid coordinates.
func (t *Tile) planar(lat, lon float64) (x, y float64, err error) {
	if t.proj == nil {
		return lon, lat, nil
	}
	return t.proj.Project(lat, lon)
}

// contains reports whether geodetic (lat, lon) falls within the
// tile's footprint. Projection failures count as outside.
func (t *Tile) contains(lat, lon float64) bool {
	x, y, err := t.planar(lat, lon)
	if err != nil {
		return false
	}
	return t.grid.contains(x, y)
}

// ElevationIn interpolates the elevation at geodetic (lat, lon),
// reporting inside=false without error when the point is outside the
// tile.
func (t *Tile) ElevationIn(lat, lon float64) (z float64, inside bool, err error) {
	x, y, err := t.planar(lat, lon)
	if err != nil {
		return 0, false, err
	}
	z, inside = t.grid.ElevationIn(x, y)
	return z, inside, nil
}

// Elevation is the hard variant of ElevationIn.
func (t *Tile) Elevation(lat, lon float64) (float64, error) {
	z, inside, err := t.ElevationIn(lat, lon)
	if err != nil {
		return 0, err
	}
	if !inside {
		return 0, report(fmt.Errorf("in terrain.Tile.Elevation: %w: (%g, %g)", ErrDomain, lat, lon))
	}
	return z, nil
}

// GradientIn returns the elevation gradient at geodetic (lat, lon) in
// grid coordinate units.
func (t *Tile) GradientIn(lat, lon float64) (gx, gy float64, inside bool, err error) {
	x, y, err := t.planar(lat, lon)
	if err != nil {
		return 0, 0, false, err
	}
	gx, gy, inside = t.grid.GradientIn(x, y)
	return gx, gy, inside, nil
}

// Gradient is the hard variant of GradientIn.
func (t *Tile) Gradient(lat, lon float64) (gx, gy float64, err error) {
	gx, gy, inside, err := t.GradientIn(lat, lon)
	if err != nil {
		return 0, 0, err
	}
	if !inside {
		return 0, 0, report(fmt.Errorf("in terrain.Tile.Gradient: %w: (%g, %g)", ErrDomain, lat, lon))
	}
	return gx, gy, nil
}
