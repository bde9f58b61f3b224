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
	"math"

	"github.com/ctessum/sparse"
)

// Grid is a regular two-dimensional array of elevation samples.
// Sample (ix, iy) lies at (X0+Dx*ix, Y0+Dy*iy); for geographic grids
// x is longitude and y is latitude, both in degrees.
type Grid struct {
	// Data holds the samples with shape [Ny, Nx].
	Data *sparse.DenseArray

	Nx, Ny int
	X0, Y0 float64
	Dx, Dy float64
}

// NewGrid creates a zero-filled grid. Spacing may only be zero for a
// dimension with a single sample.
func NewGrid(nx, ny int, x0, y0, dx, dy float64) (*Grid, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("in terrain.NewGrid: %w: need at least one sample per dimension, got %d×%d", ErrBadFormat, nx, ny)
	}
	if dx < 0 || dy < 0 || (dx == 0 && nx > 1) || (dy == 0 && ny > 1) {
		return nil, fmt.Errorf("in terrain.NewGrid: %w: invalid spacing %g×%g", ErrBadFormat, dx, dy)
	}
	return &Grid{
		Data: sparse.ZerosDense(ny, nx),
		Nx:   nx, Ny: ny,
		X0: x0, Y0: y0,
		Dx: dx, Dy: dy,
	}, nil
}

// Get returns the sample at index (ix, iy).
func (g *Grid) Get(ix, iy int) float64 { return g.Data.Get(iy, ix) }

// Set stores z at index (ix, iy).
func (g *Grid) Set(z float64, ix, iy int) { g.Data.Set(z, iy, ix) }

// index returns the fractional grid indices of (x, y). A zero-spacing
// (single sample) dimension maps its origin to index 0 and everything
// else outside the grid.
func (g *Grid) index(x, y float64) (hx, hy float64) {
	if g.Dx == 0 {
		if x == g.X0 {
			hx = 0
		} else {
			hx = -1
		}
	} else {
		hx = (x - g.X0) / g.Dx
	}
	if g.Dy == 0 {
		if y == g.Y0 {
			hy = 0
		} else {
			hy = -1
		}
	} else {
		hy = (y - g.Y0) / g.Dy
	}
	return hx, hy
}

// contains reports whether the fractional indices of (x, y) lie within
// the closed range [0, n-1] in both dimensions.
func (g *Grid) contains(x, y float64) bool {
	hx, hy := g.index(x, y)
	return hx >= 0 && hx <= float64(g.Nx-1) && hy >= 0 && hy <= float64(g.Ny-1)
}

// cellFrac locates fractional index h in a dimension with n samples,
// returning the lower sample index of the surrounding cell and the
// in-cell fraction. The last valid sample index is treated as part of
// the final cell, so h = n-1 yields (n-2, 1).
func cellFrac(h float64, n int) (i int, u float64) {
	if n == 1 {
		return 0, 0
	}
	i = int(math.Floor(h))
	if i > n-2 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return i, h - float64(i)
}

// ElevationIn bilinearly interpolates the elevation at (x, y),
// reporting inside=false without error when the point is outside the
// grid.
func (g *Grid) ElevationIn(x, y float64) (z float64, inside bool) {
	if !g.contains(x, y) {
		return 0, false
	}
	hx, hy := g.index(x, y)
	i, u := cellFrac(hx, g.Nx)
	j, v := cellFrac(hy, g.Ny)
	i1, j1 := i, j
	if g.Nx > 1 {
		i1 = i + 1
	}
	if g.Ny > 1 {
		j1 = j + 1
	}
	z = g.Get(i, j)*(1-u)*(1-v) +
		g.Get(i, j1)*(1-u)*v +
		g.Get(i1, j)*u*(1-v) +
		g.Get(i1, j1)*u*v
	return z, true
}

// Elevation is the hard variant of ElevationIn: a point outside the
// grid is an error.
func (g *Grid) Elevation(x, y float64) (float64, error) {
	z, inside := g.ElevationIn(x, y)
	if !inside {
		return 0, report(fmt.Errorf("in terrain.Grid.Elevation: %w: (%g, %g)", ErrDomain, x, y))
	}
	return z, nil
}

// sampleGradX returns dz/dx at sample (ix, iy), using a central
// difference where both neighbors exist and a one-sided difference at
// the grid boundary.
func (g *Grid) sampleGradX(ix, iy int) float64 {
	if g.Nx == 1 || g.Dx == 0 {
		return 0
	}
	switch {
	case ix == 0:
		return (g.Get(1, iy) - g.Get(0, iy)) / g.Dx
	case ix == g.Nx-1:
		return (g.Get(g.Nx-1, iy) - g.Get(g.Nx-2, iy)) / g.Dx
	default:
		return (g.Get(ix+1, iy) - g.Get(ix-1, iy)) / (2 * g.Dx)
	}
}

func (g *Grid) sampleGradY(ix, iy int) float64 {
	if g.Ny == 1 || g.Dy == 0 {
		return 0
	}
	switch {
	case iy == 0:
		return (g.Get(ix, 1) - g.Get(ix, 0)) / g.Dy
	case iy == g.Ny-1:
		return (g.Get(ix, g.Ny-1) - g.Get(ix, g.Ny-2)) / g.Dy
	default:
		return (g.Get(ix, iy+1) - g.Get(ix, iy-1)) / (2 * g.Dy)
	}
}

// GradientIn returns the elevation gradient (dz/dx, dz/dy) at (x, y).
// The gradients at the four samples bounding the point are computed by
// central differences, which blends each cell's slope with its
// neighbor's over the half-cell nearest the shared edge, then
// bilinearly interpolated with the same weights as ElevationIn.
func (g *Grid) GradientIn(x, y float64) (gx, gy float64, inside bool) {
	if !g.contains(x, y) {
		return 0, 0, false
	}
	hx, hy := g.index(x, y)
	i, u := cellFrac(hx, g.Nx)
	j, v := cellFrac(hy, g.Ny)
	i1, j1 := i, j
	if g.Nx > 1 {
		i1 = i + 1
	}
	if g.Ny > 1 {
		j1 = j + 1
	}
	gx = g.sampleGradX(i, j)*(1-u)*(1-v) +
		g.sampleGradX(i, j1)*(1-u)*v +
		g.sampleGradX(i1, j)*u*(1-v) +
		g.sampleGradX(i1, j1)*u*v
	gy = g.sampleGradY(i, j)*(1-u)*(1-v) +
		g.sampleGradY(i, j1)*(1-u)*v +
		g.sampleGradY(i1, j)*u*(1-v) +
		g.sampleGradY(i1, j1)*u*v
	return gx, gy, true
}

// Gradient is the hard variant of GradientIn.
func (g *Grid) Gradient(x, y float64) (gx, gy float64, err error) {
	gx, gy, inside := g.GradientIn(x, y)
	if !inside {
		return 0, 0, report(fmt.Errorf("in terrain.Grid.Gradient: %w: (%g, %g)", ErrDomain, x, y))
	}
	return gx, gy, nil
}
