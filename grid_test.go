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
	"errors"
	"math"
	"testing"
)

// planeGrid fills g with z = a + bx*x + by*y evaluated at the sample
// locations. Bilinear interpolation reproduces a plane exactly.
func planeGrid(g *Grid, a, bx, by float64) {
	for iy := 0; iy < g.Ny; iy++ {
		for ix := 0; ix < g.Nx; ix++ {
			x := g.X0 + g.Dx*float64(ix)
			y := g.Y0 + g.Dy*float64(iy)
			g.Set(a+bx*x+by*y, ix, iy)
		}
	}
}

func TestNewGridValidation(t *testing.T) {
	cases := []struct {
		nx, ny int
		dx, dy float64
		ok     bool
	}{
		{3, 3, 1, 1, true},
		{1, 3, 0, 1, true}, // zero spacing allowed for a single sample
		{0, 3, 1, 1, false},
		{3, 3, -1, 1, false},
		{3, 3, 0, 1, false}, // zero spacing with multiple samples
	}
	for _, c := range cases {
		_, err := NewGrid(c.nx, c.ny, 0, 0, c.dx, c.dy)
		if (err == nil) != c.ok {
			t.Errorf("NewGrid(%d, %d, dx=%g, dy=%g): err = %v, want ok=%v",
				c.nx, c.ny, c.dx, c.dy, err, c.ok)
		}
		if err != nil && !errors.Is(err, ErrBadFormat) {
			t.Errorf("NewGrid error %v does not wrap ErrBadFormat", err)
		}
	}
}

func TestGridElevation(t *testing.T) {
	g, err := NewGrid(4, 3, 10, 20, 2, 5)
	if err != nil {
		t.Fatal(err)
	}
	planeGrid(g, 1, 0.5, -0.25)

	cases := []struct {
		x, y   float64
		z      float64
		inside bool
	}{
		{10, 20, 1 + 5 - 5, true},         // southwest sample
		{16, 30, 1 + 8 - 7.5, true},       // northeast sample
		{13, 27.5, 1 + 6.5 - 6.875, true}, // cell interior
		{16, 20, 1 + 8 - 5, true},         // east edge is inside
		{16.001, 20, 0, false},
		{9.999, 20, 0, false},
		{10, 30.001, 0, false},
	}
	for _, c := range cases {
		z, inside := g.ElevationIn(c.x, c.y)
		if inside != c.inside {
			t.Errorf("ElevationIn(%g, %g): inside = %v, want %v", c.x, c.y, inside, c.inside)
			continue
		}
		if inside && math.Abs(z-c.z) > 1e-12 {
			t.Errorf("ElevationIn(%g, %g) = %g, want %g", c.x, c.y, z, c.z)
		}
	}

	if _, err := g.Elevation(9, 20); !errors.Is(err, ErrDomain) {
		t.Errorf("Elevation outside the grid: err = %v, want ErrDomain", err)
	}
}

func TestGridGradient(t *testing.T) {
	g, err := NewGrid(5, 5, 0, 0, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	planeGrid(g, 3, 1.5, -0.75)

	// A planar surface has a constant gradient everywhere inside.
	for _, p := range [][2]float64{{0, 0}, {2.3, 4.1}, {4, 8}, {1.5, 3}} {
		gx, gy, inside := g.GradientIn(p[0], p[1])
		if !inside {
			t.Fatalf("GradientIn(%g, %g): inside = false", p[0], p[1])
		}
		if math.Abs(gx-1.5) > 1e-12 || math.Abs(gy+0.75) > 1e-12 {
			t.Errorf("GradientIn(%g, %g) = (%g, %g), want (1.5, -0.75)", p[0], p[1], gx, gy)
		}
	}

	if _, _, err := g.Gradient(-1, 0); !errors.Is(err, ErrDomain) {
		t.Errorf("Gradient outside the grid: err = %v, want ErrDomain", err)
	}
}

func TestGridSingleSampleDimension(t *testing.T) {
	g, err := NewGrid(1, 3, 7, 0, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	g.Set(5, 0, 0)
	g.Set(6, 0, 1)
	g.Set(7, 0, 2)

	z, inside := g.ElevationIn(7, 1.5)
	if !inside || math.Abs(z-6.5) > 1e-12 {
		t.Errorf("ElevationIn(7, 1.5) = %g, %v; want 6.5, true", z, inside)
	}
	// Any x other than the origin is outside a zero-spacing dimension.
	if _, inside := g.ElevationIn(7.1, 1); inside {
		t.Error("point off the degenerate axis should be outside")
	}
	gx, gy, inside := g.GradientIn(7, 1)
	if !inside || gx != 0 || math.Abs(gy-1) > 1e-12 {
		t.Errorf("GradientIn(7, 1) = (%g, %g), %v; want (0, 1), true", gx, gy, inside)
	}
}

func TestCellFrac(t *testing.T) {
	cases := []struct {
		h float64
		n int
		i int
		u float64
	}{
		{0, 4, 0, 0},
		{1.25, 4, 1, 0.25},
		{3, 4, 2, 1}, // final sample belongs to the last cell
		{0, 1, 0, 0},
	}
	for _, c := range cases {
		i, u := cellFrac(c.h, c.n)
		if i != c.i || math.Abs(u-c.u) > 1e-12 {
			t.Errorf("cellFrac(%g, %d) = (%d, %g), want (%d, %g)", c.h, c.n, i, u, c.i, c.u)
		}
	}
}
