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

func TestNewTile(t *testing.T) {
	if _, err := NewTile(nil, nil); !errors.Is(err, ErrBadAddress) {
		t.Errorf("nil grid: err = %v, want ErrBadAddress", err)
	}
	g, err := NewGrid(2, 2, 0, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	tile, err := NewTile(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	if tile.Grid() != g || tile.Projection() != nil || tile.Path() != "" || tile.Pinned() {
		t.Error("unexpected tile accessors")
	}
}

func TestTileBounds(t *testing.T) {
	g, err := NewGrid(11, 11, 3, 45, 0.1, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	tile, err := NewTile(g, nil)
	if err != nil {
		t.Fatal(err)
	}
	b := tile.Bounds()
	if b.Min.X != 3 || b.Min.Y != 45 || math.Abs(b.Max.X-4) > 1e-12 || math.Abs(b.Max.Y-46) > 1e-12 {
		t.Errorf("Bounds() = %+v, want [3, 45] to [4, 46]", b)
	}
}

func TestTileGeographic(t *testing.T) {
	g, err := NewGrid(11, 11, 3, 45, 0.1, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	planeGrid(g, 0, 10, 0) // z = 10*lon
	tile, err := NewTile(g, nil)
	if err != nil {
		t.Fatal(err)
	}

	if !tile.contains(45.5, 3.5) || tile.contains(44.9, 3.5) || tile.contains(45.5, 4.1) {
		t.Error("unexpected containment")
	}
	z, err := tile.Elevation(45.5, 3.5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(z-35) > 1e-9 {
		t.Errorf("Elevation(45.5, 3.5) = %g, want 35", z)
	}
	gx, gy, err := tile.Gradient(45.5, 3.5)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(gx-10) > 1e-9 || math.Abs(gy) > 1e-9 {
		t.Errorf("Gradient = (%g, %g), want (10, 0)", gx, gy)
	}
	if _, err := tile.Elevation(50, 50); !errors.Is(err, ErrDomain) {
		t.Errorf("Elevation outside: err = %v, want ErrDomain", err)
	}
}

func TestTileProjected(t *testing.T) {
	p, err := NewProjection("UTM 31N")
	if err != nil {
		t.Fatal(err)
	}
	// A 20x20 km map around the UTM coordinates of (45°N, 3°E).
	x0, y0, err := p.Project(45, 3)
	if err != nil {
		t.Fatal(err)
	}
	g, err := NewGrid(21, 21, x0-10000, y0-10000, 1000, 1000)
	if err != nil {
		t.Fatal(err)
	}
	planeGrid(g, 0, 0.001, 0) // z rises 1 m per km of easting
	tile, err := NewTile(g, p)
	if err != nil {
		t.Fatal(err)
	}

	if !tile.contains(45, 3) {
		t.Error("tile should contain its center")
	}
	// 1° of latitude is far beyond the 10 km half-width.
	if tile.contains(46, 3) {
		t.Error("tile should not contain a point 1° north")
	}
	z, err := tile.Elevation(45, 3)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(z-0.001*x0) > 1e-6 {
		t.Errorf("Elevation at the center = %g, want %g", z, 0.001*x0)
	}
}
