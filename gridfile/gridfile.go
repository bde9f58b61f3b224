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

// Package gridfile reads regular elevation grids from several on-disk
// formats, selected by file extension. Opening a file reads metadata
// only; sample data is read separately so that a directory of tiles
// can be indexed without loading it.
package gridfile

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/sparse"
)

var (
	// ErrExtension indicates a file extension with no registered
	// reader.
	ErrExtension = errors.New("gridfile: unrecognized extension")

	// ErrFormat indicates malformed file content.
	ErrFormat = errors.New("gridfile: bad format")
)

// Metadata describes a grid without its samples. Sample (ix, iy) lies
// at (X0+Dx*ix, Y0+Dy*iy), with iy increasing northward for
// geographic grids. Z0 and Dz are the affine decoding applied to raw
// samples during Read (z = Z0 + Dz*raw); readers report the values
// they applied.
type Metadata struct {
	Nx, Ny     int
	X0, Y0     float64
	Dx, Dy     float64
	Z0, Dz     float64
	Projection string // textual projection tag; empty = geographic
}

// A Reader reads one grid file.
type Reader interface {
	// Metadata returns the grid's metadata without reading samples.
	Metadata() Metadata
	// Read reads the full sample array, decoded to meters, with
	// shape [Ny, Nx] and row index increasing northward. Missing
	// samples are NaN.
	Read() (*sparse.DenseArray, error)
	Close() error
}

type opener func(path string) (Reader, error)

var formats = map[string]opener{}

func register(ext string, fn opener) {
	formats[ext] = fn
}

// Open opens the grid file at path with the reader registered for its
// extension, reading metadata only. An unregistered extension returns
// an error wrapping ErrExtension.
func Open(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := formats[ext]
	if !ok {
		return nil, fmt.Errorf("in gridfile.Open: %w: %q", ErrExtension, ext)
	}
	return fn(path)
}

// Formats returns the registered extensions in sorted order.
func Formats() []string {
	o := make([]string, 0, len(formats))
	for ext := range formats {
		o = append(o, ext)
	}
	sort.Strings(o)
	return o
}
