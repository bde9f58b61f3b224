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

package gridfile

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/ctessum/sparse"
)

// Surfer ASCII grid (.grd): the magic word DSAA, then nx ny,
// xmin xmax, ymin ymax, zmin zmax, then ny rows of nx samples, first
// row southmost. Samples at or above the blanking value are missing.
const grdBlank = 1.70141e38

func init() { register(".grd", openGRD) }

type grdReader struct {
	path string
	meta Metadata
}

func openGRD(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("in gridfile.openGRD: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	if !sc.Scan() || sc.Text() != "DSAA" {
		return nil, fmt.Errorf("in gridfile.openGRD: %w: %s: missing DSAA magic", ErrFormat, path)
	}
	var h [8]float64
	for i := range h {
		if !sc.Scan() {
			return nil, fmt.Errorf("in gridfile.openGRD: %w: %s: truncated header", ErrFormat, path)
		}
		h[i], err = strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("in gridfile.openGRD: %w: %s: %v", ErrFormat, path, err)
		}
	}
	nx, ny := int(h[0]), int(h[1])
	if nx < 2 || ny < 2 || h[0] != float64(nx) || h[1] != float64(ny) {
		return nil, fmt.Errorf("in gridfile.openGRD: %w: %s: bad dimensions %g×%g", ErrFormat, path, h[0], h[1])
	}
	xmin, xmax, ymin, ymax := h[2], h[3], h[4], h[5]
	if xmax <= xmin || ymax <= ymin {
		return nil, fmt.Errorf("in gridfile.openGRD: %w: %s: bad extent", ErrFormat, path)
	}
	return &grdReader{
		path: path,
		meta: Metadata{
			Nx: nx, Ny: ny,
			X0: xmin, Y0: ymin,
			Dx: (xmax - xmin) / float64(nx-1),
			Dy: (ymax - ymin) / float64(ny-1),
			Z0: 0, Dz: 1,
		},
	}, nil
}

func (r *grdReader) Metadata() Metadata { return r.meta }

func (r *grdReader) Read() (*sparse.DenseArray, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("in gridfile.grdReader.Read: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for i := 0; i < 9; i++ { // DSAA + 8 header numbers
		if !sc.Scan() {
			return nil, fmt.Errorf("in gridfile.grdReader.Read: %w: %s: truncated header", ErrFormat, r.path)
		}
	}
	nx, ny := r.meta.Nx, r.meta.Ny
	data := sparse.ZerosDense(ny, nx)
	for iy := 0; iy < ny; iy++ { // first row is southmost
		for ix := 0; ix < nx; ix++ {
			if !sc.Scan() {
				return nil, fmt.Errorf("in gridfile.grdReader.Read: %w: %s: truncated at row %d", ErrFormat, r.path, iy)
			}
			z, err := strconv.ParseFloat(sc.Text(), 64)
			if err != nil {
				return nil, fmt.Errorf("in gridfile.grdReader.Read: %w: %s: %v", ErrFormat, r.path, err)
			}
			if z >= grdBlank {
				z = math.NaN()
			}
			data.Set(z, iy, ix)
		}
	}
	return data, nil
}

func (r *grdReader) Close() error { return nil }
