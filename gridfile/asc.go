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
	"strings"

	"github.com/ctessum/sparse"
)

// ESRI ASCII grid (.asc): a whitespace-separated header of
// ncols/nrows/xllcorner|xllcenter/yllcorner|yllcenter/cellsize and an
// optional nodata_value, followed by nrows rows of ncols samples,
// first row northmost. Corner-referenced files are shifted by half a
// cell so that Metadata reports sample-center coordinates.
func init() { register(".asc", openASC) }

type ascReader struct {
	path       string
	meta       Metadata
	nodata     float64
	hasNodata  bool
	headTokens int // number of whitespace tokens making up the header
}

func openASC(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("in gridfile.openASC: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	r := &ascReader{path: path, meta: Metadata{Dz: 1}}
	var haveCols, haveRows, haveX, haveY, haveCell bool
	xCenter, yCenter := false, false
	var xll, yll, cell float64
	var ncols, nrows int
	for {
		key, ok := next()
		if !ok {
			return nil, fmt.Errorf("in gridfile.openASC: %w: %s: truncated header", ErrFormat, path)
		}
		k := strings.ToLower(key)
		if _, err := strconv.ParseFloat(k, 64); err == nil {
			// First data token; the header is complete.
			break
		}
		val, ok := next()
		if !ok {
			return nil, fmt.Errorf("in gridfile.openASC: %w: %s: header key %q has no value", ErrFormat, path, key)
		}
		r.headTokens += 2
		switch k {
		case "ncols":
			ncols, err = strconv.Atoi(val)
			haveCols = true
		case "nrows":
			nrows, err = strconv.Atoi(val)
			haveRows = true
		case "xllcorner", "xllcenter":
			xll, err = strconv.ParseFloat(val, 64)
			xCenter = k == "xllcenter"
			haveX = true
		case "yllcorner", "yllcenter":
			yll, err = strconv.ParseFloat(val, 64)
			yCenter = k == "yllcenter"
			haveY = true
		case "cellsize":
			cell, err = strconv.ParseFloat(val, 64)
			haveCell = true
		case "nodata_value":
			r.nodata, err = strconv.ParseFloat(val, 64)
			r.hasNodata = true
		default:
			return nil, fmt.Errorf("in gridfile.openASC: %w: %s: unknown header key %q", ErrFormat, path, key)
		}
		if err != nil {
			return nil, fmt.Errorf("in gridfile.openASC: %w: %s: bad value for %q: %v", ErrFormat, path, key, err)
		}
		if haveCols && haveRows && haveX && haveY && haveCell && r.hasNodata {
			break
		}
	}
	if !(haveCols && haveRows && haveX && haveY && haveCell) {
		return nil, fmt.Errorf("in gridfile.openASC: %w: %s: incomplete header", ErrFormat, path)
	}
	if ncols < 1 || nrows < 1 || cell <= 0 {
		return nil, fmt.Errorf("in gridfile.openASC: %w: %s: bad dimensions %d×%d cellsize %g", ErrFormat, path, ncols, nrows, cell)
	}
	x0, y0 := xll, yll
	if !xCenter {
		x0 += cell / 2
	}
	if !yCenter {
		y0 += cell / 2
	}
	r.meta.Nx, r.meta.Ny = ncols, nrows
	r.meta.X0, r.meta.Y0 = x0, y0
	r.meta.Dx, r.meta.Dy = cell, cell
	return r, nil
}

func (r *ascReader) Metadata() Metadata { return r.meta }

func (r *ascReader) Read() (*sparse.DenseArray, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("in gridfile.ascReader.Read: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	for i := 0; i < r.headTokens; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("in gridfile.ascReader.Read: %w: %s: truncated header", ErrFormat, r.path)
		}
	}
	nx, ny := r.meta.Nx, r.meta.Ny
	data := sparse.ZerosDense(ny, nx)
	for row := 0; row < ny; row++ {
		iy := ny - 1 - row // first row is northmost
		for ix := 0; ix < nx; ix++ {
			if !sc.Scan() {
				return nil, fmt.Errorf("in gridfile.ascReader.Read: %w: %s: truncated at row %d", ErrFormat, r.path, row)
			}
			z, err := strconv.ParseFloat(sc.Text(), 64)
			if err != nil {
				return nil, fmt.Errorf("in gridfile.ascReader.Read: %w: %s: %v", ErrFormat, r.path, err)
			}
			if r.hasNodata && z == r.nodata {
				z = math.NaN()
			}
			data.Set(z, iy, ix)
		}
	}
	return data, nil
}

func (r *ascReader) Close() error { return nil }
