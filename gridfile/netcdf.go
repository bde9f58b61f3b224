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
	"fmt"
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// NetCDF grids (.nc): a 2-D float64 variable "elevation" with
// dimensions [y, x], global attributes x0, y0, dx, dy ([]float64) and
// optionally projection (string). Row 0 is the southmost row.
const ncVar = "elevation"

func init() { register(".nc", openNC) }

type ncReader struct {
	f    *os.File
	cf   *cdf.File
	meta Metadata
}

func openNC(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("in gridfile.openNC: %v", err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("in gridfile.openNC: %w: %s: %v", ErrFormat, path, err)
	}
	dims := cf.Header.Lengths(ncVar)
	if len(dims) != 2 {
		f.Close()
		return nil, fmt.Errorf("in gridfile.openNC: %w: %s: variable %q must be 2-D", ErrFormat, path, ncVar)
	}
	attr := func(name string) (float64, error) {
		v, ok := cf.Header.GetAttribute("", name).([]float64)
		if !ok || len(v) != 1 {
			return 0, fmt.Errorf("in gridfile.openNC: %w: %s: missing attribute %q", ErrFormat, path, name)
		}
		return v[0], nil
	}
	meta := Metadata{Ny: dims[0], Nx: dims[1], Dz: 1}
	for _, a := range []struct {
		name string
		dst  *float64
	}{
		{"x0", &meta.X0}, {"y0", &meta.Y0}, {"dx", &meta.Dx}, {"dy", &meta.Dy},
	} {
		if *a.dst, err = attr(a.name); err != nil {
			f.Close()
			return nil, err
		}
	}
	if p, ok := cf.Header.GetAttribute("", "projection").(string); ok {
		meta.Projection = p
	}
	return &ncReader{f: f, cf: cf, meta: meta}, nil
}

func (r *ncReader) Metadata() Metadata { return r.meta }

func (r *ncReader) Read() (*sparse.DenseArray, error) {
	rr := r.cf.Reader(ncVar, nil, nil)
	buf := rr.Zero(-1)
	if _, err := rr.Read(buf); err != nil {
		return nil, fmt.Errorf("in gridfile.ncReader.Read: %w: reading %q: %v", ErrFormat, ncVar, err)
	}
	data := sparse.ZerosDense(r.meta.Ny, r.meta.Nx)
	switch vals := buf.(type) {
	case []float64:
		copy(data.Elements, vals)
	case []float32:
		for i, v := range vals {
			data.Elements[i] = float64(v)
		}
	default:
		return nil, fmt.Errorf("in gridfile.ncReader.Read: %w: %q has unsupported type %T", ErrFormat, ncVar, buf)
	}
	if fv, ok := r.cf.Header.GetAttribute(ncVar, "_FillValue").([]float64); ok && len(fv) == 1 {
		for i, v := range data.Elements {
			if v == fv[0] {
				data.Elements[i] = math.NaN()
			}
		}
	}
	return data, nil
}

func (r *ncReader) Close() error { return r.f.Close() }
