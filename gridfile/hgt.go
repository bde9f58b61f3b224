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
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// SRTM .hgt tiles: a square of big-endian int16 samples in meters,
// rows stored north to south, covering one degree square. The
// southwest corner is encoded in the file name (e.g. N45E003.hgt),
// and the side length follows from the file size (1201 for SRTM3,
// 3601 for SRTM1).
const hgtVoid = -32768

func init() { register(".hgt", openHGT) }

type hgtReader struct {
	path string
	meta Metadata
}

func openHGT(path string) (Reader, error) {
	lat0, lon0, err := parseHGTName(path)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("in gridfile.openHGT: %v", err)
	}
	if fi.Size()%2 != 0 {
		return nil, fmt.Errorf("in gridfile.openHGT: %w: %s: odd size %d", ErrFormat, path, fi.Size())
	}
	n := int(math.Round(math.Sqrt(float64(fi.Size() / 2))))
	if n < 2 || int64(n)*int64(n)*2 != fi.Size() {
		return nil, fmt.Errorf("in gridfile.openHGT: %w: %s: size %d is not a square sample count", ErrFormat, path, fi.Size())
	}
	d := 1 / float64(n-1)
	return &hgtReader{
		path: path,
		meta: Metadata{
			Nx: n, Ny: n,
			X0: lon0, Y0: lat0,
			Dx: d, Dy: d,
			Z0: 0, Dz: 1,
		},
	}, nil
}

// parseHGTName extracts the southwest corner from a file name of the
// form N45E003 or S09W072.
func parseHGTName(path string) (lat0, lon0 float64, err error) {
	base := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if len(base) != 7 {
		return 0, 0, fmt.Errorf("in gridfile.parseHGTName: %w: %q is not of the form N45E003", ErrFormat, base)
	}
	latDeg, errLat := strconv.Atoi(base[1:3])
	lonDeg, errLon := strconv.Atoi(base[4:7])
	if errLat != nil || errLon != nil {
		return 0, 0, fmt.Errorf("in gridfile.parseHGTName: %w: %q is not of the form N45E003", ErrFormat, base)
	}
	switch base[0] {
	case 'N':
		lat0 = float64(latDeg)
	case 'S':
		lat0 = -float64(latDeg)
	default:
		return 0, 0, fmt.Errorf("in gridfile.parseHGTName: %w: %q: hemisphere must be N or S", ErrFormat, base)
	}
	switch base[3] {
	case 'E':
		lon0 = float64(lonDeg)
	case 'W':
		lon0 = -float64(lonDeg)
	default:
		return 0, 0, fmt.Errorf("in gridfile.parseHGTName: %w: %q: hemisphere must be E or W", ErrFormat, base)
	}
	return lat0, lon0, nil
}

func (r *hgtReader) Metadata() Metadata { return r.meta }

func (r *hgtReader) Read() (*sparse.DenseArray, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("in gridfile.hgtReader.Read: %v", err)
	}
	n := r.meta.Nx
	if len(b) != n*n*2 {
		return nil, fmt.Errorf("in gridfile.hgtReader.Read: %w: %s changed size", ErrFormat, r.path)
	}
	data := sparse.ZerosDense(n, n)
	for row := 0; row < n; row++ {
		iy := n - 1 - row // rows are stored north to south
		for ix := 0; ix < n; ix++ {
			v := int16(binary.BigEndian.Uint16(b[2*(row*n+ix):]))
			z := float64(v)
			if v == hgtVoid {
				z = math.NaN()
			}
			data.Set(z, iy, ix)
		}
	}
	return data, nil
}

func (r *hgtReader) Close() error { return nil }
