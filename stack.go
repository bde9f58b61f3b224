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
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/spatialmodel/terrain/gridfile"
)

// spanTol is the absolute tolerance used when comparing tile spans and
// checking that the directory envelope is an integral number of spans.
const spanTol = 1e-6

// Stack is a bounded in-memory cache of elevation tiles lazily loaded
// from a directory of grid files. The directory is indexed once at
// creation; tiles are loaded whole on first use and evicted in
// least-recently-used order when the cache exceeds its size limit.
//
// A Stack with a lock pair may be shared between goroutines, either
// through its own methods or, preferably, through per-goroutine
// Clients. The tile list and pin counts are protected by the lock;
// the directory index is immutable after creation.
type Stack struct {
	// Log, if non-nil, receives debug messages about tile loads and
	// evictions.
	Log logrus.FieldLogger

	// Directory index: cell (i, j) covers latitudes
	// [lat0+i*dlat, lat0+(i+1)*dlat) and the corresponding longitudes.
	lat0, lon0 float64
	dlat, dlon float64
	latN, lonN int
	paths      []string // len latN*lonN; empty = no data

	footprints *rtree.Rtree // tile extents, for region preloads

	maxSize int
	tiles   tileList

	// metaCache memoizes metadata reads; it is populated during index
	// construction and kept for the life of the stack.
	metaCache *requestcache.Cache

	lock, unlock func() error
}

// tileExtent is an rtree entry mapping a tile footprint to its index
// cell.
type tileExtent struct {
	b    *geom.Bounds
	cell int
}

func (e *tileExtent) Bounds() *geom.Bounds { return e.b }

// The remaining geom.Geom methods delegate to the footprint bounds so
// that tileExtent satisfies the interface required by rtree.Insert.
func (e *tileExtent) Len() int          { return e.b.Len() }
func (e *tileExtent) Points() func() geom.Point { return e.b.Points() }
func (e *tileExtent) Similar(g geom.Geom, tolerance float64) bool {
	return e.b.Similar(g, tolerance)
}
func (e *tileExtent) Transform(t proj.Transformer) (geom.Geom, error) {
	return e.b.Transform(t)
}

// NewStack indexes the grid files in directory dir and returns a stack
// caching at most maxSize loaded tiles. The lock and unlock callbacks
// must either both be provided or both be nil; they are invoked around
// every operation that touches the tile list, and must implement
// mutual exclusion for the stack to be shared between goroutines.
//
// Every recognized file in dir (non-recursive) must cover the same
// angular span, and the spans must tile the directory's bounding
// envelope exactly. Files with unrecognized extensions are skipped.
// When two files map to the same index cell the later one silently
// replaces the earlier, matching the historical behavior of the
// directory format.
func NewStack(dir string, maxSize int, lock, unlock func() error) (*Stack, error) {
	if (lock == nil) != (unlock == nil) {
		return nil, report(fmt.Errorf("in terrain.NewStack: %w: lock and unlock callbacks must be provided together", ErrBadAddress))
	}
	if maxSize < 1 {
		return nil, report(fmt.Errorf("in terrain.NewStack: %w: maxSize must be at least 1, got %d", ErrBadAddress, maxSize))
	}
	s := &Stack{maxSize: maxSize, lock: lock, unlock: unlock}
	if err := s.buildIndex(dir); err != nil {
		return nil, report(err)
	}
	return s, nil
}

// NewLockedStack is NewStack with a mutex-backed lock pair installed,
// for sharing the stack between goroutines without supplying
// callbacks.
func NewLockedStack(dir string, maxSize int) (*Stack, error) {
	var mx sync.Mutex
	lock := func() error { mx.Lock(); return nil }
	unlock := func() error { mx.Unlock(); return nil }
	return NewStack(dir, maxSize, lock, unlock)
}

// buildIndex scans dir twice: once to establish the common tile span
// and the bounding envelope, and once to place each file into its
// index cell. Metadata reads are memoized so the second scan does not
// reopen the files.
func (s *Stack) buildIndex(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("in terrain.Stack.buildIndex: %w: %v", ErrPath, err)
	}
	s.metaCache = requestcache.NewCache(
		func(ctx context.Context, p interface{}) (interface{}, error) {
			r, err := gridfile.Open(p.(string))
			if err != nil {
				return nil, err
			}
			defer r.Close()
			return r.Metadata(), nil
		},
		runtime.GOMAXPROCS(-1),
		requestcache.Deduplicate(), requestcache.Memory(len(entries)+1),
	)
	ctx := context.Background()

	readMeta := func(name string) (gridfile.Metadata, bool, error) {
		path := filepath.Join(dir, name)
		result, err := s.metaCache.NewRequest(ctx, path, path).Result()
		if err != nil {
			if errors.Is(err, gridfile.ErrExtension) {
				return gridfile.Metadata{}, false, nil // not a grid file; skip
			}
			if errors.Is(err, gridfile.ErrFormat) {
				return gridfile.Metadata{}, false, fmt.Errorf("in terrain.Stack.buildIndex: %w: %s: %v", ErrBadFormat, path, err)
			}
			return gridfile.Metadata{}, false, fmt.Errorf("in terrain.Stack.buildIndex: %w: %s: %v", ErrPath, path, err)
		}
		return result.(gridfile.Metadata), true, nil
	}

	// First scan: common span and envelope.
	var spanX, spanY float64
	envelope := geom.NewBounds()
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		meta, ok, err := readMeta(e.Name())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		sx := meta.Dx * float64(meta.Nx-1)
		sy := meta.Dy * float64(meta.Ny-1)
		if n == 0 {
			spanX, spanY = sx, sy
		} else if !scalar.EqualWithinAbs(sx, spanX, spanTol) || !scalar.EqualWithinAbs(sy, spanY, spanTol) {
			return fmt.Errorf("in terrain.Stack.buildIndex: %w: %s: tile span %g×%g differs from %g×%g",
				ErrBadFormat, e.Name(), sx, sy, spanX, spanY)
		}
		envelope.Extend(geom.NewBoundsPoint(geom.Point{X: meta.X0, Y: meta.Y0}))
		envelope.Extend(geom.NewBoundsPoint(geom.Point{X: meta.X0 + sx, Y: meta.Y0 + sy}))
		n++
	}
	if n == 0 {
		return fmt.Errorf("in terrain.Stack.buildIndex: %w: no grid files in %s", ErrPath, dir)
	}
	if spanX <= 0 || spanY <= 0 {
		return fmt.Errorf("in terrain.Stack.buildIndex: %w: degenerate tile span %g×%g", ErrBadFormat, spanX, spanY)
	}
	ratioX := (envelope.Max.X - envelope.Min.X) / spanX
	ratioY := (envelope.Max.Y - envelope.Min.Y) / spanY
	if !scalar.EqualWithinAbs(ratioX, math.Round(ratioX), spanTol) ||
		!scalar.EqualWithinAbs(ratioY, math.Round(ratioY), spanTol) {
		return fmt.Errorf("in terrain.Stack.buildIndex: %w: envelope is not an integral number of tile spans (%g×%g)",
			ErrBadFormat, ratioX, ratioY)
	}
	s.lon0, s.lat0 = envelope.Min.X, envelope.Min.Y
	s.dlon, s.dlat = spanX, spanY
	s.lonN = int(math.Round(ratioX))
	s.latN = int(math.Round(ratioY))
	s.paths = make([]string, s.latN*s.lonN)
	s.footprints = rtree.NewTree(25, 50)

	// Second scan: place each tile in its cell. The metadata reads hit
	// the memory cache.
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		meta, ok, err := readMeta(e.Name())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		j := int(math.Round((meta.X0 - s.lon0) / s.dlon))
		i := int(math.Round((meta.Y0 - s.lat0) / s.dlat))
		cell := i*s.lonN + j
		if s.paths[cell] != "" && s.Log != nil {
			s.Log.WithFields(logrus.Fields{
				"cell": cell, "old": s.paths[cell], "new": e.Name(),
			}).Debug("duplicate tile cell; keeping the later file")
		}
		if s.paths[cell] == "" {
			b := geom.NewBoundsPoint(geom.Point{X: meta.X0, Y: meta.Y0})
			b.Extend(geom.NewBoundsPoint(geom.Point{X: meta.X0 + spanX, Y: meta.Y0 + spanY}))
			s.footprints.Insert(&tileExtent{b: b, cell: cell})
		}
		s.paths[cell] = filepath.Join(dir, e.Name())
	}
	return nil
}

// acquire invokes the stack's lock callback, if any.
func (s *Stack) acquire() error {
	if s.lock == nil {
		return nil
	}
	if err := s.lock(); err != nil {
		return report(fmt.Errorf("in terrain.Stack: %w: %v", ErrLock, err))
	}
	return nil
}

// release invokes the stack's unlock callback, if any.
func (s *Stack) release() error {
	if s.unlock == nil {
		return nil
	}
	if err := s.unlock(); err != nil {
		return report(fmt.Errorf("in terrain.Stack: %w: %v", ErrUnlock, err))
	}
	return nil
}

// Origin returns the southwest corner of the indexed region and the
// angular size of one index cell, all in degrees.
func (s *Stack) Origin() (lat0, lon0, dlat, dlon float64) {
	return s.lat0, s.lon0, s.dlat, s.dlon
}

// Cells returns the index dimensions (latitude cells, longitude
// cells).
func (s *Stack) Cells() (latN, lonN int) { return s.latN, s.lonN }

// Len returns the number of loaded tiles. It does not synchronize;
// concurrent callers should quiesce first.
func (s *Stack) Len() int { return s.tiles.len() }

// resolve finds or loads the tile covering (lat, lon) and moves it to
// the head of the list. A point outside the indexed region, or in a
// cell with no data, returns (nil, false, nil). The caller must hold
// the lock.
func (s *Stack) resolve(lat, lon float64) (*Tile, bool, error) {
	if t := s.tiles.head(); t != nil && t.contains(lat, lon) {
		return t, true, nil
	}
	for i := 1; i < s.tiles.len(); i++ {
		if s.tiles[i].contains(lat, lon) {
			s.tiles.touch(i)
			return s.tiles.head(), true, nil
		}
	}
	return s.load(lat, lon)
}

// load ensures the tile covering (lat, lon) is loaded, returning it.
// It is idempotent: an already-loaded tile is found and touched, not
// reloaded. The caller must hold the lock.
func (s *Stack) load(lat, lon float64) (*Tile, bool, error) {
	i := int(math.Floor((lat - s.lat0) / s.dlat))
	j := int(math.Floor((lon - s.lon0) / s.dlon))
	if i < 0 || i >= s.latN || j < 0 || j >= s.lonN {
		return nil, false, nil
	}
	path := s.paths[i*s.lonN+j]
	if path == "" {
		return nil, false, nil
	}
	for k := 0; k < s.tiles.len(); k++ {
		if s.tiles[k].path == path {
			s.tiles.touch(k)
			return s.tiles.head(), true, nil
		}
	}
	t, err := LoadTile(path)
	if err != nil {
		return nil, false, err
	}
	s.evict()
	s.tiles.pushFront(t)
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{"path": path, "tiles": s.tiles.len()}).Debug("loaded tile")
	}
	return t, true, nil
}

// LoadTile reads a single grid file whole into a standalone tile,
// outside of any stack. This is how auxiliary grids such as geoid
// undulation models are loaded.
func LoadTile(path string) (*Tile, error) {
	r, err := gridfile.Open(path)
	if err != nil {
		return nil, report(mapGridfileError(path, err))
	}
	defer r.Close()
	meta := r.Metadata()
	data, err := r.Read()
	if err != nil {
		return nil, report(mapGridfileError(path, err))
	}
	return tileFromGridfile(path, meta, data)
}

// tileFromGridfile builds a tile from gridfile metadata and samples.
func tileFromGridfile(path string, meta gridfile.Metadata, data *sparse.DenseArray) (*Tile, error) {
	g, err := NewGrid(meta.Nx, meta.Ny, meta.X0, meta.Y0, meta.Dx, meta.Dy)
	if err != nil {
		return nil, err
	}
	g.Data = data
	var p *Projection
	if meta.Projection != "" {
		if p, err = NewProjection(meta.Projection); err != nil {
			return nil, err
		}
	}
	return &Tile{grid: g, proj: p, path: path}, nil
}

// mapGridfileError classifies a gridfile error into this package's
// taxonomy.
func mapGridfileError(path string, err error) error {
	switch {
	case errors.Is(err, gridfile.ErrExtension):
		return fmt.Errorf("in terrain: %w: %s: %v", ErrBadExtension, path, err)
	case errors.Is(err, gridfile.ErrFormat):
		return fmt.Errorf("in terrain: %w: %s: %v", ErrBadFormat, path, err)
	default:
		return fmt.Errorf("in terrain: %w: %s: %v", ErrPath, path, err)
	}
}

// evict removes tiles from the tail of the list, skipping pinned
// tiles, until the list is below the size limit or nothing more can be
// evicted. The limit may remain exceeded when every tile is pinned.
// The caller must hold the lock.
func (s *Stack) evict() {
	for s.tiles.len() >= s.maxSize {
		victim := -1
		for i := s.tiles.len() - 1; i >= 0; i-- {
			if !s.tiles[i].Pinned() {
				victim = i
				break
			}
		}
		if victim < 0 {
			return
		}
		t := s.tiles.removeAt(victim)
		if s.Log != nil {
			s.Log.WithFields(logrus.Fields{"path": t.path, "tiles": s.tiles.len()}).Debug("evicted tile")
		}
	}
}

// pin marks t as held by a client. The caller must hold the lock.
func (s *Stack) pin(t *Tile) { t.clients++ }

// unpin releases a client's hold on t and, if the tile is now
// unpinned and the cache is over its limit, evicts it. The caller must
// hold the lock.
func (s *Stack) unpin(t *Tile) {
	t.clients--
	if t.clients == 0 && s.tiles.len() > s.maxSize {
		if i, ok := s.tiles.index(t); ok {
			s.tiles.removeAt(i)
			if s.Log != nil {
				s.Log.WithFields(logrus.Fields{"path": t.path, "tiles": s.tiles.len()}).Debug("evicted tile on unpin")
			}
		}
	}
}

// withLock runs fn between the lock callbacks, preferring fn's error
// over an unlock failure.
func (s *Stack) withLock(fn func() error) error {
	if err := s.acquire(); err != nil {
		return err
	}
	err := fn()
	if uerr := s.release(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}

// ElevationIn interpolates the ground elevation at geodetic
// (lat, lon) in degrees, loading the covering tile if necessary.
// A point outside the indexed region or in a cell without data is
// reported as inside=false without error.
func (s *Stack) ElevationIn(lat, lon float64) (z float64, inside bool, err error) {
	err = s.withLock(func() error {
		t, ok, err := s.resolve(lat, lon)
		if err != nil || !ok {
			return err
		}
		z, inside, err = t.ElevationIn(lat, lon)
		return err
	})
	if err != nil {
		return 0, false, err
	}
	return z, inside, nil
}

// Elevation is the hard variant of ElevationIn: a miss is an error.
func (s *Stack) Elevation(lat, lon float64) (float64, error) {
	z, inside, err := s.ElevationIn(lat, lon)
	if err != nil {
		return 0, err
	}
	if !inside {
		return 0, report(fmt.Errorf("in terrain.Stack.Elevation: %w: no tile covers (%g, %g)", ErrPath, lat, lon))
	}
	return z, nil
}

// GradientIn returns the ground elevation gradient
// (dz/dlon, dz/dlat) at geodetic (lat, lon), resolving tiles the same
// way as ElevationIn.
func (s *Stack) GradientIn(lat, lon float64) (dzdlon, dzdlat float64, inside bool, err error) {
	err = s.withLock(func() error {
		t, ok, err := s.resolve(lat, lon)
		if err != nil || !ok {
			return err
		}
		dzdlon, dzdlat, inside, err = t.GradientIn(lat, lon)
		return err
	})
	if err != nil {
		return 0, 0, false, err
	}
	return dzdlon, dzdlat, inside, nil
}

// Gradient is the hard variant of GradientIn.
func (s *Stack) Gradient(lat, lon float64) (dzdlon, dzdlat float64, err error) {
	dzdlon, dzdlat, inside, err := s.GradientIn(lat, lon)
	if err != nil {
		return 0, 0, err
	}
	if !inside {
		return 0, 0, report(fmt.Errorf("in terrain.Stack.Gradient: %w: no tile covers (%g, %g)", ErrPath, lat, lon))
	}
	return dzdlon, dzdlat, nil
}

// Load ensures the tile covering (lat, lon) is loaded, reporting
// whether the point lies inside the indexed data. It is idempotent.
func (s *Stack) Load(lat, lon float64) (inside bool, err error) {
	err = s.withLock(func() error {
		_, inside, err = s.load(lat, lon)
		return err
	})
	return inside, err
}

// LoadRegion loads every indexed tile whose footprint intersects b
// (x=longitude, y=latitude, degrees), returning the number of tiles
// covered. Tiles beyond the cache limit are loaded and may evict each
// other; LoadRegion is useful for warming a cache at least as large as
// the region.
func (s *Stack) LoadRegion(b *geom.Bounds) (n int, err error) {
	err = s.withLock(func() error {
		for _, e := range s.footprints.SearchIntersect(b) {
			ext := e.(*tileExtent)
			lat := (ext.b.Min.Y + ext.b.Max.Y) / 2
			lon := (ext.b.Min.X + ext.b.Max.X) / 2
			_, inside, err := s.load(lat, lon)
			if err != nil {
				return err
			}
			if inside {
				n++
			}
		}
		return nil
	})
	return n, err
}

// Clear drops loaded tiles. With force, pinned tiles are dropped too;
// this is intended for teardown, after which any outstanding Clients
// must not be used. Without force only unpinned tiles are dropped.
func (s *Stack) Clear(force bool) error {
	return s.withLock(func() error {
		for i := s.tiles.len() - 1; i >= 0; i-- {
			if force || !s.tiles[i].Pinned() {
				s.tiles.removeAt(i)
			}
		}
		return nil
	})
}
