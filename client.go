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
)

// Client is a lightweight per-goroutine handle into a shared Stack.
// It keeps one tile pinned and a note of the last known empty cell so
// that repeated queries in the same area need no locking at all: a
// pinned tile can never be evicted by another goroutine (eviction
// checks the pin count under the stack's lock), so reading it without
// the lock is safe, and a cell known to be empty stays empty because
// the directory index is immutable.
//
// A Client must only be used from one goroutine at a time.
type Client struct {
	stack *Stack

	// current is the pinned fast-path tile, or nil.
	current *Tile

	// negLat, negLon identify the last integer-degree cell that was
	// found to have no data.
	negLat, negLon int
	negValid       bool
}

// NewClient creates a client for s. Clients exist specifically to make
// a locked stack cheap to query concurrently, so s must have a lock
// pair.
func NewClient(s *Stack) (*Client, error) {
	if s == nil || s.lock == nil {
		return nil, report(fmt.Errorf("in terrain.NewClient: %w: client requires a stack with a lock pair", ErrBadAddress))
	}
	return &Client{stack: s}, nil
}

// ElevationIn interpolates the ground elevation at geodetic
// (lat, lon), reporting inside=false without error when no tile
// covers the point.
func (c *Client) ElevationIn(lat, lon float64) (z float64, inside bool, err error) {
	t, err := c.resolve(lat, lon)
	if err != nil || t == nil {
		return 0, false, err
	}
	return t.ElevationIn(lat, lon)
}

// Elevation is the hard variant of ElevationIn: a miss is an error.
func (c *Client) Elevation(lat, lon float64) (float64, error) {
	z, inside, err := c.ElevationIn(lat, lon)
	if err != nil {
		return 0, err
	}
	if !inside {
		return 0, report(fmt.Errorf("in terrain.Client.Elevation: %w: no tile covers (%g, %g)", ErrPath, lat, lon))
	}
	return z, nil
}

// resolve returns a pinned tile covering (lat, lon), or nil if no
// tile covers the point. Only the slow path takes the stack's lock.
func (c *Client) resolve(lat, lon float64) (*Tile, error) {
	// Fast path: the pinned tile covers the point.
	if c.current != nil && c.current.contains(lat, lon) {
		return c.current, nil
	}
	// Fast path: the point falls in a cell already known to be empty.
	if c.negValid && int(math.Floor(lat)) == c.negLat && int(math.Floor(lon)) == c.negLon {
		return nil, nil
	}

	if err := c.stack.acquire(); err != nil {
		return nil, err
	}
	released := c.current
	if released != nil {
		c.current = nil
		c.stack.unpin(released)
	}
	var hit *Tile
	for i := 0; i < c.stack.tiles.len(); i++ {
		t := c.stack.tiles[i]
		if t == released {
			continue
		}
		if t.contains(lat, lon) {
			c.stack.tiles.touch(i)
			hit = t
			break
		}
	}
	var loadErr error
	if hit == nil {
		t, inside, err := c.stack.load(lat, lon)
		if err != nil {
			loadErr = err
		} else if inside {
			hit = t
		}
	}
	if hit != nil {
		c.stack.pin(hit)
		c.current = hit
		c.negValid = false
	} else if loadErr == nil {
		c.negLat, c.negLon = int(math.Floor(lat)), int(math.Floor(lon))
		c.negValid = true
	}
	if err := c.stack.release(); err != nil {
		// The pin bookkeeping above is already consistent; surface the
		// unlock failure unless the load itself failed first.
		if loadErr == nil {
			return nil, err
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}
	return hit, nil
}

// Clear releases the client's pinned tile, if any. It must be called
// before discarding the client, and may be used to force the next
// query to re-resolve its tile.
func (c *Client) Clear() error {
	if c.current == nil {
		return nil
	}
	return c.stack.withLock(func() error {
		c.stack.unpin(c.current)
		c.current = nil
		return nil
	})
}
