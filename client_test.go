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
	"sync"
	"testing"
)

// countingStack wraps a directory in a stack whose lock pair counts
// acquisitions.
func countingStack(t *testing.T, dir string, maxSize int) (*Stack, *int) {
	t.Helper()
	var mx sync.Mutex
	locks := new(int)
	s, err := NewStack(dir, maxSize,
		func() error { mx.Lock(); *locks++; return nil },
		func() error { mx.Unlock(); return nil })
	if err != nil {
		t.Fatal(err)
	}
	return s, locks
}

func TestClientRequiresLock(t *testing.T) {
	s, err := NewStack(quadrantDir(t), 2, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewClient(s); !errors.Is(err, ErrBadAddress) {
		t.Errorf("client on an unlocked stack: err = %v, want ErrBadAddress", err)
	}
}

func TestClientFastPath(t *testing.T) {
	s, locks := countingStack(t, quadrantDir(t), 4)
	c, err := NewClient(s)
	if err != nil {
		t.Fatal(err)
	}

	z, err := c.Elevation(45.5, 3.5)
	if err != nil {
		t.Fatal(err)
	}
	if z != 10 {
		t.Errorf("Elevation = %g, want 10", z)
	}
	if *locks != 1 {
		t.Fatalf("first query took %d lock acquisitions, want 1", *locks)
	}

	// Repeated queries against the pinned tile take no locks.
	for _, p := range [][2]float64{{45.5, 3.5}, {45.1, 3.9}, {45.5, 3.5}} {
		if z, err = c.Elevation(p[0], p[1]); err != nil || z != 10 {
			t.Fatalf("Elevation(%g, %g) = %g, %v; want 10, nil", p[0], p[1], z, err)
		}
	}
	if *locks != 1 {
		t.Errorf("pinned-tile queries took %d lock acquisitions, want 1", *locks)
	}

	// A different tile takes the lock once, then is itself pinned.
	if z, err = c.Elevation(46.5, 3.5); err != nil || z != 30 {
		t.Fatalf("Elevation = %g, %v; want 30, nil", z, err)
	}
	if *locks != 2 {
		t.Errorf("switching tiles took %d lock acquisitions, want 2", *locks)
	}
	if z, err = c.Elevation(46.5, 3.5); err != nil || z != 30 {
		t.Fatal(err)
	}
	if *locks != 2 {
		t.Errorf("re-query took %d lock acquisitions, want 2", *locks)
	}

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
}

func TestClientNegativeCache(t *testing.T) {
	s, locks := countingStack(t, quadrantDir(t), 4)
	c, err := NewClient(s)
	if err != nil {
		t.Fatal(err)
	}

	// A miss records the empty integer-degree cell.
	if _, inside, err := c.ElevationIn(44.5, 3.5); err != nil || inside {
		t.Fatalf("miss = inside %v, err %v; want false, nil", inside, err)
	}
	if *locks != 1 {
		t.Fatalf("first miss took %d lock acquisitions, want 1", *locks)
	}
	// Further queries in the same cell take no locks.
	if _, inside, err := c.ElevationIn(44.9, 3.1); err != nil || inside {
		t.Fatalf("repeat miss = inside %v, err %v; want false, nil", inside, err)
	}
	if *locks != 1 {
		t.Errorf("repeat miss took %d lock acquisitions, want 1", *locks)
	}
	// A miss in a different cell takes the lock again.
	if _, inside, err := c.ElevationIn(44.5, 4.5); err != nil || inside {
		t.Fatal("expected a miss")
	}
	if *locks != 2 {
		t.Errorf("miss in a new cell took %d lock acquisitions, want 2", *locks)
	}

	// A hit invalidates the negative cache.
	if z, err := c.Elevation(45.5, 3.5); err != nil || z != 10 {
		t.Fatalf("Elevation = %g, %v; want 10, nil", z, err)
	}
	if _, inside, err := c.ElevationIn(44.5, 4.5); err != nil || inside {
		t.Fatal("expected a miss")
	}
	if *locks != 4 {
		t.Errorf("locks = %d, want 4", *locks)
	}
}

func TestClientPinning(t *testing.T) {
	s, err := NewLockedStack(quadrantDir(t), 1)
	if err != nil {
		t.Fatal(err)
	}
	c1, err := NewClient(s)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := NewClient(s)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c1.Elevation(45.5, 3.5); err != nil {
		t.Fatal(err)
	}
	// c1's tile is pinned, so loading a second tile cannot evict it
	// even though the cache limit is 1.
	if _, err := c2.Elevation(46.5, 3.5); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d with a pinned tile over the limit, want 2", s.Len())
	}
	// Releasing the pin lets the over-limit tile go.
	if err := c1.Clear(); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after releasing the pin, want 1", s.Len())
	}
	if err := c2.Clear(); err != nil {
		t.Fatal(err)
	}
}

func TestClientsAgree(t *testing.T) {
	s, err := NewLockedStack(quadrantDir(t), 2)
	if err != nil {
		t.Fatal(err)
	}
	c1, err := NewClient(s)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := NewClient(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range [][2]float64{{45.5, 3.5}, {46.2, 4.8}, {45.9, 3.1}} {
		z1, err := c1.Elevation(p[0], p[1])
		if err != nil {
			t.Fatal(err)
		}
		z2, err := c2.Elevation(p[0], p[1])
		if err != nil {
			t.Fatal(err)
		}
		if z1 != z2 {
			t.Errorf("clients disagree at (%g, %g): %g != %g", p[0], p[1], z1, z2)
		}
	}
}

func TestClientConcurrent(t *testing.T) {
	s, err := NewLockedStack(quadrantDir(t), 2)
	if err != nil {
		t.Fatal(err)
	}
	points := [][3]float64{
		{45.5, 3.5, 10}, {45.5, 4.5, 20}, {46.5, 3.5, 30}, {46.5, 4.5, 40},
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := NewClient(s)
			if err != nil {
				t.Error(err)
				return
			}
			defer c.Clear()
			for j := 0; j < 100; j++ {
				p := points[(i+j)%len(points)]
				z, err := c.Elevation(p[0], p[1])
				if err != nil {
					t.Error(err)
					return
				}
				if z != p[2] {
					t.Errorf("Elevation(%g, %g) = %g, want %g", p[0], p[1], z, p[2])
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
