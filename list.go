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

import "fmt"

// tileList is a list of loaded tiles ordered by recency of use.
// The head (index 0) is the most recently used tile.
type tileList []*Tile

func (l *tileList) len() int {
	return len(*l)
}

// head returns the most recently used tile, or nil if the list is
// empty.
func (l *tileList) head() *Tile {
	if len(*l) == 0 {
		return nil
	}
	return (*l)[0]
}

// pushFront inserts t at the head of the list.
func (l *tileList) pushFront(t *Tile) {
	*l = append(*l, nil)
	copy((*l)[1:], *l)
	(*l)[0] = t
}

// touch moves the tile at index i to the head of the list. Touching
// the head is a no-op.
func (l *tileList) touch(i int) {
	if i == 0 {
		return
	}
	t := (*l)[i]
	copy((*l)[1:i+1], (*l)[:i])
	(*l)[0] = t
}

// removeAt deletes and returns the tile at index i.
func (l *tileList) removeAt(i int) *Tile {
	t := (*l)[i]
	copy((*l)[i:], (*l)[i+1:])
	(*l)[len(*l)-1] = nil
	*l = (*l)[:len(*l)-1]
	return t
}

// index returns the index of t and whether it was found.
func (l *tileList) index(t *Tile) (int, bool) {
	for i, tt := range *l {
		if tt == t {
			return i, true
		}
	}
	return -1, false
}

// array returns the tiles in list order, head first.
func (l *tileList) array() []*Tile {
	o := make([]*Tile, len(*l))
	copy(o, *l)
	return o
}

func (l *tileList) String() string {
	s := ""
	for i, t := range *l {
		if i != 0 {
			s += "\n"
		}
		s += fmt.Sprintf("%d: %s", i, t.path)
	}
	return s
}
