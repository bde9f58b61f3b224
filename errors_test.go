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
	"testing"
)

func TestErrorHandler(t *testing.T) {
	var seen []error
	SetErrorHandler(func(err error) { seen = append(seen, err) })
	defer SetErrorHandler(nil)

	g, err := NewGrid(2, 2, 0, 0, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Elevation(5, 5); err == nil {
		t.Fatal("expected an error")
	}
	if len(seen) != 1 || !errors.Is(seen[0], ErrDomain) {
		t.Errorf("handler saw %v, want one ErrDomain", seen)
	}

	// Successful queries do not invoke the handler.
	if _, err := g.Elevation(0.5, 0.5); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 {
		t.Errorf("handler saw %d errors after a successful query, want 1", len(seen))
	}
}
