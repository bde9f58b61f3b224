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

// Package terrain provides on-demand access to gridded elevation data.
//
// A Stack is a bounded in-memory cache of elevation tiles discovered
// from a directory index and loaded lazily. A Client is a lightweight
// per-caller handle that makes a locked Stack safe and cheap to query
// from many goroutines. A Stepper composes several elevation providers
// (flat planes, Stacks, Clients, standalone tiles) and marches a point
// through them in Earth-centered coordinates, localizing crossings
// between media by bisection.
package terrain
