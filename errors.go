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

import "errors"

// These are the error kinds that can be returned by this package.
// Returned errors wrap one of them, so callers can classify failures
// with errors.Is.
var (
	// ErrBadAddress indicates a missing or inconsistent required handle,
	// such as a lock callback supplied without its unlock counterpart.
	ErrBadAddress = errors.New("terrain: bad address")

	// ErrBadExtension indicates a file with no registered grid reader.
	ErrBadExtension = errors.New("terrain: unrecognized file extension")

	// ErrBadFormat indicates a malformed or inconsistent grid file.
	ErrBadFormat = errors.New("terrain: bad file format")

	// ErrPath indicates an I/O failure or a lookup miss treated as a
	// hard failure.
	ErrPath = errors.New("terrain: path error")

	// ErrDomain indicates a query outside the declared bounds of a
	// grid, tile, or layer stack.
	ErrDomain = errors.New("terrain: query outside domain")

	// ErrMemory indicates an allocation failure. It is part of the
	// error taxonomy for completeness; the Go runtime aborts on
	// allocation failure so this package never returns it itself.
	ErrMemory = errors.New("terrain: allocation failed")

	// ErrLock and ErrUnlock indicate a failed lock or unlock callback.
	ErrLock   = errors.New("terrain: lock failed")
	ErrUnlock = errors.New("terrain: unlock failed")
)

// errorHandler, if set, is additionally invoked for every error
// surfaced at the public API boundary.
var errorHandler func(error)

// SetErrorHandler installs a process-wide callback that is invoked,
// in addition to the normal error return, for every error surfaced by
// this package. It is intended for side-channel logging or aborting.
// A nil handler disables the callback.
func SetErrorHandler(h func(error)) { errorHandler = h }

// report passes err through the installed error handler, if any,
// and returns it unchanged.
func report(err error) error {
	if err != nil && errorHandler != nil {
		errorHandler(err)
	}
	return err
}
