// Copyright (c) 2014 Utkan Güngördü <utkan@freeconsole.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package amqerr collects the categorical error values shared by every
// engine in this module. Errors are never wrapped with extra context by
// the engines themselves; callers compare with errors.Is.
package amqerr

import "errors"

var (
	// ErrInvalidParams is returned when a constructor receives a
	// capacity n <= 0 or an error rate epsilon outside (0, 1).
	ErrInvalidParams = errors.New("amq: invalid capacity or error rate")

	// ErrUnhashableKey is returned when a key is neither a byte
	// sequence, a string, nor a fixed-width integer type.
	ErrUnhashableKey = errors.New("amq: key type cannot be hashed")

	// ErrFull is returned by Cuckoo/Vacuum Add when a displacement
	// cascade exceeds max_displacements. The filter's size is left
	// unchanged; the fingerprint displaced last in the cascade is lost,
	// and it may belong to a previously inserted key.
	ErrFull = errors.New("amq: filter is full, displacement cascade did not terminate")

	// ErrIncompatible is returned when Bloom filters with mismatched
	// (m, k) parameters are merged.
	ErrIncompatible = errors.New("amq: bloom filters are not merge-compatible")

	// ErrBuildFailed is returned when Xor construction exhausts its
	// peeling retry budget.
	ErrBuildFailed = errors.New("amq: xor filter construction did not converge")
)
