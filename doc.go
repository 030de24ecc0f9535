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

// Package amq is a library of Approximate Membership Query structures:
// Bloom, Cuckoo, Vacuum and Xor filters behind one capability contract.
// Each engine lives in its own subpackage (amq/bloom, amq/cuckoo,
// amq/vacuum, amq/xorfilter); this package is the common dispatch
// surface: one constructor per engine, each returning the engine behind
// the narrowest capability interface it supports (Filter, MutableFilter
// or DeletableFilter).
//
// None of the four engines is safe for concurrent mutation: Contains may
// run in parallel on an unchanging filter, but Add, Delete, Union and
// Intersect all require the caller to hold exclusive access.
package amq
