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

// Package xorfilter implements a peelable 3-hypergraph filter: an
// offline, build-once structure with no add, delete or merge. Three
// partitioned hash functions place each key into three table cells; a
// peeling pass finds an assignment order under which every key's
// fingerprint equals the XOR of its three cells, giving smaller tables
// than Bloom or Cuckoo for the same false-positive rate.
//
// Construction is a single Build call over the complete key set, which
// builds the table once. If peeling fails to fully reduce the
// hypergraph (too many colliding keys for the chosen overcapacity), the
// three partition seeds are redrawn and the attempt retried up to a
// bounded number of times.
package xorfilter

import (
	"math"

	"amq/amqerr"
	"amq/internal/hashutil"
	"amq/internal/xrand"
)

// maxBuildAttempts bounds the seed-redraw retry loop when peeling fails to
// fully reduce the hypergraph; without a cap, a pathological key set would
// retry forever instead of reporting ErrBuildFailed.
const maxBuildAttempts = 100

// Filter is an immutable Xor filter built from a finite key set.
type Filter struct {
	c    uint64 // table size
	f    uint   // fingerprint bits
	seed uint32 // partition seed used for h0/h1/h2 in the winning attempt
	t    []uint64
}

// partitions returns the three disjoint cell ranges [0,c/3), [c/3,2c/3),
// [2c/3,c) that h0, h1, h2 are reduced into.
func partitions(c uint64) (r0, r1, r2 uint64) {
	r0 = c / 3
	r1 = 2 * c / 3
	r2 = c
	return
}

func cellIndex(b []byte, seed uint32, lo, hi uint64) uint64 {
	h1, _ := hashutil.Pair(b, seed)
	return lo + h1%(hi-lo)
}

// hashes returns the three cell indices for raw key bytes under the
// given partition seed.
func hashes(raw []byte, seed uint32, c uint64) (h0, h1, h2 uint64) {
	r0, r1, r2 := partitions(c)
	h0 = cellIndex(raw, seed, 0, r0)
	h1 = cellIndex(raw, seed+1, r0, r1)
	h2 = cellIndex(raw, seed+2, r1, r2)
	return
}

func mask(f uint) uint64 {
	if f >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << f) - 1
}

type stackEntry struct {
	raw      []byte
	h0       uint64
	h1       uint64
	h2       uint64
	assigned uint64 // the cell that had degree 1 when this key was peeled
}

// tryBuild attempts one peeling pass with the given partition seed.
// Returns the peel order (innermost key peeled first, so the caller
// assigns in reverse) and whether every key was peeled.
func tryBuild(keys [][]byte, seed uint32, c uint64) ([]stackEntry, bool) {
	type cell struct {
		degree int
		xorIdx uint64 // XOR of the indices of all keys currently mapped here
	}
	cells := make([]cell, c)
	keyH := make([][3]uint64, len(keys))

	for ki, raw := range keys {
		h0, h1, h2 := hashes(raw, seed, c)
		keyH[ki] = [3]uint64{h0, h1, h2}
		cells[h0].degree++
		cells[h0].xorIdx ^= uint64(ki)
		cells[h1].degree++
		cells[h1].xorIdx ^= uint64(ki)
		cells[h2].degree++
		cells[h2].xorIdx ^= uint64(ki)
	}

	queue := make([]uint64, 0, c)
	for idx := range cells {
		if cells[idx].degree == 1 {
			queue = append(queue, uint64(idx))
		}
	}

	peeled := make([]bool, len(keys))
	stack := make([]stackEntry, 0, len(keys))

	for len(queue) > 0 {
		idx := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if cells[idx].degree != 1 {
			continue
		}
		ki := cells[idx].xorIdx
		if peeled[ki] {
			continue
		}
		peeled[ki] = true
		h := keyH[ki]
		stack = append(stack, stackEntry{raw: keys[ki], h0: h[0], h1: h[1], h2: h[2], assigned: idx})

		for _, cidx := range h {
			cells[cidx].degree--
			cells[cidx].xorIdx ^= ki
			if cells[cidx].degree == 1 {
				queue = append(queue, cidx)
			}
		}
	}

	return stack, len(stack) == len(keys)
}

// Build constructs a Filter over keys at the given false-positive rate
// epsilon. keys must value-distinguish: duplicate byte sequences are
// rejected (the hypergraph cannot peel a key hashed against itself
// twice). Requires 0 < epsilon < 1.
func Build(keys [][]byte, epsilon float64) (*Filter, error) {
	if epsilon <= 0 || epsilon >= 1 || len(keys) == 0 {
		return nil, amqerr.ErrInvalidParams
	}

	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[string(k)]; dup {
			return nil, amqerr.ErrBuildFailed
		}
		seen[string(k)] = struct{}{}
	}

	c := uint64(1.23*float64(len(keys))) + 32
	fBits := uint(math.Ceil(-math.Log2(epsilon))) + 1
	if fBits < 1 {
		fBits = 1
	}
	if fBits > 64 {
		fBits = 64
	}

	rng := xrand.New()
	var stack []stackEntry
	var seed uint32
	ok := false
	for attempt := 0; attempt < maxBuildAttempts; attempt++ {
		seed = (hashutil.SeedXorBase + rng.Uint32()) % (1 << 31)
		stack, ok = tryBuild(keys, seed, c)
		if ok {
			break
		}
	}
	if !ok {
		return nil, amqerr.ErrBuildFailed
	}

	m := mask(fBits)
	t := make([]uint64, c)
	for i := len(stack) - 1; i >= 0; i-- {
		e := stack[i]
		fp := hashutil.Fingerprint(e.raw, fBits, false)
		t[e.assigned] = (fp ^ t[e.h0] ^ t[e.h1] ^ t[e.h2]) & m
	}

	return &Filter{c: c, f: fBits, seed: seed, t: t}, nil
}

// Contains reports whether key's fingerprint matches the XOR of its
// three table cells. A false return is certain for any key in the
// original build set; a true return for a key outside it is a false
// positive bounded by epsilon.
func (f *Filter) Contains(key any) (bool, error) {
	raw, err := hashutil.Bytes(key)
	if err != nil {
		return false, err
	}
	h0, h1, h2 := hashes(raw, f.seed, f.c)
	fp := hashutil.Fingerprint(raw, f.f, false)
	return fp == (f.t[h0]^f.t[h1]^f.t[h2]), nil
}

// Len returns the table's cell count c.
func (f *Filter) Len() uint64 { return f.c }

// FingerprintBits returns the derived fingerprint width f.
func (f *Filter) FingerprintBits() uint { return f.f }
