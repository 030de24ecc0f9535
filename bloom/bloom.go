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

// Package bloom implements a classic k-probe Bloom filter: insert-only,
// no deletion, with union and (conservative) intersection of
// parameter-compatible filters.
package bloom

import (
	"math"

	"amq/amqerr"
	"amq/internal/bitset"
	"amq/internal/hashutil"
)

// Filter is a Bloom filter over an m-bit array queried with k probes.
type Filter struct {
	m    uint64
	k    uint64
	bits *bitset.Set
}

// New derives (m, k) from the target capacity n and false-positive rate
// epsilon: m = ceil(-n*ln(epsilon) / ln(2)^2), k = ceil((m/n)*ln(2)).
// Requires n > 0 and 0 < epsilon < 1.
func New(n uint64, epsilon float64) (*Filter, error) {
	if n == 0 || epsilon <= 0 || epsilon >= 1 {
		return nil, amqerr.ErrInvalidParams
	}
	fn := float64(n)
	m := uint64(math.Ceil(-fn * math.Log(epsilon) / (math.Ln2 * math.Ln2)))
	if m < 1 {
		m = 1
	}
	k := uint64(math.Ceil((float64(m) / fn) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return &Filter{m: m, k: k, bits: bitset.New(m)}, nil
}

// M returns the bit-array size.
func (f *Filter) M() uint64 { return f.m }

// K returns the probe count.
func (f *Filter) K() uint64 { return f.k }

// probes returns the two double-hashing bases for key.
func (f *Filter) probes(key any) (a, b uint64, err error) {
	raw, err := hashutil.Bytes(key)
	if err != nil {
		return 0, 0, err
	}
	a, b = hashutil.Pair(raw, hashutil.SeedFingerprint)
	return a, b, nil
}

// Add sets the k probe bits for key. Insertion never fails once the key
// hashes successfully; the only error is an unhashable key type.
func (f *Filter) Add(key any) error {
	a, b, err := f.probes(key)
	if err != nil {
		return err
	}
	for i := uint64(1); i <= f.k; i++ {
		f.bits.Set(hashutil.Probe(a, b, i, f.m))
	}
	return nil
}

// Contains reports whether all k probe bits for key are set. A false
// return is certain; a true return may be a false positive.
func (f *Filter) Contains(key any) (bool, error) {
	a, b, err := f.probes(key)
	if err != nil {
		return false, err
	}
	for i := uint64(1); i <= f.k; i++ {
		if !f.bits.IsSet(hashutil.Probe(a, b, i, f.m)) {
			return false, nil
		}
	}
	return true, nil
}

// compatible reports whether f and other share (m, k) and can be merged.
func (f *Filter) compatible(other *Filter) bool {
	return f.m == other.m && f.k == other.k
}

// Union ORs other's bits into f in place. Upper-bounds the false-positive
// rate of the true set union. Requires matching (m, k).
func (f *Filter) Union(other *Filter) error {
	if !f.compatible(other) {
		return amqerr.ErrIncompatible
	}
	f.bits.Or(other.bits)
	return nil
}

// Intersect ANDs other's bits into f in place. This is a conservative
// overestimate of the true set intersection, not the intersection
// itself: false positives in either input can survive the AND. Requires
// matching (m, k).
func (f *Filter) Intersect(other *Filter) error {
	if !f.compatible(other) {
		return amqerr.ErrIncompatible
	}
	f.bits.And(other.bits)
	return nil
}
