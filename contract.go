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

package amq

import (
	"amq/bloom"
	"amq/cuckoo"
	"amq/vacuum"
	"amq/xorfilter"
)

// Filter is the capability every engine shares: a possibly-probabilistic
// membership test. A false return is always certain; a true return may
// be a false positive bounded by the filter's configured error rate.
type Filter interface {
	Contains(key any) (bool, error)
}

// MutableFilter additionally supports insertion.
type MutableFilter interface {
	Filter
	Add(key any) error
}

// DeletableFilter additionally supports removing a previously inserted
// key. Deleting a key that was never inserted may remove a colliding
// item instead; that is the caller's responsibility.
type DeletableFilter interface {
	MutableFilter
	Delete(key any) (bool, error)
}

// NewBloom constructs a Bloom filter for capacity n and false-positive
// rate epsilon. The concrete *bloom.Filter also exposes Union/Intersect,
// which this narrower interface does not surface.
func NewBloom(n uint64, epsilon float64) (MutableFilter, error) {
	return bloom.New(n, epsilon)
}

// NewCuckoo constructs a Cuckoo filter for capacity n and false-positive
// rate epsilon, with the defaulted bucket_size=4 and
// max_displacements=500 unless overridden via opts.
func NewCuckoo(n uint64, epsilon float64, opts ...cuckoo.Option) (DeletableFilter, error) {
	return cuckoo.New(n, epsilon, opts...)
}

// NewVacuum constructs a Vacuum filter for capacity n and false-positive
// rate epsilon, with the defaulted bucket_size=4 and
// max_displacements=500 unless overridden via opts.
func NewVacuum(n uint64, epsilon float64, opts ...vacuum.Option) (DeletableFilter, error) {
	return vacuum.New(n, epsilon, opts...)
}

// NewXor builds an immutable Xor filter from a finite key set at the
// given false-positive rate. Xor supports no Add, Delete or merge: the
// returned value satisfies only Filter.
func NewXor(keys [][]byte, epsilon float64) (Filter, error) {
	return xorfilter.Build(keys, epsilon)
}
