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

// Package cuckoo implements partial-key cuckoo hashing: a bucketized
// fingerprint filter with random-walk eviction on collision. Unlike a
// classic Bloom filter, Cuckoo supports deletion; unlike a hash map, it
// stores only a fingerprint of each key, never the key itself.
//
// This implementation's insert/evict loop is adapted from a bucketized
// cuckoo hash map's random-walk displacement strategy, re-keyed from
// full key/value pairs to bare fingerprints per the filter variant of
// the algorithm.
package cuckoo

import (
	"math"

	"amq/amqerr"
	"amq/bucket"
	"amq/internal/hashutil"
	"amq/internal/xrand"
)

const (
	// DefaultBucketSize is B, the number of fingerprint slots per bucket.
	DefaultBucketSize = 4
	// DefaultMaxDisplacements bounds the random-walk eviction cascade.
	DefaultMaxDisplacements = 500
)

// Filter is a partial-key cuckoo filter.
type Filter struct {
	numBuckets       uint64
	bucketSize       int
	fingerprintBits  uint
	buckets          []*bucket.Bucket
	size             int
	maxDisplacements int
	rng              *xrand.Rand
}

// Option configures a Filter at construction time.
type Option func(*config)

type config struct {
	bucketSize       int
	maxDisplacements int
	seed             uint32
	hasSeed          bool
}

// WithBucketSize overrides the default bucket capacity B.
func WithBucketSize(b int) Option {
	return func(c *config) { c.bucketSize = b }
}

// WithMaxDisplacements overrides the default eviction cascade bound.
func WithMaxDisplacements(m int) Option {
	return func(c *config) { c.maxDisplacements = m }
}

// WithSeed fixes the PRNG seed used for victim selection, for
// reproducible eviction behavior across runs.
func WithSeed(seed uint32) Option {
	return func(c *config) { c.seed = seed; c.hasSeed = true }
}

func nextPow2(v uint64) uint64 {
	if v <= 1 {
		return 1
	}
	p := uint64(1)
	for p < v {
		p <<= 1
	}
	return p
}

// New derives (num_buckets, fingerprint_bits) from the target capacity n
// and false-positive rate epsilon:
// num_buckets = next_pow2(ceil(n/B)), fingerprint_bits =
// ceil(log2(1/epsilon) + log2(2B)). Requires n > 0, 0 < epsilon < 1.
func New(n uint64, epsilon float64, opts ...Option) (*Filter, error) {
	if n == 0 || epsilon <= 0 || epsilon >= 1 {
		return nil, amqerr.ErrInvalidParams
	}

	c := config{bucketSize: DefaultBucketSize, maxDisplacements: DefaultMaxDisplacements}
	for _, opt := range opts {
		opt(&c)
	}
	if c.bucketSize <= 0 {
		return nil, amqerr.ErrInvalidParams
	}

	numBuckets := nextPow2((n + uint64(c.bucketSize) - 1) / uint64(c.bucketSize))
	fpBits := uint(math.Ceil(math.Log2(1/epsilon) + math.Log2(2*float64(c.bucketSize))))
	if fpBits < 1 {
		fpBits = 1
	}
	if fpBits > 64 {
		fpBits = 64
	}

	buckets := make([]*bucket.Bucket, numBuckets)
	for i := range buckets {
		buckets[i] = bucket.New(c.bucketSize)
	}

	var rng *xrand.Rand
	if c.hasSeed {
		rng = xrand.NewSeeded(c.seed)
	} else {
		rng = xrand.New()
	}

	return &Filter{
		numBuckets:       numBuckets,
		bucketSize:       c.bucketSize,
		fingerprintBits:  fpBits,
		buckets:          buckets,
		maxDisplacements: c.maxDisplacements,
		rng:              rng,
	}, nil
}

// Len returns the number of successfully inserted fingerprints.
func (f *Filter) Len() int { return f.size }

// LoadFactor returns the ratio of occupied slots to total slots.
func (f *Filter) LoadFactor() float64 {
	return float64(f.size) / float64(f.numBuckets*uint64(f.bucketSize))
}

// FingerprintBits returns the derived fingerprint width.
func (f *Filter) FingerprintBits() uint { return f.fingerprintBits }

// alternate computes the partial-key alternate bucket index: i XOR
// bucket_index(fp, num_buckets). Applying the same transform to (i2, fp)
// recovers i, since XOR with a power-of-two modulus is an involution.
func (f *Filter) alternate(i uint64, fp uint64) uint64 {
	return i ^ hashutil.FingerprintIndex(fp, f.numBuckets)
}

func (f *Filter) locate(key any) (fp uint64, i1, i2 uint64, err error) {
	raw, err := hashutil.Bytes(key)
	if err != nil {
		return 0, 0, 0, err
	}
	fp = hashutil.Fingerprint(raw, f.fingerprintBits, true)
	i1 = hashutil.BucketIndex(raw, f.numBuckets)
	i2 = f.alternate(i1, fp)
	return fp, i1, i2, nil
}

// Add inserts key. Returns amqerr.ErrFull if the eviction cascade does
// not terminate within max_displacements. In that case the key's own
// fingerprint stays in the table, the fingerprint displaced last in the
// cascade (which may belong to a previously inserted key) is lost, and
// the filter's size is unchanged.
func (f *Filter) Add(key any) error {
	fp, i1, i2, err := f.locate(key)
	if err != nil {
		return err
	}

	if f.buckets[i1].Insert(fp) {
		f.size++
		return nil
	}
	if f.buckets[i2].Insert(fp) {
		f.size++
		return nil
	}

	idx := i1
	if f.rng.Intn(2) == 1 {
		idx = i2
	}

	for step := 0; step < f.maxDisplacements; step++ {
		victim := f.buckets[idx].Swap(fp, f.rng.Intn)
		fp = victim
		idx = f.alternate(idx, fp)
		if f.buckets[idx].Insert(fp) {
			f.size++
			return nil
		}
	}

	return amqerr.ErrFull
}

// Contains reports whether key's fingerprint is present in either of its
// two candidate buckets.
func (f *Filter) Contains(key any) (bool, error) {
	fp, i1, i2, err := f.locate(key)
	if err != nil {
		return false, err
	}
	return f.buckets[i1].Contains(fp) || f.buckets[i2].Contains(fp), nil
}

// Delete removes the first occurrence of key's fingerprint. Deleting a
// key that was never inserted may erroneously remove a colliding item;
// that is the caller's responsibility.
func (f *Filter) Delete(key any) (bool, error) {
	fp, i1, i2, err := f.locate(key)
	if err != nil {
		return false, err
	}
	if f.buckets[i1].Delete(fp) {
		f.size--
		return true, nil
	}
	if f.buckets[i2].Delete(fp) {
		f.size--
		return true, nil
	}
	return false, nil
}
