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

// Package vacuum implements the Vacuum filter, a cuckoo-hashing variant
// tuned for higher achievable load factor: an arbitrary (non-power-of-two)
// bucket count, a four-entry alternate-range table governing how far the
// alternate bucket can be from the primary one, and a local-search
// relocation step tried before falling back to random-walk eviction.
//
// Insert/contains/delete share their bucket/hash/rng plumbing with
// package cuckoo; they differ in bucket-count and fingerprint-width
// derivation, the alternate-index function, and the local-search step in
// Add.
package vacuum

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
	// smallTableThreshold is the size below which the small-table
	// alternate-index rule is used instead of the range-table rule.
	smallTableThreshold = 1 << 18
	// alpha is the load-factor admission test's target utilization.
	alpha = 0.95
	// safetyCoefficient is the 1.5 term in the chunk-imbalance margin.
	safetyCoefficient = 1.5
	// admissionCeiling is the 3.88*alpha bound the load-factor test must
	// stay under.
	admissionCeiling = 3.88
)

// Filter is a Vacuum filter.
type Filter struct {
	numBuckets       uint64
	bucketSize       int
	fingerprintBits  uint
	buckets          []*bucket.Bucket
	size             int
	maxDisplacements int
	alternateRanges  [4]uint64
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
// reproducible eviction behavior across runs. The local-search step draws
// no random numbers.
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

// loadFactorTest divides n keys across c = ceil(n/(4*alpha*L)) chunks,
// each of capacity 4*alpha*L, and checks that the expected maximum chunk
// load plus a 1.5*sqrt(...) safety term stays below 3.88*alpha. The
// inserted-items-per-chunk figure driving the safety term is taken as
// num_inserted_items/num_chunks.
func loadFactorTest(n uint64, a float64, l uint64) bool {
	chunkCapacity := 4 * alpha * float64(l)
	numChunks := math.Ceil(float64(n) / chunkCapacity)
	if numChunks < 1 {
		numChunks = 1
	}
	insertedPerChunk := float64(n) / numChunks
	margin := safetyCoefficient * math.Sqrt(insertedPerChunk)
	return (insertedPerChunk+margin)/chunkCapacity < admissionCeiling*a
}

// deriveAlternateRanges computes L0..L3: for each group g in {0,1,2,3},
// the smallest power-of-two L for which loadFactorTest(0.95, 1-g/4, L)
// holds. The last entry is doubled for extra slack on the heaviest group.
func deriveAlternateRanges(n uint64) [4]uint64 {
	var ranges [4]uint64
	for g := 0; g < 4; g++ {
		r := 1 - float64(g)/4
		l := uint64(1)
		for !loadFactorTest(n, r, l) {
			l <<= 1
			if l > n+1 {
				break
			}
		}
		ranges[g] = l
	}
	ranges[3] *= 2
	return ranges
}

// New derives (num_buckets, fingerprint_bits, alternate_ranges) from the
// target capacity n and false-positive rate epsilon:
// num_buckets = ceil(n/B) (not rounded to a power of two),
// fingerprint_bits = ceil(log2(B) + log2(1/epsilon) + 1).
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

	numBuckets := (n + uint64(c.bucketSize) - 1) / uint64(c.bucketSize)
	if numBuckets < 1 {
		numBuckets = 1
	}
	fpBits := uint(math.Ceil(math.Log2(float64(c.bucketSize)) + math.Log2(1/epsilon) + 1))
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
		alternateRanges:  deriveAlternateRanges(n),
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

// alternate computes the Vacuum alternate-bucket index via a reflection
// about delta: g(i) = (m-1-((i-delta+m)%m)+delta) % m, which is its own
// inverse for any delta since g's output depends only on delta mod m.
// Below smallTableThreshold inserted items, delta is drawn from the full
// table width, so the alternate bucket can lie anywhere in the table;
// above that threshold delta is drawn from the group's
// power-of-two range so the alternate bucket stays within a bounded
// distance of the primary one. Using the same reflection for both
// regimes (rather than XORing delta into i directly) keeps the result in
// [0, m) even when the range exceeds m, which num_buckets not being a
// power of two otherwise allows.
func (f *Filter) alternate(i uint64, fp uint64) uint64 {
	m := f.numBuckets
	hfp := hashutil.FingerprintIndex(fp, m)
	var delta uint64
	if f.size < smallTableThreshold {
		delta = hfp % m
	} else {
		delta = hfp % f.alternateRanges[fp%4]
	}
	// delta can exceed m in the large-table regime (alternateRanges is a
	// power of two that need not divide m); reduce it mod m first so the
	// subtraction below can't underflow past what +m restores.
	delta %= m
	return (m - 1 - ((i - delta + m) % m) + delta) % m
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

// relocationCandidate scans every occupied slot of the bucket at idx, in
// slot order, for a fingerprint whose own alternate bucket still has
// room, so the local-search step can move that element instead of a
// uniformly random one. Returns the candidate's value and whether one
// was found.
func (f *Filter) relocationCandidate(idx uint64) (uint64, bool) {
	b := f.buckets[idx]
	for _, fp := range b.Peek() {
		alt := f.alternate(idx, fp)
		if !f.buckets[alt].Full() {
			return fp, true
		}
	}
	return 0, false
}

// Add inserts key, trying a local-search relocation before falling back
// to random-walk eviction. Returns amqerr.ErrFull if neither terminates
// within max_displacements.
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
		var victim uint64
		if candidate, ok := f.relocationCandidate(idx); ok {
			f.buckets[idx].Delete(candidate)
			f.buckets[idx].Insert(fp)
			victim = candidate
			idx = f.alternate(idx, candidate)
		} else {
			victim = f.buckets[idx].Swap(fp, f.rng.Intn)
			idx = f.alternate(idx, victim)
		}
		fp = victim
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

// Delete removes the first occurrence of key's fingerprint.
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
