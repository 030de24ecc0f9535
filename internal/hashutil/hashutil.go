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

// Package hashutil is the hash abstraction shared by every engine: it
// turns an opaque key into bytes and derives seeded 64-bit hashes,
// fingerprints and bucket indices from those bytes via MurmurHash3.
package hashutil

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"

	"amq/amqerr"
)

// Seed palette. SeedFingerprint and SeedBucket are fixed so that two
// filters built with the same parameters derive identical layouts.
// Xor draws its own per-attempt seeds starting from SeedXorBase.
const (
	SeedFingerprint uint32 = 42
	SeedBucket      uint32 = 97
	SeedXorBase     uint32 = 0x5a17
)

// Bytes converts a key into the byte sequence hashed by the rest of this
// package. Byte slices and strings are passed through (as their UTF-8/raw
// bytes); fixed-width integers are encoded little-endian. Any other type
// is rejected with amqerr.ErrUnhashableKey.
func Bytes(key any) ([]byte, error) {
	switch v := key.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case uint8:
		return []byte{v}, nil
	case int8:
		return []byte{byte(v)}, nil
	case uint16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		return b, nil
	case int16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		return b, nil
	case uint32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b, nil
	case int32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		return b, nil
	case uint64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, v)
		return b, nil
	case int64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v))
		return b, nil
	case int:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v))
		return b, nil
	case uint:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v))
		return b, nil
	default:
		return nil, amqerr.ErrUnhashableKey
	}
}

// Pair returns the two independent 64-bit hash halves of b under the
// given seed, taken from the 128-bit MurmurHash3 variant.
func Pair(b []byte, seed uint32) (h1, h2 uint64) {
	return murmur3.Sum128WithSeed(b, seed)
}

// Fingerprint derives an f-bit fingerprint (1 <= f <= 64) from b under
// SeedFingerprint. When sentinel is true, a result of 0 is replaced by 1
// so that callers relying on 0 as an empty-slot marker (Cuckoo, Vacuum)
// never confuse a real fingerprint with an empty slot. Bloom and Xor pass
// sentinel=false.
func Fingerprint(b []byte, f uint, sentinel bool) uint64 {
	h1, _ := Pair(b, SeedFingerprint)
	var mask uint64
	if f >= 64 {
		mask = ^uint64(0)
	} else {
		mask = (uint64(1) << f) - 1
	}
	fp := h1 & mask
	if sentinel && fp == 0 {
		fp = 1
	}
	return fp
}

// BucketIndex reduces b's scalar hash under SeedBucket modulo m.
// Standardized two-argument call convention: (data, num_buckets).
func BucketIndex(b []byte, m uint64) uint64 {
	h1, _ := Pair(b, SeedBucket)
	return h1 % m
}

// FingerprintIndex reduces the scalar hash of an already-derived
// fingerprint value modulo m. Cuckoo/Vacuum use this to turn a
// fingerprint into a second bucket index without rehashing the key.
func FingerprintIndex(fp uint64, m uint64) uint64 {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, fp)
	h1, _ := Pair(b, SeedBucket)
	return h1 % m
}

// Probe returns the i-th (1-indexed) Bloom probe position from the two
// double-hashing bases a, b: (a + i*b) mod m.
func Probe(a, b, i, m uint64) uint64 {
	return (a + i*b) % m
}
