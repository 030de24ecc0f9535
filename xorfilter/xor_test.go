package xorfilter

import (
	"errors"
	"math/rand"
	"testing"

	"amq/amqerr"
	"amq/internal/hashutil"
)

func randomString(rng *rand.Rand, n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

func distinctRandomStrings(rng *rand.Rand, count, length int) [][]byte {
	seen := make(map[string]struct{}, count)
	out := make([][]byte, 0, count)
	for len(out) < count {
		s := randomString(rng, length)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, []byte(s))
	}
	return out
}

func TestInvalidParams(t *testing.T) {
	_, err := Build(nil, 0.01)
	if !errors.Is(err, amqerr.ErrInvalidParams) {
		t.Errorf("empty keys: got err %v, want ErrInvalidParams", err)
	}

	_, err = Build([][]byte{[]byte("a")}, 0)
	if !errors.Is(err, amqerr.ErrInvalidParams) {
		t.Errorf("epsilon=0: got err %v, want ErrInvalidParams", err)
	}
}

func TestDuplicateKeysRejected(t *testing.T) {
	_, err := Build([][]byte{[]byte("a"), []byte("a")}, 0.01)
	if !errors.Is(err, amqerr.ErrBuildFailed) {
		t.Errorf("duplicate keys: got err %v, want ErrBuildFailed", err)
	}
}

// Every key in the build set must test positive, and the false-positive
// rate on a large sample of non-members must stay near the target epsilon.
func TestBuildAndQuery(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	keys := distinctRandomStrings(rng, 1000, 10)

	f, err := Build(keys, 1e-4)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, k := range keys {
		ok, err := f.Contains(k)
		if err != nil {
			t.Fatalf("Contains(%q): %v", k, err)
		}
		if !ok {
			t.Errorf("Contains(%q) = false, want true", k)
		}
	}

	memberSet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		memberSet[string(k)] = struct{}{}
	}

	const trials = 100_000
	fp := 0
	for i := 0; i < trials; i++ {
		s := randomString(rng, 10)
		if _, isMember := memberSet[s]; isMember {
			continue
		}
		ok, _ := f.Contains(s)
		if ok {
			fp++
		}
	}
	rate := float64(fp) / float64(trials)
	if rate >= 5e-4 {
		t.Errorf("false-positive rate %v too high", rate)
	}
}

// Every build key's fingerprint must equal the XOR of its three table
// cells; this is the property the peeling assignment in Build guarantees.
func TestXorInvariantHolds(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	keys := distinctRandomStrings(rng, 500, 8)

	f, err := Build(keys, 0.001)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, k := range keys {
		h0, h1, h2 := hashes(k, f.seed, f.c)
		fp := hashutil.Fingerprint(k, f.f, false)
		if got := f.t[h0] ^ f.t[h1] ^ f.t[h2]; got != fp {
			t.Errorf("key %q: T[h0]^T[h1]^T[h2] = %d, want fingerprint %d", k, got, fp)
		}
	}
}

func TestNoMutationOperations(t *testing.T) {
	// XorFilter exposes only Build + Contains plus the Len/FingerprintBits
	// accessors: the read-only methods must exist (checked at compile
	// time), and *Filter must have neither an Add nor a Delete method
	// (checked at run time).
	var _ = (*Filter)(nil).Contains
	var _ = (*Filter)(nil).Len
	var _ = (*Filter)(nil).FingerprintBits

	var f any = (*Filter)(nil)
	if _, ok := f.(interface{ Add(any) error }); ok {
		t.Error("*Filter has an Add method, want none")
	}
	if _, ok := f.(interface{ Delete(any) (bool, error) }); ok {
		t.Error("*Filter has a Delete method, want none")
	}
}
