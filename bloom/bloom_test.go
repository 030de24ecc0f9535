package bloom

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"amq/amqerr"
)

func TestParamDerivation(t *testing.T) {
	_, err := New(0, 0.01)
	if !errors.Is(err, amqerr.ErrInvalidParams) {
		t.Errorf("n=0: got err %v, want ErrInvalidParams", err)
	}

	_, err = New(100, 0)
	if !errors.Is(err, amqerr.ErrInvalidParams) {
		t.Errorf("epsilon=0: got err %v, want ErrInvalidParams", err)
	}

	_, err = New(100, 1)
	if !errors.Is(err, amqerr.ErrInvalidParams) {
		t.Errorf("epsilon=1: got err %v, want ErrInvalidParams", err)
	}
}

// A very high error rate should still derive at least one probe.
func TestProbeCountAtHighEpsilon(t *testing.T) {
	f, err := New(1_000_000, 0.99)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.K() != 1 {
		t.Errorf("K() = %d, want 1", f.K())
	}
}

func TestNoFalseNegatives(t *testing.T) {
	f, err := New(1000, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	keys := []string{"alpha", "beta", "gamma", "delta"}
	for _, k := range keys {
		if err := f.Add(k); err != nil {
			t.Fatalf("Add(%q): %v", k, err)
		}
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
}

// Intersecting two filters is a conservative overestimate of the true
// set intersection: every true member survives, but so can false
// positives contributed by either input.
func TestIntersectionIsConservativeOverestimate(t *testing.T) {
	b1, _ := New(100, 0.01)
	b2, _ := New(100, 0.01)

	for _, k := range []string{"a", "b", "c"} {
		if err := b1.Add(k); err != nil {
			t.Fatalf("Add(%q): %v", k, err)
		}
	}
	for _, k := range []string{"b", "c", "d"} {
		if err := b2.Add(k); err != nil {
			t.Fatalf("Add(%q): %v", k, err)
		}
	}

	if err := b1.Intersect(b2); err != nil {
		t.Fatalf("Intersect: %v", err)
	}

	for _, k := range []string{"b", "c"} {
		ok, _ := b1.Contains(k)
		if !ok {
			t.Errorf("Contains(%q) = false after intersect, want true", k)
		}
	}
	falsePositives := 0
	for _, k := range []string{"a", "d"} {
		if ok, _ := b1.Contains(k); ok {
			falsePositives++
		}
	}
	if falsePositives > 2 {
		t.Errorf("got %d false positives among non-intersecting keys, want <= 2", falsePositives)
	}
}

// Union upper-bounds the true set union: every member of either input
// tests positive, and a key outside both sets ("e") does not.
func TestUnionUpperBoundsTrueUnion(t *testing.T) {
	b1, _ := New(100, 0.01)
	b2, _ := New(100, 0.01)

	for _, k := range []string{"a", "b", "c"} {
		if err := b1.Add(k); err != nil {
			t.Fatalf("Add(%q): %v", k, err)
		}
	}
	for _, k := range []string{"b", "c", "d"} {
		if err := b2.Add(k); err != nil {
			t.Fatalf("Add(%q): %v", k, err)
		}
	}

	if err := b1.Union(b2); err != nil {
		t.Fatalf("Union: %v", err)
	}

	for _, k := range []string{"a", "b", "c", "d"} {
		if ok, _ := b1.Contains(k); !ok {
			t.Errorf("Contains(%q) = false after union, want true", k)
		}
	}
	if ok, _ := b1.Contains("e"); ok {
		t.Error(`Contains("e") = true after union, want false`)
	}
}

func TestMergeIncompatibility(t *testing.T) {
	b1, _ := New(100, 0.01)
	b2, _ := New(200, 0.01)

	if err := b1.Union(b2); !errors.Is(err, amqerr.ErrIncompatible) {
		t.Errorf("Union across mismatched params: got %v, want ErrIncompatible", err)
	}
	if err := b1.Intersect(b2); !errors.Is(err, amqerr.ErrIncompatible) {
		t.Errorf("Intersect across mismatched params: got %v, want ErrIncompatible", err)
	}
}

func TestStateNameRoundTrip(t *testing.T) {
	f, err := New(100, 0.01)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, s := range usStateNames {
		if err := f.Add(s); err != nil {
			t.Fatalf("Add(%q): %v", s, err)
		}
	}
	for _, s := range usStateNames {
		ok, err := f.Contains(s)
		if err != nil {
			t.Fatalf("Contains(%q): %v", s, err)
		}
		if !ok {
			t.Errorf("Contains(%q) = false, want true", s)
		}
	}

	const trials = 100_000
	fp := 0
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < trials; i++ {
		ok, _ := f.Contains(randomAlnum(rng, 5))
		if ok {
			fp++
		}
	}
	rate := float64(fp) / float64(trials)
	if rate >= 0.02 {
		t.Errorf(fmt.Sprintf("false-positive rate %f too high", rate))
	}
}

func randomAlnum(rng *rand.Rand, n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

var usStateNames = []string{
	"Alabama", "Alaska", "Arizona", "Arkansas", "California", "Colorado",
	"Connecticut", "Delaware", "Florida", "Georgia", "Hawaii", "Idaho",
	"Illinois", "Indiana", "Iowa", "Kansas", "Kentucky", "Louisiana",
	"Maine", "Maryland", "Massachusetts", "Michigan", "Minnesota",
	"Mississippi", "Missouri", "Montana", "Nebraska", "Nevada",
	"New Hampshire", "New Jersey", "New Mexico", "New York",
	"North Carolina", "North Dakota", "Ohio", "Oklahoma", "Oregon",
	"Pennsylvania", "Rhode Island", "South Carolina", "South Dakota",
	"Tennessee", "Texas", "Utah", "Vermont", "Virginia", "Washington",
	"West Virginia", "Wisconsin", "Wyoming",
}
