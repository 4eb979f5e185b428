package proptest

import "testing"

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if a.IntRange(0, 1000) != b.IntRange(0, 1000) {
			t.Fatal("generators with the same seed diverged")
		}
	}
	if a.IdentifierLower(10) != b.IdentifierLower(10) {
		t.Error("identifier generation is not seed-deterministic")
	}
}

func TestIntRangeBounds(t *testing.T) {
	g := New(1)
	for i := 0; i < 1000; i++ {
		if n := g.IntRange(-5, 5); n < -5 || n > 5 {
			t.Fatalf("IntRange(-5, 5) = %d", n)
		}
	}
	if g.IntRange(7, 7) != 7 {
		t.Error("degenerate range should return its only value")
	}
}

func TestIdentifierLowerShape(t *testing.T) {
	g := New(2)
	for i := 0; i < 500; i++ {
		id := g.IdentifierLower(8)
		if len(id) < 1 || len(id) > 8 {
			t.Fatalf("identifier %q has bad length", id)
		}
		if id[0] >= '0' && id[0] <= '9' {
			t.Fatalf("identifier %q starts with a digit", id)
		}
		for j := 0; j < len(id); j++ {
			c := id[j]
			if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_') {
				t.Fatalf("identifier %q has invalid byte %q", id, c)
			}
		}
	}
}

func TestOneOfCoversAllValues(t *testing.T) {
	g := New(3)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		seen[OneOf(g, "a", "b", "c")] = true
	}
	if len(seen) != 3 {
		t.Errorf("OneOf over 200 draws hit %d of 3 values", len(seen))
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	g := New(4)
	in := []int{1, 2, 3, 4, 5}
	out := Shuffle(g, in)
	if len(out) != len(in) {
		t.Fatalf("shuffle changed length to %d", len(out))
	}
	counts := make(map[int]int)
	for _, v := range out {
		counts[v]++
	}
	for _, v := range in {
		if counts[v] != 1 {
			t.Fatalf("shuffle lost or duplicated %d", v)
		}
	}
	// Input must stay untouched.
	for i, v := range []int{1, 2, 3, 4, 5} {
		if in[i] != v {
			t.Fatal("shuffle mutated its input")
		}
	}
}

func TestSliceLengthBound(t *testing.T) {
	g := New(5)
	for i := 0; i < 100; i++ {
		s := Slice(g, 4, func(g *Generator) int { return g.Intn(10) })
		if len(s) > 4 {
			t.Fatalf("slice length %d exceeds bound", len(s))
		}
	}
	if Slice(g, 0, func(g *Generator) int { return 0 }) != nil {
		t.Error("zero bound should produce nil")
	}
}
