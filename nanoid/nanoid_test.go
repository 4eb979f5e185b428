package nanoid

import (
	"strings"
	"testing"
)

func TestNewLength(t *testing.T) {
	if got := len(New()); got != idLen {
		t.Errorf("len(New()) = %d, want %d", got, idLen)
	}
}

func TestNewAlphabet(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := New()
		for _, c := range id {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("ID %q contains %q outside the alphabet", id, c)
			}
		}
	}
}

func TestNewUnique(t *testing.T) {
	const n = 10000
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		id := New()
		if seen[id] {
			t.Fatalf("duplicate ID %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestNewConcurrent(t *testing.T) {
	done := make(chan string, 50)
	for i := 0; i < 50; i++ {
		go func() { done <- New() }()
	}
	for i := 0; i < 50; i++ {
		if id := <-done; len(id) != idLen {
			t.Errorf("concurrent New() returned %q", id)
		}
	}
}

func BenchmarkNew(b *testing.B) {
	for i := 0; i < b.N; i++ {
		New()
	}
}
