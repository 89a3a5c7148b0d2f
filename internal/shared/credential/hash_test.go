package credential

import "testing"

func TestDigestKnownValue(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Digest("abc"); got != want {
		t.Fatalf("Digest(abc) = %s, want %s", got, want)
	}
}

func TestDigestDeterministic(t *testing.T) {
	a := Digest("Bearer sk-test-123")
	b := Digest("Bearer sk-test-123")
	if a != b {
		t.Fatalf("digest not deterministic: %s vs %s", a, b)
	}
	if a == Digest("Bearer sk-test-124") {
		t.Fatal("different credentials produced the same digest")
	}
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64", len(a))
	}
}
