package normalize_test

import (
	"testing"

	"wordreel/internal/normalize"
)

func TestTextBasic(t *testing.T) {
	cases := map[string]string{
		"Hello, World!":  "hello world",
		"  multiple   spaces  ": "multiple spaces",
		"don't stop":     "don't stop",
		"semi;colons:here": "semi colons here",
		"":                "",
		"UPPER-case_word":  "upper case word",
	}
	for input, want := range cases {
		if got := normalize.Text(input); got != want {
			t.Errorf("Text(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{"Hello, World!", "don't  stop; the-music", "  ", "Already normalized"}
	for _, in := range inputs {
		once := normalize.Text(in)
		twice := normalize.Text(once)
		if once != twice {
			t.Errorf("Text not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}

func TestPhraseHashAgreesOnEquivalentInput(t *testing.T) {
	a := normalize.PhraseHash("Hello,   World!")
	b := normalize.PhraseHash("hello world")
	if a != b {
		t.Fatalf("expected equal hashes, got %q and %q", a, b)
	}
}

func TestWordCount(t *testing.T) {
	if got := normalize.WordCount("the quick brown fox"); got != 4 {
		t.Fatalf("WordCount = %d, want 4", got)
	}
	if got := normalize.WordCount(""); got != 0 {
		t.Fatalf("WordCount(empty) = %d, want 0", got)
	}
}
