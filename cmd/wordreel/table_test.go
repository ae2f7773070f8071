package main

import (
	"strings"
	"testing"
)

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"Word", "Start", "End"},
		[][]string{
			{"hello", "0.00", "0.50"},
			{"world", "0.50", "1.00"},
		},
		[]columnAlignment{alignLeft, alignRight, alignRight},
	)

	for _, want := range []string{"Word", "Start", "End", "hello", "world", "0.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered table missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTableEmptyHeadersProducesEmptyString(t *testing.T) {
	if out := renderTable(nil, nil, nil); out != "" {
		t.Errorf("expected empty string for no headers, got %q", out)
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(
		[]string{"Word", "Start", "End"},
		[][]string{{"hello"}},
		nil,
	)
	if !strings.Contains(out, "hello") {
		t.Errorf("rendered table missing short row content:\n%s", out)
	}
}
