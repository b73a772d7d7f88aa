package main

import (
	"strings"
	"testing"
)

func TestRenderTable(t *testing.T) {
	out := renderTable(
		[]string{"Code", "Credits"},
		[][]string{{"SPRING", "50"}, {"SHORT"}},
		[]columnAlignment{alignLeft, alignRight},
	)

	for _, want := range []string{"Code", "Credits", "SPRING", "50", "SHORT"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table is missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "CODE") || strings.Contains(out, "CREDITS") {
		t.Fatalf("headers should keep their case:\n%s", out)
	}
	if lines := strings.Count(out, "\n") + 1; lines != 6 {
		t.Fatalf("expected 6 lines (borders, header, 2 rows), got %d:\n%s", lines, out)
	}
}

func TestRenderTableWithoutHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Fatal("yesNo mismatch")
	}
}
