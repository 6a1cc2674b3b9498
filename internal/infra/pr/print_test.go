package pr

import (
	"strings"
	"testing"
)

func TestPfFormatsStructFields(t *testing.T) {
	type sample struct {
		Address string
		Limit   int
	}

	got := Pf(sample{Address: "0.0.0.0:8000", Limit: 5})
	for _, want := range []string{"Address:", `"0.0.0.0:8000"`, "Limit:", "5"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Pf output %q does not contain %q", got, want)
		}
	}
}

func TestReadLineWithoutInit(t *testing.T) {
	if _, err := ReadLine("> "); err == nil {
		t.Fatal("expected error before Init")
	}
}
