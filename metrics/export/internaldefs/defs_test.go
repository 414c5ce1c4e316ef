package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	if len(CounterDefs) != int(goSession.MetricRequestLatency) {
		t.Fatalf("expected %d counters, got %d", goSession.MetricRequestLatency, len(CounterDefs))
	}
	seen := make(map[string]bool)
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("bad counter name %q", def.Name)
		}
		if def.Help == "" {
			t.Fatalf("counter %q has no help", def.Name)
		}
		if seen[def.Name] {
			t.Fatalf("duplicate counter %q", def.Name)
		}
		seen[def.Name] = true
	}
	if CounterDefs[0].Name != "gosession_login_success_total" {
		t.Fatalf("unexpected first counter %q", CounterDefs[0].Name)
	}
}

func TestBuckets(t *testing.T) {
	n := NormalizeBuckets([]uint64{1, 2, 3})
	if n != [8]uint64{1, 2, 3} {
		t.Fatalf("unexpected normalized buckets %v", n)
	}
	c := CumulativeBuckets([8]uint64{1, 2, 3, 0, 0, 0, 0, 4})
	if c != [8]uint64{1, 3, 6, 6, 6, 6, 6, 10} {
		t.Fatalf("unexpected cumulative buckets %v", c)
	}
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 {
		t.Fatal("bucket bounds must match the engine's eight buckets")
	}
}
