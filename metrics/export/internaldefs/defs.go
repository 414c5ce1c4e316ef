package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// Namespace prefixes every exported metric name.
const Namespace = "gosession"

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

var counterHelp = map[goSession.MetricID]string{
	goSession.MetricLoginSuccess:     "Logins that wrote an identity to the session.",
	goSession.MetricLoginFailure:     "Logins rejected for missing fields or an unusable session.",
	goSession.MetricLogout:           "Logout calls.",
	goSession.MetricSessionCreated:   "Sessions saved under a newly issued id.",
	goSession.MetricSessionTouched:   "Rolling expiry refreshes.",
	goSession.MetricSessionDestroyed: "Store entries removed by logout or rotation.",
	goSession.MetricSessionRotated:   "Session id rotations on login.",
	goSession.MetricSessionSwept:     "Expired entries evicted by the local sweep.",
	goSession.MetricSessionLoadMiss:  "Verified cookies whose session no longer existed.",
	goSession.MetricUnauthorized:     "Requests rejected by the auth gate.",
	goSession.MetricStoreFailure:     "Session store errors.",
	goSession.MetricStoreFallback:    "Remote backends replaced by the local store at startup.",
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{
		ID:   goSession.MetricRequestLatency,
		Name: Namespace + "_request_latency_seconds",
		Help: "HTTP request latency.",
	},
}

// LiveSessionsName is the gauge exported for Engine.Stats.
const LiveSessionsName = Namespace + "_live_sessions"

// AuditDroppedName is the counter exported for dropped audit events.
const AuditDroppedName = Namespace + "_audit_dropped_total"

func buildCounterDefs() []CounterDef {
	defs := make([]CounterDef, 0, len(counterHelp))
	for id := goSession.MetricLoginSuccess; id < goSession.MetricRequestLatency; id++ {
		defs = append(defs, CounterDef{
			ID:   id,
			Name: Namespace + "_" + id.String() + "_total",
			Help: counterHelp[id],
		})
	}
	return defs
}

// HistogramBounds are the upper bounds of the engine latency buckets, in
// seconds, as Prometheus le labels.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names the same bounds for exporters that cannot use
// labels.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, n := range raw {
		running += n
		out[i] = running
	}
	return out
}
