package internaldefs

import (
	"github.com/contentshare/authcore"
)

// OutcomeLabel is the label distinguishing series within a counter family.
const OutcomeLabel = "outcome"

// Series maps one engine counter onto a label value of its family.
type Series struct {
	ID      authcore.MetricID
	Outcome string
}

// CounterFamily is one exported counter name. Families with a single series
// and an empty Outcome are rendered without labels.
type CounterFamily struct {
	Name   string
	Help   string
	Series []Series
}

type HistogramDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

var CounterFamilies = []CounterFamily{
	{
		Name: "authcore_login_total",
		Help: "Login attempts by outcome.",
		Series: []Series{
			{ID: authcore.MetricLoginSuccess, Outcome: "success"},
			{ID: authcore.MetricLoginFailure, Outcome: "failure"},
		},
	},
	{
		Name: "authcore_reissue_total",
		Help: "Refresh token reissue attempts by outcome.",
		Series: []Series{
			{ID: authcore.MetricReissueSuccess, Outcome: "success"},
			{ID: authcore.MetricReissueInvalid, Outcome: "invalid"},
			{ID: authcore.MetricReissueNotFound, Outcome: "not_found"},
			{ID: authcore.MetricReissueMismatch, Outcome: "mismatch"},
		},
	},
	{
		Name:   "authcore_logout_total",
		Help:   "Logouts.",
		Series: []Series{{ID: authcore.MetricLogout}},
	},
	{
		Name: "authcore_authenticate_total",
		Help: "Access token authentications by outcome.",
		Series: []Series{
			{ID: authcore.MetricAuthenticateSuccess, Outcome: "success"},
			{ID: authcore.MetricAuthenticateFailure, Outcome: "failure"},
		},
	},
}

var HistogramDefs = []HistogramDef{
	{ID: authcore.MetricAuthenticateLatency, Name: "authcore_authenticate_latency_seconds", Help: "Access token authentication latency."},
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "authcore_audit_dropped_total"

// AuditDroppedByTypeName splits AuditDroppedName by EventTypeLabel.
const (
	AuditDroppedByTypeName = "authcore_audit_dropped_by_event_total"
	EventTypeLabel         = "event_type"
)

// HistogramBounds are the upper bounds, in seconds, of the engine buckets.
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

// HistogramBoundSuffix names each bucket for exporters that cannot use labels.
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

// NormalizeBuckets pads or truncates raw to the engine bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
