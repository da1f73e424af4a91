package prometheus

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/contentshare/authcore"
	"github.com/contentshare/authcore/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// droppedByType is implemented by *authcore.Engine.
type droppedByType interface {
	AuditDroppedByType() map[string]uint64
}

// Exporter renders a metrics source on each scrape.
type Exporter struct {
	source metricsSource
}

func NewExporter(engine *authcore.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource reads from any snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler serves Render on every request.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns an empty string when metrics are disabled and nothing was
// dropped.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(2048)

	for _, fam := range internaldefs.CounterFamilies {
		writeHeader(&b, fam.Name, fam.Help, "counter")
		for _, s := range fam.Series {
			b.WriteString(fam.Name)
			if s.Outcome != "" {
				b.WriteString("{" + internaldefs.OutcomeLabel + "=\"")
				b.WriteString(s.Outcome)
				b.WriteString("\"}")
			}
			b.WriteByte(' ')
			b.WriteString(strconv.FormatUint(snapshot.Counters[s.ID], 10))
			b.WriteByte('\n')
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		raw, ok := snapshot.Histograms[def.ID]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeHeader(&b, internaldefs.AuditDroppedName, "Audit events dropped due to dispatcher backpressure.", "counter")
	b.WriteString(internaldefs.AuditDroppedName)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(dropped, 10))
	b.WriteByte('\n')

	if src, ok := p.source.(droppedByType); ok {
		writeDroppedByType(&b, src.AuditDroppedByType())
	}

	return b.String()
}

func writeDroppedByType(b *strings.Builder, counts map[string]uint64) {
	if len(counts) == 0 {
		return
	}
	writeHeader(b, internaldefs.AuditDroppedByTypeName, "Audit events dropped, by event type.", "counter")
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.Sort(types)
	for _, t := range types {
		b.WriteString(internaldefs.AuditDroppedByTypeName)
		b.WriteString("{" + internaldefs.EventTypeLabel + "=\"")
		b.WriteString(t)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(counts[t], 10))
		b.WriteByte('\n')
	}
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(cumulative[len(cumulative)-1], 10))
	b.WriteByte('\n')

	// Snapshots keep bucket counts only, so the sum is always zero.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
