package prometheus

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/metrics/export/internaldefs"
)

// MetricsSource is anything that can snapshot authflow metrics.
// *authflow.Coordinator satisfies it.
type MetricsSource interface {
	MetricsSnapshot() authflow.MetricsSnapshot
	AuditDroppedByForm() map[authflow.Form]uint64
}

// PrometheusExporter renders a MetricsSource on demand.
type PrometheusExporter struct {
	source MetricsSource
}

// NewPrometheusExporter returns an exporter reading from c.
func NewPrometheusExporter(c *authflow.Coordinator) *PrometheusExporter {
	return &PrometheusExporter{source: c}
}

// NewPrometheusExporterFromSource returns an exporter reading from source.
func NewPrometheusExporterFromSource(source MetricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render over HTTP.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics. It is empty when metrics are disabled
// and no audit events were dropped.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDroppedByForm()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && len(dropped) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(16384)

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		writeSample(&b, def.Name, nil, snapshot.Counters[def.ID])
	}

	if len(snapshot.Decisions) > 0 {
		writeHeader(&b, internaldefs.DecisionsName, internaldefs.DecisionsHelp, "counter")
		for _, d := range snapshot.Decisions {
			writeSample(&b, internaldefs.DecisionsName, internaldefs.DecisionLabels(d), d.Count)
		}
	}

	for _, def := range internaldefs.HistogramDefs {
		nonCumulative := internaldefs.NormalizeBuckets(snapshot.Histograms[def.ID])
		cumulative := internaldefs.CumulativeBuckets(nonCumulative)
		writeHistogram(&b, def.Name, def.Help, cumulative)
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	forms := make([]string, 0, len(dropped))
	for form := range dropped {
		forms = append(forms, string(form))
	}
	sort.Strings(forms)
	for _, form := range forms {
		labels := [][2]string{{internaldefs.LabelForm, form}}
		writeSample(&b, internaldefs.AuditDroppedName, labels, dropped[authflow.Form(form)])
	}

	return b.String()
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

func writeSample(b *strings.Builder, name string, labels [][2]string, value uint64) {
	b.WriteString(name)
	if len(labels) > 0 {
		b.WriteByte('{')
		for i, kv := range labels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(kv[0])
			b.WriteString("=\"")
			b.WriteString(escapeLabel(kv[1]))
			b.WriteByte('"')
		}
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	bucket := name + "_bucket"
	for i, le := range internaldefs.HistogramBounds {
		writeSample(b, bucket, [][2]string{{"le", le}}, cumulative[i])
	}

	writeSample(b, name+"_count", nil, cumulative[len(cumulative)-1])
	// snapshots keep bucket counts only
	writeSample(b, name+"_sum", nil, 0)
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabel(v string) string {
	v = escapeHelp(v)
	return strings.ReplaceAll(v, "\"", "\\\"")
}
