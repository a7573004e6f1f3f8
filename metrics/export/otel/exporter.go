package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no Meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no metrics source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

// MetricsSource is anything that can snapshot authflow metrics.
// *authflow.Coordinator satisfies it.
type MetricsSource interface {
	MetricsSnapshot() authflow.MetricsSnapshot
	AuditDroppedByForm() map[authflow.Form]uint64
}

type observedCounter struct {
	id         authflow.MetricID
	instrument metric.Int64ObservableCounter
}

// Latency buckets are cumulative gauges, one per bound, since the snapshot
// carries no sum to build a real OTel histogram from.
type observedLatency struct {
	id      authflow.MetricID
	buckets [8]metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter keeps the instruments and callback registration for one
// MetricsSource.
type OTelExporter struct {
	source       MetricsSource
	registration metric.Registration
	counters     []observedCounter
	latencies    []observedLatency
	decisions    metric.Int64ObservableCounter
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers instruments on meter that read from c.
func NewOTelExporter(meter metric.Meter, c *authflow.Coordinator) (*OTelExporter, error) {
	if c == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, c)
}

// NewOTelExporterFromSource registers instruments on meter that read from
// source. Decisions are one counter with form, provider and route
// attributes; audit drops are one counter with a form attribute.
func NewOTelExporterFromSource(meter metric.Meter, source MetricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		l, err := newObservedLatency(meter, def)
		if err != nil {
			return nil, err
		}
		e.latencies = append(e.latencies, l)
		for _, b := range l.buckets {
			observables = append(observables, b)
		}
		observables = append(observables, l.count)
	}

	var err error
	e.decisions, err = meter.Int64ObservableCounter(internaldefs.DecisionsName, metric.WithDescription(internaldefs.DecisionsHelp))
	if err != nil {
		return nil, fmt.Errorf("create decisions counter: %w", err)
	}
	e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.decisions, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func newObservedLatency(meter metric.Meter, def internaldefs.HistogramDef) (observedLatency, error) {
	l := observedLatency{id: def.ID}
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative histogram bucket count."))
		if err != nil {
			return l, fmt.Errorf("create histogram bucket gauge %s: %w", name, err)
		}
		l.buckets[i] = ins
	}
	countName := def.Name + "_count"
	count, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Histogram total sample count."))
	if err != nil {
		return l, fmt.Errorf("create histogram count gauge %s: %w", countName, err)
	}
	l.count = count
	return l, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}

	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.Histograms[l.id]))
		for i, v := range cumulative {
			o.ObserveInt64(l.buckets[i], int64(v))
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}

	for _, d := range snapshot.Decisions {
		o.ObserveInt64(e.decisions, int64(d.Count), metric.WithAttributes(decisionAttributes(d)...))
	}

	for form, n := range e.source.AuditDroppedByForm() {
		o.ObserveInt64(e.auditDropped, int64(n), metric.WithAttributes(attribute.String(internaldefs.LabelForm, string(form))))
	}
	return nil
}

func decisionAttributes(d authflow.DecisionCount) []attribute.KeyValue {
	labels := internaldefs.DecisionLabels(d)
	attrs := make([]attribute.KeyValue, len(labels))
	for i, kv := range labels {
		attrs[i] = attribute.String(kv[0], kv[1])
	}
	return attrs
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
