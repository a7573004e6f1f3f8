package otel

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/authflow"
	"github.com/MrEthical07/authflow/social"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot authflow.MetricsSnapshot
	dropped  map[authflow.Form]uint64
}

func (f *fakeSource) MetricsSnapshot() authflow.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := authflow.MetricsSnapshot{
		Counters:   make(map[authflow.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[authflow.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		out.Histograms[k] = append([]uint64(nil), buckets...)
	}
	out.Decisions = append([]authflow.DecisionCount(nil), f.snapshot.Decisions...)
	return out
}

func (f *fakeSource) AuditDroppedByForm() map[authflow.Form]uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[authflow.Form]uint64, len(f.dropped))
	for k, v := range f.dropped {
		out[k] = v
	}
	return out
}

func newReader() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	return reader, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
}

func collectInt64(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	return sumByName(rm)
}

func sumByName(rm metricdata.ResourceMetrics) map[string]int64 {
	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			}
		}
	}
	return out
}

// collectLabelled returns the points of one Sum keyed by their attributes
// rendered as k=v pairs joined by commas, in attribute set order.
func collectLabelled(t *testing.T, reader *sdkmetric.ManualReader, name string) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s: expected Sum[int64], got %T", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				var parts []string
				for _, kv := range dp.Attributes.ToSlice() {
					parts = append(parts, string(kv.Key)+"="+kv.Value.AsString())
				}
				out[strings.Join(parts, ",")] = dp.Value
			}
		}
	}
	return out
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("authflow-test")

	src := &fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricLoginSuccess:       3,
				authflow.MetricSocialLoginTimeout: 2,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricSubmitLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: map[authflow.Form]uint64{authflow.FormLogin: 1},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	got := collectInt64(t, reader)
	want := map[string]int64{
		"authflow_login_success_total":                  3,
		"authflow_social_login_timeout_total":           2,
		"authflow_audit_dropped_total":                  1,
		"authflow_submit_latency_seconds_bucket_le_2_5": 7,
		"authflow_submit_latency_seconds_bucket_le_inf": 8,
		"authflow_submit_latency_seconds_count":         8,
	}
	for name, v := range want {
		if got[name] != v {
			t.Fatalf("%s: got %d, want %d", name, got[name], v)
		}
	}
}

func TestExporterLabelsDecisionsAndDrops(t *testing.T) {
	reader, provider := newReader()

	src := &fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{},
			Decisions: []authflow.DecisionCount{
				{Form: authflow.FormAdminLogin, Route: authflow.RouteAdminDashboard, Count: 2},
				{Form: authflow.FormSocial, Provider: social.Google, Route: authflow.RouteHome, Count: 5},
			},
		},
		dropped: map[authflow.Form]uint64{
			authflow.FormSocial:        4,
			authflow.FormSignupDetails: 1,
		},
	}

	exp, err := NewOTelExporterFromSource(provider.Meter("authflow-test"), src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	decisions := collectLabelled(t, reader, "authflow_decisions_total")
	if got := decisions["form=admin_login,route=admin_dashboard"]; got != 2 {
		t.Fatalf("admin decisions = %d, all: %v", got, decisions)
	}
	if got := decisions["form=social,provider=google,route=home"]; got != 5 {
		t.Fatalf("google decisions = %d, all: %v", got, decisions)
	}

	drops := collectLabelled(t, reader, "authflow_audit_dropped_total")
	if drops["form=social"] != 4 || drops["form=signup_details"] != 1 || len(drops) != 2 {
		t.Fatalf("unexpected drops %v", drops)
	}
}

func TestExporterReadsCoordinator(t *testing.T) {
	reader, provider := newReader()

	c, err := authflow.New().WithAuthService(nopService{}).WithMetricsEnabled(true).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	exp, err := NewOTelExporter(provider.Meter("authflow-test"), c)
	if err != nil {
		t.Fatalf("NewOTelExporter: %v", err)
	}
	defer exp.Close()

	_, _ = c.NewSignup().SubmitDetails(context.Background(), authflow.SignupDetails{Password: "a", ConfirmPassword: "b"})

	if got := collectInt64(t, reader)["authflow_signup_details_rejected_total"]; got != 1 {
		t.Fatalf("expected 1 rejected signup, got %d", got)
	}
	decisions := collectLabelled(t, reader, "authflow_decisions_total")
	if got := decisions["form=signup_details,route=stay_on_form"]; got != 1 {
		t.Fatalf("expected 1 signup details decision, got %d (%v)", got, decisions)
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newReader()
	meter := provider.Meter("authflow-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporter(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newReader()
	meter := provider.Meter("authflow-test")

	src := &fakeSource{
		snapshot: authflow.MetricsSnapshot{
			Counters: map[authflow.MetricID]uint64{
				authflow.MetricLoginSuccess: 1,
			},
			Histograms: map[authflow.MetricID][]uint64{
				authflow.MetricSubmitLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer exp.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[authflow.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
