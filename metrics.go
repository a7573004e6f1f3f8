package authflow

import (
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authflow/social"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginRateLimited
	MetricAdminLoginSuccess
	MetricAdminAccessDenied
	MetricSignupDetailsRejected
	MetricSignupDetailsAccepted
	MetricSignupProfileRejected
	MetricSignupSuccess
	MetricSignupFailure
	MetricSocialLoginSuccess
	MetricSocialLoginFailure
	MetricSocialLoginCancelled
	MetricSocialLoginTimeout
	MetricSocialLateResult
	MetricSocialSDKLoadFailure
	MetricSocialConfigError
	MetricAuthServiceFailure
	MetricSessionSaved
	MetricSessionCleared
	MetricSubmissionRejected
	// MetricSubmitLatency is the only histogram.
	MetricSubmitLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

// Decision counters are labelled by form, provider and route. Only social
// decisions carry a provider.
var (
	decisionForms     = [...]Form{FormLogin, FormAdminLogin, FormSignupDetails, FormSignupProfile, FormSocial}
	decisionProviders = [...]social.Name{"", social.Google, social.Facebook}
	decisionRoutes    = [...]Route{RouteStayOnForm, RouteHome, RouteAdminDashboard, RouteCompleteProfile}
)

// DecisionCount is the number of decisions routed to Route from one form.
type DecisionCount struct {
	Form     Form
	Provider social.Name
	Route    Route
	Count    uint64
}

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. A nil or disabled Metrics ignores writes.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
	decisions     [len(decisionForms)][len(decisionProviders)][len(decisionRoutes)]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every metric.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
	// Decisions holds every valid form/provider/route combination in a
	// stable order, zero counts included.
	Decisions []DecisionCount
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the latency histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricSubmitLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// RecordDecision counts one decision. provider is ignored for non-social
// forms; unknown forms, providers and routes are ignored.
func (m *Metrics) RecordDecision(form Form, provider social.Name, route Route) {
	if m == nil || !m.enabled {
		return
	}
	f, ok := indexOf(decisionForms[:], form)
	if !ok {
		return
	}
	p := 0
	if form == FormSocial {
		if p, ok = indexOf(decisionProviders[:], provider); !ok || p == 0 {
			return
		}
	}
	r, ok := indexOf(decisionRoutes[:], route)
	if !ok {
		return
	}
	atomic.AddUint64(&m.decisions[f][p][r].value, 1)
}

// Decisions returns the count for one form/provider/route combination.
func (m *Metrics) Decisions(form Form, provider social.Name, route Route) uint64 {
	if m == nil {
		return 0
	}
	for _, d := range m.decisionCounts() {
		if d.Form == form && d.Provider == provider && d.Route == route {
			return d.Count
		}
	}
	return 0
}

func (m *Metrics) decisionCounts() []DecisionCount {
	out := make([]DecisionCount, 0, (len(decisionForms)+len(decisionProviders)-2)*len(decisionRoutes))
	for f, form := range decisionForms {
		for p, provider := range decisionProviders {
			if (form == FormSocial) != (provider != "") {
				continue
			}
			for r, route := range decisionRoutes {
				out = append(out, DecisionCount{
					Form:     form,
					Provider: provider,
					Route:    route,
					Count:    atomic.LoadUint64(&m.decisions[f][p][r].value),
				})
			}
		}
	}
	return out
}

func indexOf[T comparable](set []T, v T) (int, bool) {
	for i, s := range set {
		if s == v {
			return i, true
		}
	}
	return 0, false
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricSubmitLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricSubmitLatency].buckets[i])
		}
		s.Histograms[MetricSubmitLatency] = buckets
	}

	s.Decisions = m.decisionCounts()

	return s
}

// Submissions wait on the auth service, so buckets run from 5ms to 2.5s.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 25:
		return 1
	case ms <= 50:
		return 2
	case ms <= 100:
		return 3
	case ms <= 250:
		return 4
	case ms <= 500:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
