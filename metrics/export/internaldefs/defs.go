package internaldefs

import (
	"github.com/MrEthical07/authflow"
)

// CounterDef names one authflow counter.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef names one authflow histogram.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricLoginSuccess, Name: "authflow_login_success_total", Help: "Logins routed to a destination."},
	{ID: authflow.MetricLoginFailure, Name: "authflow_login_failure_total", Help: "Logins rejected by the auth service."},
	{ID: authflow.MetricLoginRateLimited, Name: "authflow_login_rate_limited_total", Help: "Logins refused by the throttle."},
	{ID: authflow.MetricAdminLoginSuccess, Name: "authflow_admin_login_success_total", Help: "Admin logins routed to the dashboard."},
	{ID: authflow.MetricAdminAccessDenied, Name: "authflow_admin_access_denied_total", Help: "Non-admin users denied at the admin form."},
	{ID: authflow.MetricSignupDetailsRejected, Name: "authflow_signup_details_rejected_total", Help: "Signup detail forms failing local validation."},
	{ID: authflow.MetricSignupDetailsAccepted, Name: "authflow_signup_details_accepted_total", Help: "Signup detail forms accepted."},
	{ID: authflow.MetricSignupProfileRejected, Name: "authflow_signup_profile_rejected_total", Help: "Signup profile forms failing local validation."},
	{ID: authflow.MetricSignupSuccess, Name: "authflow_signup_success_total", Help: "Signups accepted by the auth service."},
	{ID: authflow.MetricSignupFailure, Name: "authflow_signup_failure_total", Help: "Signups rejected or failed upstream."},
	{ID: authflow.MetricSocialLoginSuccess, Name: "authflow_social_login_success_total", Help: "Social logins routed home."},
	{ID: authflow.MetricSocialLoginFailure, Name: "authflow_social_login_failure_total", Help: "Social logins failed by the provider or service."},
	{ID: authflow.MetricSocialLoginCancelled, Name: "authflow_social_login_cancelled_total", Help: "Social logins cancelled, blocked or without credential."},
	{ID: authflow.MetricSocialLoginTimeout, Name: "authflow_social_login_timeout_total", Help: "Social logins reset by the authorize timeout."},
	{ID: authflow.MetricSocialLateResult, Name: "authflow_social_late_result_total", Help: "Provider results arriving after the authorize timeout."},
	{ID: authflow.MetricSocialSDKLoadFailure, Name: "authflow_social_sdk_load_failure_total", Help: "Provider SDKs that never became ready."},
	{ID: authflow.MetricSocialConfigError, Name: "authflow_social_config_error_total", Help: "Social logins refused for configuration or insecure context."},
	{ID: authflow.MetricAuthServiceFailure, Name: "authflow_auth_service_failure_total", Help: "Transport failures calling the auth service."},
	{ID: authflow.MetricSessionSaved, Name: "authflow_session_saved_total", Help: "Client sessions written."},
	{ID: authflow.MetricSessionCleared, Name: "authflow_session_cleared_total", Help: "Client sessions cleared."},
	{ID: authflow.MetricSubmissionRejected, Name: "authflow_submission_rejected_total", Help: "Submissions rejected while another was in flight."},
}

// Labelled families built from the snapshot's decision counts and the
// dispatcher's per-form drop counts.
const (
	DecisionsName    = "authflow_decisions_total"
	DecisionsHelp    = "Form submission decisions by form, provider and route."
	AuditDroppedName = "authflow_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under dispatcher backpressure, by form."
	LabelForm        = "form"
	LabelProvider    = "provider"
	LabelRoute       = "route"
)

// DecisionLabels returns the label pairs for one decision count. Provider is
// only set for social decisions.
func DecisionLabels(d authflow.DecisionCount) [][2]string {
	labels := make([][2]string, 0, 3)
	labels = append(labels, [2]string{LabelForm, string(d.Form)})
	if d.Provider != "" {
		labels = append(labels, [2]string{LabelProvider, string(d.Provider)})
	}
	return append(labels, [2]string{LabelRoute, string(d.Route)})
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricSubmitLatency, Name: "authflow_submit_latency_seconds", Help: "Form submission latency."},
}

// HistogramBounds are the upper bucket bounds in seconds, matching the
// in-process histogram.
var HistogramBounds = []string{
	"0.005",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds made safe for metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"2_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
