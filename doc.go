// Package authflow is the backend-for-frontend coordinator behind the login,
// admin-login, two-phase signup and social-login forms.
//
// A [Coordinator] takes a form submission, validates it locally, calls the
// upstream [AuthService] and returns a [Decision]: where the browser goes next
// and what feedback it shows. Coordinator methods are safe to call from
// multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Coordinator], [Builder],
// [Config], [Signup] and value types. Flow orchestration, the login throttle,
// audit dispatch and the first-settler-wins future live under internal/ and
// are never exported.
//
// # What this package must NOT do
//
//   - Own user records. The AuthService is the system of record.
//   - Manage provider SDK scripts or popups. Providers are injected through
//     [social.Provider].
//   - Retry a failed submission. Every failure leaves the form resubmittable.
package authflow
