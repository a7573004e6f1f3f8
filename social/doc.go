// Package social defines the capability the coordinator uses to obtain an
// access token or ID credential from a third-party identity provider.
//
// Provider replaces ambient SDK globals with an injected handle. The
// coordinator owns all timing: it polls readiness through AwaitReady and
// races the completion callback passed to Authorize against its own deadline.
// Providers only report what happened.
package social
