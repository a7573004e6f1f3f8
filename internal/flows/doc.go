// Package flows contains pure-function orchestrators for every Coordinator
// operation.
//
// Each flow function (RunLogin, RunSignupDetails, RunSignupSubmit,
// RunSocialLogin) accepts a typed dependency struct and returns a Decision
// without side-effects beyond those dependencies. This keeps the Coordinator
// type thin and lets every branch be unit tested with stub dependencies.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the auth service, session store, login
// throttle, audit and metrics. They do NOT own any of these resources;
// ownership stays with the Coordinator.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import authflow (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency functions.
package flows
