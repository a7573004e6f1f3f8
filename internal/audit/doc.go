// Package audit delivers form-flow audit events off the request path.
//
// # Components
//
//   - [Event]: one outcome of a form submission, tagged with its form, client,
//     route and provider.
//   - [Dispatcher]: sharded async relay. Events are routed to a shard by client
//     id, so each client's events reach the sink in emit order while different
//     clients are delivered in parallel. Drops are counted per form.
//   - [Sink]: event consumer (channel, JSON lines, no-op).
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Coordinator does.
//   - Import authflow or any sibling internal package.
//   - Record passwords or provider tokens.
package audit
