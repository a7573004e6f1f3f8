// Package middleware provides net/http route guards for pages behind the
// login forms.
//
// # Guards
//
//   - [RequireSession]: any signed-in client.
//   - [RequireProfileComplete]: signed-in and profile completed. This is the
//     route guard the login flow leaves profile completion to.
//   - [RequireAdmin]: signed-in with the admin role.
//
// A request is authenticated either by a bearer session token (stateless,
// verified with the token manager) or by its client id, looked up in the
// session store. The resolved record is available to handlers through
// [SessionFromContext].
//
// # What this package must NOT do
//
//   - Write sessions. Only the coordinator does.
//   - Issue tokens.
package middleware
