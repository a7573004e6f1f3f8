package middleware

import "net/http"

// RequireSession admits any signed-in client.
func RequireSession(cfg Config) func(http.Handler) http.Handler {
	return Guard(cfg, ModeSession)
}

// RequireProfileComplete admits signed-in clients whose profile is complete
// and sends the rest to CompleteProfilePath.
func RequireProfileComplete(cfg Config) func(http.Handler) http.Handler {
	return Guard(cfg, ModeProfileComplete)
}

// RequireAdmin admits signed-in clients with AdminRole.
func RequireAdmin(cfg Config) func(http.Handler) http.Handler {
	return Guard(cfg, ModeAdmin)
}
