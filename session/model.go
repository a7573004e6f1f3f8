package session

// Record is the session state for one browser client.
type Record struct {
	ClientID        string
	UserID          string
	Role            string
	ProfileComplete bool
	Token           string

	CreatedAt int64
	ExpiresAt int64
}
