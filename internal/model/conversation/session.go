package conversation

import "time"

// Session captures one ongoing multi-turn exchange, keyed by an opaque id.
// Sessions live in memory only and are dropped on restart.
type Session struct {
	ID           string    `json:"id"`
	Messages     []Message `json:"messages"`
	LastActivity time.Time `json:"lastActivity"`
}
