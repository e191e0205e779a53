package core

import "time"

// Message is the domain model for a chat message. Messages are never edited.
type Message struct {
	ID        int64
	Room      string
	From      string
	FromID    string
	Text      string
	Color     string
	CreatedAt time.Time
}
