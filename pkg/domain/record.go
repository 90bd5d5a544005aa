package domain

import (
	"encoding/json"
	"time"
)

// Collections known to the persistence collaborator.
const (
	CollectionChats   = "chats"
	CollectionHistory = "history"
	CollectionGraphs  = "graphs"
)

// Record is an opaque persisted document.
type Record struct {
	ID         string          `json:"id"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Chat is a chat session record.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	GraphID   string    `json:"graph_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryEntry is one message appended to a chat's history.
type HistoryEntry struct {
	ChatID  string  `json:"chat_id"`
	Seq     int     `json:"seq"`
	Message Message `json:"message"`
}
