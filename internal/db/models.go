package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Role is the author of a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Document is an ingested file. Its embedding covers only a prefix of the text.
type Document struct {
	ID        uuid.UUID
	Title     string
	Embedding pgvector.Vector
	Metadata  map[string]any
}

// DocumentSummary is a document row with its chunk count
type DocumentSummary struct {
	ID         uuid.UUID      `json:"id"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata"`
	ChunkCount int            `json:"chunkCount"`
}

// Chunk represents a text chunk with embedding
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Content    string
	Embedding  pgvector.Vector
	Section    string
	Page       int
	OrderInDoc int
	Metadata   map[string]any
	CreatedAt  time.Time
}

// ChunkMatch is a nearest-neighbour result
type ChunkMatch struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Content    string
	Section    string
	Page       int
	OrderInDoc int
	Distance   float64
}

// Conversation is a chat thread. Title is empty until the first exchange.
type Conversation struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
}

// Message is one side of an exchange
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversationId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"createdAt"`
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
