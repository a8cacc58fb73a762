package rag

import (
	"strings"

	"github.com/docchat/docchat/internal/db"
)

// NoRelevantContent is returned when no chunk is stored
const NoRelevantContent = "I couldn't find any relevant content in the documents."

// ContextPrefix introduces retrieved content in the system message
const ContextPrefix = "Relevant document content: "

// DefaultKeywords trigger document retrieval for a chat message
var DefaultKeywords = []string{"document", "text", "content"}

// BuildContext joins chunk contents in the given order with a blank line
func BuildContext(matches []db.ChunkMatch) string {
	if len(matches) == 0 {
		return NoRelevantContent
	}
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// ContextMessage is the system message carrying retrieved content
func ContextMessage(context string) string {
	return ContextPrefix + context
}

// KeywordDetector decides whether a message asks about the documents
type KeywordDetector struct {
	keywords []string
}

// NewKeywordDetector lowercases keywords once. An empty list uses DefaultKeywords.
func NewKeywordDetector(keywords []string) *KeywordDetector {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &KeywordDetector{keywords: lowered}
}

// WantsDocumentContext reports whether message contains any keyword, ignoring case
func (d *KeywordDetector) WantsDocumentContext(message string) bool {
	lower := strings.ToLower(message)
	for _, k := range d.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// ChunkIDs extracts chunk IDs from retrieval results
func ChunkIDs(matches []db.ChunkMatch) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID.String())
	}
	return ids
}
