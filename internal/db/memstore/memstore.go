// Package memstore is an in-memory implementation of the document and
// conversation store. It backs tests and the "memory" database driver.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/docchat/docchat/internal/db"
	"github.com/docchat/docchat/internal/errs"
)

// Store holds documents, chunks, conversations and messages in maps
type Store struct {
	mu            sync.RWMutex
	documents     map[uuid.UUID]*db.Document
	chunks        map[uuid.UUID][]*db.Chunk
	conversations map[uuid.UUID]*db.Conversation
	messages      map[uuid.UUID][]db.Message
	last          time.Time
	now           func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		documents:     make(map[uuid.UUID]*db.Document),
		chunks:        make(map[uuid.UUID][]*db.Chunk),
		conversations: make(map[uuid.UUID]*db.Conversation),
		messages:      make(map[uuid.UUID][]db.Message),
		now:           time.Now,
	}
}

// tick returns a timestamp strictly after the previous one. Caller holds mu.
func (s *Store) tick() time.Time {
	t := s.now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// FindDocumentByHash returns the document whose metadata sha256 matches, or nil
func (s *Store) FindDocumentByHash(_ context.Context, hash string) (*db.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, doc := range s.documents {
		if h, ok := doc.Metadata["sha256"].(string); ok && h == hash {
			d := *doc
			return &d, nil
		}
	}
	return nil, nil
}

// InsertDocument stores a document and returns its new ID
func (s *Store) InsertDocument(_ context.Context, title string, embedding pgvector.Vector, metadata map[string]any) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.documents[id] = &db.Document{ID: id, Title: title, Embedding: embedding, Metadata: copyMap(metadata)}
	return id, nil
}

// InsertChunk stores one chunk, assigning an ID when it has none
func (s *Store) InsertChunk(_ context.Context, chunk *db.Chunk) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertChunkLocked(chunk); err != nil {
		return uuid.Nil, err
	}
	return chunk.ID, nil
}

// InsertChunksBatch stores chunks in slice order, stopping at the first rejected one
func (s *Store) InsertChunksBatch(_ context.Context, chunks []*db.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range chunks {
		if err := s.insertChunkLocked(c); err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) insertChunkLocked(chunk *db.Chunk) error {
	if _, ok := s.documents[chunk.DocumentID]; !ok {
		return fmt.Errorf("%w: chunk references unknown document %s", errs.ErrPersistence, chunk.DocumentID)
	}
	for _, existing := range s.chunks[chunk.DocumentID] {
		if existing.OrderInDoc == chunk.OrderInDoc {
			return fmt.Errorf("%w: duplicate orderInDoc %d", errs.ErrPersistence, chunk.OrderInDoc)
		}
	}
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}
	c := *chunk
	c.Metadata = copyMap(chunk.Metadata)
	c.CreatedAt = s.tick()
	s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], &c)
	return nil
}

// NearestChunks scans every chunk and ranks by Euclidean distance
func (s *Store) NearestChunks(_ context.Context, embedding pgvector.Vector, limit int) ([]db.ChunkMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := embedding.Slice()
	var matches []db.ChunkMatch
	for _, chunks := range s.chunks {
		for _, c := range chunks {
			v := c.Embedding.Slice()
			if len(v) != len(q) {
				continue
			}
			matches = append(matches, db.ChunkMatch{
				ID:         c.ID,
				DocumentID: c.DocumentID,
				Content:    c.Content,
				Section:    c.Section,
				Page:       c.Page,
				OrderInDoc: c.OrderInDoc,
				Distance:   L2(q, v),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		if matches[i].DocumentID != matches[j].DocumentID {
			return matches[i].DocumentID.String() < matches[j].DocumentID.String()
		}
		return matches[i].OrderInDoc < matches[j].OrderInDoc
	})
	if limit >= 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// ListDocuments returns every document with its chunk count, ordered by title
func (s *Store) ListDocuments(_ context.Context) ([]db.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]db.DocumentSummary, 0, len(s.documents))
	for id, d := range s.documents {
		docs = append(docs, db.DocumentSummary{
			ID:         id,
			Title:      d.Title,
			Metadata:   copyMap(d.Metadata),
			ChunkCount: len(s.chunks[id]),
		})
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Title != docs[j].Title {
			return docs[i].Title < docs[j].Title
		}
		return docs[i].ID.String() < docs[j].ID.String()
	})
	return docs, nil
}

// ListChunks returns a document's chunks in orderInDoc order
func (s *Store) ListChunks(_ context.Context, docID uuid.UUID) ([]*db.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*db.Chunk, 0, len(s.chunks[docID]))
	for _, c := range s.chunks[docID] {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderInDoc < out[j].OrderInDoc })
	return out, nil
}

// DeleteDocument removes a document and its chunks
func (s *Store) DeleteDocument(_ context.Context, docID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[docID]; !ok {
		return fmt.Errorf("document %s: %w", docID, errs.ErrDocumentNotFound)
	}
	delete(s.documents, docID)
	delete(s.chunks, docID)
	return nil
}

// CreateConversation starts an empty, untitled conversation
func (s *Store) CreateConversation(_ context.Context) (*db.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	conv := &db.Conversation{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
	s.conversations[conv.ID] = conv
	c := *conv
	return &c, nil
}

// GetConversation returns a conversation by ID
func (s *Store) GetConversation(_ context.Context, id uuid.UUID) (*db.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, errs.ErrConversationNotFound)
	}
	c := *conv
	c.MessageCount = len(s.messages[id])
	return &c, nil
}

// ListConversations returns conversations, most recently updated first
func (s *Store) ListConversations(_ context.Context) ([]db.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]db.Conversation, 0, len(s.conversations))
	for id, conv := range s.conversations {
		c := *conv
		c.MessageCount = len(s.messages[id])
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// ListMessages returns a conversation's messages in creation order
func (s *Store) ListMessages(_ context.Context, conversationID uuid.UUID) ([]db.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]db.Message{}, s.messages[conversationID]...), nil
}

// InsertMessagePair appends a user message and the assistant reply
func (s *Store) InsertMessagePair(_ context.Context, conversationID uuid.UUID, userContent, assistantContent string) ([2]db.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pair [2]db.Message
	conv, ok := s.conversations[conversationID]
	if !ok {
		return pair, fmt.Errorf("conversation %s: %w", conversationID, errs.ErrConversationNotFound)
	}

	pair[0] = db.Message{ID: uuid.New(), ConversationID: conversationID, Role: db.RoleUser, Content: userContent, CreatedAt: s.tick()}
	pair[1] = db.Message{ID: uuid.New(), ConversationID: conversationID, Role: db.RoleAssistant, Content: assistantContent, CreatedAt: s.tick()}
	s.messages[conversationID] = append(s.messages[conversationID], pair[0], pair[1])
	conv.UpdatedAt = s.tick()
	return pair, nil
}

// UpdateConversationTitle sets a conversation's title
func (s *Store) UpdateConversationTitle(_ context.Context, id uuid.UUID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, errs.ErrConversationNotFound)
	}
	conv.Title = title
	return nil
}

// DeleteConversation removes a conversation and its messages
func (s *Store) DeleteConversation(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("conversation %s: %w", id, errs.ErrConversationNotFound)
	}
	delete(s.messages, id)
	delete(s.conversations, id)
	return nil
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// L2 is the Euclidean distance between two equal-length vectors
func L2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
