package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/docchat/docchat/internal/errs"
)

// CreateConversation inserts an untitled conversation
func (db *DB) CreateConversation(ctx context.Context) (*Conversation, error) {
	conv := Conversation{ID: uuid.New()}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO "Conversation" (id) VALUES ($1)
		 RETURNING "createdAt", "updatedAt"`,
		conv.ID,
	).Scan(&conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, errs.Persistence("create conversation", err)
	}
	return &conv, nil
}

// GetConversation retrieves a conversation with its message count
func (db *DB) GetConversation(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	var conv Conversation
	err := db.pool.QueryRow(ctx,
		`SELECT c.id, COALESCE(c.title, ''), c."createdAt", c."updatedAt",
		        (SELECT COUNT(*) FROM "Message" m WHERE m."conversationId" = c.id)
		 FROM "Conversation" c WHERE c.id = $1`,
		id,
	).Scan(&conv.ID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.MessageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, errs.ErrConversationNotFound)
	}
	if err != nil {
		return nil, errs.Persistence("get conversation", err)
	}
	return &conv, nil
}

// ListConversations returns every conversation, most recently updated first
func (db *DB) ListConversations(ctx context.Context) ([]Conversation, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT c.id, COALESCE(c.title, ''), c."createdAt", c."updatedAt", COUNT(m.id)
		 FROM "Conversation" c
		 LEFT JOIN "Message" m ON m."conversationId" = c.id
		 GROUP BY c.id
		 ORDER BY c."updatedAt" DESC`,
	)
	if err != nil {
		return nil, errs.Persistence("list conversations", err)
	}
	defer rows.Close()

	convs := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, errs.Persistence("scan conversation", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("list conversations", err)
	}
	return convs, nil
}

// ListMessages returns a conversation's messages oldest first
func (db *DB) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]Message, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, "conversationId", role, content, "createdAt"
		 FROM "Message" WHERE "conversationId" = $1
		 ORDER BY "createdAt" ASC, id`,
		conversationID,
	)
	if err != nil {
		return nil, errs.Persistence("list messages", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, errs.Persistence("scan message", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("list messages", err)
	}
	return msgs, nil
}

// InsertMessagePair stores the user message and the assistant reply in one
// transaction and touches the conversation's updatedAt. clock_timestamp()
// gives the reply a strictly later createdAt than the question.
func (db *DB) InsertMessagePair(ctx context.Context, conversationID uuid.UUID, userContent, assistantContent string) ([2]Message, error) {
	var pair [2]Message

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return pair, errs.Persistence("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE "Conversation" SET "updatedAt" = NOW() WHERE id = $1`,
		conversationID,
	)
	if err != nil {
		return pair, errs.Persistence("touch conversation", err)
	}
	if tag.RowsAffected() == 0 {
		return pair, fmt.Errorf("conversation %s: %w", conversationID, errs.ErrConversationNotFound)
	}

	for i, m := range []struct {
		role    Role
		content string
	}{{RoleUser, userContent}, {RoleAssistant, assistantContent}} {
		msg := Message{ID: uuid.New(), ConversationID: conversationID, Role: m.role, Content: m.content}
		err := tx.QueryRow(ctx,
			`INSERT INTO "Message" (id, "conversationId", role, content, "createdAt")
			 VALUES ($1, $2, $3, $4, clock_timestamp())
			 RETURNING "createdAt"`,
			msg.ID, msg.ConversationID, string(msg.Role), msg.Content,
		).Scan(&msg.CreatedAt)
		if err != nil {
			return pair, errs.Persistence(fmt.Sprintf("insert %s message", m.role), err)
		}
		pair[i] = msg
	}

	if err := tx.Commit(ctx); err != nil {
		return pair, errs.Persistence("commit messages", err)
	}
	return pair, nil
}

// UpdateConversationTitle sets the conversation title
func (db *DB) UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE "Conversation" SET title = $2 WHERE id = $1`,
		id, title,
	)
	if err != nil {
		return errs.Persistence("update conversation title", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, errs.ErrConversationNotFound)
	}
	return nil
}

// DeleteConversation removes the messages and then the conversation row
func (db *DB) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return errs.Persistence("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM "Message" WHERE "conversationId" = $1`, id); err != nil {
		return errs.Persistence("delete messages", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM "Conversation" WHERE id = $1`, id)
	if err != nil {
		return errs.Persistence("delete conversation", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, errs.ErrConversationNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return errs.Persistence("commit delete", err)
	}
	return nil
}
