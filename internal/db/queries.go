package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/docchat/docchat/internal/errs"
)

const insertChunkSQL = `INSERT INTO "DocumentChunk"
	 (id, "documentId", content, embedding, section, page, "orderInDoc", metadata)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// FindDocumentByHash retrieves a document by the sha256 recorded in its metadata.
// It returns nil, nil when no document matches.
func (db *DB) FindDocumentByHash(ctx context.Context, hash string) (*Document, error) {
	var doc Document
	err := db.pool.QueryRow(ctx,
		`SELECT id, title, metadata
		 FROM "Document" WHERE metadata->>'sha256' = $1
		 LIMIT 1`,
		hash,
	).Scan(&doc.ID, &doc.Title, &doc.Metadata)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Persistence("get document by hash", err)
	}
	return &doc, nil
}

// InsertDocument creates a document record and returns its id
func (db *DB) InsertDocument(ctx context.Context, title string, embedding pgvector.Vector, metadata map[string]any) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO "Document" (id, title, embedding, metadata)
		 VALUES ($1, $2, $3, $4)`,
		id, title, embedding, emptyIfNil(metadata),
	)
	if err != nil {
		return uuid.Nil, errs.Persistence("insert document", err)
	}
	return id, nil
}

// InsertChunk inserts a text chunk with embedding and returns its id
func (db *DB) InsertChunk(ctx context.Context, chunk *Chunk) (uuid.UUID, error) {
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}
	_, err := db.pool.Exec(ctx, insertChunkSQL,
		chunk.ID, chunk.DocumentID, chunk.Content, chunk.Embedding,
		nullString(chunk.Section), nullInt(chunk.Page), chunk.OrderInDoc, emptyIfNil(chunk.Metadata),
	)
	if err != nil {
		return uuid.Nil, errs.Persistence("insert chunk", err)
	}
	return chunk.ID, nil
}

// InsertChunksBatch inserts chunks in slice order within one batch
func (db *DB) InsertChunksBatch(ctx context.Context, chunks []*Chunk) error {
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		batch.Queue(insertChunkSQL,
			chunk.ID, chunk.DocumentID, chunk.Content, chunk.Embedding,
			nullString(chunk.Section), nullInt(chunk.Page), chunk.OrderInDoc, emptyIfNil(chunk.Metadata),
		)
	}
	br := db.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		_, err := br.Exec()
		if err != nil {
			return errs.Persistence(fmt.Sprintf("insert chunk %d", i), err)
		}
	}
	return nil
}

// NearestChunks returns the chunks closest to embedding by Euclidean distance, nearest first
func (db *DB) NearestChunks(ctx context.Context, embedding pgvector.Vector, limit int) ([]ChunkMatch, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, "documentId", content, COALESCE(section, ''), COALESCE(page, 0), "orderInDoc",
		        embedding <-> $1 AS distance
		 FROM "DocumentChunk"
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <-> $1
		 LIMIT $2`,
		embedding, limit,
	)
	if err != nil {
		return nil, errs.Persistence("search chunks", err)
	}
	defer rows.Close()

	var matches []ChunkMatch
	for rows.Next() {
		var m ChunkMatch
		if err := rows.Scan(
			&m.ID, &m.DocumentID, &m.Content, &m.Section, &m.Page, &m.OrderInDoc, &m.Distance,
		); err != nil {
			return nil, errs.Persistence("scan chunk", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("search chunks", err)
	}
	return matches, nil
}

// ListDocuments retrieves all documents with their chunk counts
func (db *DB) ListDocuments(ctx context.Context) ([]DocumentSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT d.id, d.title, d.metadata, COUNT(c.id)
		 FROM "Document" d
		 LEFT JOIN "DocumentChunk" c ON c."documentId" = d.id
		 GROUP BY d.id
		 ORDER BY d.title, d.id`,
	)
	if err != nil {
		return nil, errs.Persistence("get documents", err)
	}
	defer rows.Close()

	docs := []DocumentSummary{}
	for rows.Next() {
		var doc DocumentSummary
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Metadata, &doc.ChunkCount); err != nil {
			return nil, errs.Persistence("scan document", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("get documents", err)
	}
	return docs, nil
}

// ListChunks returns a document's chunks in document order
func (db *DB) ListChunks(ctx context.Context, docID uuid.UUID) ([]*Chunk, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, "documentId", content, embedding, COALESCE(section, ''), COALESCE(page, 0),
		        "orderInDoc", metadata, "createdAt"
		 FROM "DocumentChunk" WHERE "documentId" = $1
		 ORDER BY "orderInDoc"`,
		docID,
	)
	if err != nil {
		return nil, errs.Persistence("get chunks", err)
	}
	defer rows.Close()

	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.Content, &c.Embedding, &c.Section, &c.Page,
			&c.OrderInDoc, &c.Metadata, &c.CreatedAt,
		); err != nil {
			return nil, errs.Persistence("scan chunk", err)
		}
		chunks = append(chunks, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence("get chunks", err)
	}
	return chunks, nil
}

// DeleteDocument deletes a document; its chunks go with it via ON DELETE CASCADE
func (db *DB) DeleteDocument(ctx context.Context, docID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM "Document" WHERE id = $1`, docID)
	if err != nil {
		return errs.Persistence("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", docID, errs.ErrDocumentNotFound)
	}
	return nil
}
