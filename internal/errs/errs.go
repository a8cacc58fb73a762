// Package errs defines the error taxonomy shared by the ingestion, retrieval
// and completion paths, together with the policy that decides whether an
// error aborts the current request or is absorbed.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFileType indicates an upload that is neither PDF, DOCX, EPUB nor plain text.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrEmbeddingService indicates the remote embedding call failed or returned an unusable vector.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrModelUnavailable indicates the chat model could not be reached or rejected the request.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrUnknownTool indicates the model asked for a tool outside the catalog.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrToolExecution indicates a known tool failed while running.
	ErrToolExecution = errors.New("tool execution failed")

	// ErrConversationNotFound indicates a conversation id with no row behind it.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrDocumentNotFound indicates a document id with no row behind it.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrPersistence indicates a database read or write failed.
	ErrPersistence = errors.New("persistence error")

	// ErrInvalidInput indicates malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
)

// UnknownToolError carries the tool name the model requested.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// Is reports whether target is ErrUnknownTool.
func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// Persistence wraps err as a persistence failure unless it already carries a
// more specific kind (not-found errors pass through untouched).
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConversationNotFound) || errors.Is(err, ErrDocumentNotFound) || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
