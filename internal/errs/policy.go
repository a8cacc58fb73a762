package errs

import (
	"errors"
	"net/http"
)

// Action is what a caller does with an error of a given kind.
type Action int

const (
	// Fatal aborts the current request and surfaces the error.
	Fatal Action = iota
	// Degrade logs the error and continues without the failed contribution.
	Degrade
)

func (a Action) String() string {
	if a == Degrade {
		return "degrade"
	}
	return "fatal"
}

type rule struct {
	kind    error
	action  Action
	status  int
	message string
}

// policy is checked in order; the first kind matched with errors.Is wins.
var policy = []rule{
	{ErrInvalidInput, Fatal, http.StatusBadRequest, "Invalid request"},
	{ErrUnsupportedFileType, Fatal, http.StatusInternalServerError, "Unsupported file type"},
	{ErrConversationNotFound, Fatal, http.StatusNotFound, "Conversation not found"},
	{ErrDocumentNotFound, Fatal, http.StatusNotFound, "Document not found"},
	{ErrModelUnavailable, Fatal, http.StatusInternalServerError, "Failed to process message"},
	{ErrPersistence, Fatal, http.StatusInternalServerError, "Failed to save data"},
	{ErrEmbeddingService, Degrade, http.StatusInternalServerError, "Failed to process document"},
	{ErrUnknownTool, Degrade, http.StatusInternalServerError, "Failed to process message"},
	{ErrToolExecution, Degrade, http.StatusInternalServerError, "Failed to process message"},
}

func lookup(err error) (rule, bool) {
	for _, r := range policy {
		if errors.Is(err, r.kind) {
			return r, true
		}
	}
	return rule{}, false
}

// Disposition returns the policy action for err. Unclassified errors are fatal.
func Disposition(err error) Action {
	if r, ok := lookup(err); ok {
		return r.action
	}
	return Fatal
}

// HTTPStatus maps err to the status code a handler responds with.
func HTTPStatus(err error) int {
	if r, ok := lookup(err); ok {
		return r.status
	}
	return http.StatusInternalServerError
}

// UserMessage returns the short client-facing text for err. Internal detail
// never leaves the process.
func UserMessage(err error) string {
	if r, ok := lookup(err); ok {
		return r.message
	}
	return "Internal server error"
}
