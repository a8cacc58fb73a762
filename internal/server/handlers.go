package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/chat"
	"github.com/docchat/docchat/internal/db"
	"github.com/docchat/docchat/internal/errs"
)

const (
	multipartMemory      = 8 << 20
	defaultTitle         = "New Conversation"
	chatFailureMessage   = "Failed to process message"
	uploadFailureMessage = "Failed to process file"
)

type uploadResponse struct {
	Success    bool      `json:"success"`
	DocumentID uuid.UUID `json:"documentId"`
	Chunks     int       `json:"chunks"`
	Skipped    bool      `json:"skipped"`
}

type messageResponse struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	Role      db.Role   `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type conversationResponse struct {
	db.Conversation
	Messages []messageResponse `json:"messages"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.failWith(w, r, fmt.Errorf("failed to read upload: %w", err), uploadFailureMessage)
		return
	}

	res, err := s.uploader.IngestUpload(r.Context(), data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		// anything past a readable file is a processing failure
		if status := errs.HTTPStatus(err); status < http.StatusInternalServerError {
			s.failStatus(w, r, err, http.StatusInternalServerError, uploadFailureMessage)
			return
		}
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:    true,
		DocumentID: res.DocumentID,
		Chunks:     res.Chunks,
		Skipped:    res.Skipped,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	message := strings.TrimSpace(r.FormValue("message"))
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	var convID uuid.UUID
	if raw := strings.TrimSpace(r.FormValue("conversationId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid conversation id")
			return
		}
		convID = id
	}

	completion, err := s.completer.Complete(r.Context(), chat.Request{Message: message, ConversationID: convID})
	if err != nil {
		msg := errs.UserMessage(err)
		if errs.HTTPStatus(err) >= http.StatusInternalServerError {
			msg = chatFailureMessage
		}
		s.failWith(w, r, err, msg)
		return
	}

	writeJSON(w, http.StatusOK, completion)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	id, ok := pathID(w, r, "Conversation ID is required")
	if !ok {
		return
	}

	if err := s.store.DeleteConversation(r.Context(), id); err != nil {
		s.failWith(w, r, err, deleteFailureMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Conversation ID is required")
	if !ok {
		return
	}
	if _, err := s.store.GetConversation(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}

	messages, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		s.failWith(w, r, err, "Failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]messageResponse{"messages": toMessageResponses(messages)})
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Conversation ID is required")
	if !ok {
		return
	}
	conv, err := s.store.GetConversation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	messages, err := s.store.ListMessages(r.Context(), id)
	if err != nil {
		s.failWith(w, r, err, "Failed to fetch messages")
		return
	}

	if conv.Title == "" {
		conv.Title = defaultTitle
	}
	writeJSON(w, http.StatusOK, conversationResponse{Conversation: *conv, Messages: toMessageResponses(messages)})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := s.store.ListConversations(r.Context())
	if err != nil {
		s.failWith(w, r, err, "Failed to fetch conversations")
		return
	}
	for i := range convs {
		if convs[i].Title == "" {
			convs[i].Title = defaultTitle
		}
	}
	if convs == nil {
		convs = []db.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context())
	if err != nil {
		s.failWith(w, r, err, "Failed to fetch documents")
		return
	}
	if docs == nil {
		docs = []db.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Document ID is required")
	if !ok {
		return
	}
	if err := s.store.DeleteDocument(r.Context(), id); err != nil {
		s.failWith(w, r, err, deleteFailureMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// pathID parses the {id} wildcard, answering 400 itself when it is blank or malformed
func pathID(w http.ResponseWriter, r *http.Request, missing string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(r.PathValue("id"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, missing)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID")
		return uuid.Nil, false
	}
	return id, true
}

func deleteFailureMessage(err error) string {
	if errs.HTTPStatus(err) == http.StatusNotFound {
		return errs.UserMessage(err)
	}
	return "Failed to delete"
}

func toMessageResponses(messages []db.Message) []messageResponse {
	out := make([]messageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, messageResponse{ID: m.ID, Content: m.Content, Role: m.Role, CreatedAt: m.CreatedAt})
	}
	return out
}
