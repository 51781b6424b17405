package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/author-ai/author/internal/logging"
	"github.com/author-ai/author/internal/relay"
	"github.com/author-ai/author/internal/session"
	"github.com/author-ai/author/internal/storage"
	"github.com/author-ai/author/pkg/types"
)

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name": "author",
		"mode": s.appConfig.Mode,
	})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.threads.ListThreads(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

type createThreadRequest struct {
	Directory string `json:"directory"`
	Title     string `json:"title"`
	Mode      string `json:"mode"`
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Mode != "" && !validMode(req.Mode) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown mode: "+req.Mode)
		return
	}
	if req.Directory == "" {
		req.Directory = s.config.Directory
	}
	if req.Mode == "" {
		req.Mode = s.appConfig.Mode
	}

	thread, err := s.threads.CreateThread(r.Context(), req.Directory, req.Title, req.Mode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	s.publishThread(thread)
	writeJSON(w, http.StatusCreated, thread)
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	thread, ok := s.loadThread(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

type updateThreadRequest struct {
	Title *string `json:"title"`
	Mode  *string `json:"mode"`
}

func (s *Server) updateThread(w http.ResponseWriter, r *http.Request) {
	thread, ok := s.loadThread(w, r)
	if !ok {
		return
	}

	var req updateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Mode != nil && !validMode(*req.Mode) {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown mode: "+*req.Mode)
		return
	}

	if req.Title != nil {
		thread.Title = *req.Title
	}
	if req.Mode != nil {
		thread.Mode = *req.Mode
	}
	if err := s.threads.UpdateThread(r.Context(), thread); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	s.publishThread(thread)
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	// An in-flight turn is aborted before its thread disappears.
	if err := s.registry.Cancel(threadID); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	s.registry.Drop(threadID)

	if err := s.threads.DeleteThread(r.Context(), threadID); err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	thread, ok := s.loadThread(w, r)
	if !ok {
		return
	}
	messages, err := s.threads.ListMessages(r.Context(), thread.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

type sendMessageResponse struct {
	ThreadID string `json:"threadID"`
	Status   string `json:"status"`
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	thread, ok := s.loadThread(w, r)
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "content is required")
		return
	}

	// The turn outlives this request, so it must not inherit the request
	// context: the stream is torn down through the registry, not by the
	// client hanging up on this POST.
	m, err := s.runner.Send(context.Background(), thread, req.Content)
	if err != nil {
		if errors.Is(err, session.ErrAlreadyStreaming) {
			writeError(w, http.StatusConflict, ErrCodeAlreadyStreaming, "thread already has a turn in flight")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, sendMessageResponse{
		ThreadID: thread.ID,
		Status:   string(m.Status()),
	})
}

func (s *Server) abortThread(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	if err := s.registry.Cancel(threadID); err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "no active turn for thread")
			return
		}
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	writeSuccess(w)
}

func (s *Server) getThreadStatus(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	status := string(session.StatusIdle)
	if m := s.registry.Get(threadID); m != nil {
		status = string(m.Status())
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"threadID": threadID,
		"status":   status,
	})
}

// loadThread resolves the threadID route parameter, writing the error
// response itself when the thread cannot be served.
func (s *Server) loadThread(w http.ResponseWriter, r *http.Request) (*types.Thread, bool) {
	threadID := chi.URLParam(r, "threadID")
	thread, err := s.threads.GetThread(r.Context(), threadID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "thread not found")
		} else {
			writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		}
		return nil, false
	}
	return thread, true
}

// publishThread announces thread metadata changes on the relay so UIs can
// refresh their thread list without polling.
func (s *Server) publishThread(thread *types.Thread) {
	if err := s.relay.Publish(relay.ThreadUpdated, relay.ThreadPayload{ThreadID: thread.ID, Thread: thread}); err != nil {
		logging.Warn().Err(err).Str("threadID", thread.ID).Msg("failed to publish thread update")
	}
}

func validMode(mode string) bool {
	switch mode {
	case types.ModeFiction, types.ModeNonFiction, types.ModeAcademic:
		return true
	}
	return false
}
