package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	applog "ledgerview/internal/log"
	"ledgerview/internal/results"
	"ledgerview/internal/session"
)

type sessionResponse struct {
	ID string `json:"id"`
}

type queryRequest struct {
	Question string `json:"question"`
}

type deliverRequest struct {
	Seq      uint64          `json:"seq"`
	DataType string          `json:"data_type"`
	Type     string          `json:"type"`
	Data     json.RawMessage `json:"data"`
}

type staleResponse struct {
	Error   string                    `json:"error"`
	Current results.RenderInstruction `json:"current"`
}

type transcriptRequest struct {
	Role    session.Role `json:"role"`
	Content string       `json:"content"`
}

type transcriptResponse struct {
	Messages []session.Message `json:"messages"`
}

// controller resolves the {id} path parameter, writing 404 when it is unknown.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) (string, *session.Controller, bool) {
	id := chi.URLParam(r, "id")
	c, err := s.deps.Sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return id, nil, false
	}
	return id, c, true
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, _, err := s.deps.Sessions.Create()
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Failed to create session", err, applog.ComponentSession, applog.OpCreate, nil)
		writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{ID: id})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.deps.Sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleIssueQuery starts a query. The optional question is recorded as the
// user's turn of the transcript.
func (s *Server) handleIssueQuery(w http.ResponseWriter, r *http.Request) {
	_, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req queryRequest
	if b, err := readBody(w, r); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	} else if len(b) > 0 {
		if err := json.Unmarshal(b, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if q := sanitizeInput(req.Question); q != "" {
		if err := c.Record(session.RoleUser, q); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusCreated, c.Issue())
}

func (s *Server) handleDeliverResult(w http.ResponseWriter, r *http.Request) {
	id, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req deliverRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	env := results.Envelope{DataType: req.DataType, Type: req.Type, Data: req.Data}
	var res *results.QueryResult
	if env.Tag() != "" || len(req.Data) > 0 {
		res = results.DecodePayload(env.Tag(), env.Data)
	}

	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	inst, err := c.Deliver(session.Ticket{Seq: req.Seq}, res)
	if errors.Is(err, session.ErrStale) {
		sl.LogStale(r.Context(), id, req.Seq)
		writeJSON(w, http.StatusConflict, staleResponse{Error: err.Error(), Current: c.Current()})
		return
	}
	if err != nil {
		sl.LogError(r.Context(), "Failed to deliver result", err, applog.ComponentSession, applog.OpDeliver,
			applog.NewFields().WithSession(id, req.Seq))
		writeError(w, http.StatusInternalServerError, "could not deliver result")
		return
	}
	sl.LogDispatch(r.Context(), id, req.Seq, string(inst.Kind), string(inst.Widget))
	writeJSON(w, http.StatusOK, inst)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	_, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Current())
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	_, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	msgs := c.Transcript()
	if msgs == nil {
		msgs = []session.Message{}
	}
	writeJSON(w, http.StatusOK, transcriptResponse{Messages: msgs})
}

func (s *Server) handleAppendTranscript(w http.ResponseWriter, r *http.Request) {
	_, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	var req transcriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := c.Record(req.Role, sanitizeInput(req.Content)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleResetTranscript(w http.ResponseWriter, r *http.Request) {
	_, c, ok := s.controller(w, r)
	if !ok {
		return
	}
	c.Reset()
	w.WriteHeader(http.StatusNoContent)
}
