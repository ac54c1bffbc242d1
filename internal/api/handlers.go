package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nelssec/llm-workflows/internal/calendar"
	"github.com/nelssec/llm-workflows/internal/goals"
	"github.com/nelssec/llm-workflows/internal/llm"
	"github.com/nelssec/llm-workflows/internal/routing"
)

const (
	domainCalendar = "calendar"
	domainGoals    = "goals"
)

type ChatRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

type ChatResponse struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
}

type TextRequest struct {
	Text string `json:"text"`
}

type WorkflowResponse struct {
	ConversationID string `json:"conversation_id"`
	*routing.Response
}

type StateResponse struct {
	ConversationID string            `json:"conversation_id"`
	Domain         string            `json:"domain"`
	State          map[string]string `json:"state"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	convID := s.conversationID(req.ConversationID)
	history := s.store.History(convID)

	response, newHistory, err := s.agent.Chat(r.Context(), req.Message, history)
	if err != nil {
		s.logger.Error().Err(err).Msg("chat error")
		s.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.store.Update(convID, newHistory)

	s.writeJSON(w, ChatResponse{
		ConversationID: convID,
		Response:       response,
	})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	req, client, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	event, err := calendar.Extract(r.Context(), client, req.Text)
	if err != nil {
		s.logger.Error().Err(err).Msg("extract error")
		s.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, event)
}

func (s *Server) handleChain(w http.ResponseWriter, r *http.Request) {
	req, client, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	result, err := calendar.NewChain(client, s.logger).Run(r.Context(), req.Text)
	if err != nil {
		s.logger.Error().Err(err).Msg("chain error")
		s.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	s.handleWorkflow(w, r, domainCalendar)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	s.handleWorkflow(w, r, domainGoals)
}

func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request, domain string) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	client := s.router.Route(req.Message)
	if client == nil {
		s.writeError(w, "no LLM client available", http.StatusServiceUnavailable)
		return
	}

	convID := s.conversationID(req.ConversationID)
	state := routing.WithState(s.store.State(convID, domain))

	var resp *routing.Response
	var err error
	switch domain {
	case domainCalendar:
		resp, err = calendar.NewAssistant(client, s.logger, state).Process(r.Context(), req.Message)
	case domainGoals:
		resp, err = goals.NewAssistant(client, s.logger, state).Process(r.Context(), req.Message)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("domain", domain).Msg("workflow error")
		s.writeError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.writeJSON(w, WorkflowResponse{ConversationID: convID, Response: resp})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	domain := chi.URLParam(r, "domain")
	if domain != domainCalendar && domain != domainGoals {
		s.writeError(w, "unknown domain: "+domain, http.StatusNotFound)
		return
	}

	convID := r.URL.Query().Get("conversation_id")
	if convID == "" {
		s.writeError(w, "conversation_id is required", http.StatusBadRequest)
		return
	}

	state, ok := s.store.Snapshot(convID, domain)
	if !ok {
		s.writeError(w, "conversation not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, StateResponse{ConversationID: convID, Domain: domain, State: state})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":        "ok",
		"conversations": s.store.Len(),
	})
}

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (*ChatRequest, bool) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if req.Message == "" {
		s.writeError(w, "message is required", http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

func (s *Server) decodeText(w http.ResponseWriter, r *http.Request) (*TextRequest, llm.Client, bool) {
	var req TextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return nil, nil, false
	}
	if req.Text == "" {
		s.writeError(w, "text is required", http.StatusBadRequest)
		return nil, nil, false
	}

	client := s.router.Route(req.Text)
	if client == nil {
		s.writeError(w, "no LLM client available", http.StatusServiceUnavailable)
		return nil, nil, false
	}
	return &req, client, true
}

// conversationID returns id, or a fresh one, and makes sure the
// conversation exists.
func (s *Server) conversationID(id string) string {
	if id == "" {
		id = uuid.New().String()
	}
	s.store.Open(id)
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
