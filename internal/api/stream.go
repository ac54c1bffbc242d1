package api

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// StreamFrame is written to the socket for every chunk, at the end of a
// reply, and on failure.
type StreamFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	Error          string `json:"error,omitempty"`
}

const (
	frameChunk = "chunk"
	frameDone  = "done"
	frameError = "error"
)

// handleChatStream upgrades to a websocket and answers each ChatRequest
// read from it with a run of chunk frames followed by a done frame.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	s.logger.Info().Str("remote", r.RemoteAddr).Msg("stream connected")

	for {
		var req ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("stream read failed")
			}
			return
		}

		if req.Message == "" {
			if err := conn.WriteJSON(StreamFrame{Type: frameError, Error: "message is required"}); err != nil {
				return
			}
			continue
		}

		convID := s.conversationID(req.ConversationID)
		history := s.store.History(convID)

		var writeErr error
		content, newHistory, err := s.agent.Stream(r.Context(), req.Message, history, func(chunk string) {
			if writeErr != nil || chunk == "" {
				return
			}
			writeErr = conn.WriteJSON(StreamFrame{Type: frameChunk, ConversationID: convID, Content: chunk})
		})
		if writeErr != nil {
			s.logger.Warn().Err(writeErr).Msg("stream write failed")
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("stream chat error")
			if err := conn.WriteJSON(StreamFrame{Type: frameError, ConversationID: convID, Error: err.Error()}); err != nil {
				return
			}
			continue
		}

		s.store.Update(convID, newHistory)

		if err := conn.WriteJSON(StreamFrame{Type: frameDone, ConversationID: convID, Content: content}); err != nil {
			return
		}
	}
}
