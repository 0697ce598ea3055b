package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"` // "ask" or "search"
	ID      string `json:"id"`   // echoed back so clients can match replies
	Content string `json:"content"`
	K       int    `json:"k,omitempty"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type     string `json:"type"` // "response", "passages" or "error"
	ID       string `json:"id,omitempty"`
	Content  string `json:"content,omitempty"`
	HTML     string `json:"html,omitempty"`
	Passages any    `json:"passages,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.WarnContext(r.Context(), "websocket read", "error", err)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			s.sendError(conn, r, "", "invalid message format")
			continue
		}

		if req.Content == "" {
			s.sendError(conn, r, req.ID, "content is required")
			continue
		}

		switch req.Type {
		case "ask":
			s.handleAskMessage(conn, r, req)
		case "search":
			s.handleSearchMessage(conn, r, req)
		default:
			s.sendError(conn, r, req.ID, "unknown message type: "+req.Type)
		}
	}
}

func (s *Server) handleAskMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	if s.asker == nil {
		s.sendError(conn, r, req.ID, errNoLLM)
		return
	}

	ans, err := s.asker.Ask(r.Context(), req.Content)
	if err != nil {
		s.sendError(conn, r, req.ID, "question failed: "+err.Error())
		return
	}

	resp := chatResponse{Type: "response", ID: req.ID, Content: ans.Response}
	if html, err := s.renderHTML(ans.Response); err == nil {
		resp.HTML = html
	}
	s.send(conn, r, resp)
}

func (s *Server) handleSearchMessage(conn *websocket.Conn, r *http.Request, req chatRequest) {
	passages, err := s.retriever.Retrieve(r.Context(), req.Content, req.K)
	if err != nil {
		s.sendError(conn, r, req.ID, "search failed: "+err.Error())
		return
	}
	s.send(conn, r, chatResponse{Type: "passages", ID: req.ID, Passages: passages})
}

func (s *Server) send(conn *websocket.Conn, r *http.Request, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		s.logger.WarnContext(r.Context(), "websocket write", "error", err)
	}
}

func (s *Server) sendError(conn *websocket.Conn, r *http.Request, id, message string) {
	s.send(conn, r, chatResponse{Type: "error", ID: id, Content: message})
}
