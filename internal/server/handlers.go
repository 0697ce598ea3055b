package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ziadkadry99/podcast-rag/internal/answer"
	"github.com/ziadkadry99/podcast-rag/internal/retrieval"
)

const (
	errMissingQuestion = "Missing question in request body"
	errMissingQuery    = "Missing query in request body"
	errNoLLM           = "LLM provider not configured"
)

type retrieveRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type retrieveResponse struct {
	Passages []retrieval.Passage `json:"passages"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Response     string `json:"response"`
	ResponseHTML string `json:"response_html,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, errMissingQuery)
		return
	}

	passages, err := s.retriever.Retrieve(r.Context(), req.Query, req.K)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, errMissingQuery)
			return
		}
		s.logger.ErrorContext(r.Context(), "retrieve failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if passages == nil {
		passages = []retrieval.Passage{}
	}
	writeJSON(w, http.StatusOK, retrieveResponse{Passages: passages})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, errMissingQuestion)
		return
	}
	if s.asker == nil {
		writeError(w, http.StatusServiceUnavailable, errNoLLM)
		return
	}

	ans, err := s.asker.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, answer.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, errMissingQuestion)
			return
		}
		s.logger.ErrorContext(r.Context(), "ask failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := askResponse{Response: ans.Response}
	if html, err := s.renderHTML(ans.Response); err != nil {
		s.logger.WarnContext(r.Context(), "rendering answer html", "error", err)
	} else {
		resp.ResponseHTML = html
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
