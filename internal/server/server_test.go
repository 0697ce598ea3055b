package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/podcast-rag/internal/answer"
	"github.com/ziadkadry99/podcast-rag/internal/retrieval"
)

type fakeRetriever struct {
	passages []retrieval.Passage
	err      error
	gotK     int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, k int) ([]retrieval.Passage, error) {
	f.gotK = k
	return f.passages, f.err
}

type fakeAsker struct {
	response string
	err      error
}

func (f *fakeAsker) Ask(_ context.Context, question string) (*answer.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &answer.Answer{Response: f.response}, nil
}

func newTestServer(ret Retriever, asker Asker) *Server {
	return New(Config{Port: 0}, ret, asker, nil)
}

func do(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return w, out
}

func TestHealthCheck(t *testing.T) {
	w, body := do(t, newTestServer(&fakeRetriever{}, nil), "GET", "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv := New(Config{AllowAll: true}, &fakeRetriever{}, nil, nil)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestAsk(t *testing.T) {
	srv := newTestServer(&fakeRetriever{}, &fakeAsker{response: "**John:** ring the gong"})
	w, body := do(t, srv, "POST", "/ask", `{"question":"Who is the biggest size lord in VC?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if body["response"] != "**John:** ring the gong" {
		t.Errorf("response = %v", body["response"])
	}
	html, _ := body["response_html"].(string)
	if !strings.Contains(html, "<strong>John:</strong>") {
		t.Errorf("response_html = %q", html)
	}
}

func TestAskMissingQuestion(t *testing.T) {
	srv := newTestServer(&fakeRetriever{}, &fakeAsker{response: "unused"})
	for _, body := range []string{`{}`, `{"question":"  "}`, `not json`, ``} {
		w, out := do(t, srv, "POST", "/ask", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
		if out["error"] != "Missing question in request body" {
			t.Errorf("body %q: error = %v", body, out["error"])
		}
	}
}

func TestAskFailureIsServerError(t *testing.T) {
	srv := newTestServer(&fakeRetriever{}, &fakeAsker{err: errors.New("embedding failure: timeout")})
	w, out := do(t, srv, "POST", "/ask", `{"question":"q"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if out["error"] != "embedding failure: timeout" {
		t.Errorf("error = %v", out["error"])
	}
	if _, ok := out["response"]; ok {
		t.Error("failed ask must not carry a response")
	}
}

func TestAskWithoutLLM(t *testing.T) {
	w, _ := do(t, newTestServer(&fakeRetriever{}, nil), "POST", "/ask", `{"question":"q"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRetrieve(t *testing.T) {
	ret := &fakeRetriever{passages: []retrieval.Passage{
		{ID: 3, Text: "Speaker A: chips", Score: 0.9},
		{ID: 1, Text: "Speaker B: rockets", Score: 0.4},
	}}
	w, out := do(t, newTestServer(ret, nil), "POST", "/retrieve", `{"query":"chips","k":2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ret.gotK != 2 {
		t.Errorf("k = %d, want 2", ret.gotK)
	}
	passages, _ := out["passages"].([]any)
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %v", out["passages"])
	}
	first := passages[0].(map[string]any)
	if first["text"] != "Speaker A: chips" {
		t.Errorf("first passage = %v", first)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	w, out := do(t, newTestServer(&fakeRetriever{}, nil), "POST", "/retrieve", `{"query":"anything"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if passages, ok := out["passages"].([]any); !ok || len(passages) != 0 {
		t.Errorf("expected empty passages array, got %v", out["passages"])
	}
}

func TestRetrieveEmptyQueryFromService(t *testing.T) {
	ret := &fakeRetriever{err: retrieval.ErrEmptyQuery}
	w, out := do(t, newTestServer(ret, nil), "POST", "/retrieve", `{"query":"?"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if out["error"] != errMissingQuery {
		t.Errorf("error = %v", out["error"])
	}
}

func TestRetrieveErrors(t *testing.T) {
	w, _ := do(t, newTestServer(&fakeRetriever{}, nil), "POST", "/retrieve", `{"k":3}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w, _ = do(t, newTestServer(&fakeRetriever{err: errors.New("index unavailable")}, nil), "POST", "/retrieve", `{"query":"x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestWebSocketChat(t *testing.T) {
	ret := &fakeRetriever{passages: []retrieval.Passage{{ID: 1, Text: "Speaker A: hi", Score: 1}}}
	srv := newTestServer(ret, &fakeAsker{response: "Jordi: numbers."})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	exchange := func(req chatRequest) chatResponse {
		t.Helper()
		if err := conn.WriteJSON(req); err != nil {
			t.Fatalf("write: %v", err)
		}
		var resp chatResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		return resp
	}

	resp := exchange(chatRequest{Type: "ask", ID: "1", Content: "tweets?"})
	if resp.Type != "response" || resp.ID != "1" || resp.Content != "Jordi: numbers." {
		t.Errorf("ask reply = %+v", resp)
	}

	resp = exchange(chatRequest{Type: "search", ID: "2", Content: "hi", K: 5})
	if resp.Type != "passages" || ret.gotK != 5 {
		t.Errorf("search reply = %+v (k=%d)", resp, ret.gotK)
	}

	resp = exchange(chatRequest{Type: "ask", ID: "3"})
	if resp.Type != "error" || resp.Content != "content is required" {
		t.Errorf("empty content reply = %+v", resp)
	}

	resp = exchange(chatRequest{Type: "dance", ID: "4", Content: "x"})
	if resp.Type != "error" {
		t.Errorf("unknown type reply = %+v", resp)
	}
}
