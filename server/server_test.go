package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/xhad/ragbot/internal/app"
	"github.com/xhad/ragbot/internal/models"
	"github.com/xhad/ragbot/pkg/config"
	"github.com/xhad/ragbot/pkg/llm"
	"github.com/xhad/ragbot/pkg/rag"
	"github.com/xhad/ragbot/pkg/store"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeModel struct {
	response string
	tokens   []string
}

func (f *fakeModel) GenerateContent(ctx context.Context, _ []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	if opts.StreamingFunc != nil {
		for _, token := range f.tokens {
			if err := opts.StreamingFunc(ctx, []byte(token)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.response}}}, nil
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return f.response, nil
}

func newTestApp(t *testing.T, cfg *config.Config, model *fakeModel) *app.App {
	t.Helper()

	vs := store.NewMemory(3)
	require.NoError(t, vs.Init(context.Background()))
	require.NoError(t, vs.Upsert(context.Background(),
		[]models.Chunk{models.NewChunk("Changi Airport has four terminals.", "https://www.changiairport.com")},
		[][]float32{{1, 0, 0}},
	))

	retriever := rag.NewRetriever(fakeEmbedder{}, vs, 3)
	engine := llm.NewChatWithModel(model, llm.ChatConfig{})
	return app.NewFromComponents(cfg, nil, vs, retriever, rag.NewChain(retriever, engine))
}

func readyApp(t *testing.T) *app.App {
	t.Helper()
	return newTestApp(t, nil, &fakeModel{response: "Four."})
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func TestChatEndpoint(t *testing.T) {
	srv := New(readyApp(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat", "application/json",
		strings.NewReader(`{"query": "How many terminals does Changi have?"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Four.", body.Response)
}

func TestChatEndpointRejectsEmptyQuery(t *testing.T) {
	srv := New(readyApp(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/chat", "application/json", strings.NewReader(`{"query": ""}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatEndpointMethodNotAllowed(t *testing.T) {
	srv := New(readyApp(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestNotReadyReturns503(t *testing.T) {
	srv := New(&app.App{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/chat", "application/json", strings.NewReader(`{"query": "q"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHealthWhenReady(t *testing.T) {
	srv := New(readyApp(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWebSocketChat(t *testing.T) {
	srv := New(readyApp(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "query", Content: "How many terminals does Changi have?"}))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "response", msg.Type)
	assert.Equal(t, "Four.", msg.Content)
}

func TestWebSocketStreamsTokensWhenEnabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.API.Streaming = true

	srv := New(newTestApp(t, cfg, &fakeModel{
		response: "Four.",
		tokens:   []string{"Fo", "ur."},
	}))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "query", Content: "How many terminals does Changi have?"}))

	// Token frames arrive first; the response frame carries the full
	// answer and ends the stream.
	var streamed []string
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "response" {
			assert.Equal(t, "Four.", msg.Content)
			break
		}
		require.Equal(t, "stream", msg.Type)
		streamed = append(streamed, msg.Content)
	}
	assert.Equal(t, []string{"Fo", "ur."}, streamed)
}

func TestWebSocketRejectsEmptyQuery(t *testing.T) {
	srv := New(readyApp(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "query", Content: ""}))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
}

func TestCORSHeadersForAllowedOrigin(t *testing.T) {
	srv := New(readyApp(t))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/chat", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:8501")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:8501", resp.Header.Get("Access-Control-Allow-Origin"))
}
