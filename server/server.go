package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/xhad/ragbot/internal/app"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Origins allowed to call the API from a browser (local chat UIs).
var allowedOrigins = map[string]bool{
	"http://localhost":      true,
	"http://localhost:8501": true,
	"http://127.0.0.1:8501": true,
	"http://localhost:8000": true,
	"http://127.0.0.1:8000": true,
}

type QueryRequest struct {
	Query string `json:"query"`
}

type QueryResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Message is the websocket chat frame.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type Server struct {
	app *app.App
	log *slog.Logger
}

func New(a *app.App) *Server {
	return &Server{app: a, log: slog.Default()}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	return s.withCORS(mux)
}

func (s *Server) Run(addr string) error {
	s.log.Info("starting server", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Detail: "method not allowed"})
		return
	}

	if !s.app.Ready() {
		writeJSON(w, http.StatusServiceUnavailable,
			errorResponse{Detail: "Chat service is not ready. Please try again later."})
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "query must not be empty"})
		return
	}

	s.log.Info("received query", "query", req.Query)

	answer, err := s.app.Chain.GenerateResponse(r.Context(), req.Query)
	if err != nil {
		s.log.Error("error generating response", "query", req.Query, "error", err)
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{Detail: "Error generating response: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{Response: answer})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.app.Ready() {
		writeJSON(w, http.StatusServiceUnavailable,
			errorResponse{Detail: "RAG chatbot API is starting up or has issues."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "RAG chatbot API is running and ready.",
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			s.log.Warn("error reading websocket message", "error", err)
			break
		}
		if msg.Content == "" {
			s.sendMessage(conn, "error", "query must not be empty")
			continue
		}

		var answer string
		var err error
		if s.streaming() {
			answer, err = s.app.Chain.StreamResponse(r.Context(), msg.Content, func(token string) {
				s.sendMessage(conn, "stream", token)
			})
		} else {
			answer, err = s.app.Chain.GenerateResponse(r.Context(), msg.Content)
		}
		if err != nil {
			s.log.Error("error generating response", "query", msg.Content, "error", err)
			s.sendMessage(conn, "error", err.Error())
			continue
		}
		// The final response frame carries the full answer and marks
		// the end of any stream.
		s.sendMessage(conn, "response", answer)
	}
}

func (s *Server) streaming() bool {
	return s.app != nil && s.app.Config != nil && s.app.Config.API.Streaming
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(Message{Type: msgType, Content: content}); err != nil {
		s.log.Error("error sending websocket message", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
