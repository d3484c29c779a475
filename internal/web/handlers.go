package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xaenox/intent-bot/internal/chatbot"
	"github.com/xaenox/intent-bot/internal/models"
	"github.com/xaenox/intent-bot/internal/voice"
	"go.uber.org/zap"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	models.Reply
	Farewell string `json:"farewell,omitempty"`
}

type voiceResponse struct {
	Transcript string        `json:"transcript,omitempty"`
	Reply      *chatResponse `json:"reply,omitempty"`
	Skipped    bool          `json:"skipped,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newChatResponse(reply models.Reply) *chatResponse {
	resp := &chatResponse{Reply: reply}
	if reply.Ended {
		resp.Farewell = chatbot.FarewellMessage
	}
	return resp
}

func (s *Server) render(w http.ResponseWriter, page string, data interface{}) {
	var buf strings.Builder
	if err := s.templates[page].Execute(&buf, data); err != nil {
		s.logger.Error("Failed to render page", zap.Error(err), zap.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(buf.String()))
}

type pageData struct {
	Page         string
	VoiceEnabled bool
	Entries      []models.ConversationEntry
	Error        string
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home", pageData{Page: "home", VoiceEnabled: s.service.VoiceEnabled()})
}

func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	data := pageData{Page: "history"}
	entries, err := s.service.History(r.Context(), s.cfg.HistoryLimit)
	if err != nil {
		s.logger.Error("Failed to load history", zap.Error(err))
		data.Error = "Could not load the conversation history."
	}
	data.Entries = entries
	s.render(w, "history", data)
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	s.render(w, "about", pageData{Page: "about"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	reply := s.service.Handle(r.Context(), req.Message, models.SourceWeb)
	writeJSON(w, http.StatusOK, newChatResponse(reply))
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if !s.service.VoiceEnabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: chatbot.ErrVoiceDisabled.Error()})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, voice.MaxAudioBytes+1<<20)
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "audio file is required"})
		return
	}
	defer file.Close()

	transcript, reply, err := s.service.HandleVoice(r.Context(), file, header.Filename, models.SourceWeb)
	if err != nil {
		if errors.Is(err, chatbot.ErrVoiceDisabled) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
		// A failed recognition skips the turn; nothing is logged.
		writeJSON(w, http.StatusOK, voiceResponse{Skipped: true, Error: voice.Message(err)})
		return
	}

	writeJSON(w, http.StatusOK, voiceResponse{Transcript: transcript, Reply: newChatResponse(reply)})
}

func (s *Server) handleHistoryAPI(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	entries, err := s.service.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to load history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load history"})
		return
	}
	if entries == nil {
		entries = []models.ConversationEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.service.History(r.Context(), 1); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
