package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"kmp.co.th/assistant-backend/internal/auth"
	"kmp.co.th/assistant-backend/internal/core"
	"kmp.co.th/assistant-backend/internal/store"
)

type APIHandler struct {
	service *core.AssistantService
}

func NewAPIHandler(s *core.AssistantService) *APIHandler {
	return &APIHandler{service: s}
}

// AuthMiddleware validates the identity token minted by the ERP host
// and threads the caller's identity through the request context.
func (h *APIHandler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		identity, err := auth.ValidateToken(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "identity", identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminOnly gates the dashboard surface on the token's admin claim.
func (h *APIHandler) AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !callerIdentity(r).Admin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerIdentity(r *http.Request) *auth.Identity {
	return r.Context().Value("identity").(*auth.Identity)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// statusForError maps store sentinels onto HTTP statuses for the
// administrative surface; the chat path never returns these.
func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidArgument), errors.Is(err, store.ErrInvalidTarget):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func handleServiceError(w http.ResponseWriter, err error, logContext string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s: %v", logContext, err)
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if value, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && value >= 0 {
		return value
	}
	return fallback
}

// Widget handlers

type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "Message cannot be empty", http.StatusBadRequest)
		return
	}

	sessionID, reply, err := h.service.Chat(r.Context(), identity.User, req.SessionID, req.Message)
	if err != nil {
		handleServiceError(w, err, "Error handling chat for user "+identity.User)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{SessionID: sessionID, Response: reply})
}

type FeedbackRequest struct {
	SessionID    string `json:"session_id"`
	MessageIndex int    `json:"message_index"`
	Rating       string `json:"rating"`
	Comment      string `json:"comment,omitempty"`
}

func (h *APIHandler) SubmitFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	err := h.service.SubmitFeedback(req.SessionID, req.MessageIndex, req.Rating, req.Comment, identity.User)
	if err != nil {
		handleServiceError(w, err, "Error submitting feedback for user "+identity.User)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) MySessionsHandler(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)
	limit := queryInt(r, "limit", 20)

	sessions, err := h.service.MySessions(identity.User, limit)
	if err != nil {
		handleServiceError(w, err, "Error listing sessions for user "+identity.User)
		return
	}
	if sessions == nil {
		sessions = []store.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type SessionHistoryResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []store.Message `json:"messages"`
}

func (h *APIHandler) SessionHistoryHandler(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)
	sessionID := chi.URLParam(r, "sessionID")

	session, messages, err := h.service.SessionHistory(sessionID)
	if err != nil {
		handleServiceError(w, err, "Error getting session history")
		return
	}
	// The widget only sees its own conversations.
	if session.User != identity.User && !identity.Admin {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, SessionHistoryResponse{SessionID: session.ID, Messages: messages})
}

// Admin handlers

func (h *APIHandler) DashboardStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats()
	if err != nil {
		handleServiceError(w, err, "Error assembling dashboard stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings()
	if err != nil {
		handleServiceError(w, err, "Error loading settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *APIHandler) SaveSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var patch store.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	settings, err := h.service.UpdateSettings(patch)
	if err != nil {
		handleServiceError(w, err, "Error saving settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *APIHandler) ListToolsHandler(w http.ResponseWriter, r *http.Request) {
	infos, err := h.service.ListTools()
	if err != nil {
		handleServiceError(w, err, "Error listing tools")
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

type SessionListResponse struct {
	Sessions []store.SessionSummary `json:"sessions"`
	Total    int                    `json:"total"`
}

func (h *APIHandler) AllSessionsHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	search := r.URL.Query().Get("search")

	sessions, total, err := h.service.AllSessions(search, limit, offset)
	if err != nil {
		handleServiceError(w, err, "Error listing all sessions")
		return
	}
	if sessions == nil {
		sessions = []store.SessionSummary{}
	}
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: sessions, Total: total})
}

type SessionDetailResponse struct {
	*store.Session
	Messages []store.Message `json:"messages"`
}

func (h *APIHandler) SessionDetailHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	session, messages, err := h.service.SessionDetail(sessionID)
	if err != nil {
		handleServiceError(w, err, "Error getting session detail")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, SessionDetailResponse{Session: session, Messages: messages})
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.service.DeleteSession(sessionID); err != nil {
		handleServiceError(w, err, "Error deleting session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type FeedbackListResponse struct {
	Feedback []store.FeedbackRecord `json:"feedback"`
	Total    int                    `json:"total"`
}

func (h *APIHandler) AllFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	ratingFilter := r.URL.Query().Get("rating")

	feedback, total, err := h.service.AllFeedback(ratingFilter, limit, offset)
	if err != nil {
		handleServiceError(w, err, "Error listing feedback")
		return
	}
	if feedback == nil {
		feedback = []store.FeedbackRecord{}
	}
	writeJSON(w, http.StatusOK, FeedbackListResponse{Feedback: feedback, Total: total})
}

func (h *APIHandler) ListKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.KnowledgeEntries()
	if err != nil {
		handleServiceError(w, err, "Error listing knowledge entries")
		return
	}
	if entries == nil {
		entries = []store.KnowledgeEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type AddKnowledgeRequest struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

func (h *APIHandler) AddKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	var req AddKnowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.service.AddKnowledgeEntry(req.Question, req.Answer, req.Category)
	if err != nil {
		handleServiceError(w, err, "Error adding knowledge entry")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *APIHandler) UpdateKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	var upd store.KnowledgeUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateKnowledgeEntry(entryID, upd); err != nil {
		handleServiceError(w, err, "Error updating knowledge entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) DeleteKnowledgeHandler(w http.ResponseWriter, r *http.Request) {
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid entry id", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteKnowledgeEntry(entryID); err != nil {
		handleServiceError(w, err, "Error deleting knowledge entry")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
