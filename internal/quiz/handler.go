package quiz

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/quizbank/backend/internal/middleware"
	"github.com/quizbank/backend/internal/models"
)

// Where the client should go after a soft outcome.
const (
	nextSelect   = "select"
	nextQuiz     = "quiz"
	nextResult   = "result"
	nextComplete = "complete"
)

type DiagnosticsSource interface {
	Diagnostics() models.Diagnostics
}

type Handler struct {
	service *Service
	diag    DiagnosticsSource
	log     *zap.Logger
}

func NewHandler(service *Service, diag DiagnosticsSource, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, diag: diag, log: log}
}

// RegisterRoutes registers the quiz endpoints on the session-scoped subrouter.
func (h *Handler) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/quizzes", h.GetOverview).Methods("GET")
	api.HandleFunc("/quizzes/select", h.SelectQuiz).Methods("POST")

	api.HandleFunc("/attempts", h.StartAttempt).Methods("POST")
	api.HandleFunc("/attempts/current", h.GetCurrentQuestion).Methods("GET")
	api.HandleFunc("/attempts/current/answer", h.SubmitAnswer).Methods("POST")
	api.HandleFunc("/attempts/current/finalize", h.FinalizeAttempt).Methods("POST")

	api.HandleFunc("/wrong-answers", h.GetWrongAnswers).Methods("GET")
	api.HandleFunc("/history", h.GetHistory).Methods("GET")
	api.HandleFunc("/complete", h.GetCompletion).Methods("GET")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")

	api.HandleFunc("/reset", h.Reset).Methods("POST")
	api.HandleFunc("/reset-all", h.ResetAll).Methods("POST")
}

func getSessionID(r *http.Request) (string, bool) {
	return middleware.SessionID(r.Context())
}

func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.Overview(r.Context(), sid)
	if err != nil {
		h.writeOutcome(w, "GetOverview", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SelectQuiz(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	var req models.SelectQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.SelectBank(r.Context(), sid, req.QuizID)
	if err != nil {
		h.writeOutcome(w, "SelectQuiz", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.StartAttempt(r.Context(), sid)
	if err != nil {
		h.writeOutcome(w, "StartAttempt", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetCurrentQuestion(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.CurrentQuestion(r.Context(), sid)
	if err != nil {
		h.writeOutcome(w, "GetCurrentQuestion", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	var req models.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.service.SubmitAnswer(r.Context(), sid, req.Answer)
	if err != nil {
		h.writeOutcome(w, "SubmitAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) FinalizeAttempt(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.FinalizeAttempt(r.Context(), sid)
	if err != nil {
		h.writeOutcome(w, "FinalizeAttempt", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Review Handlers ─────────────────────────────────────

func (h *Handler) GetWrongAnswers(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.WrongAnswers(r.Context(), sid)
	if err != nil {
		h.writeOutcome(w, "GetWrongAnswers", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.History(r.Context(), sid)
	if err != nil {
		h.writeOutcome(w, "GetHistory", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.CompletionSummary(r.Context(), sid, r.URL.Query().Get("quiz_id"))
	if err != nil {
		h.writeOutcome(w, "GetCompletion", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	resp, err := h.service.Stats(r.Context(), sid)
	if err != nil {
		h.writeOutcome(w, "GetStats", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Reset Handlers ──────────────────────────────────────

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	// An empty body resets the selected bank.
	var req models.ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.ResetBank(r.Context(), sid, req.QuizID); err != nil {
		h.writeOutcome(w, "Reset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reset", "next": nextSelect})
}

func (h *Handler) ResetAll(w http.ResponseWriter, r *http.Request) {
	sid, ok := getSessionID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Session required"})
		return
	}

	if err := h.service.ResetAll(r.Context(), sid); err != nil {
		h.writeOutcome(w, "ResetAll", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reset", "next": nextSelect})
}

// Debug reports what the bank loader found.
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	if h.diag == nil {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Quiz repository not initialized"})
		return
	}
	writeJSON(w, http.StatusOK, h.diag.Diagnostics())
}

// writeOutcome maps engine outcomes onto a status and a next-step hint.
func (h *Handler) writeOutcome(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNoQuizData):
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Quiz files could not be loaded", Next: nextSelect})
	case errors.Is(err, ErrAttemptLimitReached):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Maximum attempts reached for this quiz", Next: nextComplete})
	case errors.Is(err, ErrNoActiveAttempt):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "No quiz in progress", Next: nextSelect})
	case errors.Is(err, ErrAttemptFinished):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "All questions answered", Next: nextResult})
	case errors.Is(err, ErrAttemptInProgress):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Quiz still in progress", Next: nextQuiz})
	default:
		h.log.Error("request failed", zap.String("op", op), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
