package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"practice-arena-service/internal/app"
	"practice-arena-service/internal/domain"
)

// APIHandler exposes the REST surface: submissions, daily questions,
// leaderboard pages, student statistics, and the admin catalog.
type APIHandler struct {
	progress    *app.ProgressService
	selector    *app.Selector
	leaderboard *app.Leaderboard
	stats       *app.StatsService
	admin       *app.AdminService
}

func NewAPIHandler(progress *app.ProgressService, selector *app.Selector, leaderboard *app.Leaderboard, stats *app.StatsService, admin *app.AdminService) *APIHandler {
	return &APIHandler{
		progress:    progress,
		selector:    selector,
		leaderboard: leaderboard,
		stats:       stats,
		admin:       admin,
	}
}

// Register mounts all routes on the mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/submissions", h.submitSolution)
	mux.HandleFunc("GET /api/students/{id}/daily-question", h.dailyQuestion)
	mux.HandleFunc("GET /api/students/{id}/statistics", h.statistics)
	mux.HandleFunc("GET /api/students/{id}/activity", h.activity)
	mux.HandleFunc("GET /api/students/{id}/progress/{questionId}", h.questionProgress)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboardPage)
	mux.HandleFunc("GET /api/tags", h.tags)

	mux.HandleFunc("POST /api/admin/questions", h.createQuestion)
	mux.HandleFunc("PUT /api/admin/questions/{id}", h.updateQuestion)
	mux.HandleFunc("DELETE /api/admin/questions/{id}", h.deleteQuestion)
	mux.HandleFunc("POST /api/admin/badges", h.createBadge)
	mux.HandleFunc("PUT /api/admin/badges/{id}", h.updateBadge)
	mux.HandleFunc("DELETE /api/admin/badges/{id}", h.deleteBadge)
	mux.HandleFunc("POST /api/admin/daily-run", h.dailyRun)
}

type submitRequest struct {
	StudentID  string `json:"studentId"`
	QuestionID string `json:"questionId"`
	Code       string `json:"code"`
	Language   string `json:"language"`
}

func (h *APIHandler) submitSolution(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.progress.RecordSubmission(r.Context(), req.StudentID, req.QuestionID, req.Code, req.Language)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) dailyQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.selector.Current(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if q == nil {
		writeError(w, http.StatusNotFound, "no question assigned for today")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *APIHandler) statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.StudentStatistics(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *APIHandler) activity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.stats.RecentActivity(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": entries})
}

func (h *APIHandler) questionProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.progress.GetProgress(r.Context(), r.PathValue("id"), r.PathValue("questionId"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) leaderboardPage(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	lp, err := h.leaderboard.Page(r.Context(), page, pageSize)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lp)
}

func (h *APIHandler) tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.admin.Tags(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (h *APIHandler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := h.admin.CreateQuestion(r.Context(), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *APIHandler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	q, err := h.admin.UpdateQuestion(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *APIHandler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "question deleted"})
}

func (h *APIHandler) createBadge(w http.ResponseWriter, r *http.Request) {
	var in app.BadgeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.admin.CreateBadge(r.Context(), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *APIHandler) updateBadge(w http.ResponseWriter, r *http.Request) {
	var in app.BadgeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b, err := h.admin.UpdateBadge(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *APIHandler) deleteBadge(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.DeleteBadge(r.Context(), r.PathValue("id")); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "badge deleted"})
}

func (h *APIHandler) dailyRun(w http.ResponseWriter, r *http.Request) {
	if err := h.selector.RunForAll(r.Context(), time.Now().UTC()); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "daily selection complete"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeFailure maps application errors to HTTP statuses.
func writeFailure(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "validation failed",
			"fields":  ve.Fields,
		})
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
