package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/jobalert/internal/model"
	"github.com/hitoshi/jobalert/internal/repository"
)

// 求人一覧のデフォルト・最大取得件数。
const (
	defaultJobLimit = 50
	maxJobLimit     = 200
)

// JobHandler は求人一覧と統計情報のHTTPハンドラー。
type JobHandler struct {
	jobRepo  repository.JobRepository
	userRepo repository.UserRepository
}

// NewJobHandler はJobHandlerを生成する。
func NewJobHandler(jobRepo repository.JobRepository, userRepo repository.UserRepository) *JobHandler {
	return &JobHandler{
		jobRepo:  jobRepo,
		userRepo: userRepo,
	}
}

// jobResponse は求人のAPIレスポンス。
type jobResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// jobListResponse は求人一覧のレスポンス。
type jobListResponse struct {
	Jobs  []jobResponse `json:"jobs"`
	Count int           `json:"count"`
}

// statsResponse はサービス統計のレスポンス。
type statsResponse struct {
	TotalJobs  int `json:"total_jobs"`
	TotalUsers int `json:"total_users"`
	JobsToday  int `json:"jobs_today"`
}

// List は新着順の求人一覧を返す。
// GET /api/jobs?category=xxx&limit=nn
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	limit := defaultJobLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("limitは正の整数を指定してください"))
			return
		}
		limit = parsed
	}
	if limit > maxJobLimit {
		limit = maxJobLimit
	}

	jobs, err := h.jobRepo.ListRecent(r.Context(), category, limit)
	if err != nil {
		slog.Error("failed to list jobs", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	items := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, jobResponse{
			ID:          job.ID,
			Title:       job.Title,
			Company:     job.Company,
			Description: job.Description,
			Category:    job.Category,
			URL:         job.URL,
			Source:      job.Source,
			CreatedAt:   job.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, jobListResponse{
		Jobs:  items,
		Count: len(items),
	})
}

// Stats はサービス全体の統計情報を返す。
// GET /api/stats
func (h *JobHandler) Stats(w http.ResponseWriter, r *http.Request) {
	totalJobs, err := h.jobRepo.Count(r.Context())
	if err != nil {
		slog.Error("failed to count jobs", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	totalUsers, err := h.userRepo.Count(r.Context())
	if err != nil {
		slog.Error("failed to count users", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	startOfDay := time.Now().Truncate(24 * time.Hour)
	jobsToday, err := h.jobRepo.CountCreatedSince(r.Context(), startOfDay)
	if err != nil {
		slog.Error("failed to count today's jobs", slog.String("error", err.Error()))
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalJobs:  totalJobs,
		TotalUsers: totalUsers,
		JobsToday:  jobsToday,
	})
}
