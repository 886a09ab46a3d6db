package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/jobalert/internal/model"
	"github.com/hitoshi/jobalert/internal/repository"
)

// --- モック定義 ---

type mockJobRepo struct {
	listRecentFn        func(ctx context.Context, category string, limit int) ([]*model.Job, error)
	countFn             func(ctx context.Context) (int, error)
	countCreatedSinceFn func(ctx context.Context, since time.Time) (int, error)
}

func (m *mockJobRepo) ListRecent(ctx context.Context, category string, limit int) ([]*model.Job, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, category, limit)
	}
	return nil, nil
}

func (m *mockJobRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockJobRepo) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	if m.countCreatedSinceFn != nil {
		return m.countCreatedSinceFn(ctx, since)
	}
	return 0, nil
}

type mockStatsUserRepo struct {
	countFn func(ctx context.Context) (int, error)
}

func (m *mockStatsUserRepo) FindByID(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}
func (m *mockStatsUserRepo) FindByTwitterID(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}
func (m *mockStatsUserRepo) FindByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, nil
}
func (m *mockStatsUserRepo) Create(_ context.Context, _ *model.User) error { return nil }
func (m *mockStatsUserRepo) UpdateOnboarding(_ context.Context, _ string, _ repository.OnboardingUpdate) error {
	return nil
}
func (m *mockStatsUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

var _ repository.JobRepository = (*mockJobRepo)(nil)
var _ repository.UserRepository = (*mockStatsUserRepo)(nil)

// --- テスト ---

func TestJobHandlerList_Defaults(t *testing.T) {
	var gotCategory string
	var gotLimit int
	jobRepo := &mockJobRepo{
		listRecentFn: func(_ context.Context, category string, limit int) ([]*model.Job, error) {
			gotCategory = category
			gotLimit = limit
			return []*model.Job{
				{ID: "job-1", Title: "Goエンジニア", Category: "backend"},
				{ID: "job-2", Title: "SRE", Category: "devops"},
			}, nil
		},
	}
	h := NewJobHandler(jobRepo, &mockStatsUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotCategory != "" {
		t.Errorf("category = %q, want empty", gotCategory)
	}
	if gotLimit != defaultJobLimit {
		t.Errorf("limit = %d, want %d", gotLimit, defaultJobLimit)
	}

	var resp jobListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 || len(resp.Jobs) != 2 {
		t.Errorf("count = %d, jobs = %d, want 2", resp.Count, len(resp.Jobs))
	}
}

func TestJobHandlerList_CategoryAndLimit(t *testing.T) {
	var gotCategory string
	var gotLimit int
	jobRepo := &mockJobRepo{
		listRecentFn: func(_ context.Context, category string, limit int) ([]*model.Job, error) {
			gotCategory = category
			gotLimit = limit
			return nil, nil
		},
	}
	h := NewJobHandler(jobRepo, &mockStatsUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?category=backend&limit=10", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if gotCategory != "backend" {
		t.Errorf("category = %q, want backend", gotCategory)
	}
	if gotLimit != 10 {
		t.Errorf("limit = %d, want 10", gotLimit)
	}

	// 結果が空でもjobsは空配列で返すこと
	var resp jobListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Jobs == nil {
		t.Error("jobs should be an empty array, not null")
	}
}

func TestJobHandlerList_LimitCapped(t *testing.T) {
	var gotLimit int
	jobRepo := &mockJobRepo{
		listRecentFn: func(_ context.Context, _ string, limit int) ([]*model.Job, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	h := NewJobHandler(jobRepo, &mockStatsUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?limit=99999", nil)
	rec := httptest.NewRecorder()

	h.List(rec, req)

	if gotLimit != maxJobLimit {
		t.Errorf("limit = %d, want capped at %d", gotLimit, maxJobLimit)
	}
}

func TestJobHandlerList_InvalidLimit(t *testing.T) {
	h := NewJobHandler(&mockJobRepo{}, &mockStatsUserRepo{})

	for _, limit := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs?limit="+limit, nil)
		rec := httptest.NewRecorder()

		h.List(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want %d", limit, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestJobHandlerStats(t *testing.T) {
	jobRepo := &mockJobRepo{
		countFn: func(_ context.Context) (int, error) { return 1234, nil },
		countCreatedSinceFn: func(_ context.Context, since time.Time) (int, error) {
			if time.Since(since) > 24*time.Hour {
				t.Errorf("since should be within the last 24h, got %v", since)
			}
			return 17, nil
		},
	}
	userRepo := &mockStatsUserRepo{
		countFn: func(_ context.Context) (int, error) { return 89, nil },
	}
	h := NewJobHandler(jobRepo, userRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TotalJobs != 1234 || resp.TotalUsers != 89 || resp.JobsToday != 17 {
		t.Errorf("unexpected stats: %+v", resp)
	}
}

func TestJobHandlerStats_RepoError(t *testing.T) {
	jobRepo := &mockJobRepo{
		countFn: func(_ context.Context) (int, error) {
			return 0, fmt.Errorf("connection refused")
		},
	}
	h := NewJobHandler(jobRepo, &mockStatsUserRepo{})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	h.Stats(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
