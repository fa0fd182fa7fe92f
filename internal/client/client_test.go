package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/bugtrack/internal/auth"
	"github.com/abduss/bugtrack/internal/bug"
	"github.com/abduss/bugtrack/internal/config"
	"github.com/abduss/bugtrack/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T, requireAuth bool) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Mode:    config.ModeProduction,
		Store:   config.StoreConfig{Backend: config.StoreMemory},
		API:     config.APIConfig{RequireAuth: requireAuth, MaxPageSize: 100},
		Metrics: config.MetricsConfig{PrometheusPath: "/metrics"},
		Auth: config.AuthConfig{
			AccessTokenSecret:  "access-secret",
			RefreshTokenSecret: "refresh-secret",
			AccessTokenTTL:     time.Hour,
			RefreshTokenTTL:    time.Hour,
			BcryptCost:         4,
		},
	}
	store := bug.NewMemoryStore()
	srv := httptest.NewServer(server.NewRouter(server.Dependencies{
		Config:      cfg,
		Store:       store,
		AuthService: auth.NewService(auth.NewMemoryStore(), cfg.Auth),
		BugService:  bug.NewService(store, cfg.API.MaxPageSize),
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/api"
}

func draft(title, status, priority string) BugDraft {
	return BugDraft{
		Title:       title,
		Description: "description of " + title,
		Status:      status,
		Priority:    priority,
		ReportedBy:  "QA",
	}
}

func strRef(s string) *string { return &s }

func TestClientBugLifecycle(t *testing.T) {
	ctx := context.Background()
	c := New(newAPI(t, false))

	require.NoError(t, c.Health(ctx))

	created, err := c.CreateBug(ctx, BugDraft{
		Title:            "Crash on save",
		Description:      "Saving a draft crashes the editor",
		ReportedBy:       "QA",
		StepsToReproduce: []string{"open editor", "press save"},
		Environment:      &bug.Environment{OS: "Linux"},
	})
	require.NoError(t, err)
	assert.Equal(t, bug.StatusOpen, created.Status)
	assert.Equal(t, bug.PriorityMedium, created.Priority)
	assert.Equal(t, "Unassigned", created.AssignedTo)
	assert.Equal(t, "Unknown", created.Environment.Browser)

	got, err := c.GetBug(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
	assert.Equal(t, []string{"open editor", "press save"}, got.StepsToReproduce)

	updated, err := c.UpdateStatus(ctx, created.ID.String(), "resolved")
	require.NoError(t, err)
	assert.Equal(t, bug.StatusResolved, updated.Status)

	updated, err = c.UpdatePriority(ctx, created.ID.String(), "critical")
	require.NoError(t, err)
	assert.Equal(t, bug.PriorityCritical, updated.Priority)

	summary, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalBugs)
	assert.Equal(t, int64(1), summary.ResolvedBugs)

	require.NoError(t, c.DeleteBug(ctx, created.ID.String()))
	_, err = c.GetBug(ctx, created.ID.String())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestClientListBugs(t *testing.T) {
	ctx := context.Background()
	c := New(newAPI(t, false))
	for _, d := range []BugDraft{
		draft("A", "open", "high"),
		draft("B", "open", "low"),
		draft("C", "resolved", "high"),
	} {
		_, err := c.CreateBug(ctx, d)
		require.NoError(t, err)
	}

	page, err := c.ListBugs(ctx, bug.FilterInput{Status: strRef("open"), Sort: strRef("title")})
	require.NoError(t, err)
	require.Len(t, page.Bugs, 2)
	assert.Equal(t, "A", page.Bugs[0].Title)
	assert.Equal(t, bug.Pagination{Page: 1, Limit: 10, Total: 2, Pages: 1}, page.Pagination)

	page, err = c.ListBugs(ctx, bug.FilterInput{Status: strRef("closed")})
	require.NoError(t, err)
	assert.NotNil(t, page.Bugs)
	assert.Empty(t, page.Bugs)
}

func TestClientValidationError(t *testing.T) {
	c := New(newAPI(t, false))

	_, err := c.CreateBug(context.Background(), BugDraft{Status: "bogus"})

	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Fields, FieldError{Field: "title", Message: "Title is required"})
}

func TestClientRequiresToken(t *testing.T) {
	ctx := context.Background()
	baseURL := newAPI(t, true)

	_, err := New(baseURL).ListBugs(ctx, bug.FilterInput{})
	assert.Equal(t, KindAuth, KindOf(err))

	_, err = New(baseURL).Register(ctx, "Dana", "dana@example.com", "StrongPass1!")
	require.NoError(t, err)
	session, err := New(baseURL).Login(ctx, "dana@example.com", "StrongPass1!")
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", session.User.Email)
	assert.Equal(t, "user", session.User.Role)

	_, err = New(baseURL, WithToken(session.Token)).ListBugs(ctx, bug.FilterInput{})
	assert.NoError(t, err)

	_, err = New(baseURL).Login(ctx, "dana@example.com", "wrong-password")
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindAuth, apiErr.Kind)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	_, err := New(baseURL).Stats(context.Background())

	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"pq: relation missing"}`))
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, WithToken("secret")).Stats(context.Background())

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServer, apiErr.Kind)
	assert.Equal(t, "Server error. Please try again later.", apiErr.Message)
}
