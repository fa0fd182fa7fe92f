package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/bugtrack/internal/auth"
	"github.com/abduss/bugtrack/internal/bug"
	"github.com/abduss/bugtrack/internal/client"
	"github.com/abduss/bugtrack/internal/config"
	"github.com/abduss/bugtrack/internal/server"
	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	color.NoColor = true

	cfg := config.Config{
		Mode:    config.ModeProduction,
		Store:   config.StoreConfig{Backend: config.StoreMemory},
		API:     config.APIConfig{MaxPageSize: 100},
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

func seed(t *testing.T, apiURL string) map[string]bug.Bug {
	t.Helper()
	c := client.New(apiURL)
	out := map[string]bug.Bug{}
	for _, d := range []client.BugDraft{
		{Title: "Login button dead", Description: "Nothing happens", ReportedBy: "QA", Priority: "high"},
		{Title: "Typo on footer", Description: "Copyright year", ReportedBy: "QA", Priority: "low"},
		{Title: "Crash on export", Description: "CSV export crashes", ReportedBy: "Ops", Status: "resolved", Priority: "critical"},
	} {
		created, err := c.CreateBug(context.Background(), d)
		require.NoError(t, err)
		out[d.Title] = created
	}
	return out
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestListCommand(t *testing.T) {
	apiURL := newBackend(t)
	seed(t, apiURL)

	out, _, err := run(t, "list", "--api-url", apiURL, "--status", "open", "--sort", "title")

	require.NoError(t, err)
	assert.Contains(t, out, "Login button dead")
	assert.Contains(t, out, "Typo on footer")
	assert.NotContains(t, out, "Crash on export")
	assert.Contains(t, out, "Page 1 of 1 (2 bugs)")
}

func TestListCommandJSON(t *testing.T) {
	apiURL := newBackend(t)
	seed(t, apiURL)

	out, _, err := run(t, "list", "--api-url", apiURL, "--page", "2", "--limit", "1", "--sort", "createdAt", "--json")

	require.NoError(t, err)
	var page bug.Page
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Bugs, 1)
	assert.Equal(t, "Typo on footer", page.Bugs[0].Title)
	assert.Equal(t, bug.Pagination{Page: 2, Limit: 1, Total: 3, Pages: 3}, page.Pagination)
}

func TestListCommandEmpty(t *testing.T) {
	apiURL := newBackend(t)

	out, _, err := run(t, "list", "--api-url", apiURL)

	require.NoError(t, err)
	assert.Contains(t, out, "No bugs found.")
}

func TestShowAndStatusCommands(t *testing.T) {
	apiURL := newBackend(t)
	bugs := seed(t, apiURL)
	id := bugs["Login button dead"].ID.String()

	out, _, err := run(t, "show", id, "--api-url", apiURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Login button dead")
	assert.Contains(t, out, "Assigned to: Unassigned")

	out, _, err = run(t, "status", id, "In-Progress", "--api-url", apiURL)
	require.NoError(t, err)
	assert.Contains(t, out, "Login button dead is now in-progress")

	_, _, err = run(t, "status", id, "bogus", "--api-url", apiURL)
	require.Error(t, err)
	assert.Equal(t, client.KindValidation, client.KindOf(err))
	assert.Contains(t, describe(err), "status: Invalid status")
}

func TestStatsCommand(t *testing.T) {
	apiURL := newBackend(t)
	seed(t, apiURL)

	out, _, err := run(t, "stats", "--api-url", apiURL)

	require.NoError(t, err)
	assert.Contains(t, out, "Total: 3  Open: 2  Resolved: 1")
	assert.Contains(t, out, "critical")
}

func TestLoginCommand(t *testing.T) {
	apiURL := newBackend(t)
	_, err := client.New(apiURL).Register(context.Background(), "Dana", "dana@example.com", "StrongPass1!")
	require.NoError(t, err)

	out, _, err := run(t, "login", "--api-url", apiURL, "--email", "dana@example.com", "--password", "StrongPass1!")

	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as dana@example.com (user)")
	assert.Contains(t, out, "export BUGCTL_TOKEN=")
}

func TestAPIURLFromEnvironment(t *testing.T) {
	apiURL := newBackend(t)
	t.Setenv("BUGCTL_API_URL", apiURL)

	out, _, err := run(t, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No bugs found.")
}

func TestShowUnknownBug(t *testing.T) {
	apiURL := newBackend(t)

	_, _, err := run(t, "show", "does-not-exist", "--api-url", apiURL)

	assert.Equal(t, client.KindNotFound, client.KindOf(err))
	assert.Equal(t, "Resource not found.", describe(err))
}
