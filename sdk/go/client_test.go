package arxidemosdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arxidemo/internal/server"
	"arxidemo/internal/session"
	"arxidemo/internal/tour"
	arxidemosdk "arxidemo/sdk/go"
)

func newClient(t *testing.T) *arxidemosdk.Client {
	t.Helper()
	reg, err := session.NewRegistry(session.RegistryConfig{MaxSessions: 8, Settings: tour.DefaultSettings(), Seed: 11})
	require.NoError(t, err)
	handler, err := server.New(server.Config{
		Registry: reg,
		BasePath: "/v0",
		Auth:     server.AuthConfig{JWTSecret: "sdk-secret"},
	})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(func() {
		srv.Close()
		reg.Close()
	})
	return arxidemosdk.New(srv.URL)
}

func TestClientDrivesTheFirstSteps(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	st, err := c.StartSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "start", st.Step)
	assert.NotEmpty(t, c.SessionID)

	ov, err := c.Overlay(ctx)
	require.NoError(t, err)
	require.True(t, ov.Visible)
	assert.Equal(t, "teams-tab", ov.Overlay.Target)

	allowed, err := c.Allowed(ctx, "add-team-button")
	require.NoError(t, err)
	assert.False(t, allowed)

	res, err := c.Click(ctx, "teams-tab")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, "create-team", res.State.Step)

	_, err = c.OpenModal(ctx, "team")
	require.NoError(t, err)
	res, err = c.CreateTeam(ctx, "QA Squad")
	require.NoError(t, err)
	require.True(t, res.Applied)
	assert.Equal(t, "view-projects", res.State.Step)
	require.NotEmpty(t, res.State.Notifications)
	assert.Equal(t, `Team "QA Squad" created successfully!`, res.State.Notifications[0].Message)

	report, err := c.Report(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 8, report.Summary.Total)

	require.NoError(t, c.EndSession(ctx))
	_, err = c.State(ctx)
	var apiErr *arxidemosdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestClientWithoutSessionIsUnauthorized(t *testing.T) {
	c := newClient(t)
	c.SessionID = "nope"
	_, err := c.State(context.Background())
	var apiErr *arxidemosdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestRequestDemoWithoutRelay(t *testing.T) {
	c := newClient(t)
	_, err := c.RequestDemo(context.Background(), "jane@company.com")
	var apiErr *arxidemosdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
