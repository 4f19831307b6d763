package cli

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Inspirimental/addonware-web-sub000/internal/api"
	"github.com/Inspirimental/addonware-web-sub000/internal/client"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
	"github.com/Inspirimental/addonware-web-sub000/internal/unlockcache"
)

type linkGateway struct {
	mu    sync.Mutex
	links []services.UnlockLinkMessage
}

func (g *linkGateway) SendUnlockLink(_ context.Context, m services.UnlockLinkMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.links = append(g.links, m)
	return nil
}

func (g *linkGateway) SendSubmissionConfirmation(context.Context, services.SubmissionMessage) error {
	return nil
}

func (g *linkGateway) SendSubmissionNotice(context.Context, services.SubmissionMessage) error {
	return nil
}

type env struct {
	store   *api.MemoryStore
	gateway *linkGateway
	client  *client.Client
	path    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := api.NewMemoryStore()
	require.NoError(t, store.UpsertCaseStudy(ctx, &models.CaseStudy{ID: "cs-1", Title: "Warehouse", Solution: "solution one", Published: true}))
	require.NoError(t, store.InsertQuestionnaire(ctx, &models.Questionnaire{
		ID: "qn1", Slug: "readiness", Title: "Readiness check", Active: true,
		Questions: []*models.Question{
			{ID: "q1", Text: "Company size?", Type: models.QuestionSingleChoice, Position: 1, Options: []*models.Option{{ID: "o1", Text: "1-10"}, {ID: "o2", Text: "11-50"}}},
			{ID: "q2", Text: "Industry?", Type: models.QuestionSingleChoice, Position: 2, Options: []*models.Option{{ID: "o3", Text: "Retail"}, {ID: "o4", Text: "Finance"}}},
			{ID: "q3", Text: "How ready are you?", Type: models.QuestionRating, Position: 3, Min: 1, Max: 5},
		},
	}))
	gw := &linkGateway{}
	srv := httptest.NewServer(api.NewRouter(api.Deps{Store: store, Gateway: gw, PublicBaseURL: "https://addonware.test"}).Handler())
	t.Cleanup(srv.Close)
	return &env{store: store, gateway: gw, client: client.New(srv.URL), path: filepath.Join(t.TempDir(), "unlocks.json")}
}

func (e *env) app(input string, out *bytes.Buffer) *App {
	cache := unlockcache.New(unlockcache.NewFileStorage(e.path), "")
	return NewApp(e.client, cache, strings.NewReader(input), out, "en")
}

func TestSurveyWalk(t *testing.T) {
	e := newEnv(t)
	input := strings.Join([]string{
		"3",   // out of range: stays on q1
		"2",   // q1 -> o2
		"<",   // back to q1
		"1",   // q1 -> o1
		"1",   // q2 -> o3
		"9",   // rating clamped to 5
		"Max", // identity with a bad email first
		"bad",
		"",
		"Max",
		"max@example.de",
		"ACME",
	}, "\n") + "\n"
	var out bytes.Buffer
	require.NoError(t, e.app(input, &out).Run(context.Background(), []string{"survey", "readiness"}))

	assert.Contains(t, out.String(), "Please answer the question to continue.")
	assert.Contains(t, out.String(), "Please enter a valid email address.")
	assert.Contains(t, out.String(), "Thank you, your answers were submitted.")

	rs, err := e.store.ListResponses(context.Background(), "qn1")
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, "ACME", rs[0].Organization)
	require.Len(t, rs[0].Answers, 3)
	assert.Equal(t, models.SingleChoice{OptionID: "o1"}, rs[0].Answers[0].Value)
	assert.Equal(t, models.SingleChoice{OptionID: "o3"}, rs[0].Answers[1].Value)
	assert.Equal(t, models.Rating{Value: 5, Max: 5}, rs[0].Answers[2].Value)
}

func TestSurveyUnknownQuestionnaire(t *testing.T) {
	e := newEnv(t)
	var out bytes.Buffer
	err := e.app("", &out).Run(context.Background(), []string{"survey", "missing"})
	require.Error(t, err)
	assert.True(t, client.IsStatus(err, 404))
}

func TestUnlockCommands(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	err := e.app("", &out).Run(ctx, []string{"unlock", "request", "-name", "Max", "-email", "nope", "cs-1"})
	require.Error(t, err)
	assert.Empty(t, e.gateway.links, "invalid input must not reach the server")

	out.Reset()
	require.NoError(t, e.app("", &out).Run(ctx, []string{"unlock", "request", "-name", "Max", "-email", "max@example.de", "cs-1"}))
	assert.Contains(t, out.String(), "Check your email")
	require.Len(t, e.gateway.links, 1)
	assert.Equal(t, "Warehouse", e.gateway.links[0].ResourceTitle)
	token := e.gateway.links[0].Token

	out.Reset()
	require.NoError(t, e.app("", &out).Run(ctx, []string{"unlock", "verify", "cs-1", "not-the-token"}))
	assert.Contains(t, out.String(), "invalid or has expired")

	out.Reset()
	require.NoError(t, e.app("", &out).Run(ctx, []string{"unlock", "verify", "cs-1", token}))
	assert.Contains(t, out.String(), "solution one")

	// a fresh process sees the persisted unlock and reveals without consuming
	out.Reset()
	require.NoError(t, e.app("", &out).Run(ctx, []string{"unlock", "status", "cs-1"}))
	assert.Contains(t, out.String(), "Solution unlocked.")
	assert.Contains(t, out.String(), "solution one")

	out.Reset()
	require.NoError(t, e.app("", &out).Run(ctx, []string{"unlock", "verify", "cs-1", token}))
	assert.Contains(t, out.String(), "already been used")

	require.NoError(t, e.app("", &out).Run(ctx, []string{"unlock", "forget", "cs-1"}))
	out.Reset()
	require.NoError(t, e.app("", &out).Run(ctx, []string{"unlock", "status", "cs-1"}))
	assert.Contains(t, out.String(), "Enter your email")
}

// countingAPI records every call that would leave the process.
type countingAPI struct {
	API
	calls int
}

func (c *countingAPI) CaseStudy(ctx context.Context, id string) (*client.CaseStudy, error) {
	c.calls++
	return c.API.CaseStudy(ctx, id)
}

func (c *countingAPI) RequestUnlock(ctx context.Context, req client.UnlockRequest) error {
	c.calls++
	return c.API.RequestUnlock(ctx, req)
}

func TestRequestUnlockValidatesBeforeNetwork(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cases := []struct {
		name, email string
	}{
		{"   ", "a@b.de"},
		{"", "a@b.de"},
		{"Max", "not-an-email"},
		{"Max", "  "},
	}
	for _, tc := range cases {
		counter := &countingAPI{API: e.client}
		var out bytes.Buffer
		a := NewApp(counter, unlockcache.New(unlockcache.NewMemoryStorage(), ""), strings.NewReader(""), &out, "en")
		err := a.RequestUnlock(ctx, "cs-1", tc.name, tc.email, "")
		require.Error(t, err, "name=%q email=%q", tc.name, tc.email)
		assert.Zero(t, counter.calls, "name=%q email=%q reached the server", tc.name, tc.email)
	}
	assert.Empty(t, e.gateway.links)

	counter := &countingAPI{API: e.client}
	var out bytes.Buffer
	a := NewApp(counter, unlockcache.New(unlockcache.NewMemoryStorage(), ""), strings.NewReader(""), &out, "en")
	require.NoError(t, a.RequestUnlock(ctx, "cs-1", "  Max  ", " Max@Example.de ", ""))
	require.Len(t, e.gateway.links, 1)
	assert.Equal(t, "Max", e.gateway.links[0].Name)
	assert.Equal(t, "max@example.de", e.gateway.links[0].Email)
}

func TestStatusForgetsRejectedToken(t *testing.T) {
	e := newEnv(t)
	var out bytes.Buffer
	a := e.app("", &out)
	require.NoError(t, a.Cache.Remember("cs-1", "stale"))
	require.NoError(t, a.Run(context.Background(), []string{"unlock", "status", "cs-1"}))
	assert.Contains(t, out.String(), "Enter your email")
	assert.False(t, a.Cache.IsUnlocked("cs-1"))
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	a := NewApp(nil, nil, strings.NewReader(""), &out, "en")
	assert.ErrorIs(t, a.Run(context.Background(), nil), ErrUsage)
	assert.ErrorIs(t, a.Run(context.Background(), []string{"unlock", "verify", "cs-1"}), ErrUsage)
	assert.Contains(t, out.String(), "usage:")
}
