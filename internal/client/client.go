// Package client talks to the public JSON API of the server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

const DefaultTimeout = 15 * time.Second

// APIError is a non-2xx answer. State is set by the unlock endpoints.
type APIError struct {
	Status  int
	Message string
	State   string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	base   string
	http   *http.Client
	locale string
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLocale sends Accept-Language so server messages come back localized.
func WithLocale(locale string) Option { return func(c *Client) { c.locale = locale } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{base: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: DefaultTimeout}}
	for _, o := range opts {
		o(c)
	}
	return c
}

type UnlockRequest struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Organization  string `json:"organization,omitempty"`
	ResourceID    string `json:"resourceId"`
	ResourceTitle string `json:"resourceTitle,omitempty"`
}

// Verification is the outcome of verify or reveal. A rejected token is not an
// error: State says how the gate should look.
type Verification struct {
	State      models.GateState
	ResourceID string
	Solution   string
	Message    string
	Record     *models.UnlockRecord
}

type CaseStudy struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Gate    string `json:"gate"`
}

type SubmissionResult struct {
	ResponseID  string `json:"responseId"`
	AnswerCount int    `json:"answerCount"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.locale != "" {
		req.Header.Set("Accept-Language", c.locale)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
			State string `json:"state"`
		}
		_ = json.Unmarshal(raw, &e)
		return &APIError{Status: resp.StatusCode, Message: e.Error, State: e.State}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Questionnaire fetches an active questionnaire with its ordered questions.
func (c *Client) Questionnaire(ctx context.Context, slug string) (*models.Questionnaire, error) {
	var q models.Questionnaire
	if err := c.do(ctx, http.MethodGet, "/api/questionnaires/"+url.PathEscape(slug), nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) Submit(ctx context.Context, req models.SubmissionRequest) (*SubmissionResult, error) {
	var res SubmissionResult
	path := "/api/questionnaires/" + url.PathEscape(req.QuestionnaireSlug) + "/responses"
	if err := c.do(ctx, http.MethodPost, path, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitResponse satisfies questionnaire.Submitter.
func (c *Client) SubmitResponse(ctx context.Context, req models.SubmissionRequest) error {
	_, err := c.Submit(ctx, req)
	return err
}

func (c *Client) CaseStudy(ctx context.Context, id string) (*CaseStudy, error) {
	var cs CaseStudy
	if err := c.do(ctx, http.MethodGet, "/api/case-studies/"+url.PathEscape(id), nil, &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

func (c *Client) RequestUnlock(ctx context.Context, req UnlockRequest) error {
	return c.do(ctx, http.MethodPost, "/api/unlock/request", req, nil)
}

type unlockedBody struct {
	State      string `json:"state"`
	ResourceID string `json:"resourceId"`
	Solution   string `json:"solution"`
	Cache      *struct {
		ResourceID string    `json:"resourceId"`
		Token      string    `json:"token"`
		UnlockedAt time.Time `json:"unlockedAt"`
	} `json:"cache"`
}

func (c *Client) gateCall(ctx context.Context, path, resourceID string, in any) (*Verification, error) {
	var body unlockedBody
	err := c.do(ctx, http.MethodPost, path, in, &body)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.State != "" {
		return &Verification{State: models.ParseGateState(apiErr.State), ResourceID: resourceID, Message: apiErr.Message}, nil
	}
	if err != nil {
		return nil, err
	}
	v := &Verification{State: models.ParseGateState(body.State), ResourceID: body.ResourceID, Solution: body.Solution}
	if body.Cache != nil && body.Cache.Token != "" {
		v.Record = &models.UnlockRecord{Token: body.Cache.Token, UnlockedAt: body.Cache.UnlockedAt}
	}
	return v, nil
}

// Verify presents token for resourceID and consumes it on success.
func (c *Client) Verify(ctx context.Context, token, resourceID string) (*Verification, error) {
	return c.gateCall(ctx, "/api/unlock/verify", resourceID, map[string]string{"token": token, "resourceId": resourceID})
}

// Reveal fetches the solution again with an already verified token.
func (c *Client) Reveal(ctx context.Context, token, resourceID string) (*Verification, error) {
	return c.gateCall(ctx, "/api/case-studies/"+url.PathEscape(resourceID)+"/reveal", resourceID, map[string]string{"token": token})
}
