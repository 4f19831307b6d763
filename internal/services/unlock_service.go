package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

type CaseStudyStore interface {
	GetCaseStudy(ctx context.Context, id string) (*models.CaseStudy, error)
}

// UnlockRequest is what a visitor submits from the locked-content gate.
type UnlockRequest struct {
	ResourceID    string
	ResourceTitle string
	Name          string
	Email         string
	Organization  string
	Locale        string
}

// VerificationResult is returned for every verification. Solution and Cache
// are only set when State is unlocked.
type VerificationResult struct {
	Outcome    VerifyOutcome
	State      models.GateState
	ResourceID string
	Solution   string
	Cache      *models.UnlockRecord
}

// UnlockService coordinates the request and verification halves of the unlock flow.
type UnlockService struct {
	tokens  *TokenService
	cases   CaseStudyStore
	gateway NotificationGateway
	baseURL string
	now     func() time.Time
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewUnlockService(tokens *TokenService, cases CaseStudyStore, gateway NotificationGateway, baseURL string) *UnlockService {
	return &UnlockService{
		tokens:  tokens,
		cases:   cases,
		gateway: gateway,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.Discard(),
		metrics: metrics.Nop(),
	}
}

// Instrument sets the logger and collectors used for outcomes.
func (s *UnlockService) Instrument(log *logger.Logger, m *metrics.Metrics) *UnlockService {
	if log != nil {
		s.log = log
	}
	if m != nil {
		s.metrics = m
	}
	return s
}

// UnlockLink builds the URL the visitor receives by email.
func (s *UnlockService) UnlockLink(resourceID, token string) string {
	q := url.Values{}
	q.Set("unlock_token", token)
	return s.baseURL + "/case-studies/" + url.PathEscape(resourceID) + "?" + q.Encode()
}

// RequestUnlock validates the visitor, mints a token and emails the link.
// It never unlocks anything itself. When the email cannot be sent the token
// is revoked and ErrDispatchFailed is returned so the visitor can retry.
func (s *UnlockService) RequestUnlock(ctx context.Context, req UnlockRequest) error {
	name := strings.TrimSpace(req.Name)
	email := models.NormalizeEmail(req.Email)
	if name == "" {
		s.metrics.UnlockRequests.WithLabelValues("invalid").Inc()
		return ErrNameRequired
	}
	if !models.ValidEmail(email) {
		s.metrics.UnlockRequests.WithLabelValues("invalid").Inc()
		return ErrInvalidEmail
	}
	resourceID := strings.TrimSpace(req.ResourceID)
	cs, err := s.cases.GetCaseStudy(ctx, resourceID)
	if err != nil {
		return fmt.Errorf("load case study: %w", err)
	}
	if cs == nil || !cs.Published {
		s.metrics.UnlockRequests.WithLabelValues("not_found").Inc()
		return ErrResourceNotFound
	}

	tok, err := s.tokens.Issue(ctx, IssueRequest{
		ResourceID:   cs.ID,
		Email:        email,
		Name:         name,
		Organization: strings.TrimSpace(req.Organization),
	})
	if err != nil {
		s.metrics.UnlockRequests.WithLabelValues("error").Inc()
		return err
	}

	title := strings.TrimSpace(req.ResourceTitle)
	if title == "" {
		title = cs.Title
	}
	msg := UnlockLinkMessage{
		Email:         email,
		Name:          name,
		Organization:  tok.Organization,
		Token:         tok.Token,
		ResourceID:    cs.ID,
		ResourceTitle: title,
		Link:          s.UnlockLink(cs.ID, tok.Token),
		Locale:        req.Locale,
	}
	if err := s.gateway.SendUnlockLink(ctx, msg); err != nil {
		s.log.WithError(err).WithField("resource_id", cs.ID).Warn("unlock link dispatch failed")
		if rerr := s.tokens.Revoke(context.WithoutCancel(ctx), tok.Token); rerr != nil {
			s.log.WithError(rerr).Error("revoke undelivered token")
		}
		s.metrics.UnlockRequests.WithLabelValues("dispatch_failed").Inc()
		return &ServiceError{Code: ErrorBadGateway, Message: ErrDispatchFailed.Message, Err: errors.Join(ErrDispatchFailed, err)}
	}
	s.metrics.UnlockRequests.WithLabelValues("sent").Inc()
	s.log.WithField("resource_id", cs.ID).Info("unlock link sent")
	return nil
}

// StateFor maps a verification outcome to what the gate shows.
func StateFor(out VerifyOutcome) models.GateState {
	switch out {
	case OutcomeUnlocked:
		return models.GateUnlocked
	case OutcomeAlreadyConsumed:
		return models.GateAlreadyUsed
	}
	return models.GateInvalid
}

// HandleVerification consumes token for resourceID and, on success, releases
// the gated content together with the record the client should cache. A case
// study that was deleted or unpublished since issue answers ErrResourceNotFound
// and leaves the token unconsumed.
func (s *UnlockService) HandleVerification(ctx context.Context, token, resourceID string) (*VerificationResult, error) {
	resourceID = strings.TrimSpace(resourceID)
	cs, err := s.cases.GetCaseStudy(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("load case study: %w", err)
	}
	if cs == nil || !cs.Published {
		s.metrics.UnlockVerifications.WithLabelValues("resource_unavailable").Inc()
		return nil, ErrResourceNotFound
	}
	out, err := s.tokens.Verify(ctx, token, resourceID)
	if err != nil {
		return nil, err
	}
	s.metrics.UnlockVerifications.WithLabelValues(string(out)).Inc()
	res := &VerificationResult{Outcome: out, State: StateFor(out), ResourceID: resourceID}
	if out != OutcomeUnlocked {
		return res, nil
	}
	res.Solution = cs.Solution
	res.Cache = &models.UnlockRecord{Token: strings.TrimSpace(token), UnlockedAt: s.now()}
	s.log.WithField("resource_id", resourceID).Info("resource unlocked")
	return res, nil
}

// Reveal serves the gated content again to a visitor whose token was already
// consumed for resourceID. It never consumes and never trusts the client cache.
func (s *UnlockService) Reveal(ctx context.Context, token, resourceID string) (*VerificationResult, error) {
	resourceID = strings.TrimSpace(resourceID)
	out, err := s.tokens.Lookup(ctx, token, resourceID)
	if err != nil {
		return nil, err
	}
	res := &VerificationResult{Outcome: out, ResourceID: resourceID, State: models.GateInvalid}
	if out != OutcomeAlreadyConsumed {
		// unknown, foreign, expired, or issued but never verified
		return res, nil
	}
	cs, err := s.cases.GetCaseStudy(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("load case study: %w", err)
	}
	if cs == nil || !cs.Published {
		return nil, ErrResourceNotFound
	}
	res.State = models.GateUnlocked
	res.Solution = cs.Solution
	return res, nil
}
