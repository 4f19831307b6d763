package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

// DefaultTokenTTL applies when no UNLOCK_TOKEN_TTL is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

const issueAttempts = 3

// TokenStore persists unlock tokens by hash. ConsumeToken must be a single
// conditional write: it marks the token consumed only if it matches
// resourceID, is unconsumed and not expired at now, and reports whether it did.
type TokenStore interface {
	InsertToken(ctx context.Context, t *models.UnlockToken) error
	GetTokenByHash(ctx context.Context, hash string) (*models.UnlockToken, error)
	ConsumeToken(ctx context.Context, hash, resourceID string, now time.Time) (bool, error)
	DeleteToken(ctx context.Context, hash string) error
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}

// VerifyOutcome is the result of presenting a token for a resource.
type VerifyOutcome string

const (
	OutcomeUnlocked         VerifyOutcome = "unlocked"
	OutcomeAlreadyConsumed  VerifyOutcome = "already_consumed"
	OutcomeNotFound         VerifyOutcome = "not_found"
	OutcomeResourceMismatch VerifyOutcome = "resource_mismatch"
	OutcomeExpired          VerifyOutcome = "expired"
)

type IssueRequest struct {
	ResourceID   string
	Email        string
	Name         string
	Organization string
}

type TokenService struct {
	store    TokenStore
	now      func() time.Time
	newToken func() string
	ttl      time.Duration
}

func NewTokenService(store TokenStore, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: newTokenValue,
		ttl:      ttl,
	}
}

// newTokenValue renders a random (v4) uuid without dashes: 122 bits of entropy.
func newTokenValue() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// HashToken is the at-rest form of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue mints and stores a fresh token for (resource, email). The plaintext
// token is only available on the returned value.
func (s *TokenService) Issue(ctx context.Context, req IssueRequest) (*models.UnlockToken, error) {
	if strings.TrimSpace(req.ResourceID) == "" {
		return nil, NewInvalidError("resourceId required")
	}
	now := s.now()
	for attempt := 0; attempt < issueAttempts; attempt++ {
		value := s.newToken()
		t := &models.UnlockToken{
			Token:        value,
			TokenHash:    HashToken(value),
			ResourceID:   req.ResourceID,
			Email:        req.Email,
			Name:         req.Name,
			Organization: req.Organization,
			CreatedAt:    now,
			ExpiresAt:    now.Add(s.ttl),
		}
		err := s.store.InsertToken(ctx, t)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrDuplicateToken) {
			return nil, fmt.Errorf("store token: %w", err)
		}
	}
	return nil, fmt.Errorf("store token: %w after %d attempts", ErrDuplicateToken, issueAttempts)
}

// Verify consumes token for resourceID. Any outcome other than
// OutcomeUnlocked leaves the token untouched.
func (s *TokenService) Verify(ctx context.Context, token, resourceID string) (VerifyOutcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return OutcomeNotFound, nil
	}
	hash := HashToken(token)
	ok, err := s.store.ConsumeToken(ctx, hash, resourceID, s.now())
	if err != nil {
		return "", fmt.Errorf("consume token: %w", err)
	}
	if ok {
		return OutcomeUnlocked, nil
	}
	t, err := s.store.GetTokenByHash(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	out := classify(t, resourceID, s.now())
	if out == OutcomeUnlocked {
		// the conditional write lost to nothing we can see; never report success without it
		return OutcomeAlreadyConsumed, nil
	}
	return out, nil
}

// Lookup classifies token without consuming it. A token already consumed for
// resourceID reports OutcomeAlreadyConsumed, which is what Reveal expects.
func (s *TokenService) Lookup(ctx context.Context, token, resourceID string) (VerifyOutcome, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return OutcomeNotFound, nil
	}
	t, err := s.store.GetTokenByHash(ctx, HashToken(token))
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return classify(t, resourceID, s.now()), nil
}

func classify(t *models.UnlockToken, resourceID string, now time.Time) VerifyOutcome {
	switch {
	case t == nil:
		return OutcomeNotFound
	case t.ResourceID != resourceID:
		return OutcomeResourceMismatch
	case t.Consumed():
		return OutcomeAlreadyConsumed
	case t.Expired(now):
		return OutcomeExpired
	}
	return OutcomeUnlocked
}

// Revoke removes an issued token; used when its email could not be sent.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if err := s.store.DeleteToken(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// PurgeExpired deletes every token whose expiry has passed.
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpiredTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return n, nil
}
