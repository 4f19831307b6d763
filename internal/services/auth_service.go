package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

type AuthStore interface {
	FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	AddAdmin(ctx context.Context, u *models.AdminUser) error
}

type TokenSigner func(uid, email string, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	idGen     func(prefix string, n int) string
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

func NewAuthService(store AuthStore, signer TokenSigner) *AuthService {
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     func(prefix string, n int) string { return prefix + shortID(n) },
		signToken: signer,
		tokenTTL:  12 * time.Hour,
	}
}

// EnsureAdmin creates the configured operator account if it does not exist
// yet. An existing account keeps its password. It reports whether it created one.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return false, NewInvalidError("email/password required")
	}
	existing, err := s.store.FindAdminByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	u := &models.AdminUser{ID: s.idGen("u", 7), Email: email, PassHash: hash, CreatedAt: s.now()}
	if err := s.store.AddAdmin(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	u, err := s.store.FindAdminByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(u.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(u.ID, u.Email, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: u.ID}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
