package api

import (
	"context"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

// Store is everything the HTTP layer persists. db.SQLStore and MemoryStore
// implement it; tokens may live in a separate TokenStore (see Deps.Tokens).
type Store interface {
	services.TokenStore
	services.CaseStudyAdminStore
	services.QuestionnaireStore
	services.ResponseStore
	services.AuthStore

	ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error)
	Ping(ctx context.Context) error
}

var _ Store = (*MemoryStore)(nil)
