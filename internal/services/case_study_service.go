package services

import (
	"context"
	"strings"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

type CaseStudyAdminStore interface {
	CaseStudyStore
	UpsertCaseStudy(ctx context.Context, cs *models.CaseStudy) error
	ListCaseStudies(ctx context.Context) ([]*models.CaseStudy, error)
	AddAudit(ctx context.Context, entry models.AuditEntry) error
}

// CaseStudyService serves the public part of case studies and lets admins edit them.
type CaseStudyService struct {
	store CaseStudyAdminStore
	now   func() time.Time
}

func NewCaseStudyService(store CaseStudyAdminStore) *CaseStudyService {
	return &CaseStudyService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Public returns a published case study. The solution is not serialized.
func (s *CaseStudyService) Public(ctx context.Context, id string) (*models.CaseStudy, error) {
	cs, err := s.store.GetCaseStudy(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if cs == nil || !cs.Published {
		return nil, ErrResourceNotFound
	}
	return cs, nil
}

func (s *CaseStudyService) ListPublished(ctx context.Context) ([]*models.CaseStudy, error) {
	all, err := s.store.ListCaseStudies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.CaseStudy, 0, len(all))
	for _, cs := range all {
		if cs.Published {
			out = append(out, cs)
		}
	}
	return out, nil
}

func (s *CaseStudyService) Upsert(ctx context.Context, actor string, in *models.CaseStudy) (*models.CaseStudy, error) {
	if in == nil {
		return nil, NewInvalidError("case study required")
	}
	cs := *in
	cs.ID = strings.TrimSpace(cs.ID)
	cs.Title = strings.TrimSpace(cs.Title)
	if cs.ID == "" {
		cs.ID = "cs-" + shortID(8)
	}
	if !slugPattern.MatchString(cs.ID) {
		return nil, NewInvalidError("id must be lowercase letters, digits and dashes")
	}
	if cs.Title == "" {
		return nil, NewInvalidError("title required")
	}
	if strings.TrimSpace(cs.Solution) == "" {
		return nil, NewInvalidError("solution required")
	}
	cs.UpdatedAt = s.now()
	if err := s.store.UpsertCaseStudy(ctx, &cs); err != nil {
		return nil, err
	}
	_ = s.store.AddAudit(ctx, models.AuditEntry{Time: cs.UpdatedAt, Actor: actor, Action: "upsert_case_study", Target: cs.ID})
	return &cs, nil
}
