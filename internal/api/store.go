package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

// MemoryStore keeps everything in process memory. It backs STORE_DRIVER=memory
// and the handler tests; every method is safe for concurrent use.
type MemoryStore struct {
	mu             sync.RWMutex
	tokens         map[string]models.UnlockToken
	caseStudies    map[string]*models.CaseStudy
	questionnaires map[string]*models.Questionnaire
	slugs          map[string]string
	responses      []*models.Response
	adminsByEmail  map[string]*models.AdminUser
	audit          []models.AuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens:         map[string]models.UnlockToken{},
		caseStudies:    map[string]*models.CaseStudy{},
		questionnaires: map[string]*models.Questionnaire{},
		slugs:          map[string]string{},
		adminsByEmail:  map[string]*models.AdminUser{},
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) InsertToken(_ context.Context, t *models.UnlockToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.TokenHash]; ok {
		return services.ErrDuplicateToken
	}
	cp := *t
	cp.Token = ""
	s.tokens[t.TokenHash] = cp
	return nil
}

func (s *MemoryStore) GetTokenByHash(_ context.Context, hash string) (*models.UnlockToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[hash]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// ConsumeToken checks and marks under the write lock, so exactly one caller wins.
func (s *MemoryStore) ConsumeToken(_ context.Context, hash, resourceID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.ResourceID != resourceID || t.Consumed() || t.Expired(now) {
		return false, nil
	}
	at := now
	t.ConsumedAt = &at
	s.tokens[hash] = t
	return true, nil
}

func (s *MemoryStore) DeleteToken(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, hash)
	return nil
}

func (s *MemoryStore) PurgeExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for h, t := range s.tokens {
		if t.Expired(now) {
			delete(s.tokens, h)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetCaseStudy(_ context.Context, id string) (*models.CaseStudy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cs, ok := s.caseStudies[id]
	if !ok {
		return nil, nil
	}
	cp := *cs
	return &cp, nil
}

func (s *MemoryStore) ListCaseStudies(context.Context) ([]*models.CaseStudy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.CaseStudy, 0, len(s.caseStudies))
	for _, cs := range s.caseStudies {
		cp := *cs
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpsertCaseStudy(_ context.Context, cs *models.CaseStudy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cs
	s.caseStudies[cs.ID] = &cp
	return nil
}

func (s *MemoryStore) InsertQuestionnaire(_ context.Context, q *models.Questionnaire) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slugs[q.Slug]; ok {
		return services.NewConflictError("slug already in use")
	}
	if _, ok := s.questionnaires[q.ID]; ok {
		return services.NewConflictError("questionnaire already exists")
	}
	s.questionnaires[q.ID] = q
	s.slugs[q.Slug] = q.ID
	return nil
}

func (s *MemoryStore) GetQuestionnaire(_ context.Context, id string) (*models.Questionnaire, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyQuestionnaire(s.questionnaires[id]), nil
}

func (s *MemoryStore) GetQuestionnaireBySlug(_ context.Context, slug string) (*models.Questionnaire, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.slugs[slug]
	if !ok {
		return nil, nil
	}
	return copyQuestionnaire(s.questionnaires[id]), nil
}

// copyQuestionnaire copies the top level so callers may flip Active without
// touching the stored value. Questions are treated as immutable.
func copyQuestionnaire(q *models.Questionnaire) *models.Questionnaire {
	if q == nil {
		return nil
	}
	cp := *q
	return &cp
}

func (s *MemoryStore) ListQuestionnaires(context.Context) ([]*models.Questionnaire, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Questionnaire, 0, len(s.questionnaires))
	for _, q := range s.questionnaires {
		out = append(out, copyQuestionnaire(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *MemoryStore) SetQuestionnaireActive(_ context.Context, id string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questionnaires[id]
	if !ok {
		return false, nil
	}
	cp := *q
	cp.Active = active
	s.questionnaires[id] = &cp
	return true, nil
}

func (s *MemoryStore) InsertResponse(_ context.Context, r *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.responses {
		if existing.ID == r.ID {
			return services.NewConflictError("response already exists")
		}
	}
	s.responses = append(s.responses, r)
	return nil
}

func (s *MemoryStore) ListResponses(_ context.Context, questionnaireID string) ([]*models.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.Response{}
	for _, r := range s.responses {
		if r.QuestionnaireID == questionnaireID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) DeleteResponse(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.responses {
		if r.ID == id {
			s.responses = append(s.responses[:i], s.responses[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) FindAdminByEmail(_ context.Context, email string) (*models.AdminUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.adminsByEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) AddAdmin(_ context.Context, u *models.AdminUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.adminsByEmail[key]; ok {
		return services.NewConflictError("admin already exists")
	}
	cp := *u
	s.adminsByEmail[key] = &cp
	return nil
}

func (s *MemoryStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

// ListAudit returns the newest entries first.
func (s *MemoryStore) ListAudit(_ context.Context, limit int) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AuditEntry, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, s.audit[i])
	}
	return out, nil
}
