package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

// memStore is a minimal in-memory implementation of the service store interfaces.
type memStore struct {
	mu             sync.Mutex
	tokens         map[string]*models.UnlockToken
	cases          map[string]*models.CaseStudy
	questionnaires map[string]*models.Questionnaire
	responses      []*models.Response
	audit          []models.AuditEntry
	insertErr      error
}

func newMemStore() *memStore {
	return &memStore{
		tokens:         map[string]*models.UnlockToken{},
		cases:          map[string]*models.CaseStudy{},
		questionnaires: map[string]*models.Questionnaire{},
	}
}

func (s *memStore) InsertToken(_ context.Context, t *models.UnlockToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[t.TokenHash]; ok {
		return ErrDuplicateToken
	}
	cp := *t
	cp.Token = ""
	s.tokens[t.TokenHash] = &cp
	return nil
}

func (s *memStore) GetTokenByHash(_ context.Context, hash string) (*models.UnlockToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *memStore) ConsumeToken(_ context.Context, hash, resourceID string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[hash]
	if !ok || t.ResourceID != resourceID || t.Consumed() || t.Expired(now) {
		return false, nil
	}
	at := now
	t.ConsumedAt = &at
	return true, nil
}

func (s *memStore) DeleteToken(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, hash)
	return nil
}

func (s *memStore) PurgeExpiredTokens(_ context.Context, now time.Time) (int64, error) {
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

func (s *memStore) GetCaseStudy(_ context.Context, id string) (*models.CaseStudy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.cases[id]
	if !ok {
		return nil, nil
	}
	cp := *cs
	return &cp, nil
}

func (s *memStore) UpsertCaseStudy(_ context.Context, cs *models.CaseStudy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cs
	s.cases[cs.ID] = &cp
	return nil
}

func (s *memStore) ListCaseStudies(_ context.Context) ([]*models.CaseStudy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.CaseStudy{}
	for _, cs := range s.cases {
		cp := *cs
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) InsertQuestionnaire(_ context.Context, q *models.Questionnaire) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questionnaires[q.ID] = q
	return nil
}

func (s *memStore) GetQuestionnaire(_ context.Context, id string) (*models.Questionnaire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionnaires[id], nil
}

func (s *memStore) GetQuestionnaireBySlug(_ context.Context, slug string) (*models.Questionnaire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questionnaires {
		if q.Slug == slug {
			return q, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListQuestionnaires(_ context.Context) ([]*models.Questionnaire, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Questionnaire{}
	for _, q := range s.questionnaires {
		out = append(out, q)
	}
	return out, nil
}

func (s *memStore) SetQuestionnaireActive(_ context.Context, id string, active bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questionnaires[id]
	if !ok {
		return false, nil
	}
	q.Active = active
	return true, nil
}

func (s *memStore) InsertResponse(_ context.Context, r *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.responses = append(s.responses, r)
	return nil
}

func (s *memStore) ListResponses(_ context.Context, questionnaireID string) ([]*models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Response{}
	for _, r := range s.responses {
		if r.QuestionnaireID == questionnaireID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) DeleteResponse(_ context.Context, id string) (bool, error) {
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

func (s *memStore) AddAudit(_ context.Context, e models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, e)
	return nil
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) SendUnlockLink(ctx context.Context, msg UnlockLinkMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockGateway) SendSubmissionConfirmation(ctx context.Context, msg SubmissionMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockGateway) SendSubmissionNotice(ctx context.Context, msg SubmissionMessage) error {
	return m.Called(ctx, msg).Error(0)
}

// demoQuestionnaire has two single_choice questions and one rating question.
func demoQuestionnaire() *models.Questionnaire {
	return &models.Questionnaire{
		ID:          "qn1",
		Slug:        "readiness",
		Title:       "Readiness check",
		Active:      true,
		NotifyEmail: "team@addonware.test",
		Questions: []*models.Question{
			{ID: "q1", QuestionnaireID: "qn1", Type: models.QuestionSingleChoice, Text: "Company size?", Position: 1, Options: []*models.Option{
				{ID: "o1", Text: "1-10"}, {ID: "o2", Text: "11-50"},
			}},
			{ID: "q2", QuestionnaireID: "qn1", Type: models.QuestionSingleChoice, Text: "Industry?", Position: 2, Options: []*models.Option{
				{ID: "o3", Text: "Retail"}, {ID: "o4", Text: "Finance"},
			}},
			{ID: "q3", QuestionnaireID: "qn1", Type: models.QuestionRating, Text: "How ready are you?", Position: 3, Min: 1, Max: 5},
		},
	}
}
