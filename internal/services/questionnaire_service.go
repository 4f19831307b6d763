package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

type QuestionnaireStore interface {
	InsertQuestionnaire(ctx context.Context, q *models.Questionnaire) error
	GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error)
	GetQuestionnaireBySlug(ctx context.Context, slug string) (*models.Questionnaire, error)
	ListQuestionnaires(ctx context.Context) ([]*models.Questionnaire, error)
	SetQuestionnaireActive(ctx context.Context, id string, active bool) (bool, error)
	ListResponses(ctx context.Context, questionnaireID string) ([]*models.Response, error)
	DeleteResponse(ctx context.Context, id string) (bool, error)
	AddAudit(ctx context.Context, entry models.AuditEntry) error
}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

// QuestionnaireService manages questionnaire definitions and their responses.
type QuestionnaireService struct {
	store QuestionnaireStore
	now   func() time.Time
	idGen func(prefix string, n int) string
}

func NewQuestionnaireService(store QuestionnaireStore) *QuestionnaireService {
	return &QuestionnaireService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func(prefix string, n int) string { return prefix + shortID(n) },
	}
}

// Create stores a new questionnaire. Missing ids are generated, positions
// default to the given order and rating bounds default to 1..5.
func (s *QuestionnaireService) Create(ctx context.Context, actor string, draft *models.Questionnaire) (*models.Questionnaire, error) {
	if draft == nil {
		return nil, NewInvalidError("questionnaire required")
	}
	q := *draft
	q.Slug = strings.ToLower(strings.TrimSpace(q.Slug))
	q.Title = strings.TrimSpace(q.Title)
	q.NotifyEmail = models.NormalizeEmail(q.NotifyEmail)
	if !slugPattern.MatchString(q.Slug) {
		return nil, NewInvalidError("slug must be lowercase letters, digits and dashes")
	}
	if q.Title == "" {
		return nil, NewInvalidError("title required")
	}
	if q.NotifyEmail != "" && !models.ValidEmail(q.NotifyEmail) {
		return nil, NewInvalidError("notify_email is not a valid address")
	}
	if len(q.Questions) == 0 {
		return nil, NewInvalidError("at least one question required")
	}
	existing, err := s.store.GetQuestionnaireBySlug(ctx, q.Slug)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("slug already in use")
	}
	if q.ID == "" {
		q.ID = s.idGen("qn", 8)
	}
	q.CreatedAt = s.now()

	explicitPositions := false
	for _, qu := range q.Questions {
		if qu != nil && qu.Position != 0 {
			explicitPositions = true
		}
	}
	ids := map[string]bool{}
	questions := make([]*models.Question, 0, len(q.Questions))
	for i, in := range q.Questions {
		if in == nil {
			return nil, NewInvalidError("question required")
		}
		qu := *in
		qu.QuestionnaireID = q.ID
		qu.Text = strings.TrimSpace(qu.Text)
		if qu.ID == "" {
			qu.ID = s.idGen("q", 8)
		}
		if ids[qu.ID] {
			return nil, NewInvalidError(fmt.Sprintf("duplicate question id %q", qu.ID))
		}
		ids[qu.ID] = true
		if !explicitPositions {
			qu.Position = i + 1
		}
		options := make([]*models.Option, 0, len(qu.Options))
		optionIDs := map[string]bool{}
		for j, o := range qu.Options {
			if o == nil || strings.TrimSpace(o.Text) == "" {
				return nil, NewInvalidError(fmt.Sprintf("question %q: option text required", qu.ID))
			}
			opt := *o
			opt.QuestionID = qu.ID
			opt.Text = strings.TrimSpace(opt.Text)
			if opt.ID == "" {
				opt.ID = s.idGen("o", 8)
			}
			if optionIDs[opt.ID] {
				return nil, NewInvalidError(fmt.Sprintf("question %q: duplicate option id %q", qu.ID, opt.ID))
			}
			optionIDs[opt.ID] = true
			if opt.Position == 0 {
				opt.Position = j + 1
			}
			options = append(options, &opt)
		}
		qu.Options = options
		qu.ApplyDefaults()
		if err := qu.Validate(); err != nil {
			return nil, invalidf(err.Error(), err)
		}
		questions = append(questions, &qu)
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	q.Questions = questions

	if err := s.store.InsertQuestionnaire(ctx, &q); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, "create_questionnaire", q.ID, q.Slug)
	return &q, nil
}

// Public returns the active questionnaire behind slug.
func (s *QuestionnaireService) Public(ctx context.Context, slug string) (*models.Questionnaire, error) {
	q, err := s.store.GetQuestionnaireBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}
	if !q.Active {
		return nil, ErrQuestionnaireInactive
	}
	return q, nil
}

func (s *QuestionnaireService) Get(ctx context.Context, id string) (*models.Questionnaire, error) {
	q, err := s.store.GetQuestionnaire(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}
	return q, nil
}

func (s *QuestionnaireService) List(ctx context.Context) ([]*models.Questionnaire, error) {
	return s.store.ListQuestionnaires(ctx)
}

func (s *QuestionnaireService) SetActive(ctx context.Context, actor, id string, active bool) error {
	ok, err := s.store.SetQuestionnaireActive(ctx, id, active)
	if err != nil {
		return err
	}
	if !ok {
		return ErrQuestionnaireNotFound
	}
	action := "deactivate_questionnaire"
	if active {
		action = "activate_questionnaire"
	}
	s.audit(ctx, actor, action, id, "")
	return nil
}

// Responses lists the stored responses of a questionnaire, oldest first.
func (s *QuestionnaireService) Responses(ctx context.Context, questionnaireID string) (*models.Questionnaire, []*models.Response, error) {
	q, err := s.Get(ctx, questionnaireID)
	if err != nil {
		return nil, nil, err
	}
	rs, err := s.store.ListResponses(ctx, q.ID)
	if err != nil {
		return nil, nil, err
	}
	return q, rs, nil
}

func (s *QuestionnaireService) DeleteResponse(ctx context.Context, actor, responseID string) error {
	ok, err := s.store.DeleteResponse(ctx, responseID)
	if err != nil {
		return err
	}
	if !ok {
		return NewNotFoundError("response not found")
	}
	s.audit(ctx, actor, "delete_response", responseID, "")
	return nil
}

func (s *QuestionnaireService) audit(ctx context.Context, actor, action, target, note string) {
	_ = s.store.AddAudit(ctx, models.AuditEntry{Time: s.now(), Actor: actor, Action: action, Target: target, Note: note})
}
