package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Inspirimental/addonware-web-sub000/internal/logger"
	"github.com/Inspirimental/addonware-web-sub000/internal/metrics"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

// ResponseStore persists submissions. InsertResponse must store the response
// and all of its answers atomically.
type ResponseStore interface {
	GetQuestionnaireBySlug(ctx context.Context, slug string) (*models.Questionnaire, error)
	InsertResponse(ctx context.Context, r *models.Response) error
}

type SubmissionResult struct {
	ResponseID  string `json:"responseId"`
	AnswerCount int    `json:"answerCount"`
}

// ResponseService accepts completed questionnaires. Identical submissions are
// stored as separate responses.
type ResponseService struct {
	store            ResponseStore
	gateway          NotificationGateway
	defaultRecipient string
	now              func() time.Time
	idGenerator      func() string
	log              *logger.Logger
	metrics          *metrics.Metrics
}

func NewResponseService(store ResponseStore, gateway NotificationGateway, defaultRecipient string) *ResponseService {
	return &ResponseService{
		store:            store,
		gateway:          gateway,
		defaultRecipient: strings.TrimSpace(defaultRecipient),
		now:              func() time.Time { return time.Now().UTC() },
		idGenerator:      uuid.NewString,
		log:              logger.Discard(),
		metrics:          metrics.Nop(),
	}
}

func (s *ResponseService) Instrument(log *logger.Logger, m *metrics.Metrics) *ResponseService {
	if log != nil {
		s.log = log
	}
	if m != nil {
		s.metrics = m
	}
	return s
}

// Submit validates req against the active questionnaire, stores it and then
// sends the confirmation and notice emails. Email failures are logged only.
func (s *ResponseService) Submit(ctx context.Context, req models.SubmissionRequest) (*SubmissionResult, error) {
	resp, q, err := s.build(ctx, req)
	if err != nil {
		if se, ok := AsServiceError(err); ok && se.Code == ErrorInvalid {
			s.metrics.Submissions.WithLabelValues("invalid").Inc()
		}
		return nil, err
	}
	if err := s.store.InsertResponse(ctx, resp); err != nil {
		s.metrics.Submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("store response: %w", err)
	}
	s.metrics.Submissions.WithLabelValues("stored").Inc()
	s.log.WithField("questionnaire", q.Slug).WithField("response_id", resp.ID).Info("response stored")

	s.notify(context.WithoutCancel(ctx), q, resp, req.Locale)
	return &SubmissionResult{ResponseID: resp.ID, AnswerCount: len(resp.Answers)}, nil
}

func (s *ResponseService) build(ctx context.Context, req models.SubmissionRequest) (*models.Response, *models.Questionnaire, error) {
	name := strings.TrimSpace(req.Name)
	email := models.NormalizeEmail(req.Email)
	if name == "" {
		return nil, nil, ErrNameRequired
	}
	if !models.ValidEmail(email) {
		return nil, nil, ErrInvalidEmail
	}
	q, err := s.store.GetQuestionnaireBySlug(ctx, strings.TrimSpace(req.QuestionnaireSlug))
	if err != nil {
		return nil, nil, fmt.Errorf("load questionnaire: %w", err)
	}
	if q == nil {
		return nil, nil, ErrQuestionnaireNotFound
	}
	if !q.Active {
		return nil, nil, ErrQuestionnaireInactive
	}

	resp := &models.Response{
		ID:              s.idGenerator(),
		QuestionnaireID: q.ID,
		Name:            name,
		Email:           email,
		Organization:    strings.TrimSpace(req.Organization),
		CreatedAt:       s.now(),
	}
	seen := make(map[string]bool, len(req.Answers))
	for _, w := range req.Answers {
		qu := q.Question(w.QuestionID)
		if qu == nil {
			return nil, nil, NewInvalidError(fmt.Sprintf("unknown question %q", w.QuestionID))
		}
		if seen[qu.ID] {
			return nil, nil, NewInvalidError(fmt.Sprintf("question %q answered twice", qu.ID))
		}
		seen[qu.ID] = true
		v, err := models.ParseAnswer(qu, w)
		if err != nil {
			return nil, nil, invalidf(err.Error(), err)
		}
		resp.Answers = append(resp.Answers, &models.Answer{ResponseID: resp.ID, QuestionID: qu.ID, Value: v})
	}
	for _, qu := range q.Questions {
		if !seen[qu.ID] {
			return nil, nil, NewInvalidError(fmt.Sprintf("question %q unanswered", qu.ID))
		}
	}
	position := make(map[string]int, len(q.Questions))
	for _, qu := range q.Questions {
		position[qu.ID] = qu.Position
	}
	sort.SliceStable(resp.Answers, func(i, j int) bool {
		return position[resp.Answers[i].QuestionID] < position[resp.Answers[j].QuestionID]
	})
	return resp, q, nil
}

func (s *ResponseService) notify(ctx context.Context, q *models.Questionnaire, resp *models.Response, locale string) {
	if s.gateway == nil {
		return
	}
	msg := SubmissionMessage{
		To:                 resp.Email,
		Name:               resp.Name,
		Email:              resp.Email,
		Organization:       resp.Organization,
		QuestionnaireSlug:  q.Slug,
		QuestionnaireTitle: q.Title,
		ResponseID:         resp.ID,
		Lines:              AnswerLines(q, resp),
		Locale:             locale,
	}
	if err := s.gateway.SendSubmissionConfirmation(ctx, msg); err != nil {
		s.log.WithError(err).WithField("response_id", resp.ID).Warn("submission confirmation not sent")
	}
	to := strings.TrimSpace(q.NotifyEmail)
	if to == "" {
		to = s.defaultRecipient
	}
	if to == "" {
		return
	}
	msg.To = to
	if err := s.gateway.SendSubmissionNotice(ctx, msg); err != nil {
		s.log.WithError(err).WithField("response_id", resp.ID).Warn("submission notice not sent")
	}
}

// AnswerLines pairs question texts with displayable answers in question order.
func AnswerLines(q *models.Questionnaire, resp *models.Response) []AnswerLine {
	lines := make([]AnswerLine, 0, len(resp.Answers))
	for _, a := range resp.Answers {
		qu := q.Question(a.QuestionID)
		text := a.QuestionID
		if qu != nil {
			text = qu.Text
		}
		lines = append(lines, AnswerLine{Question: text, Answer: models.Display(qu, a.Value)})
	}
	return lines
}
