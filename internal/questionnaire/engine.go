// Package questionnaire drives a visitor through the questions of one
// questionnaire followed by an identity step.
//
// The state machine is a pure reducer (Reduce) over an immutable Definition;
// Engine is a thin convenience wrapper for callers that prefer methods.
package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

var (
	ErrUnknownQuestion = errors.New("unknown question")
	ErrNotReady        = errors.New("questionnaire is not ready for submission")
)

// Definition is the read-only questionnaire a visitor walks through.
type Definition struct {
	Slug      string
	Questions []*models.Question
}

// NewDefinition orders the questions by position and rejects malformed ones.
func NewDefinition(q *models.Questionnaire) (Definition, error) {
	if q == nil {
		return Definition{}, errors.New("questionnaire required")
	}
	qs := make([]*models.Question, 0, len(q.Questions))
	for _, qu := range q.Questions {
		cp := *qu
		cp.ApplyDefaults()
		if err := cp.Validate(); err != nil {
			return Definition{}, err
		}
		qs = append(qs, &cp)
	}
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Position < qs[j].Position })
	return Definition{Slug: q.Slug, Questions: qs}, nil
}

// N is the index of the identity step and the number of questions.
func (d Definition) N() int { return len(d.Questions) }

func (d Definition) question(id string) *models.Question {
	for _, q := range d.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// Identity is captured on the final step.
type Identity struct {
	Name         string
	Email        string
	Organization string
}

// State is the complete engine state. Treat it as a value: Reduce never
// modifies the State it is given.
type State struct {
	Step     int
	Answers  map[string]models.AnswerValue
	Identity Identity
}

func (s State) clone() State {
	answers := make(map[string]models.AnswerValue, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = v
	}
	s.Answers = answers
	return s
}

// Event is an input to Reduce.
type Event interface{ isEvent() }

type (
	// Next advances one step if the current step is valid.
	Next struct{}
	// Back moves one step back, never below zero.
	Back struct{}
	// Record stores the answer for a question.
	Record struct {
		QuestionID string
		Value      models.AnswerValue
	}
	// SetIdentity replaces the identity fields.
	SetIdentity struct{ Identity Identity }
)

func (Next) isEvent()        {}
func (Back) isEvent()        {}
func (Record) isEvent()      {}
func (SetIdentity) isEvent() {}

// Reduce applies ev to s. On error the returned State equals s.
func Reduce(d Definition, s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Next:
		if s.Step >= d.N() || !StepValid(d, s, s.Step) {
			return s, nil
		}
		out := s.clone()
		out.Step++
		return out, nil
	case Back:
		if s.Step <= 0 {
			return s, nil
		}
		out := s.clone()
		out.Step--
		return out, nil
	case Record:
		q := d.question(e.QuestionID)
		if q == nil {
			return s, fmt.Errorf("%w: %s", ErrUnknownQuestion, e.QuestionID)
		}
		v, err := normalize(q, e.Value)
		if err != nil {
			return s, err
		}
		out := s.clone()
		out.Answers[q.ID] = v
		return out, nil
	case SetIdentity:
		out := s.clone()
		out.Identity = e.Identity
		return out, nil
	}
	return s, fmt.Errorf("unsupported event %T", ev)
}

func normalize(q *models.Question, v models.AnswerValue) (models.AnswerValue, error) {
	if v == nil || v.Kind() != q.Type {
		return nil, models.ErrAnswerTypeMismatch
	}
	switch a := v.(type) {
	case models.SingleChoice:
		if a.OptionID != "" && !q.HasOption(a.OptionID) {
			return nil, models.ErrUnknownOption
		}
		return a, nil
	case models.Rating:
		return models.Rating{Value: q.Clamp(a.Value), Max: q.Max}, nil
	case models.FreeText:
		return a, nil
	}
	return nil, models.ErrAnswerTypeMismatch
}

// StepValid reports whether step may be left forward (or submitted, for step N).
func StepValid(d Definition, s State, step int) bool {
	return UnmetCondition(d, s, step) == ""
}

// Reasons returned by UnmetCondition. They double as i18n keys.
const (
	ReasonOutOfRange   = "step.out_of_range"
	ReasonUnanswered   = "step.unanswered"
	ReasonNameRequired = "identity.name_required"
	ReasonInvalidEmail = "identity.invalid_email"
)

// UnmetCondition names the first validity condition step fails, or "".
func UnmetCondition(d Definition, s State, step int) string {
	if step < 0 || step > d.N() {
		return ReasonOutOfRange
	}
	if step == d.N() {
		if strings.TrimSpace(s.Identity.Name) == "" {
			return ReasonNameRequired
		}
		if !models.ValidEmail(strings.TrimSpace(s.Identity.Email)) {
			return ReasonInvalidEmail
		}
		return ""
	}
	q := d.Questions[step]
	if !answered(q, s.Answers[q.ID]) {
		return ReasonUnanswered
	}
	return ""
}

func answered(q *models.Question, v models.AnswerValue) bool {
	switch a := v.(type) {
	case models.SingleChoice:
		return a.OptionID != "" && q.HasOption(a.OptionID)
	case models.Rating:
		return a.Value >= q.Min && a.Value <= q.Max
	case models.FreeText:
		return strings.TrimSpace(a.Text) != ""
	}
	return false
}

// Ready reports whether the state may be submitted: at the identity step with
// every step valid.
func Ready(d Definition, s State) bool {
	if s.Step != d.N() {
		return false
	}
	for i := 0; i <= d.N(); i++ {
		if !StepValid(d, s, i) {
			return false
		}
	}
	return true
}

// BuildSubmission packages a ready state into the submission wire format.
func BuildSubmission(d Definition, s State) (models.SubmissionRequest, error) {
	if !Ready(d, s) {
		return models.SubmissionRequest{}, ErrNotReady
	}
	answers := make([]models.WireAnswer, 0, d.N())
	for _, q := range d.Questions {
		answers = append(answers, models.EncodeAnswer(q.ID, s.Answers[q.ID]))
	}
	return models.SubmissionRequest{
		QuestionnaireSlug: d.Slug,
		Name:              strings.TrimSpace(s.Identity.Name),
		Email:             strings.TrimSpace(s.Identity.Email),
		Organization:      strings.TrimSpace(s.Identity.Organization),
		Answers:           answers,
	}, nil
}

// Submitter sends a completed submission, typically over the network.
type Submitter interface {
	SubmitResponse(ctx context.Context, req models.SubmissionRequest) error
}

// Engine is a stateful wrapper around Reduce for one visitor session.
// It is not safe for concurrent use.
type Engine struct {
	def   Definition
	state State
}

// New starts an engine at step 0 with no answers.
func New(def Definition) *Engine {
	return &Engine{def: def, state: State{Answers: map[string]models.AnswerValue{}}}
}

func (e *Engine) apply(ev Event) error {
	next, err := Reduce(e.def, e.state, ev)
	if err != nil {
		return err
	}
	e.state = next
	return nil
}

func (e *Engine) Definition() Definition { return e.def }
func (e *Engine) State() State           { return e.state.clone() }
func (e *Engine) CurrentStep() int       { return e.state.Step }
func (e *Engine) StepCount() int         { return e.def.N() }
func (e *Engine) AtIdentityStep() bool   { return e.state.Step == e.def.N() }

// GoNext advances when the current step is valid and reports whether it did.
func (e *Engine) GoNext() bool {
	before := e.state.Step
	_ = e.apply(Next{})
	return e.state.Step != before
}

func (e *Engine) GoBack() { _ = e.apply(Back{}) }

func (e *Engine) RecordAnswer(questionID string, v models.AnswerValue) error {
	return e.apply(Record{QuestionID: questionID, Value: v})
}

func (e *Engine) SetIdentity(id Identity) { _ = e.apply(SetIdentity{Identity: id}) }

func (e *Engine) Answer(questionID string) (models.AnswerValue, bool) {
	v, ok := e.state.Answers[questionID]
	return v, ok
}

func (e *Engine) IsStepValid(step int) bool { return StepValid(e.def, e.state, step) }

func (e *Engine) UnmetCondition(step int) string { return UnmetCondition(e.def, e.state, step) }

func (e *Engine) CanSubmit() bool { return Ready(e.def, e.state) }

func (e *Engine) Submission() (models.SubmissionRequest, error) {
	return BuildSubmission(e.def, e.state)
}

// Submit hands the submission to s. It refuses locally, without calling s,
// unless the engine is ready.
func (e *Engine) Submit(ctx context.Context, s Submitter) error {
	req, err := e.Submission()
	if err != nil {
		return err
	}
	return s.SubmitResponse(ctx, req)
}
