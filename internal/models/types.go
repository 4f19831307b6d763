package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// QuestionType enumerates the kinds of question a questionnaire may contain.
type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionRating       QuestionType = "rating"
	QuestionFreeText     QuestionType = "free_text"
)

const (
	DefaultRatingMin = 1
	DefaultRatingMax = 5
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionSingleChoice, QuestionRating, QuestionFreeText:
		return true
	}
	return false
}

// Questionnaire is an ordered survey served to anonymous visitors.
type Questionnaire struct {
	ID          string      `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Active      bool        `json:"active"`
	NotifyEmail string      `json:"notify_email,omitempty"`
	Questions   []*Question `json:"questions"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Question returns the question with the given id, or nil.
func (q *Questionnaire) Question(id string) *Question {
	for _, qu := range q.Questions {
		if qu.ID == id {
			return qu
		}
	}
	return nil
}

// Question belongs to exactly one questionnaire. Options are only present for
// single_choice questions, Min/Max only carry meaning for rating questions.
type Question struct {
	ID              string       `json:"id"`
	QuestionnaireID string       `json:"questionnaire_id"`
	Text            string       `json:"text"`
	Type            QuestionType `json:"type"`
	Position        int          `json:"position"`
	Options         []*Option    `json:"options,omitempty"`
	Min             int          `json:"min,omitempty"`
	Max             int          `json:"max,omitempty"`
}

// Option is a selectable answer of a single_choice question.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	Position   int    `json:"position"`
}

// ApplyDefaults fills in rating bounds when none were configured.
func (q *Question) ApplyDefaults() {
	if q.Type == QuestionRating && q.Min == 0 && q.Max == 0 {
		q.Min, q.Max = DefaultRatingMin, DefaultRatingMax
	}
}

// Validate checks the type-specific invariants of a question.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("question text required")
	}
	switch q.Type {
	case QuestionSingleChoice:
		if len(q.Options) == 0 {
			return fmt.Errorf("question %q: single_choice requires options", q.ID)
		}
		if q.Min != 0 || q.Max != 0 {
			return fmt.Errorf("question %q: single_choice cannot carry rating bounds", q.ID)
		}
	case QuestionRating:
		if len(q.Options) > 0 {
			return fmt.Errorf("question %q: rating cannot carry options", q.ID)
		}
		if q.Min >= q.Max {
			return fmt.Errorf("question %q: rating requires min < max", q.ID)
		}
	case QuestionFreeText:
		if len(q.Options) > 0 || q.Min != 0 || q.Max != 0 {
			return fmt.Errorf("question %q: free_text takes no parameters", q.ID)
		}
	default:
		return fmt.Errorf("question %q: unknown type %q", q.ID, q.Type)
	}
	return nil
}

// HasOption reports whether optionID is one of the question's options.
func (q *Question) HasOption(optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// Clamp bounds a raw rating to the question's [Min, Max].
func (q *Question) Clamp(v int) int {
	if v < q.Min {
		return q.Min
	}
	if v > q.Max {
		return q.Max
	}
	return v
}

// Response is an append-only submission of one visitor.
type Response struct {
	ID              string    `json:"id"`
	QuestionnaireID string    `json:"questionnaire_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Organization    string    `json:"organization,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Answers         []*Answer `json:"answers"`
}

// Answer holds the value recorded for one question of a response.
type Answer struct {
	ResponseID string
	QuestionID string
	Value      AnswerValue
}

// CaseStudy is a gated resource. Solution is only released after a verified unlock.
type CaseStudy struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Solution  string    `json:"-"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnlockToken is a single-use credential minted for one (resource, email) pair.
// Only TokenHash is persisted; Token is populated right after issuance.
type UnlockToken struct {
	Token        string
	TokenHash    string
	ResourceID   string
	Email        string
	Name         string
	Organization string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	ConsumedAt   *time.Time
}

// Consumed reports whether the token has already been used.
func (t *UnlockToken) Consumed() bool { return t.ConsumedAt != nil }

// Expired reports whether the token is past its expiry at now.
func (t *UnlockToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// AdminUser is an operator allowed to manage questionnaires and case studies.
type AdminUser struct {
	ID        string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

// AuditEntry records administrative and visitor actions worth keeping.
type AuditEntry struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Action string    `json:"action"`
	Target string    `json:"target"`
	Note   string    `json:"note,omitempty"`
}
