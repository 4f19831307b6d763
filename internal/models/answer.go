package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AnswerValue is the tagged variant of a recorded answer. Exactly one of
// SingleChoice, Rating or FreeText; the set is closed by an unexported method.
type AnswerValue interface {
	Kind() QuestionType
	isAnswerValue()
}

// SingleChoice selects one option of a single_choice question.
type SingleChoice struct {
	OptionID string
}

// Rating stores the chosen value together with the question's max so a
// renderer can show "3 of 5" without the question at hand.
type Rating struct {
	Value int
	Max   int
}

// FreeText is a raw text answer.
type FreeText struct {
	Text string
}

func (SingleChoice) Kind() QuestionType { return QuestionSingleChoice }
func (Rating) Kind() QuestionType       { return QuestionRating }
func (FreeText) Kind() QuestionType     { return QuestionFreeText }

func (SingleChoice) isAnswerValue() {}
func (Rating) isAnswerValue()       {}
func (FreeText) isAnswerValue()     {}

var (
	ErrAnswerTypeMismatch = errors.New("answer type does not match question type")
	ErrUnknownOption      = errors.New("option does not belong to question")
	ErrBlankAnswer        = errors.New("answer is blank")
	ErrInvalidRating      = errors.New("rating must be an integer")
)

// WireAnswer is the submission wire format of one answer.
type WireAnswer struct {
	QuestionID   string       `json:"questionId" validate:"required"`
	QuestionType QuestionType `json:"questionType" validate:"required"`
	Value        string       `json:"value" validate:"max=5000"`
}

// SubmissionRequest is the payload a visitor sends once the questionnaire is complete.
type SubmissionRequest struct {
	QuestionnaireSlug string       `json:"questionnaireSlug" validate:"max=64"`
	Name              string       `json:"name" validate:"max=200"`
	Email             string       `json:"email" validate:"max=254"`
	Organization      string       `json:"organization,omitempty" validate:"max=200"`
	Answers           []WireAnswer `json:"answers" validate:"max=200,dive"`
	Locale            string       `json:"locale,omitempty" validate:"max=16"`
}

// EncodeAnswer renders a value into its wire representation.
func EncodeAnswer(questionID string, v AnswerValue) WireAnswer {
	w := WireAnswer{QuestionID: questionID}
	switch a := v.(type) {
	case SingleChoice:
		w.QuestionType, w.Value = QuestionSingleChoice, a.OptionID
	case Rating:
		w.QuestionType, w.Value = QuestionRating, strconv.Itoa(a.Value)
	case FreeText:
		w.QuestionType, w.Value = QuestionFreeText, a.Text
	}
	return w
}

// ParseAnswer decodes a wire answer against the question it refers to.
// Ratings are clamped into the question's bounds rather than rejected.
func ParseAnswer(q *Question, w WireAnswer) (AnswerValue, error) {
	if w.QuestionType != q.Type {
		return nil, fmt.Errorf("question %s: %w", q.ID, ErrAnswerTypeMismatch)
	}
	switch q.Type {
	case QuestionSingleChoice:
		id := strings.TrimSpace(w.Value)
		if id == "" {
			return nil, fmt.Errorf("question %s: %w", q.ID, ErrBlankAnswer)
		}
		if !q.HasOption(id) {
			return nil, fmt.Errorf("question %s: %w", q.ID, ErrUnknownOption)
		}
		return SingleChoice{OptionID: id}, nil
	case QuestionRating:
		n, err := q.ParseRating(w.Value)
		if err != nil {
			return nil, fmt.Errorf("question %s: %w", q.ID, ErrInvalidRating)
		}
		return Rating{Value: n, Max: q.Max}, nil
	case QuestionFreeText:
		if strings.TrimSpace(w.Value) == "" {
			return nil, fmt.Errorf("question %s: %w", q.ID, ErrBlankAnswer)
		}
		return FreeText{Text: w.Value}, nil
	}
	return nil, fmt.Errorf("question %s: %w", q.ID, ErrAnswerTypeMismatch)
}

// ParseRating reads an integer rating and clamps it into [Min, Max].
// Integers too large for int clamp to the bound on their side.
func (q *Question) ParseRating(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	var numErr *strconv.NumError
	if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
		if strings.HasPrefix(strings.TrimSpace(raw), "-") {
			return q.Min, nil
		}
		return q.Max, nil
	}
	if err != nil {
		return 0, err
	}
	return q.Clamp(n), nil
}

// Display renders an answer for humans, e.g. in notification mails and exports.
func Display(q *Question, v AnswerValue) string {
	switch a := v.(type) {
	case SingleChoice:
		if q != nil {
			for _, o := range q.Options {
				if o.ID == a.OptionID {
					return o.Text
				}
			}
		}
		return a.OptionID
	case Rating:
		return fmt.Sprintf("%d of %d", a.Value, a.Max)
	case FreeText:
		return a.Text
	}
	return ""
}
