package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/questionnaire"
)

// Survey walks the visitor through every question, then the identity step,
// and submits once. A step is only left when the engine accepts it.
func (a *App) Survey(ctx context.Context, slug string) error {
	q, err := a.API.Questionnaire(ctx, slug)
	if err != nil {
		return fmt.Errorf("load questionnaire: %w", err)
	}
	def, err := questionnaire.NewDefinition(q)
	if err != nil {
		return fmt.Errorf("questionnaire %s: %w", slug, err)
	}
	e := questionnaire.New(def)
	a.printf("%s\n", q.Title)
	if q.Description != "" {
		a.printf("%s\n", q.Description)
	}

	for !e.AtIdentityStep() {
		step := e.CurrentStep()
		qu := def.Questions[step]
		a.printf("\n(%d/%d) %s\n", step+1, def.N(), qu.Text)
		line, err := a.readLine(prompt(qu))
		if err != nil {
			return err
		}
		if line == "<" {
			e.GoBack()
			continue
		}
		if v, ok := parseInput(qu, line); ok {
			if err := e.RecordAnswer(qu.ID, v); err != nil {
				return err
			}
		}
		if !e.GoNext() {
			a.printf("%s\n", a.t(e.UnmetCondition(step)))
		}
	}

	for {
		name, err := a.readLine("Name: ")
		if err != nil {
			return err
		}
		email, err := a.readLine("Email: ")
		if err != nil {
			return err
		}
		org, err := a.readLine("Organization (optional): ")
		if err != nil {
			return err
		}
		e.SetIdentity(questionnaire.Identity{Name: name, Email: email, Organization: org})
		if reason := e.UnmetCondition(e.StepCount()); reason != "" {
			a.printf("%s\n", a.t(reason))
			continue
		}
		break
	}

	req, err := e.Submission()
	if err != nil {
		return err
	}
	req.Locale = a.Locale
	if err := a.API.SubmitResponse(ctx, req); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	a.printf("%s\n", a.t("survey.submitted"))
	return nil
}

func prompt(q *models.Question) string {
	switch q.Type {
	case models.QuestionSingleChoice:
		var b strings.Builder
		for i, o := range q.Options {
			fmt.Fprintf(&b, "  %d) %s\n", i+1, o.Text)
		}
		b.WriteString("> ")
		return b.String()
	case models.QuestionRating:
		return fmt.Sprintf("[%d-%d] > ", q.Min, q.Max)
	}
	return "> "
}

// parseInput maps terminal input to an answer. Options are chosen by number.
func parseInput(q *models.Question, line string) (models.AnswerValue, bool) {
	switch q.Type {
	case models.QuestionSingleChoice:
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(q.Options) {
			return nil, false
		}
		return models.SingleChoice{OptionID: q.Options[n-1].ID}, true
	case models.QuestionRating:
		n, err := q.ParseRating(line)
		if err != nil {
			return nil, false
		}
		return models.Rating{Value: n}, true
	case models.QuestionFreeText:
		return models.FreeText{Text: line}, true
	}
	return nil, false
}
