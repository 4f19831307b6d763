package main

import (
	"context"
	"fmt"

	"github.com/Inspirimental/addonware-web-sub000/internal/api"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

const seedActor = "seed"

// seedDemo creates a demo questionnaire and case study unless they exist.
func seedDemo(ctx context.Context, store api.Store) error {
	existing, err := store.GetQuestionnaireBySlug(ctx, "digital-readiness")
	if err != nil {
		return err
	}
	if existing == nil {
		_, err := services.NewQuestionnaireService(store).Create(ctx, seedActor, &models.Questionnaire{
			Slug:        "digital-readiness",
			Title:       "Digital readiness check",
			Description: "Three short questions about where your company stands.",
			Active:      true,
			Questions: []*models.Question{
				{Text: "How many employees does your company have?", Type: models.QuestionSingleChoice, Options: []*models.Option{
					{Text: "1-10"}, {Text: "11-50"}, {Text: "51-250"}, {Text: "more than 250"},
				}},
				{Text: "Which industry are you in?", Type: models.QuestionSingleChoice, Options: []*models.Option{
					{Text: "Manufacturing"}, {Text: "Retail"}, {Text: "Services"}, {Text: "Other"},
				}},
				{Text: "How ready is your company for digital tools?", Type: models.QuestionRating},
			},
		})
		if err != nil {
			return fmt.Errorf("seed questionnaire: %w", err)
		}
	}

	cs, err := store.GetCaseStudy(ctx, "cs-1")
	if err != nil {
		return err
	}
	if cs == nil {
		_, err := services.NewCaseStudyService(store).Upsert(ctx, seedActor, &models.CaseStudy{
			ID:        "cs-1",
			Title:     "Automating incoming orders",
			Summary:   "A wholesaler processed every order by hand. We looked at what it would take to change that.",
			Solution:  "Orders are parsed from email into the ERP; staff only review exceptions. Processing time fell from hours to minutes.",
			Published: true,
		})
		if err != nil {
			return fmt.Errorf("seed case study: %w", err)
		}
	}
	return nil
}
