package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Inspirimental/addonware-web-sub000/internal/middleware"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

// publicQuestionnaire omits the internal notification address.
type publicQuestionnaire struct {
	ID          string             `json:"id"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	Active      bool               `json:"active"`
	Questions   []*models.Question `json:"questions"`
}

// GET /api/questionnaires/{slug}
func (rt *Router) handleQuestionnaire(w http.ResponseWriter, r *http.Request) {
	q, err := rt.questionnaires.Public(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, publicQuestionnaire{
		ID:          q.ID,
		Slug:        q.Slug,
		Title:       q.Title,
		Description: q.Description,
		Active:      q.Active,
		Questions:   q.Questions,
	})
}

// POST /api/questionnaires/{slug}/responses
func (rt *Router) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req models.SubmissionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	slug := chi.URLParam(r, "slug")
	if body := strings.TrimSpace(req.QuestionnaireSlug); body != "" && body != slug {
		writeError(w, http.StatusBadRequest, "questionnaire slug does not match the URL")
		return
	}
	req.QuestionnaireSlug = slug
	if req.Locale == "" {
		req.Locale = middleware.LocaleFromContext(r.Context())
	}
	res, err := rt.responses.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
