package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Inspirimental/addonware-web-sub000/internal/middleware"
	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

type loginBody struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=200"`
}

type activeBody struct {
	Active *bool `json:"active" validate:"required"`
}

// adminCaseStudy carries the solution, which the public view never does.
type adminCaseStudy struct {
	ID        string    `json:"id" validate:"max=64"`
	Title     string    `json:"title" validate:"max=300"`
	Summary   string    `json:"summary" validate:"max=5000"`
	Solution  string    `json:"solution" validate:"max=100000"`
	Published bool      `json:"published"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toAdminCaseStudy(cs *models.CaseStudy) adminCaseStudy {
	return adminCaseStudy{ID: cs.ID, Title: cs.Title, Summary: cs.Summary, Solution: cs.Solution, Published: cs.Published, UpdatedAt: cs.UpdatedAt}
}

type answerView struct {
	QuestionID   string              `json:"question_id"`
	QuestionType models.QuestionType `json:"question_type"`
	Value        string              `json:"value"`
	Display      string              `json:"display"`
}

type responseView struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Organization string       `json:"organization,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	Answers      []answerView `json:"answers"`
}

func toResponseView(q *models.Questionnaire, r *models.Response) responseView {
	v := responseView{ID: r.ID, Name: r.Name, Email: r.Email, Organization: r.Organization, CreatedAt: r.CreatedAt}
	v.Answers = make([]answerView, 0, len(r.Answers))
	for _, a := range r.Answers {
		wire := models.EncodeAnswer(a.QuestionID, a.Value)
		v.Answers = append(v.Answers, answerView{
			QuestionID:   a.QuestionID,
			QuestionType: wire.QuestionType,
			Value:        wire.Value,
			Display:      models.Display(q.Question(a.QuestionID), a.Value),
		})
	}
	return v
}

// POST /api/admin/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	res, err := rt.admins.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/admin/questionnaires
func (rt *Router) handleAdminListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	list, err := rt.questionnaires.List(r.Context())
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"questionnaires": list})
}

// POST /api/admin/questionnaires
func (rt *Router) handleAdminCreateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var draft models.Questionnaire
	if err := decodeJSON(r, &draft); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	q, err := rt.questionnaires.Create(r.Context(), middleware.ActorFromContext(r.Context()), &draft)
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// GET /api/admin/questionnaires/{id}
func (rt *Router) handleAdminGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	q, err := rt.questionnaires.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// PATCH /api/admin/questionnaires/{id}/active
func (rt *Router) handleAdminSetActive(w http.ResponseWriter, r *http.Request) {
	var body activeBody
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := rt.questionnaires.SetActive(r.Context(), middleware.ActorFromContext(r.Context()), id, *body.Active); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": *body.Active})
}

// GET /api/admin/questionnaires/{id}/responses
func (rt *Router) handleAdminResponses(w http.ResponseWriter, r *http.Request) {
	q, rs, err := rt.questionnaires.Responses(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	out := make([]responseView, 0, len(rs))
	for _, resp := range rs {
		out = append(out, toResponseView(q, resp))
	}
	writeJSON(w, http.StatusOK, map[string]any{"questionnaire_id": q.ID, "responses": out})
}

// GET /api/admin/questionnaires/{id}/export?format=long|wide
func (rt *Router) handleAdminExport(w http.ResponseWriter, r *http.Request) {
	res, err := rt.exports.ExportCSV(r.Context(), services.ExportParams{
		QuestionnaireID: chi.URLParam(r, "id"),
		Format:          r.URL.Query().Get("format"),
	})
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+res.Filename)
	_, _ = w.Write(res.Data)
}

// DELETE /api/admin/responses/{id}
func (rt *Router) handleAdminDeleteResponse(w http.ResponseWriter, r *http.Request) {
	if err := rt.questionnaires.DeleteResponse(r.Context(), middleware.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/admin/case-studies
func (rt *Router) handleAdminListCaseStudies(w http.ResponseWriter, r *http.Request) {
	list, err := rt.store.ListCaseStudies(r.Context())
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	out := make([]adminCaseStudy, 0, len(list))
	for _, cs := range list {
		out = append(out, toAdminCaseStudy(cs))
	}
	writeJSON(w, http.StatusOK, map[string]any{"caseStudies": out})
}

// POST /api/admin/case-studies
func (rt *Router) handleAdminUpsertCaseStudy(w http.ResponseWriter, r *http.Request) {
	var body adminCaseStudy
	if err := decodeJSON(r, &body); err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	cs, err := rt.caseStudies.Upsert(r.Context(), middleware.ActorFromContext(r.Context()), &models.CaseStudy{
		ID:        body.ID,
		Title:     body.Title,
		Summary:   body.Summary,
		Solution:  body.Solution,
		Published: body.Published,
	})
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminCaseStudy(cs))
}

// GET /api/admin/audit?limit=n
func (rt *Router) handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 1000 {
		limit = v
	}
	entries, err := rt.store.ListAudit(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, rt.log, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
