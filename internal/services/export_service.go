package services

import (
	"context"
	"strings"
	"time"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

type ExportStore interface {
	GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error)
	ListResponses(ctx context.Context, questionnaireID string) ([]*models.Response, error)
}

type ExportParams struct {
	QuestionnaireID string
	Format          string
}

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

type ExportService struct {
	store ExportStore
}

func NewExportService(store ExportStore) *ExportService {
	return &ExportService{store: store}
}

func (s *ExportService) ExportCSV(ctx context.Context, params ExportParams) (*ExportResult, error) {
	if strings.TrimSpace(params.QuestionnaireID) == "" {
		return nil, NewInvalidError("questionnaire id required")
	}
	format := params.Format
	if format == "" {
		format = "long"
	}
	q, err := s.store.GetQuestionnaire(ctx, params.QuestionnaireID)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}
	rs, err := s.store.ListResponses(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	switch format {
	case "long":
		b, err := ExportLongCSV(buildLongRows(q, rs))
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: q.Slug + "-long.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	case "wide":
		cols, rows := buildWideRows(q, rs)
		b, err := ExportWideCSV(cols, rows)
		if err != nil {
			return nil, err
		}
		return &ExportResult{Filename: q.Slug + "-wide.csv", ContentType: "text/csv; charset=utf-8", Data: b}, nil
	default:
		return nil, NewInvalidError("unsupported format")
	}
}

func buildLongRows(q *models.Questionnaire, rs []*models.Response) []LongRow {
	out := make([]LongRow, 0, len(rs)*len(q.Questions))
	for _, r := range rs {
		for _, a := range r.Answers {
			qu := q.Question(a.QuestionID)
			w := models.EncodeAnswer(a.QuestionID, a.Value)
			out = append(out, LongRow{
				ResponseID:   r.ID,
				SubmittedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
				Name:         r.Name,
				Email:        r.Email,
				Organization: r.Organization,
				QuestionID:   a.QuestionID,
				QuestionType: string(w.QuestionType),
				Value:        w.Value,
				Display:      models.Display(qu, a.Value),
			})
		}
	}
	return out
}

func buildWideRows(q *models.Questionnaire, rs []*models.Response) ([]WideColumn, []WideRow) {
	cols := make([]WideColumn, 0, len(q.Questions))
	for _, qu := range q.Questions {
		cols = append(cols, WideColumn{QuestionID: qu.ID, Header: qu.Text})
	}
	rows := make([]WideRow, 0, len(rs))
	for _, r := range rs {
		row := WideRow{
			ResponseID:   r.ID,
			SubmittedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
			Name:         r.Name,
			Email:        r.Email,
			Organization: r.Organization,
			Cells:        map[string]string{},
		}
		for _, a := range r.Answers {
			row.Cells[a.QuestionID] = models.Display(q.Question(a.QuestionID), a.Value)
		}
		rows = append(rows, row)
	}
	return cols, rows
}
