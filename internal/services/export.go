package services

import (
	"bytes"
	"encoding/csv"
	"strconv"
)

type LongRow struct {
	ResponseID   string
	SubmittedAt  string // RFC3339
	Name         string
	Email        string
	Organization string
	QuestionID   string
	QuestionType string
	Value        string
	Display      string
}

var longHeader = []string{
	"response_id", "submitted_at", "name", "email", "organization",
	"question_id", "question_type", "value", "display",
}

// ExportLongCSV renders one row per answer.
func ExportLongCSV(rows []LongRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write(longHeader)
	for _, r := range rows {
		rec := []string{
			r.ResponseID,
			r.SubmittedAt,
			r.Name,
			r.Email,
			r.Organization,
			r.QuestionID,
			r.QuestionType,
			r.Value,
			r.Display,
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// WideColumn is one question column of the wide export.
type WideColumn struct {
	QuestionID string
	Header     string
}

// WideRow is one response; Cells is keyed by question id.
type WideRow struct {
	ResponseID   string
	SubmittedAt  string
	Name         string
	Email        string
	Organization string
	Cells        map[string]string
}

// ExportWideCSV renders one row per response and one column per question,
// in the order of columns.
func ExportWideCSV(columns []WideColumn, rows []WideRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	header := []string{"response_id", "submitted_at", "name", "email", "organization"}
	for i, c := range columns {
		h := c.Header
		if h == "" {
			h = "q" + strconv.Itoa(i+1)
		}
		header = append(header, h)
	}
	_ = w.Write(header)
	for _, r := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, r.ResponseID, r.SubmittedAt, r.Name, r.Email, r.Organization)
		for _, c := range columns {
			rec = append(rec, r.Cells[c.QuestionID])
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
