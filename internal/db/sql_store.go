package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
	"github.com/Inspirimental/addonware-web-sub000/internal/services"
)

// SQLStore persists everything in SQLite or MySQL. Queries use "?"
// placeholders, which both drivers accept; only upserts differ per dialect.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

func NewSQLiteStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLStore{db: db, dialect: DialectSQLite}, nil
}

func NewMySQLStore(db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	return &SQLStore{db: db, dialect: DialectMySQL}, nil
}

func (s *SQLStore) Dialect() string { return s.dialect }

func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLStore) Close() error { return s.db.Close() }

func ms(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMS(v int64) time.Time { return time.UnixMilli(v).UTC() }

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func isDuplicate(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return false
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- Unlock tokens ---

func (s *SQLStore) InsertToken(ctx context.Context, t *models.UnlockToken) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO unlock_tokens (token_hash, resource_id, email, name, organization, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.TokenHash, t.ResourceID, t.Email, t.Name, t.Organization, ms(t.CreatedAt), ms(t.ExpiresAt))
	if isDuplicate(err) {
		return services.ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (s *SQLStore) GetTokenByHash(ctx context.Context, hash string) (*models.UnlockToken, error) {
	var (
		t                models.UnlockToken
		created, expires int64
		consumed         sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, resource_id, email, name, organization, created_at, expires_at, consumed_at
		 FROM unlock_tokens WHERE token_hash = ?`, hash).
		Scan(&t.TokenHash, &t.ResourceID, &t.Email, &t.Name, &t.Organization, &created, &expires, &consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	t.CreatedAt = fromMS(created)
	t.ExpiresAt = fromMS(expires)
	if consumed.Valid {
		at := fromMS(consumed.Int64)
		t.ConsumedAt = &at
	}
	return &t, nil
}

// ConsumeToken is a single conditional UPDATE, so of any number of
// concurrent callers at most one sees a changed row.
func (s *SQLStore) ConsumeToken(ctx context.Context, hash, resourceID string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE unlock_tokens SET consumed_at = ?
		 WHERE token_hash = ? AND resource_id = ? AND consumed_at IS NULL AND expires_at > ?`,
		ms(now), hash, resourceID, ms(now))
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	return n == 1, nil
}

func (s *SQLStore) DeleteToken(ctx context.Context, hash string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM unlock_tokens WHERE token_hash = ?", hash); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (s *SQLStore) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM unlock_tokens WHERE expires_at <= ?", ms(now))
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return res.RowsAffected()
}

// --- Case studies ---

const caseStudyColumns = "id, title, summary, solution, published, updated_at"

func scanCaseStudy(row interface{ Scan(...any) error }) (*models.CaseStudy, error) {
	var (
		cs        models.CaseStudy
		published int64
		updated   int64
	)
	if err := row.Scan(&cs.ID, &cs.Title, &cs.Summary, &cs.Solution, &published, &updated); err != nil {
		return nil, err
	}
	cs.Published = published != 0
	cs.UpdatedAt = fromMS(updated)
	return &cs, nil
}

func (s *SQLStore) GetCaseStudy(ctx context.Context, id string) (*models.CaseStudy, error) {
	cs, err := scanCaseStudy(s.db.QueryRowContext(ctx, "SELECT "+caseStudyColumns+" FROM case_studies WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case study: %w", err)
	}
	return cs, nil
}

func (s *SQLStore) ListCaseStudies(ctx context.Context) ([]*models.CaseStudy, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+caseStudyColumns+" FROM case_studies ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list case studies: %w", err)
	}
	defer rows.Close()
	var out []*models.CaseStudy
	for rows.Next() {
		cs, err := scanCaseStudy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case study: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertCaseStudy(ctx context.Context, cs *models.CaseStudy) error {
	q := `INSERT INTO case_studies (id, title, summary, solution, published, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	if s.dialect == DialectMySQL {
		q += ` ON DUPLICATE KEY UPDATE title = VALUES(title), summary = VALUES(summary),
		solution = VALUES(solution), published = VALUES(published), updated_at = VALUES(updated_at)`
	} else {
		q += ` ON CONFLICT(id) DO UPDATE SET title = excluded.title, summary = excluded.summary,
		solution = excluded.solution, published = excluded.published, updated_at = excluded.updated_at`
	}
	if _, err := s.db.ExecContext(ctx, q, cs.ID, cs.Title, cs.Summary, cs.Solution, boolToInt64(cs.Published), ms(cs.UpdatedAt)); err != nil {
		return fmt.Errorf("upsert case study: %w", err)
	}
	return nil
}

// --- Questionnaires ---

func (s *SQLStore) InsertQuestionnaire(ctx context.Context, q *models.Questionnaire) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO questionnaires (id, slug, title, description, active, notify_email, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			q.ID, q.Slug, q.Title, q.Description, boolToInt64(q.Active), q.NotifyEmail, ms(q.CreatedAt))
		if isDuplicate(err) {
			return services.NewConflictError("slug already in use")
		}
		if err != nil {
			return fmt.Errorf("insert questionnaire: %w", err)
		}
		for _, qu := range q.Questions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO questions (questionnaire_id, id, text, type, position, min_value, max_value)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				q.ID, qu.ID, qu.Text, string(qu.Type), qu.Position, qu.Min, qu.Max); err != nil {
				return fmt.Errorf("insert question %s: %w", qu.ID, err)
			}
			for _, o := range qu.Options {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO question_options (questionnaire_id, question_id, id, text, position)
					 VALUES (?, ?, ?, ?, ?)`,
					q.ID, qu.ID, o.ID, o.Text, o.Position); err != nil {
					return fmt.Errorf("insert option %s: %w", o.ID, err)
				}
			}
		}
		return nil
	})
}

const questionnaireColumns = "id, slug, title, description, active, notify_email, created_at"

func scanQuestionnaire(row interface{ Scan(...any) error }) (*models.Questionnaire, error) {
	var (
		q       models.Questionnaire
		active  int64
		created int64
	)
	if err := row.Scan(&q.ID, &q.Slug, &q.Title, &q.Description, &active, &q.NotifyEmail, &created); err != nil {
		return nil, err
	}
	q.Active = active != 0
	q.CreatedAt = fromMS(created)
	return &q, nil
}

func (s *SQLStore) GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error) {
	return s.loadQuestionnaire(ctx, "SELECT "+questionnaireColumns+" FROM questionnaires WHERE id = ?", id)
}

func (s *SQLStore) GetQuestionnaireBySlug(ctx context.Context, slug string) (*models.Questionnaire, error) {
	return s.loadQuestionnaire(ctx, "SELECT "+questionnaireColumns+" FROM questionnaires WHERE slug = ?", slug)
}

func (s *SQLStore) loadQuestionnaire(ctx context.Context, query, arg string) (*models.Questionnaire, error) {
	q, err := scanQuestionnaire(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get questionnaire: %w", err)
	}
	if err := s.loadQuestions(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *SQLStore) loadQuestions(ctx context.Context, q *models.Questionnaire) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, type, position, min_value, max_value FROM questions
		 WHERE questionnaire_id = ? ORDER BY position, id`, q.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	byID := map[string]*models.Question{}
	q.Questions = nil
	for rows.Next() {
		qu := &models.Question{QuestionnaireID: q.ID}
		var typ string
		if err := rows.Scan(&qu.ID, &qu.Text, &typ, &qu.Position, &qu.Min, &qu.Max); err != nil {
			rows.Close()
			return fmt.Errorf("scan question: %w", err)
		}
		qu.Type = models.QuestionType(typ)
		q.Questions = append(q.Questions, qu)
		byID[qu.ID] = qu
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list questions: %w", err)
	}

	orows, err := s.db.QueryContext(ctx,
		`SELECT question_id, id, text, position FROM question_options
		 WHERE questionnaire_id = ? ORDER BY question_id, position, id`, q.ID)
	if err != nil {
		return fmt.Errorf("list options: %w", err)
	}
	defer orows.Close()
	for orows.Next() {
		o := &models.Option{}
		if err := orows.Scan(&o.QuestionID, &o.ID, &o.Text, &o.Position); err != nil {
			return fmt.Errorf("scan option: %w", err)
		}
		if qu := byID[o.QuestionID]; qu != nil {
			qu.Options = append(qu.Options, o)
		}
	}
	return orows.Err()
}

func (s *SQLStore) ListQuestionnaires(ctx context.Context) ([]*models.Questionnaire, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+questionnaireColumns+" FROM questionnaires ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	var out []*models.Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan questionnaire: %w", err)
		}
		out = append(out, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, q := range out {
		if err := s.loadQuestions(ctx, q); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) SetQuestionnaireActive(ctx context.Context, id string, active bool) (bool, error) {
	// MySQL reports 0 affected rows when the value does not change, so check existence first
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM questionnaires WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("find questionnaire: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE questionnaires SET active = ? WHERE id = ?", boolToInt64(active), id); err != nil {
		return false, fmt.Errorf("set active: %w", err)
	}
	return true, nil
}

// --- Responses ---

type answerColumns struct {
	optionID    sql.NullString
	ratingValue sql.NullInt64
	ratingMax   sql.NullInt64
	textValue   sql.NullString
}

func encodeAnswerValue(v models.AnswerValue) (answerColumns, error) {
	var c answerColumns
	switch a := v.(type) {
	case models.SingleChoice:
		c.optionID = sql.NullString{String: a.OptionID, Valid: true}
	case models.Rating:
		c.ratingValue = sql.NullInt64{Int64: int64(a.Value), Valid: true}
		c.ratingMax = sql.NullInt64{Int64: int64(a.Max), Valid: true}
	case models.FreeText:
		c.textValue = sql.NullString{String: a.Text, Valid: true}
	default:
		return c, fmt.Errorf("unsupported answer value %T", v)
	}
	return c, nil
}

func decodeAnswerValue(typ string, c answerColumns) (models.AnswerValue, error) {
	switch models.QuestionType(typ) {
	case models.QuestionSingleChoice:
		if c.optionID.Valid {
			return models.SingleChoice{OptionID: c.optionID.String}, nil
		}
	case models.QuestionRating:
		if c.ratingValue.Valid {
			return models.Rating{Value: int(c.ratingValue.Int64), Max: int(c.ratingMax.Int64)}, nil
		}
	case models.QuestionFreeText:
		if c.textValue.Valid {
			return models.FreeText{Text: c.textValue.String}, nil
		}
	}
	return nil, fmt.Errorf("answer of type %q has no matching value", typ)
}

// InsertResponse stores the response and its answers in one transaction.
func (s *SQLStore) InsertResponse(ctx context.Context, r *models.Response) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO responses (id, questionnaire_id, name, email, organization, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, r.QuestionnaireID, r.Name, r.Email, r.Organization, ms(r.CreatedAt)); err != nil {
			return fmt.Errorf("insert response: %w", err)
		}
		for _, a := range r.Answers {
			c, err := encodeAnswerValue(a.Value)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO answers (response_id, question_id, question_type, option_id, rating_value, rating_max, text_value)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				r.ID, a.QuestionID, string(a.Value.Kind()), c.optionID, c.ratingValue, c.ratingMax, c.textValue); err != nil {
				return fmt.Errorf("insert answer %s: %w", a.QuestionID, err)
			}
		}
		return nil
	})
}

// ListResponses returns the responses of a questionnaire, oldest first, with
// answers in question order.
func (s *SQLStore) ListResponses(ctx context.Context, questionnaireID string) ([]*models.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, organization, created_at FROM responses
		 WHERE questionnaire_id = ? ORDER BY created_at, id`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	var out []*models.Response
	byID := map[string]*models.Response{}
	for rows.Next() {
		r := &models.Response{QuestionnaireID: questionnaireID}
		var created int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.Organization, &created); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan response: %w", err)
		}
		r.CreatedAt = fromMS(created)
		out = append(out, r)
		byID[r.ID] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT a.response_id, a.question_id, a.question_type, a.option_id, a.rating_value, a.rating_max, a.text_value
		 FROM answers a
		 JOIN responses r ON r.id = a.response_id
		 LEFT JOIN questions q ON q.questionnaire_id = r.questionnaire_id AND q.id = a.question_id
		 WHERE r.questionnaire_id = ?
		 ORDER BY a.response_id, q.position, a.question_id`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var (
			respID, qid, typ string
			c                answerColumns
		)
		if err := arows.Scan(&respID, &qid, &typ, &c.optionID, &c.ratingValue, &c.ratingMax, &c.textValue); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		v, err := decodeAnswerValue(typ, c)
		if err != nil {
			return nil, err
		}
		if r := byID[respID]; r != nil {
			r.Answers = append(r.Answers, &models.Answer{ResponseID: respID, QuestionID: qid, Value: v})
		}
	}
	return out, arows.Err()
}

func (s *SQLStore) DeleteResponse(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM answers WHERE response_id = ?", id); err != nil {
			return fmt.Errorf("delete answers: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM responses WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete response: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// --- Admin users & audit ---

func (s *SQLStore) FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var (
		u       models.AdminUser
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, pass_hash, created_at FROM admin_users WHERE email = ?", strings.ToLower(email)).
		Scan(&u.ID, &u.Email, &u.PassHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}
	u.CreatedAt = fromMS(created)
	return &u, nil
}

func (s *SQLStore) AddAdmin(ctx context.Context, u *models.AdminUser) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO admin_users (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, strings.ToLower(u.Email), u.PassHash, ms(u.CreatedAt))
	if isDuplicate(err) {
		return services.NewConflictError("email exists")
	}
	if err != nil {
		return fmt.Errorf("add admin: %w", err)
	}
	return nil
}

func (s *SQLStore) AddAudit(ctx context.Context, e models.AuditEntry) error {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO audit_log (ts, actor, action, target, note) VALUES (?, ?, ?, ?, ?)",
		ms(ts), e.Actor, e.Action, e.Target, e.Note); err != nil {
		return fmt.Errorf("add audit: %w", err)
	}
	return nil
}

func (s *SQLStore) ListAudit(ctx context.Context, limit int) ([]models.AuditEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, actor, action, target, note FROM audit_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	var out []models.AuditEntry
	for rows.Next() {
		var (
			e  models.AuditEntry
			ts int64
		)
		if err := rows.Scan(&ts, &e.Actor, &e.Action, &e.Target, &e.Note); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Time = fromMS(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}
