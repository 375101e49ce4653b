package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/turtacn/QuestionBank/internal/domain/question"
	"github.com/turtacn/QuestionBank/internal/infrastructure/database/postgres"
	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
)

const partColumns = `id, school, year, section, question_num, part_letter,
	source_question_num, source_page, marks, text, main_context, answer, worked_solution,
	topics, heuristics, confidence, needs_review, manually_edited, created_at, updated_at`

const identityWhere = `school = $1 AND year = $2 AND section = $3 AND question_num = $4 AND part_letter = $5`

// Content columns are refreshed on re-ingest. Answers survive an empty
// incoming value and tags are only written through UpdateTags.
const upsertPartSQL = `
	INSERT INTO question_parts (
		id, school, year, section, question_num, part_letter,
		source_question_num, source_page, marks, text, main_context, answer, worked_solution,
		topics, heuristics, confidence, needs_review
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	ON CONFLICT (school, year, section, question_num, part_letter) DO UPDATE SET
		source_question_num = EXCLUDED.source_question_num,
		source_page         = EXCLUDED.source_page,
		marks               = EXCLUDED.marks,
		text                = EXCLUDED.text,
		main_context        = EXCLUDED.main_context,
		answer              = COALESCE(NULLIF(EXCLUDED.answer, ''), question_parts.answer),
		worked_solution     = COALESCE(NULLIF(EXCLUDED.worked_solution, ''), question_parts.worked_solution),
		updated_at          = NOW()
	WHERE NOT question_parts.manually_edited
	RETURNING id, (xmax = 0) AS inserted`

type postgresQuestionRepo struct {
	baseRepo
}

// QuestionRepository is the Postgres question store. It also serves merged
// groups to the cache.
type QuestionRepository interface {
	question.Repository
	question.GroupReader
}

// NewPostgresQuestionRepo returns the question store backed by conn.
func NewPostgresQuestionRepo(conn *postgres.Connection, log logging.Logger) QuestionRepository {
	return &postgresQuestionRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

func identityArgs(id question.Identity) []interface{} {
	return []interface{}{id.School, id.Year, id.Section, id.QuestionNum, id.PartLetter}
}

// Upsert writes parts in one transaction. A row flagged manually_edited makes
// the conflict clause return nothing, which counts as skipped.
func (r *postgresQuestionRepo) Upsert(ctx context.Context, parts []question.Part) (question.UpsertResult, error) {
	var res question.UpsertResult
	if len(parts) == 0 {
		return res, nil
	}
	for i := range parts {
		if err := parts[i].Validate(); err != nil {
			return res, err
		}
	}

	err := r.conn.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i := range parts {
			p := &parts[i]
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			var (
				id       uuid.UUID
				inserted bool
			)
			err := tx.QueryRowContext(ctx, upsertPartSQL,
				p.ID, p.School, p.Year, p.Section, p.QuestionNum, p.PartLetter,
				p.SourceQuestionNum, p.SourcePage, p.Marks, p.Text, p.MainContext, p.Answer, p.WorkedSolution,
				pq.Array(nonNil(p.Topics)), pq.Array(nonNil(p.Heuristics)), p.Confidence, p.NeedsReview,
			).Scan(&id, &inserted)
			switch {
			case stderrors.Is(err, sql.ErrNoRows):
				res.Skipped++
				r.log.Debug("skipped manually edited part", logging.String("part", p.Identity.String()))
				continue
			case err != nil:
				return errors.Wrapf(err, errors.ErrCodeDatabaseError, "failed to upsert part %s", p.Identity)
			}
			p.ID = id
			if inserted {
				res.Inserted++
			} else {
				res.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return question.UpsertResult{}, err
	}
	return res, nil
}

func (r *postgresQuestionRepo) Get(ctx context.Context, id question.Identity) (*question.Part, error) {
	row := r.executor().QueryRowContext(ctx,
		`SELECT `+partColumns+` FROM question_parts WHERE `+identityWhere, identityArgs(id)...)
	p, err := scanPart(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.CodeQuestionNotFound, "question part not found").WithDetailf("part=%s", id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to get question part")
	}
	return p, nil
}

func (r *postgresQuestionRepo) ListByQuestion(ctx context.Context, key question.Key) ([]question.Part, error) {
	rows, err := r.executor().QueryContext(ctx,
		`SELECT `+partColumns+` FROM question_parts
		 WHERE school = $1 AND year = $2 AND section = $3 AND question_num = $4
		 ORDER BY part_letter`,
		key.School, key.Year, key.Section, key.QuestionNum)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list question parts")
	}
	return collectParts(rows)
}

func (r *postgresQuestionRepo) List(ctx context.Context, f question.Filter) ([]question.Part, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.School != "" {
		add("school = $%d", f.School)
	}
	if f.Year != 0 {
		add("year = $%d", f.Year)
	}
	if f.Section != "" {
		add("section = $%d", f.Section)
	}
	if f.NeedsReview != nil {
		add("needs_review = $%d", *f.NeedsReview)
	}

	q := `SELECT ` + partColumns + ` FROM question_parts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY school, year, section, question_num, part_letter"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.executor().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list question parts")
	}
	return collectParts(rows)
}

func (r *postgresQuestionRepo) UpdateAnswer(ctx context.Context, id question.Identity, answer, workedSolution string, overwrite bool) (bool, error) {
	args := append([]interface{}{answer, workedSolution, overwrite}, identityArgs(id)...)
	res, err := r.executor().ExecContext(ctx, `
		UPDATE question_parts SET
			answer          = $1,
			worked_solution = COALESCE(NULLIF($2, ''), worked_solution),
			updated_at      = NOW()
		WHERE school = $4 AND year = $5 AND section = $6 AND question_num = $7 AND part_letter = $8
		  AND ($3 OR answer = '') AND NOT manually_edited`, args...)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update answer")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	return n > 0, nil
}

func (r *postgresQuestionRepo) UpdateTags(ctx context.Context, id question.Identity, tags question.Tags) (bool, error) {
	args := append([]interface{}{
		pq.Array(nonNil(tags.Topics)), pq.Array(nonNil(tags.Heuristics)), tags.Confidence, tags.NeedsReview,
	}, identityArgs(id)...)
	res, err := r.executor().ExecContext(ctx, `
		UPDATE question_parts SET
			topics       = $1,
			heuristics   = $2,
			confidence   = $3,
			needs_review = $4,
			updated_at   = NOW()
		WHERE school = $5 AND year = $6 AND section = $7 AND question_num = $8 AND part_letter = $9
		  AND NOT manually_edited`, args...)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update tags")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read affected rows")
	}
	return n > 0, nil
}

// GetGroup merges every stored part of key.
func (r *postgresQuestionRepo) GetGroup(ctx context.Context, key question.Key) (question.Group, error) {
	parts, err := r.ListByQuestion(ctx, key)
	if err != nil {
		return question.Group{}, err
	}
	if len(parts) == 0 {
		return question.Group{}, errors.New(errors.CodeQuestionNotFound, "question not found").WithDetailf("key=%s", key)
	}
	return question.Merge(parts)
}

func scanPart(s scanner) (*question.Part, error) {
	var p question.Part
	err := s.Scan(
		&p.ID, &p.School, &p.Year, &p.Section, &p.QuestionNum, &p.PartLetter,
		&p.SourceQuestionNum, &p.SourcePage, &p.Marks, &p.Text, &p.MainContext, &p.Answer, &p.WorkedSolution,
		pq.Array(&p.Topics), pq.Array(&p.Heuristics), &p.Confidence, &p.NeedsReview, &p.ManuallyEdited,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectParts(rows *sql.Rows) ([]question.Part, error) {
	defer rows.Close()
	var out []question.Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan question part")
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate question parts")
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

//Personal.AI order the ending
