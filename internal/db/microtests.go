package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skillxpress/skillxpress/internal/types"
)

// foreignKeyViolation is the Postgres SQLSTATE for a missing referenced row.
const foreignKeyViolation = "23503"

// ListMicroTestQuestions returns the question bank in presentation order.
func (db *DB) ListMicroTestQuestions(ctx context.Context) ([]types.MicroTestQuestion, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	rows, err := db.pool.Query(ctx,
		`SELECT id, section, prompt, options, correct_option
		 FROM micro_test_questions ORDER BY position, id`,
	)
	if err != nil {
		return nil, db.fail("list micro test questions", err)
	}
	defer rows.Close()

	var questions []types.MicroTestQuestion
	for rows.Next() {
		var q types.MicroTestQuestion
		if err := rows.Scan(&q.ID, &q.Section, &q.Prompt, &q.Options, &q.CorrectOption); err != nil {
			return nil, db.fail("scan micro test question", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, db.fail("iterate micro test questions", err)
	}
	return questions, nil
}

// SaveMicroTestResult inserts r. A user without a profile is a validation
// error.
func (db *DB) SaveMicroTestResult(ctx context.Context, r *types.MicroTestResult) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx,
		`INSERT INTO micro_test_results (id, user_id, attention_score, memory_score, logic_score,
		   decision_score, behaviour_score, brain_efficiency, total_questions, correct_answers,
		   time_taken_seconds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.UserID,
		r.Scores[types.SectionAttention], r.Scores[types.SectionMemory], r.Scores[types.SectionLogic],
		r.Scores[types.SectionDecision], r.Scores[types.SectionBehaviour],
		r.BrainEfficiency, r.TotalQuestions, r.CorrectAnswers, r.TimeTakenSeconds, r.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return &types.ValidationError{Field: "user_id", Message: "profile not found"}
		}
		return db.fail("save micro test result", err)
	}
	return nil
}

// LatestMicroTestResult returns the user's newest result, or nil when none
// exists.
func (db *DB) LatestMicroTestResult(ctx context.Context, userID uuid.UUID) (*types.MicroTestResult, error) {
	ctx, cancel := db.bound(ctx)
	defer cancel()

	var attention, memory, logic, decision, behaviour int
	r := types.MicroTestResult{UserID: userID}
	err := db.pool.QueryRow(ctx,
		`SELECT id, attention_score, memory_score, logic_score, decision_score, behaviour_score,
		   brain_efficiency, total_questions, correct_answers, time_taken_seconds, created_at
		 FROM micro_test_results WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT 1`,
		userID,
	).Scan(&r.ID, &attention, &memory, &logic, &decision, &behaviour,
		&r.BrainEfficiency, &r.TotalQuestions, &r.CorrectAnswers, &r.TimeTakenSeconds, &r.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, db.fail("get latest micro test result", err)
	}
	r.Scores = map[types.MicroTestSection]int{
		types.SectionAttention: attention,
		types.SectionMemory:    memory,
		types.SectionLogic:     logic,
		types.SectionDecision:  decision,
		types.SectionBehaviour: behaviour,
	}
	return &r, nil
}
