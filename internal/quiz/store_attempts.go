package quiz

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/db"
)

const attemptCols = `a.id, a.quiz_id, a.user_id, a.status, a.started_at, a.expires_at, a.completed_at, a.score, a.passed`

func scanAttempt(row scanner, extra ...any) (Attempt, error) {
	var a Attempt
	var started int64
	var expires, completed sql.NullInt64
	var score sql.NullFloat64
	var passed sql.NullBool
	dest := append([]any{&a.ID, &a.QuizID, &a.UserID, &a.Status, &started, &expires, &completed, &score, &passed}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Attempt{}, err
	}
	a.StartedAt = db.FromUnix(started)
	a.ExpiresAt = db.NullTime(expires)
	a.CompletedAt = db.NullTime(completed)
	a.Score = floatPtr(score)
	a.Passed = boolPtr(passed)
	return a, nil
}

func (s *SQLStore) AttemptByID(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.q.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM quiz_attempts a WHERE a.id=$1`, id))
	return a, notFound(err, "attempt")
}

// Attempts lists the attempts at a quiz, oldest first, with their users.
// An empty userID lists every user's attempts.
func (s *SQLStore) Attempts(ctx context.Context, quizID, userID string) ([]Attempt, error) {
	query := `SELECT ` + attemptCols + `, u.username, u.avatar
		FROM quiz_attempts a JOIN users u ON u.id = a.user_id
		WHERE a.quiz_id=$1`
	args := []any{quizID}
	if userID != "" {
		query += ` AND a.user_id=$2`
		args = append(args, userID)
	}
	rows, err := s.q.QueryContext(ctx, query+` ORDER BY a.started_at, a.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		var u AttemptUser
		a, err := scanAttempt(rows, &u.Username, &u.Avatar)
		if err != nil {
			return nil, err
		}
		a.User = &u
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a *Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO quiz_attempts
		(id, quiz_id, user_id, status, started_at, expires_at, completed_at, score, passed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.QuizID, a.UserID, a.Status, db.Unix(a.StartedAt), db.NullUnix(a.ExpiresAt),
		db.NullUnix(a.CompletedAt), nullFloat(a.Score), nullBool(a.Passed))
	return err
}

func (s *SQLStore) SetAttemptStatus(ctx context.Context, id, status string) error {
	_, err := s.q.ExecContext(ctx, `UPDATE quiz_attempts SET status=$1 WHERE id=$2`, status, id)
	return err
}

// SaveResult writes an attempt's status, completion time and score.
func (s *SQLStore) SaveResult(ctx context.Context, a Attempt) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE quiz_attempts SET status=$1, completed_at=$2, score=$3, passed=$4 WHERE id=$5`,
		a.Status, db.NullUnix(a.CompletedAt), nullFloat(a.Score), nullBool(a.Passed), a.ID)
	return err
}

// EarnedPoints sums the points awarded to an attempt's graded answers.
func (s *SQLStore) EarnedPoints(ctx context.Context, attemptID string) (float64, error) {
	var sum sql.NullFloat64
	err := s.q.QueryRowContext(ctx,
		`SELECT SUM(points) FROM answers WHERE attempt_id=$1 AND points IS NOT NULL`, attemptID).Scan(&sum)
	return sum.Float64, err
}

// --- answers ---

const answerCols = `id, attempt_id, question_id, answer_text, is_correct, points, graded_by, created_at, updated_at`

func scanAnswer(row scanner, extra ...any) (Answer, error) {
	var a Answer
	var correct sql.NullBool
	var points sql.NullFloat64
	var created, updated int64
	dest := append([]any{&a.ID, &a.AttemptID, &a.QuestionID, &a.AnswerText, &correct, &points, &a.GradedBy,
		&created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Answer{}, err
	}
	a.IsCorrect, a.Points = boolPtr(correct), floatPtr(points)
	a.CreatedAt, a.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return a, nil
}

func (s *SQLStore) AnswerByID(ctx context.Context, id string) (Answer, error) {
	a, err := scanAnswer(s.q.QueryRowContext(ctx, `SELECT `+answerCols+` FROM answers WHERE id=$1`, id))
	return a, notFound(err, "answer")
}

// UpsertAnswer stores the answer keyed by (attempt, question), replacing any
// earlier one, and reloads it so a carries the stored id and creation time.
func (s *SQLStore) UpsertAnswer(ctx context.Context, a *Answer) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO answers (`+answerCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (attempt_id, question_id) DO UPDATE SET
			answer_text = excluded.answer_text,
			is_correct = excluded.is_correct,
			points = excluded.points,
			graded_by = excluded.graded_by,
			updated_at = excluded.updated_at`,
		uuid.NewString(), a.AttemptID, a.QuestionID, a.AnswerText, nullBool(a.IsCorrect), nullFloat(a.Points),
		a.GradedBy, db.Unix(a.CreatedAt), db.Unix(a.UpdatedAt))
	if err != nil {
		return err
	}
	stored, err := scanAnswer(s.q.QueryRowContext(ctx,
		`SELECT `+answerCols+` FROM answers WHERE attempt_id=$1 AND question_id=$2`, a.AttemptID, a.QuestionID))
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

func (s *SQLStore) GradeAnswer(ctx context.Context, a Answer) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE answers SET is_correct=$1, points=$2, graded_by=$3, updated_at=$4 WHERE id=$5`,
		nullBool(a.IsCorrect), nullFloat(a.Points), a.GradedBy, db.Unix(a.UpdatedAt), a.ID)
	return err
}

// StudentAnswers lists a user's answers to a quiz across all attempts.
func (s *SQLStore) StudentAnswers(ctx context.Context, quizID, userID string) ([]StudentAnswer, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT an.id, an.attempt_id, an.question_id, an.answer_text, an.is_correct,
		an.points, an.graded_by, an.created_at, an.updated_at, q.question_text, q.question_type
		FROM answers an
		JOIN questions q ON q.id = an.question_id
		JOIN quiz_attempts a ON a.id = an.attempt_id
		WHERE q.quiz_id=$1 AND a.user_id=$2
		ORDER BY a.started_at, q.sort_order`, quizID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []StudentAnswer{}
	for rows.Next() {
		var sa StudentAnswer
		if sa.Answer, err = scanAnswer(rows, &sa.QuestionText, &sa.QuestionType); err != nil {
			return nil, err
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}
