package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/db"
)

const quizCols = `id, content_id, time_limit, passing_score, max_attempts, created_at, updated_at`

func scanQuiz(row scanner) (Quiz, error) {
	var qz Quiz
	var limit sql.NullInt64
	var created, updated int64
	if err := row.Scan(&qz.ID, &qz.ContentID, &limit, &qz.PassingScore, &qz.MaxAttempts, &created, &updated); err != nil {
		return Quiz{}, err
	}
	qz.TimeLimit = intPtr(limit)
	qz.CreatedAt, qz.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return qz, nil
}

func (s *SQLStore) QuizByID(ctx context.Context, id string) (Quiz, error) {
	qz, err := scanQuiz(s.q.QueryRowContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE id=$1`, id))
	return qz, notFound(err, "quiz")
}

// OwnerOfQuiz resolves the course a quiz belongs to.
func (s *SQLStore) OwnerOfQuiz(ctx context.Context, quizID string) (Quiz, Owner, error) {
	qz, err := s.QuizByID(ctx, quizID)
	if err != nil {
		return Quiz{}, Owner{}, err
	}
	o, err := s.OwnerOfContent(ctx, qz.ContentID)
	return qz, o, err
}

func (s *SQLStore) CreateQuiz(ctx context.Context, qz *Quiz) error {
	if qz.ID == "" {
		qz.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO quizzes (`+quizCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		qz.ID, qz.ContentID, nullInt(qz.TimeLimit), qz.PassingScore, qz.MaxAttempts,
		db.Unix(qz.CreatedAt), db.Unix(qz.UpdatedAt))
	return err
}

func (s *SQLStore) UpdateQuiz(ctx context.Context, qz Quiz) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE quizzes SET time_limit=$1, passing_score=$2, max_attempts=$3, updated_at=$4 WHERE id=$5`,
		nullInt(qz.TimeLimit), qz.PassingScore, qz.MaxAttempts, db.Unix(qz.UpdatedAt), qz.ID)
	return err
}

// DeleteQuiz removes a quiz; questions, attempts and answers cascade.
func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	return err
}

func (s *SQLStore) ListQuizzes(ctx context.Context, contentID string, p db.Page) ([]Quiz, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes WHERE content_id=$1`, contentID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+quizCols+` FROM quizzes WHERE content_id=$1
		ORDER BY created_at, id LIMIT $2 OFFSET $3`, contentID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Quiz
	for rows.Next() {
		qz, err := scanQuiz(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, qz)
	}
	return out, total, rows.Err()
}

// --- questions ---

const questionCols = `id, quiz_id, question_text, question_type, options_json, correct_answer, points, sort_order, created_at, updated_at`

func scanQuestion(row scanner) (Question, error) {
	var q Question
	var opts string
	var created, updated int64
	if err := row.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &opts, &q.CorrectAnswer, &q.Points, &q.Order,
		&created, &updated); err != nil {
		return Question{}, err
	}
	if err := json.Unmarshal([]byte(opts), &q.Options); err != nil {
		return Question{}, fmt.Errorf("decode options of question %s: %w", q.ID, err)
	}
	q.CreatedAt, q.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return q, nil
}

func encodeOptions(opts []Option) (string, error) {
	b, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("encode options: %w", err)
	}
	return string(b), nil
}

// QuestionByID loads a question of quizID.
func (s *SQLStore) QuestionByID(ctx context.Context, quizID, id string) (Question, error) {
	q, err := scanQuestion(s.q.QueryRowContext(ctx,
		`SELECT `+questionCols+` FROM questions WHERE id=$1 AND quiz_id=$2`, id, quizID))
	return q, notFound(err, "question")
}

// QuestionQuiz returns the quiz a question belongs to.
func (s *SQLStore) QuestionQuiz(ctx context.Context, id string) (string, error) {
	var quizID string
	err := s.q.QueryRowContext(ctx, `SELECT quiz_id FROM questions WHERE id=$1`, id).Scan(&quizID)
	return quizID, notFound(err, "question")
}

func (s *SQLStore) CreateQuestion(ctx context.Context, q *Question) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	opts, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `INSERT INTO questions (`+questionCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		q.ID, q.QuizID, q.Text, q.Type, opts, q.CorrectAnswer, q.Points, q.Order,
		db.Unix(q.CreatedAt), db.Unix(q.UpdatedAt))
	return err
}

// UpdateQuestion writes the question's fields. Order is managed by ordering.
func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	opts, err := encodeOptions(q.Options)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `UPDATE questions SET question_text=$1, question_type=$2, options_json=$3,
		correct_answer=$4, points=$5, updated_at=$6 WHERE id=$7`,
		q.Text, q.Type, opts, q.CorrectAnswer, q.Points, db.Unix(q.UpdatedAt), q.ID)
	return err
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM questions WHERE id=$1`, id)
	return err
}

func (s *SQLStore) ListQuestions(ctx context.Context, quizID string, p db.Page) ([]Question, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE quiz_id=$1`, quizID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+questionCols+` FROM questions WHERE quiz_id=$1
		ORDER BY sort_order LIMIT $2 OFFSET $3`, quizID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

// TotalPoints sums the points of every question in a quiz.
func (s *SQLStore) TotalPoints(ctx context.Context, quizID string) (float64, error) {
	var total sql.NullFloat64
	err := s.q.QueryRowContext(ctx, `SELECT SUM(points) FROM questions WHERE quiz_id=$1`, quizID).Scan(&total)
	return total.Float64, err
}
