package assignment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
)

// SQLStore persists assignments and submissions.
type SQLStore struct {
	sqldb *sql.DB
	q     db.Querier
}

func NewSQLStore(d *sql.DB) *SQLStore { return &SQLStore{sqldb: d, q: d} }

func (s *SQLStore) InTx(ctx context.Context, fn func(*SQLStore) error) error {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	return db.WithTx(ctx, s.sqldb, nil, func(tx *sql.Tx) error {
		return fn(&SQLStore{sqldb: s.sqldb, q: tx})
	})
}

type scanner interface{ Scan(...any) error }

func notFound(err error, noun string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("%s not found", noun)
	}
	return err
}

func encodeList(v []string) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode attachment: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode attachment: %w", err)
	}
	return out, nil
}

// CourseInstructor returns the instructor of a course.
func (s *SQLStore) CourseInstructor(ctx context.Context, courseID string) (string, error) {
	var id string
	err := s.q.QueryRowContext(ctx, `SELECT instructor_id FROM courses WHERE id=$1`, courseID).Scan(&id)
	return id, notFound(err, "course")
}

func (s *SQLStore) ActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE user_id=$1 AND course_id=$2 AND status='ACTIVE'`,
		userID, courseID).Scan(&n)
	return n > 0, err
}

// --- assignments ---

const assignmentCols = `id, course_id, creator_id, title, description, instruction, attachment, due_date,
	points_possible, is_published, created_at, updated_at`

func scanAssignment(row scanner) (Assignment, error) {
	var a Assignment
	var attachment string
	var due, created, updated int64
	if err := row.Scan(&a.ID, &a.CourseID, &a.CreatorID, &a.Title, &a.Description, &a.Instruction, &attachment,
		&due, &a.PointsPossible, &a.IsPublished, &created, &updated); err != nil {
		return Assignment{}, err
	}
	var err error
	if a.Attachment, err = decodeList(attachment); err != nil {
		return Assignment{}, err
	}
	a.DueDate, a.CreatedAt, a.UpdatedAt = db.FromUnix(due), db.FromUnix(created), db.FromUnix(updated)
	return a, nil
}

// AssignmentByID loads an assignment of courseID.
func (s *SQLStore) AssignmentByID(ctx context.Context, courseID, id string) (Assignment, error) {
	a, err := scanAssignment(s.q.QueryRowContext(ctx,
		`SELECT `+assignmentCols+` FROM assignments WHERE id=$1 AND course_id=$2`, id, courseID))
	return a, notFound(err, "assignment")
}

func (s *SQLStore) CreateAssignment(ctx context.Context, a *Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	attachment, err := encodeList(a.Attachment)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `INSERT INTO assignments (`+assignmentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.CourseID, a.CreatorID, a.Title, a.Description, a.Instruction, attachment, db.Unix(a.DueDate),
		a.PointsPossible, a.IsPublished, db.Unix(a.CreatedAt), db.Unix(a.UpdatedAt))
	return err
}

func (s *SQLStore) UpdateAssignment(ctx context.Context, a Assignment) error {
	attachment, err := encodeList(a.Attachment)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `UPDATE assignments SET title=$1, description=$2, instruction=$3, attachment=$4,
		due_date=$5, points_possible=$6, is_published=$7, updated_at=$8 WHERE id=$9`,
		a.Title, a.Description, a.Instruction, attachment, db.Unix(a.DueDate), a.PointsPossible, a.IsPublished,
		db.Unix(a.UpdatedAt), a.ID)
	return err
}

func (s *SQLStore) DeleteAssignment(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM assignments WHERE id=$1`, id)
	return err
}

func (s *SQLStore) DeleteSubmissions(ctx context.Context, assignmentID string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM submissions WHERE assignment_id=$1`, assignmentID)
	return err
}

// ListAssignments lists a course's assignments by due date. With
// publishedOnly set, drafts are left out.
func (s *SQLStore) ListAssignments(ctx context.Context, courseID string, publishedOnly bool) ([]Assignment, error) {
	query := `SELECT ` + assignmentCols + ` FROM assignments WHERE course_id=$1`
	if publishedOnly {
		query += ` AND is_published=$2`
	}
	args := []any{courseID}
	if publishedOnly {
		args = append(args, true)
	}
	rows, err := s.q.QueryContext(ctx, query+` ORDER BY due_date, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Assignment{}
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// --- submissions ---

const submissionCols = `s.id, s.assignment_id, s.user_id, s.content, s.attachment, s.status, s.grade, s.feedback,
	s.submitted_at, s.graded_at, s.created_at, s.updated_at`

func scanSubmission(row scanner, extra ...any) (Submission, error) {
	var sub Submission
	var attachment string
	var grade sql.NullFloat64
	var submitted, graded sql.NullInt64
	var created, updated int64
	dest := append([]any{&sub.ID, &sub.AssignmentID, &sub.UserID, &sub.Content, &attachment, &sub.Status, &grade,
		&sub.Feedback, &submitted, &graded, &created, &updated}, extra...)
	if err := row.Scan(dest...); err != nil {
		return Submission{}, err
	}
	var err error
	if sub.Attachment, err = decodeList(attachment); err != nil {
		return Submission{}, err
	}
	if grade.Valid {
		sub.Grade = &grade.Float64
	}
	sub.SubmittedAt, sub.GradedAt = db.NullTime(submitted), db.NullTime(graded)
	sub.CreatedAt, sub.UpdatedAt = db.FromUnix(created), db.FromUnix(updated)
	return sub, nil
}

// SubmissionByID loads a submission of assignmentID.
func (s *SQLStore) SubmissionByID(ctx context.Context, assignmentID, id string) (Submission, error) {
	sub, err := scanSubmission(s.q.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions s WHERE s.id=$1 AND s.assignment_id=$2`, id, assignmentID))
	return sub, notFound(err, "submission")
}

// SubmissionOf loads the user's submission to an assignment.
func (s *SQLStore) SubmissionOf(ctx context.Context, assignmentID, userID string) (Submission, error) {
	sub, err := scanSubmission(s.q.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions s WHERE s.assignment_id=$1 AND s.user_id=$2`, assignmentID, userID))
	return sub, notFound(err, "submission")
}

func (s *SQLStore) CreateSubmission(ctx context.Context, sub *Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	attachment, err := encodeList(sub.Attachment)
	if err != nil {
		return err
	}
	var grade sql.NullFloat64
	if sub.Grade != nil {
		grade = sql.NullFloat64{Float64: *sub.Grade, Valid: true}
	}
	_, err = s.q.ExecContext(ctx, `INSERT INTO submissions
		(id, assignment_id, user_id, content, attachment, status, grade, feedback, submitted_at, graded_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		sub.ID, sub.AssignmentID, sub.UserID, sub.Content, attachment, sub.Status, grade, sub.Feedback,
		db.NullUnix(sub.SubmittedAt), db.NullUnix(sub.GradedAt), db.Unix(sub.CreatedAt), db.Unix(sub.UpdatedAt))
	return err
}

func (s *SQLStore) UpdateSubmission(ctx context.Context, sub Submission) error {
	attachment, err := encodeList(sub.Attachment)
	if err != nil {
		return err
	}
	var grade sql.NullFloat64
	if sub.Grade != nil {
		grade = sql.NullFloat64{Float64: *sub.Grade, Valid: true}
	}
	_, err = s.q.ExecContext(ctx, `UPDATE submissions SET content=$1, attachment=$2, status=$3, grade=$4,
		feedback=$5, submitted_at=$6, graded_at=$7, updated_at=$8 WHERE id=$9`,
		sub.Content, attachment, sub.Status, grade, sub.Feedback, db.NullUnix(sub.SubmittedAt),
		db.NullUnix(sub.GradedAt), db.Unix(sub.UpdatedAt), sub.ID)
	return err
}

// ListSubmissions pages through an assignment's submissions with their users.
func (s *SQLStore) ListSubmissions(ctx context.Context, assignmentID string, p db.Page) ([]Submission, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions WHERE assignment_id=$1`, assignmentID).
		Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+submissionCols+`, u.username, u.avatar
		FROM submissions s JOIN users u ON u.id = s.user_id
		WHERE s.assignment_id=$1 ORDER BY s.created_at, s.id LIMIT $2 OFFSET $3`, assignmentID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var u Submitter
		sub, err := scanSubmission(rows, &u.Username, &u.Avatar)
		if err != nil {
			return nil, 0, err
		}
		sub.User = &u
		out = append(out, sub)
	}
	return out, total, rows.Err()
}
