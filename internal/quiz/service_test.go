package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/db/dbtest"
	"github.com/mind-engage/courseware/internal/grading"
	"github.com/mind-engage/courseware/internal/logging"
	"github.com/mind-engage/courseware/internal/rbac"
)

var (
	admin    = rbac.Identity{UserID: "admin", Role: rbac.RoleAdmin}
	teacher  = rbac.Identity{UserID: "teacher", Role: rbac.RoleInstructor}
	other    = rbac.Identity{UserID: "other", Role: rbac.RoleInstructor}
	student  = rbac.Identity{UserID: "student", Role: rbac.RoleStudent}
	outsider = rbac.Identity{UserID: "outsider", Role: rbac.RoleStudent}
)

type recorder struct {
	transitions map[string]int
	graded      map[string]int
}

func (r *recorder) AttemptTransition(status string) { r.transitions[status]++ }

func (r *recorder) AnswerGraded(typ string, correct *bool) {
	verdict := "manual"
	if correct != nil && *correct {
		verdict = "true"
	} else if correct != nil {
		verdict = "false"
	}
	r.graded[typ+":"+verdict]++
}

type fixture struct {
	svc   *Service
	db    *sql.DB
	obs   *recorder
	clock time.Time
}

func (f *fixture) advance(d time.Duration) { f.clock = f.clock.Add(d) }

func setup(t *testing.T) *fixture {
	t.Helper()
	d := dbtest.Open(t)
	for _, id := range []rbac.Identity{admin, teacher, other, student, outsider} {
		dbtest.User(t, d, id.UserID, id.Role)
	}
	dbtest.Course(t, d, "c1", teacher.UserID)
	dbtest.Module(t, d, "m1", "c1", 1)
	dbtest.Content(t, d, "ct1", "m1", teacher.UserID, 1)
	dbtest.Content(t, d, "ct2", "m1", teacher.UserID, 2)
	dbtest.Enroll(t, d, student.UserID, "c1", "ACTIVE")
	dbtest.Enroll(t, d, outsider.UserID, "c1", "PENDING")

	f := &fixture{db: d, obs: &recorder{transitions: map[string]int{}, graded: map[string]int{}},
		clock: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(NewSQLStore(d), logging.Discard(), f.obs)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func intp(n int) *int           { return &n }
func strp(s string) *string     { return &s }
func floatp(f float64) *float64 { return &f }

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func (f *fixture) quiz(t *testing.T, limit *int, passing, max int) Quiz {
	t.Helper()
	qz, err := f.svc.CreateQuiz(context.Background(), teacher, "ct1",
		NewQuiz{TimeLimit: limit, PassingScore: passing, MaxAttempts: max})
	require.NoError(t, err)
	return qz
}

func (f *fixture) question(t *testing.T, quizID, typ string, points float64, opts []Option, answer string) Question {
	t.Helper()
	in := QuestionInput{Text: strp("q " + typ), Type: strp(typ), Points: floatp(points), Options: opts}
	if answer != "" {
		in.CorrectAnswer = decode(t, answer)
	}
	q, err := f.svc.CreateQuestion(context.Background(), teacher, quizID, in)
	require.NoError(t, err)
	return q
}

var abc = []Option{{Text: "a"}, {Text: "b"}, {Text: "c"}}

// ---- quizzes ----

func TestCreateQuizValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, in := range []NewQuiz{
		{PassingScore: 101, MaxAttempts: 1},
		{PassingScore: -1, MaxAttempts: 1},
		{PassingScore: 50, MaxAttempts: 0},
		{TimeLimit: intp(0), PassingScore: 50, MaxAttempts: 1},
	} {
		_, err := f.svc.CreateQuiz(ctx, teacher, "ct1", in)
		assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err), "%+v", in)
	}

	_, err := f.svc.CreateQuiz(ctx, other, "ct1", NewQuiz{PassingScore: 50, MaxAttempts: 1})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.CreateQuiz(ctx, teacher, "missing", NewQuiz{PassingScore: 50, MaxAttempts: 1})
	assert.True(t, apperr.IsNotFound(err))

	qz, err := f.svc.CreateQuiz(ctx, admin, "ct1", NewQuiz{TimeLimit: intp(30), PassingScore: 60, MaxAttempts: 3})
	require.NoError(t, err)
	got, err := f.svc.GetQuiz(ctx, "ct1", qz.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, *got.TimeLimit)
	assert.Equal(t, 60, got.PassingScore)
}

func TestQuizMustBelongToContent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 1)

	_, err := f.svc.GetQuiz(ctx, "ct2", qz.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = f.svc.UpdateQuiz(ctx, teacher, "ct2", qz.ID, QuizInput{MaxAttempts: intp(2)})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	up, err := f.svc.UpdateQuiz(ctx, teacher, "ct1", qz.ID, QuizInput{MaxAttempts: intp(2), TimeLimit: intp(15)})
	require.NoError(t, err)
	assert.Equal(t, 2, up.MaxAttempts)
	assert.Equal(t, 50, up.PassingScore)

	_, err = f.svc.UpdateQuiz(ctx, teacher, "ct1", qz.ID, QuizInput{PassingScore: intp(200)})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	page, err := f.svc.ListQuizzes(ctx, "ct1", db.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalItems)
}

func TestDeleteQuizCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 1)
	q := f.question(t, qz.ID, grading.ShortAnswer, 1, nil, `"x"`)
	a, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, student, a.ID, q.ID, "x")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteQuiz(ctx, teacher, "ct1", qz.ID))
	for _, table := range []string{"questions", "quiz_attempts", "answers"} {
		var n int
		require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

// ---- questions ----

func TestQuestionValidation(t *testing.T) {
	f := setup(t)
	qz := f.quiz(t, nil, 50, 1)
	cases := []struct {
		name   string
		typ    string
		opts   []Option
		answer string
	}{
		{"choice needs two options", grading.SingleChoice, []Option{{Text: "only"}}, `"1"`},
		{"single answer not an option", grading.SingleChoice, abc, `"9"`},
		{"multiple answer empty", grading.MultipleChoice, abc, `[]`},
		{"multiple answer not a list", grading.MultipleChoice, abc, `"1"`},
		{"multiple answer unknown id", grading.MultipleChoice, abc, `["1","7"]`},
		{"true false bad answer", grading.TrueFalse, nil, `"yes"`},
		{"short answer with options", grading.ShortAnswer, abc, `"x"`},
		{"short answer empty", grading.ShortAnswer, nil, `"  "`},
		{"essay with options", grading.Essay, abc, ``},
		{"unknown type", "MATCHING", nil, `"x"`},
	}
	for _, tc := range cases {
		in := QuestionInput{Text: strp("t"), Type: strp(tc.typ), Options: tc.opts}
		if tc.answer != "" {
			in.CorrectAnswer = decode(t, tc.answer)
		}
		_, err := f.svc.CreateQuestion(context.Background(), teacher, qz.ID, in)
		assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err), tc.name)
	}

	_, err := f.svc.CreateQuestion(context.Background(), other, qz.ID,
		QuestionInput{Text: strp("t"), Type: strp(grading.Essay)})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestQuestionNormalization(t *testing.T) {
	f := setup(t)
	qz := f.quiz(t, nil, 50, 1)

	mc := f.question(t, qz.ID, grading.MultipleChoice, 2, abc, `[3, "1"]`)
	assert.Equal(t, []Option{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}, {ID: "3", Text: "c"}}, mc.Options)
	assert.Equal(t, `["3","1"]`, mc.CorrectAnswer)

	sc := f.question(t, qz.ID, grading.SingleChoice, 1,
		[]Option{{ID: "x", Text: "a"}, {ID: "y", Text: "b"}}, `"y"`)
	assert.Equal(t, "y", sc.CorrectAnswer)

	tf := f.question(t, qz.ID, grading.TrueFalse, 1, abc, `false`)
	assert.Equal(t, trueFalseOptions, tf.Options)
	assert.Equal(t, "false", tf.CorrectAnswer)

	essay := f.question(t, qz.ID, grading.Essay, 5, nil, ``)
	assert.Nil(t, essay.Options)
	assert.Equal(t, 4, essay.Order)
}

func TestQuestionOrdering(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 1)
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, f.question(t, qz.ID, grading.ShortAnswer, 1, nil, `"a"`).ID)
	}
	order := func() []string {
		page, err := f.svc.ListQuestions(ctx, teacher, qz.ID, db.NewPage(1, 10))
		require.NoError(t, err)
		var out []string
		for i, q := range page.Items {
			require.Equal(t, i+1, q.Order)
			out = append(out, q.ID)
		}
		return out
	}

	_, err := f.svc.UpdateQuestion(ctx, teacher, qz.ID, ids[3], QuestionInput{Order: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[3], ids[0], ids[1], ids[2]}, order())

	_, err = f.svc.UpdateQuestion(ctx, teacher, qz.ID, ids[3], QuestionInput{Order: intp(4)})
	require.NoError(t, err)
	assert.Equal(t, ids, order())

	_, err = f.svc.UpdateQuestion(ctx, teacher, qz.ID, ids[0], QuestionInput{Order: intp(5)})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	require.NoError(t, f.svc.DeleteQuestion(ctx, teacher, qz.ID, ids[1]))
	assert.Equal(t, []string{ids[0], ids[2], ids[3]}, order())
}

func TestUpdateQuestionRevalidates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 1)
	q := f.question(t, qz.ID, grading.MultipleChoice, 2, abc, `["1"]`)

	_, err := f.svc.UpdateQuestion(ctx, teacher, qz.ID, q.ID, QuestionInput{CorrectAnswer: decode(t, `["4"]`)})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	up, err := f.svc.UpdateQuestion(ctx, teacher, qz.ID, q.ID, QuestionInput{CorrectAnswer: decode(t, `["2","3"]`)})
	require.NoError(t, err)
	assert.Equal(t, `["2","3"]`, up.CorrectAnswer)
	assert.Len(t, up.Options, 3)

	up, err = f.svc.UpdateQuestion(ctx, teacher, qz.ID, q.ID,
		QuestionInput{Type: strp(grading.ShortAnswer), CorrectAnswer: "Paris"})
	require.NoError(t, err)
	assert.Nil(t, up.Options)
	assert.Equal(t, "Paris", up.CorrectAnswer)

	up, err = f.svc.UpdateQuestion(ctx, teacher, qz.ID, q.ID, QuestionInput{Points: floatp(3)})
	require.NoError(t, err)
	assert.Equal(t, 3.0, up.Points)
}

func TestStudentReadsHideCorrectAnswer(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 1)
	q := f.question(t, qz.ID, grading.SingleChoice, 1, abc, `"2"`)

	got, err := f.svc.GetQuestion(ctx, student, qz.ID, q.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CorrectAnswer)
	b, err := json.Marshal(got)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "correctAnswer")

	page, err := f.svc.ListQuestions(ctx, student, qz.ID, db.NewPage(1, 10))
	require.NoError(t, err)
	assert.Empty(t, page.Items[0].CorrectAnswer)

	got, err = f.svc.GetQuestion(ctx, teacher, qz.ID, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "2", got.CorrectAnswer)
}

// ---- attempts ----

func TestStartRequiresActiveEnrollment(t *testing.T) {
	f := setup(t)
	qz := f.quiz(t, nil, 50, 1)
	_, err := f.svc.Start(context.Background(), outsider, qz.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.Start(context.Background(), student, "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestMaxAttemptsBoundary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 2)

	for i := 0; i < 2; i++ {
		a, err := f.svc.Start(ctx, student, qz.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, a.Status)
		assert.Nil(t, a.ExpiresAt)
		_, err = f.svc.Complete(ctx, student, qz.ID)
		require.NoError(t, err)
		f.advance(time.Minute)
	}
	_, err := f.svc.Start(ctx, student, qz.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	list, err := f.svc.Mine(ctx, student, qz.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 2, f.obs.transitions[StatusCompleted])
}

func TestStartRefusesWhileInProgress(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, intp(10), 50, 3)

	_, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, student, qz.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Once the first one has run out, a new attempt may start.
	f.advance(11 * time.Minute)
	a, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)
	require.NotNil(t, a.ExpiresAt)
	assert.Equal(t, f.clock.Add(10*time.Minute), *a.ExpiresAt)

	list, err := f.svc.Mine(ctx, student, qz.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, StatusExpired, list[0].Status)
	assert.Equal(t, StatusInProgress, list[1].Status)
}

func TestExpiredAttemptCannotComplete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, intp(10), 50, 2)

	_, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)
	f.advance(10*time.Minute + time.Second)

	_, err = f.svc.Complete(ctx, student, qz.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	list, err := f.svc.Mine(ctx, student, qz.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, StatusExpired, list[0].Status)
	assert.Nil(t, list[0].CompletedAt)
	assert.Equal(t, 1, f.obs.transitions[StatusExpired])

	_, err = f.svc.Complete(ctx, student, qz.ID)
	assert.True(t, apperr.IsNotFound(err), "expired attempts stay expired")
}

func TestReadsPromoteExpiredAttempts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, intp(5), 50, 1)
	_, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)

	list, err := f.svc.All(ctx, teacher, qz.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, list[0].Status)
	assert.Equal(t, "student", list[0].User.Username)

	f.advance(6 * time.Minute)
	list, err = f.svc.ForUser(ctx, teacher, qz.ID, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, list[0].Status)

	var status string
	require.NoError(t, f.db.QueryRow(`SELECT status FROM quiz_attempts`).Scan(&status))
	assert.Equal(t, StatusExpired, status)

	_, err = f.svc.All(ctx, other, qz.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.ForUser(ctx, teacher, qz.ID, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

// ---- answers ----

func TestSubmitGradeAndScore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 1)
	mc := f.question(t, qz.ID, grading.MultipleChoice, 2, abc, `["1","3"]`)
	sa := f.question(t, qz.ID, grading.ShortAnswer, 1, nil, `"Paris"`)
	essay := f.question(t, qz.ID, grading.Essay, 5, nil, ``)

	a, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)

	first, err := f.svc.Submit(ctx, student, a.ID, mc.ID, `["3","1"]`)
	require.NoError(t, err)
	assert.True(t, *first.IsCorrect)
	assert.Equal(t, 2.0, *first.Points)

	again, err := f.svc.Submit(ctx, student, a.ID, mc.ID, `["1"]`)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "upsert keeps one answer per question")
	assert.False(t, *again.IsCorrect)
	assert.Equal(t, 0.0, *again.Points)

	got, err := f.svc.Submit(ctx, student, a.ID, sa.ID, "  paris ")
	require.NoError(t, err)
	assert.True(t, *got.IsCorrect)

	ess, err := f.svc.Submit(ctx, student, a.ID, essay.ID, "long text")
	require.NoError(t, err)
	assert.Nil(t, ess.IsCorrect)
	assert.Nil(t, ess.Points)

	done, err := f.svc.Complete(ctx, student, qz.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 12.5, *done.Score)
	assert.False(t, *done.Passed)

	_, err = f.svc.GradeAnswer(ctx, teacher, ess.ID, 6)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = f.svc.GradeAnswer(ctx, teacher, got.ID, 1)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err), "only essays are graded by hand")
	_, err = f.svc.GradeAnswer(ctx, other, ess.ID, 1)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	graded, err := f.svc.GradeAnswer(ctx, teacher, ess.ID, 5)
	require.NoError(t, err)
	assert.True(t, *graded.IsCorrect)
	assert.Equal(t, teacher.UserID, graded.GradedBy)

	list, err := f.svc.ForUser(ctx, teacher, qz.ID, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, *list[0].Score)
	assert.True(t, *list[0].Passed)

	answers, err := f.svc.StudentAnswers(ctx, teacher, qz.ID, student.UserID)
	require.NoError(t, err)
	require.Len(t, answers, 3)
	assert.Equal(t, grading.MultipleChoice, answers[0].QuestionType)

	assert.Equal(t, 1, f.obs.graded[grading.MultipleChoice+":true"])
	assert.Equal(t, 1, f.obs.graded[grading.MultipleChoice+":false"])
	assert.Equal(t, 1, f.obs.graded[grading.Essay+":manual"])
	assert.Equal(t, 1, f.obs.graded[grading.Essay+":true"])
}

func TestSubmitGradesByQuestionType(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, nil, 50, 1)
	sa := f.question(t, qz.ID, grading.ShortAnswer, 1, nil, `"[1,2]"`)
	mc := f.question(t, qz.ID, grading.MultipleChoice, 2, abc, `["1","3"]`)

	a, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)

	got, err := f.svc.Submit(ctx, student, a.ID, sa.ID, "1")
	require.NoError(t, err)
	assert.False(t, *got.IsCorrect, "a bracketed key is plain text")
	got, err = f.svc.Submit(ctx, student, a.ID, sa.ID, " [1,2] ")
	require.NoError(t, err)
	assert.True(t, *got.IsCorrect)
	assert.Equal(t, " [1,2] ", got.AnswerText)

	got, err = f.svc.Submit(ctx, student, a.ID, mc.ID, `[true,"1","3",null,{"x":2}]`)
	require.NoError(t, err)
	assert.False(t, *got.IsCorrect, "non-id elements void the selection")
	assert.Equal(t, 0.0, *got.Points)
}

func TestGradeAnswerExpiresStaleAttempt(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, intp(10), 50, 1)
	essay := f.question(t, qz.ID, grading.Essay, 5, nil, ``)

	a, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)
	ans, err := f.svc.Submit(ctx, student, a.ID, essay.ID, "draft")
	require.NoError(t, err)

	f.advance(11 * time.Minute)
	graded, err := f.svc.GradeAnswer(ctx, teacher, ans.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, *graded.Points)

	var status string
	var score sql.NullFloat64
	require.NoError(t, f.db.QueryRow(`SELECT status, score FROM quiz_attempts WHERE id=$1`, a.ID).Scan(&status, &score))
	assert.Equal(t, StatusExpired, status)
	assert.False(t, score.Valid, "expired attempts are not scored")
	assert.Equal(t, 1, f.obs.transitions[StatusExpired])
}

func TestSubmitRejections(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	qz := f.quiz(t, intp(10), 50, 2)
	q := f.question(t, qz.ID, grading.TrueFalse, 1, nil, `"true"`)
	otherQuiz := f.quiz(t, nil, 50, 1)
	foreign := f.question(t, otherQuiz.ID, grading.TrueFalse, 1, nil, `"true"`)

	a, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, outsider, a.ID, q.ID, "true")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.Submit(ctx, student, a.ID, foreign.ID, "true")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = f.svc.Submit(ctx, student, a.ID, "nope", "true")
	assert.True(t, apperr.IsNotFound(err))
	_, err = f.svc.Submit(ctx, student, "nope", q.ID, "true")
	assert.True(t, apperr.IsNotFound(err))

	f.advance(11 * time.Minute)
	_, err = f.svc.Submit(ctx, student, a.ID, q.ID, "true")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	var status string
	require.NoError(t, f.db.QueryRow(`SELECT status FROM quiz_attempts WHERE id=$1`, a.ID).Scan(&status))
	assert.Equal(t, StatusExpired, status)

	b, err := f.svc.Start(ctx, student, qz.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, student, qz.ID)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, student, b.ID, q.ID, "true")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err), "completed attempts take no answers")
}

func TestOptionIDAcceptsNumbers(t *testing.T) {
	var opts []Option
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"text":"a"},{"id":"b","text":"b"},{"text":"c"}]`), &opts))
	assert.Equal(t, OptionID("1"), opts[0].ID)
	assert.Equal(t, OptionID("b"), opts[1].ID)
	assert.Equal(t, OptionID(""), opts[2].ID)
}

func TestStoreFailureIsInternal(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectQuery(`SELECT c.id, c.instructor_id`).
		WithArgs("ct1").
		WillReturnError(errors.New("connection refused"))

	svc := NewService(NewSQLStore(mockDB), logging.Discard(), nil)
	_, err = svc.ListQuizzes(context.Background(), "ct1", db.NewPage(1, 10))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.Equal(t, "failed to list quizzes", apperr.Message(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
