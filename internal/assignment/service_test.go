package assignment

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/db/dbtest"
	"github.com/mind-engage/courseware/internal/logging"
	"github.com/mind-engage/courseware/internal/rbac"
)

var (
	admin    = rbac.Identity{UserID: "admin", Role: rbac.RoleAdmin}
	teacher  = rbac.Identity{UserID: "teacher", Role: rbac.RoleInstructor}
	other    = rbac.Identity{UserID: "other", Role: rbac.RoleInstructor}
	student  = rbac.Identity{UserID: "student", Role: rbac.RoleStudent}
	student2 = rbac.Identity{UserID: "student2", Role: rbac.RoleStudent}
	outsider = rbac.Identity{UserID: "outsider", Role: rbac.RoleStudent}
)

type fixture struct {
	svc   *Service
	db    *sql.DB
	clock time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	d := dbtest.Open(t)
	for _, id := range []rbac.Identity{admin, teacher, other, student, student2, outsider} {
		dbtest.User(t, d, id.UserID, id.Role)
	}
	dbtest.Course(t, d, "c1", teacher.UserID)
	dbtest.Enroll(t, d, student.UserID, "c1", "ACTIVE")
	dbtest.Enroll(t, d, student2.UserID, "c1", "ACTIVE")
	dbtest.Enroll(t, d, outsider.UserID, "c1", "DROPPED")

	f := &fixture{db: d, clock: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	f.svc = NewService(NewSQLStore(d), logging.Discard())
	f.svc.now = func() time.Time { return f.clock }
	return f
}

// published creates an assignment due in a week and publishes it.
func (f *fixture) published(t *testing.T, title string) Assignment {
	t.Helper()
	ctx := context.Background()
	a, err := f.svc.CreateAssignment(ctx, teacher, "c1", NewAssignment{
		Title: title, DueDate: f.clock.Add(7 * 24 * time.Hour), PointsPossible: 20,
		Attachment: []string{"/media/assignments/brief.pdf"},
	})
	require.NoError(t, err)
	a, err = f.svc.PublishAssignment(ctx, admin, "c1", a.ID)
	require.NoError(t, err)
	return a
}

func TestCreateAssignmentValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	due := f.clock.Add(time.Hour)

	cases := []struct {
		name string
		id   rbac.Identity
		in   NewAssignment
		kind apperr.Kind
	}{
		{"no title", teacher, NewAssignment{DueDate: due}, apperr.KindBadRequest},
		{"past due", teacher, NewAssignment{Title: "t", DueDate: f.clock.Add(-time.Minute)}, apperr.KindBadRequest},
		{"negative points", teacher, NewAssignment{Title: "t", DueDate: due, PointsPossible: -1}, apperr.KindBadRequest},
		{"not owner", other, NewAssignment{Title: "t", DueDate: due}, apperr.KindForbidden},
		{"student", student, NewAssignment{Title: "t", DueDate: due}, apperr.KindForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAssignment(ctx, tc.id, "c1", tc.in)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
		})
	}

	_, err := f.svc.CreateAssignment(ctx, teacher, "missing", NewAssignment{Title: "t", DueDate: due})
	assert.True(t, apperr.IsNotFound(err))

	a, err := f.svc.CreateAssignment(ctx, admin, "c1", NewAssignment{Title: " Essay ", DueDate: due, PointsPossible: 10})
	require.NoError(t, err)
	assert.Equal(t, "Essay", a.Title)
	assert.Equal(t, admin.UserID, a.CreatorID)
	assert.False(t, a.IsPublished)
	assert.Equal(t, []string{}, a.Attachment)
}

func TestStudentsSeePublishedOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pub := f.published(t, "Published")
	draft, err := f.svc.CreateAssignment(ctx, teacher, "c1",
		NewAssignment{Title: "Draft", DueDate: f.clock.Add(48 * time.Hour)})
	require.NoError(t, err)

	list, err := f.svc.ListAssignments(ctx, teacher, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.ListAssignments(ctx, student, "c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pub.ID, list[0].ID)
	assert.Equal(t, []string{"/media/assignments/brief.pdf"}, list[0].Attachment)

	_, err = f.svc.GetAssignment(ctx, student, "c1", draft.ID)
	assert.True(t, apperr.IsNotFound(err))

	_, err = f.svc.ListAssignments(ctx, outsider, "c1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.GetAssignment(ctx, other, "c1", pub.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestPublishAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a, err := f.svc.CreateAssignment(ctx, teacher, "c1", NewAssignment{Title: "t", DueDate: f.clock.Add(time.Hour)})
	require.NoError(t, err)

	_, err = f.svc.PublishAssignment(ctx, teacher, "c1", a.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	a, err = f.svc.PublishAssignment(ctx, admin, "c1", a.ID)
	require.NoError(t, err)
	assert.True(t, a.IsPublished)

	_, err = f.svc.PublishAssignment(ctx, admin, "c1", a.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestUpdateAndDeleteAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.published(t, "Lab")

	title, points := "Lab 2", 50.0
	due := f.clock.Add(72 * time.Hour)
	got, err := f.svc.UpdateAssignment(ctx, teacher, "c1", a.ID,
		AssignmentInput{Title: &title, PointsPossible: &points, DueDate: &due, Attachment: []string{}})
	require.NoError(t, err)
	assert.Equal(t, "Lab 2", got.Title)
	assert.Equal(t, 50.0, got.PointsPossible)
	assert.Equal(t, due, got.DueDate)
	assert.Equal(t, []string{}, got.Attachment)

	_, err = f.svc.UpdateAssignment(ctx, other, "c1", a.ID, AssignmentInput{Title: &title})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Draft(ctx, student, "c1", a.ID, "work", nil)
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteAssignment(ctx, teacher, "c1", a.ID))

	var n int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM submissions`).Scan(&n))
	assert.Zero(t, n)
	_, err = f.svc.GetAssignment(ctx, teacher, "c1", a.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSubmissionLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.published(t, "Report")

	sub, err := f.svc.Draft(ctx, student, "c1", a.ID, "first try", []string{"/media/submissions/a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, sub.Status)
	assert.Nil(t, sub.SubmittedAt)

	again, err := f.svc.Draft(ctx, student, "c1", a.ID, "second try", nil)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)
	assert.Equal(t, "second try", again.Content)

	// grading a draft is refused
	_, err = f.svc.Grade(ctx, teacher, "c1", a.ID, sub.ID, 10, "")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = f.svc.Submit(ctx, student2, "c1", a.ID, sub.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	f.clock = f.clock.Add(time.Hour)
	sub, err = f.svc.Submit(ctx, student, "c1", a.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, sub.Status)
	require.NotNil(t, sub.SubmittedAt)
	assert.Equal(t, f.clock, *sub.SubmittedAt)

	_, err = f.svc.Draft(ctx, student, "c1", a.ID, "edit", nil)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = f.svc.Submit(ctx, student, "c1", a.ID, sub.ID)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	sub, err = f.svc.Return(ctx, teacher, "c1", a.ID, sub.ID, "needs sources")
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, sub.Status)
	assert.Equal(t, "needs sources", sub.Feedback)

	_, err = f.svc.Draft(ctx, student, "c1", a.ID, "with sources", nil)
	require.NoError(t, err)

	// past the due date the resubmission is late
	f.clock = a.DueDate.Add(time.Minute)
	sub, err = f.svc.Submit(ctx, student, "c1", a.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusLate, sub.Status)

	_, err = f.svc.Grade(ctx, teacher, "c1", a.ID, sub.ID, 21, "")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = f.svc.Grade(ctx, teacher, "c1", a.ID, sub.ID, -1, "")
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	_, err = f.svc.Grade(ctx, student, "c1", a.ID, sub.ID, 5, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	sub, err = f.svc.Grade(ctx, teacher, "c1", a.ID, sub.ID, 17.5, "good")
	require.NoError(t, err)
	assert.Equal(t, StatusGraded, sub.Status)
	require.NotNil(t, sub.Grade)
	assert.Equal(t, 17.5, *sub.Grade)
	require.NotNil(t, sub.GradedAt)

	mine, err := f.svc.MySubmission(ctx, student, "c1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusGraded, mine.Status)
	assert.Equal(t, "with sources", mine.Content)
}

func TestDraftRequiresActiveEnrollment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.published(t, "Report")

	_, err := f.svc.Draft(ctx, outsider, "c1", a.ID, "x", nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.Draft(ctx, teacher, "c1", a.ID, "x", nil)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = f.svc.Draft(ctx, student, "c1", "missing", "x", nil)
	assert.True(t, apperr.IsNotFound(err))
}

func TestSubmissionVisibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	a := f.published(t, "Report")
	s1, err := f.svc.Draft(ctx, student, "c1", a.ID, "one", nil)
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)
	_, err = f.svc.Draft(ctx, student2, "c1", a.ID, "two", nil)
	require.NoError(t, err)

	_, err = f.svc.GetSubmission(ctx, student, "c1", a.ID, s1.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetSubmission(ctx, teacher, "c1", a.ID, s1.ID)
	assert.NoError(t, err)
	_, err = f.svc.GetSubmission(ctx, student2, "c1", a.ID, s1.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	page, err := f.svc.ListSubmissions(ctx, teacher, "c1", a.ID, db.NewPage(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].User)
	assert.Equal(t, student.UserID, page.Items[0].User.Username)

	_, err = f.svc.ListSubmissions(ctx, student, "c1", a.ID, db.NewPage(1, 10))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
