// Package quiz runs quizzes: their ordered questions, the attempt lifecycle
// and answer grading.
//
// Attempts move IN_PROGRESS -> COMPLETED when the student finishes, or
// IN_PROGRESS -> EXPIRED once their deadline has passed. Expiry is applied
// lazily by whichever operation next reads the attempt; nothing runs in the
// background.
package quiz

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/grading"
	"github.com/mind-engage/courseware/internal/rbac"
)

// Observer is told about attempt transitions and graded answers.
type Observer interface {
	AttemptTransition(status string)
	AnswerGraded(questionType string, correct *bool)
}

type nopObserver struct{}

func (nopObserver) AttemptTransition(string)   {}
func (nopObserver) AnswerGraded(string, *bool) {}

type Service struct {
	store  *SQLStore
	grader grading.Grader
	obs    Observer
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewService wires the quiz service. obs may be nil.
func NewService(store *SQLStore, log logrus.FieldLogger, obs Observer) *Service {
	if obs == nil {
		obs = nopObserver{}
	}
	return &Service{store: store, grader: grading.NewDefaultGrader(), obs: obs, log: log, now: time.Now}
}

func manages(id rbac.Identity, o Owner) bool {
	return id.IsAdmin() || o.InstructorID == id.UserID
}

// ownedQuiz loads a quiz whose course the caller manages.
func ownedQuiz(ctx context.Context, st *SQLStore, id rbac.Identity, quizID string) (Quiz, Owner, error) {
	qz, o, err := st.OwnerOfQuiz(ctx, quizID)
	if err != nil {
		return Quiz{}, Owner{}, err
	}
	if !manages(id, o) {
		return Quiz{}, Owner{}, apperr.Forbidden("you are not the instructor of this course")
	}
	return qz, o, nil
}

// enrolledQuiz loads a quiz the caller is actively enrolled for.
func enrolledQuiz(ctx context.Context, st *SQLStore, id rbac.Identity, quizID string) (Quiz, error) {
	qz, o, err := st.OwnerOfQuiz(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	ok, err := st.ActiveEnrollment(ctx, id.UserID, o.CourseID)
	if err != nil {
		return Quiz{}, err
	}
	if !ok {
		return Quiz{}, apperr.Forbidden("you are not enrolled in this course")
	}
	return qz, nil
}
