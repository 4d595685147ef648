package quiz

import (
	"context"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/grading"
	"github.com/mind-engage/courseware/internal/rbac"
)

func gradingQ(q Question) grading.Q {
	return grading.Q{Type: q.Type, Points: q.Points, AnswerKey: grading.Key(q.Type, q.CorrectAnswer)}
}

// Submit grades and stores the caller's answer to a question of an open
// attempt, replacing an earlier answer to the same question.
func (s *Service) Submit(ctx context.Context, id rbac.Identity, attemptID, questionID, answerText string) (Answer, error) {
	var ans Answer
	var qType string
	var expired bool
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		a, err := st.AttemptByID(ctx, attemptID)
		if err != nil {
			return err
		}
		if a.UserID != id.UserID {
			return apperr.Forbidden("this attempt does not belong to you")
		}
		if a.Status != StatusInProgress {
			return apperr.BadRequest("quiz is not in progress")
		}
		now := s.now()
		if a.expired(now) {
			expired = true
			return st.SetAttemptStatus(ctx, a.ID, StatusExpired)
		}
		q, err := st.QuestionByID(ctx, a.QuizID, questionID)
		if apperr.IsNotFound(err) {
			if _, qerr := st.QuestionQuiz(ctx, questionID); qerr != nil {
				return qerr
			}
			return apperr.BadRequest("this question does not belong to the attempt's quiz")
		}
		if err != nil {
			return err
		}
		res, err := s.grader.Grade(ctx, gradingQ(q), grading.ParseAnswer(q.Type, answerText))
		if err != nil {
			return apperr.BadRequest("%s", err.Error())
		}
		qType = q.Type
		ans = Answer{
			AttemptID:  a.ID,
			QuestionID: q.ID,
			AnswerText: answerText,
			IsCorrect:  res.Correct,
			Points:     res.Points,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return st.UpsertAnswer(ctx, &ans)
	})
	if err != nil {
		return Answer{}, apperr.Wrap(err, "failed to submit answer")
	}
	if expired {
		s.obs.AttemptTransition(StatusExpired)
		return Answer{}, apperr.BadRequest("quiz has expired")
	}
	s.obs.AnswerGraded(qType, ans.IsCorrect)
	return ans, nil
}

// StudentAnswers lists a student's answers to a quiz for its instructor.
func (s *Service) StudentAnswers(ctx context.Context, id rbac.Identity, quizID, userID string) ([]StudentAnswer, error) {
	if _, _, err := ownedQuiz(ctx, s.store, id, quizID); err != nil {
		return nil, apperr.Wrap(err, "failed to get student answers")
	}
	if err := s.store.UserExists(ctx, userID); err != nil {
		return nil, apperr.Wrap(err, "failed to get student answers")
	}
	out, err := s.store.StudentAnswers(ctx, quizID, userID)
	return out, apperr.Wrap(err, "failed to get student answers")
}

// GradeAnswer awards points to an essay answer by hand. A completed attempt
// has its score recomputed; an attempt past its deadline is expired first.
func (s *Service) GradeAnswer(ctx context.Context, id rbac.Identity, answerID string, points float64) (Answer, error) {
	var ans Answer
	var expired int
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		var err error
		if ans, err = st.AnswerByID(ctx, answerID); err != nil {
			return err
		}
		a, err := st.AttemptByID(ctx, ans.AttemptID)
		if err != nil {
			return err
		}
		now := s.now()
		list := []Attempt{a}
		if expired, err = s.expireStale(ctx, st, list, now); err != nil {
			return err
		}
		a = list[0]
		qz, _, err := ownedQuiz(ctx, st, id, a.QuizID)
		if err != nil {
			return err
		}
		q, err := st.QuestionByID(ctx, a.QuizID, ans.QuestionID)
		if err != nil {
			return err
		}
		if q.Type != grading.Essay {
			return apperr.BadRequest("only ESSAY answers are graded manually")
		}
		res, err := grading.ManualResult(gradingQ(q), points)
		if err != nil {
			return apperr.BadRequest("%s", err.Error())
		}
		ans.IsCorrect, ans.Points, ans.GradedBy = res.Correct, res.Points, id.UserID
		ans.UpdatedAt = now
		if err := st.GradeAnswer(ctx, ans); err != nil {
			return err
		}
		if a.Status != StatusCompleted {
			return nil
		}
		pct, err := score(ctx, st, a)
		if err != nil {
			return err
		}
		applyScore(&a, pct, qz.PassingScore)
		return st.SaveResult(ctx, a)
	})
	if err != nil {
		return Answer{}, apperr.Wrap(err, "failed to grade answer")
	}
	s.observeExpired(expired)
	s.obs.AnswerGraded(grading.Essay, ans.IsCorrect)
	s.log.WithField("answer_id", answerID).WithField("points", points).Info("answer graded")
	return ans, nil
}
