package quiz

import (
	"context"
	"math"
	"time"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/rbac"
)

// expireStale promotes every attempt in list whose deadline has passed and
// updates the slice in place. It returns how many were promoted.
func (s *Service) expireStale(ctx context.Context, st *SQLStore, list []Attempt, now time.Time) (int, error) {
	n := 0
	for i := range list {
		if !list[i].expired(now) {
			continue
		}
		if err := st.SetAttemptStatus(ctx, list[i].ID, StatusExpired); err != nil {
			return n, err
		}
		list[i].Status = StatusExpired
		n++
		s.log.WithField("attempt_id", list[i].ID).WithField("quiz_id", list[i].QuizID).Info("attempt expired")
	}
	return n, nil
}

func (s *Service) observeExpired(n int) {
	for i := 0; i < n; i++ {
		s.obs.AttemptTransition(StatusExpired)
	}
}

// Start opens a new attempt for the caller. Stale attempts are expired first;
// a live IN_PROGRESS attempt blocks a new one.
func (s *Service) Start(ctx context.Context, id rbac.Identity, quizID string) (Attempt, error) {
	var a Attempt
	var expired int
	var refused error
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		qz, err := enrolledQuiz(ctx, st, id, quizID)
		if err != nil {
			return err
		}
		now := s.now()
		list, err := st.Attempts(ctx, quizID, id.UserID)
		if err != nil {
			return err
		}
		if expired, err = s.expireStale(ctx, st, list, now); err != nil {
			return err
		}
		// Refusals still commit the expiries found above.
		for _, prev := range list {
			if prev.Status == StatusInProgress {
				refused = apperr.Conflict("an attempt at this quiz is already in progress")
				return nil
			}
		}
		if len(list) >= qz.MaxAttempts {
			refused = apperr.BadRequest("maximum attempts reached")
			return nil
		}
		a = Attempt{QuizID: quizID, UserID: id.UserID, Status: StatusInProgress, StartedAt: now}
		if qz.TimeLimit != nil {
			exp := now.Add(time.Duration(*qz.TimeLimit) * time.Minute)
			a.ExpiresAt = &exp
		}
		return st.CreateAttempt(ctx, &a)
	})
	if err != nil {
		return Attempt{}, apperr.Wrap(err, "failed to start quiz attempt")
	}
	s.observeExpired(expired)
	if refused != nil {
		return Attempt{}, refused
	}
	s.obs.AttemptTransition(StatusInProgress)
	s.log.WithField("attempt_id", a.ID).WithField("quiz_id", quizID).WithField("user_id", id.UserID).
		Info("attempt started")
	return a, nil
}

// score computes the percentage of the quiz's points the attempt earned.
func score(ctx context.Context, st *SQLStore, a Attempt) (float64, error) {
	total, err := st.TotalPoints(ctx, a.QuizID)
	if err != nil || total == 0 {
		return 0, err
	}
	earned, err := st.EarnedPoints(ctx, a.ID)
	if err != nil {
		return 0, err
	}
	return math.Round(earned/total*10000) / 100, nil
}

func applyScore(a *Attempt, pct float64, passingScore int) {
	passed := pct >= float64(passingScore)
	a.Score, a.Passed = &pct, &passed
}

// Complete finishes the caller's IN_PROGRESS attempt and records its score.
// An attempt found past its deadline is marked EXPIRED instead and the call
// fails.
func (s *Service) Complete(ctx context.Context, id rbac.Identity, quizID string) (Attempt, error) {
	var a Attempt
	var expired bool
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		qz, err := enrolledQuiz(ctx, st, id, quizID)
		if err != nil {
			return err
		}
		list, err := st.Attempts(ctx, quizID, id.UserID)
		if err != nil {
			return err
		}
		found := false
		for i := len(list) - 1; i >= 0; i-- {
			if list[i].Status == StatusInProgress {
				a, found = list[i], true
				break
			}
		}
		if !found {
			return apperr.NotFound("no attempt in progress")
		}
		now := s.now()
		if a.expired(now) {
			expired = true
			a.Status = StatusExpired
			return st.SetAttemptStatus(ctx, a.ID, StatusExpired)
		}
		pct, err := score(ctx, st, a)
		if err != nil {
			return err
		}
		a.Status, a.CompletedAt = StatusCompleted, &now
		applyScore(&a, pct, qz.PassingScore)
		return st.SaveResult(ctx, a)
	})
	if err != nil {
		return Attempt{}, apperr.Wrap(err, "failed to complete quiz attempt")
	}
	if expired {
		s.obs.AttemptTransition(StatusExpired)
		return Attempt{}, apperr.BadRequest("quiz has expired")
	}
	s.obs.AttemptTransition(StatusCompleted)
	s.log.WithField("attempt_id", a.ID).WithField("score", *a.Score).WithField("passed", *a.Passed).
		Info("attempt completed")
	return a, nil
}

// listAttempts reads attempts and promotes the expired ones before returning.
func (s *Service) listAttempts(ctx context.Context, quizID, userID string) ([]Attempt, int, error) {
	var list []Attempt
	var n int
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		var err error
		if list, err = st.Attempts(ctx, quizID, userID); err != nil {
			return err
		}
		n, err = s.expireStale(ctx, st, list, s.now())
		return err
	})
	return list, n, err
}

// Mine lists the caller's attempts at a quiz.
func (s *Service) Mine(ctx context.Context, id rbac.Identity, quizID string) ([]Attempt, error) {
	if _, err := enrolledQuiz(ctx, s.store, id, quizID); err != nil {
		return nil, apperr.Wrap(err, "failed to get quiz attempts")
	}
	list, n, err := s.listAttempts(ctx, quizID, id.UserID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to get quiz attempts")
	}
	s.observeExpired(n)
	return list, nil
}

// ForUser lists one user's attempts for the quiz's instructor.
func (s *Service) ForUser(ctx context.Context, id rbac.Identity, quizID, userID string) ([]Attempt, error) {
	if _, _, err := ownedQuiz(ctx, s.store, id, quizID); err != nil {
		return nil, apperr.Wrap(err, "failed to get quiz attempts")
	}
	if err := s.store.UserExists(ctx, userID); err != nil {
		return nil, apperr.Wrap(err, "failed to get quiz attempts")
	}
	list, n, err := s.listAttempts(ctx, quizID, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "failed to get quiz attempts")
	}
	s.observeExpired(n)
	return list, nil
}

// All lists every attempt at the quiz for its instructor.
func (s *Service) All(ctx context.Context, id rbac.Identity, quizID string) ([]Attempt, error) {
	if _, _, err := ownedQuiz(ctx, s.store, id, quizID); err != nil {
		return nil, apperr.Wrap(err, "failed to get quiz attempts")
	}
	list, n, err := s.listAttempts(ctx, quizID, "")
	if err != nil {
		return nil, apperr.Wrap(err, "failed to get quiz attempts")
	}
	s.observeExpired(n)
	return list, nil
}
