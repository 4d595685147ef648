package quiz

import (
	"context"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/rbac"
)

func checkQuiz(timeLimit *int, passingScore, maxAttempts int) error {
	if timeLimit != nil && *timeLimit < 1 {
		return apperr.BadRequest("time limit must be at least 1 minute")
	}
	if passingScore < 0 || passingScore > 100 {
		return apperr.BadRequest("passing score must be between 0 and 100")
	}
	if maxAttempts < 1 {
		return apperr.BadRequest("max attempts must be greater than 0")
	}
	return nil
}

// ownedContent checks the content exists and the caller manages its course.
func ownedContent(ctx context.Context, st *SQLStore, id rbac.Identity, contentID string) error {
	o, err := st.OwnerOfContent(ctx, contentID)
	if err != nil {
		return err
	}
	if !manages(id, o) {
		return apperr.Forbidden("you are not the instructor of this course")
	}
	return nil
}

// quizOfContent loads quizID and checks it belongs to contentID.
func quizOfContent(ctx context.Context, st *SQLStore, contentID, quizID string) (Quiz, error) {
	if _, err := st.OwnerOfContent(ctx, contentID); err != nil {
		return Quiz{}, err
	}
	qz, err := st.QuizByID(ctx, quizID)
	if err != nil {
		return Quiz{}, err
	}
	if qz.ContentID != contentID {
		return Quiz{}, apperr.BadRequest("this quiz does not belong to this content")
	}
	return qz, nil
}

func (s *Service) CreateQuiz(ctx context.Context, id rbac.Identity, contentID string, in NewQuiz) (Quiz, error) {
	if err := checkQuiz(in.TimeLimit, in.PassingScore, in.MaxAttempts); err != nil {
		return Quiz{}, err
	}
	if err := ownedContent(ctx, s.store, id, contentID); err != nil {
		return Quiz{}, apperr.Wrap(err, "failed to create quiz")
	}
	now := s.now()
	qz := Quiz{
		ContentID:    contentID,
		TimeLimit:    in.TimeLimit,
		PassingScore: in.PassingScore,
		MaxAttempts:  in.MaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateQuiz(ctx, &qz); err != nil {
		return Quiz{}, apperr.Wrap(err, "failed to create quiz")
	}
	return qz, nil
}

func (s *Service) UpdateQuiz(ctx context.Context, id rbac.Identity, contentID, quizID string, in QuizInput) (Quiz, error) {
	var qz Quiz
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if err := ownedContent(ctx, st, id, contentID); err != nil {
			return err
		}
		var err error
		if qz, err = quizOfContent(ctx, st, contentID, quizID); err != nil {
			return err
		}
		if in.TimeLimit != nil {
			qz.TimeLimit = in.TimeLimit
		}
		if in.PassingScore != nil {
			qz.PassingScore = *in.PassingScore
		}
		if in.MaxAttempts != nil {
			qz.MaxAttempts = *in.MaxAttempts
		}
		if err := checkQuiz(qz.TimeLimit, qz.PassingScore, qz.MaxAttempts); err != nil {
			return err
		}
		qz.UpdatedAt = s.now()
		return st.UpdateQuiz(ctx, qz)
	})
	return qz, apperr.Wrap(err, "failed to update quiz")
}

// DeleteQuiz removes a quiz with its questions, attempts and answers.
func (s *Service) DeleteQuiz(ctx context.Context, id rbac.Identity, contentID, quizID string) error {
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if err := ownedContent(ctx, st, id, contentID); err != nil {
			return err
		}
		if _, err := quizOfContent(ctx, st, contentID, quizID); err != nil {
			return err
		}
		return st.DeleteQuiz(ctx, quizID)
	})
	return apperr.Wrap(err, "failed to delete quiz")
}

func (s *Service) ListQuizzes(ctx context.Context, contentID string, page db.Page) (db.Paged[Quiz], error) {
	if _, err := s.store.OwnerOfContent(ctx, contentID); err != nil {
		return db.Paged[Quiz]{}, apperr.Wrap(err, "failed to list quizzes")
	}
	items, total, err := s.store.ListQuizzes(ctx, contentID, page)
	if err != nil {
		return db.Paged[Quiz]{}, apperr.Wrap(err, "failed to list quizzes")
	}
	return db.NewPaged(items, page, total), nil
}

func (s *Service) GetQuiz(ctx context.Context, contentID, quizID string) (Quiz, error) {
	qz, err := quizOfContent(ctx, s.store, contentID, quizID)
	return qz, apperr.Wrap(err, "failed to get quiz")
}
