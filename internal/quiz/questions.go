package quiz

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/mind-engage/courseware/internal/apperr"
	"github.com/mind-engage/courseware/internal/db"
	"github.com/mind-engage/courseware/internal/grading"
	"github.com/mind-engage/courseware/internal/ordering"
	"github.com/mind-engage/courseware/internal/rbac"
)

var trueFalseOptions = []Option{{ID: "1", Text: "true"}, {ID: "2", Text: "false"}}

func validType(t string) bool {
	for _, v := range grading.Types {
		if v == t {
			return true
		}
	}
	return false
}

// normalizeQuestion validates options and correct answer against the question
// type and returns them in stored form. Options without an id get their
// 1-based position.
func normalizeQuestion(typ string, options []Option, answer any) ([]Option, string, error) {
	switch typ {
	case grading.MultipleChoice, grading.SingleChoice:
		if len(options) < 2 {
			return nil, "", apperr.BadRequest("multiple/single choice question must have at least 2 options")
		}
		opts := make([]Option, len(options))
		ids := make(map[string]bool, len(options))
		for i, o := range options {
			if o.ID == "" {
				o.ID = OptionID(strconv.Itoa(i + 1))
			}
			opts[i] = o
			ids[string(o.ID)] = true
		}
		if typ == grading.SingleChoice {
			key, ok := scalar(answer)
			if !ok || !ids[key] {
				return nil, "", apperr.BadRequest("correct answer must match one of the option IDs")
			}
			return opts, key, nil
		}
		list, _ := answer.([]any)
		if len(list) == 0 {
			return nil, "", apperr.BadRequest("multiple choice question must have at least 1 correct answer")
		}
		keys := make([]string, 0, len(list))
		for _, v := range list {
			key, ok := scalar(v)
			if !ok || !ids[key] {
				return nil, "", apperr.BadRequest("some correct answers do not match any option ID")
			}
			keys = append(keys, key)
		}
		b, _ := json.Marshal(keys)
		return opts, string(b), nil

	case grading.TrueFalse:
		key, _ := scalar(answer)
		if key != "true" && key != "false" {
			return nil, "", apperr.BadRequest("correct answer for TRUE_FALSE must be true or false")
		}
		return trueFalseOptions, key, nil

	case grading.ShortAnswer, grading.Essay:
		if len(options) > 0 {
			return nil, "", apperr.BadRequest("%s questions should not have options", typ)
		}
		key, _ := answer.(string)
		if typ == grading.ShortAnswer && strings.TrimSpace(key) == "" {
			return nil, "", apperr.BadRequest("SHORT_ANSWER questions must have a correct answer string")
		}
		return nil, key, nil
	}
	return nil, "", apperr.BadRequest("invalid question type: %s", typ)
}

// storedAnswer turns a stored correct answer back into the shape
// normalizeQuestion accepts.
func storedAnswer(typ, raw string) any {
	if typ != grading.MultipleChoice {
		return raw
	}
	keys := grading.Key(typ, raw)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}
	return out
}

func (s *Service) CreateQuestion(ctx context.Context, id rbac.Identity, quizID string, in QuestionInput) (Question, error) {
	q := Question{QuizID: quizID, Points: 1}
	if in.Text != nil {
		q.Text = strings.TrimSpace(*in.Text)
	}
	if in.Type != nil {
		q.Type = *in.Type
	}
	if in.Points != nil {
		q.Points = *in.Points
	}
	if q.Text == "" {
		return Question{}, apperr.BadRequest("question text is required")
	}
	if q.Points <= 0 {
		return Question{}, apperr.BadRequest("points must be greater than 0")
	}
	var err error
	if q.Options, q.CorrectAnswer, err = normalizeQuestion(q.Type, in.Options, in.CorrectAnswer); err != nil {
		return Question{}, err
	}

	err = s.store.InTx(ctx, func(st *SQLStore) error {
		if _, _, err := ownedQuiz(ctx, st, id, quizID); err != nil {
			return err
		}
		next, err := ordering.Questions.Next(ctx, st.q, quizID)
		if err != nil {
			return err
		}
		now := s.now()
		q.Order, q.CreatedAt, q.UpdatedAt = next, now, now
		return st.CreateQuestion(ctx, &q)
	})
	if err != nil {
		return Question{}, apperr.Wrap(err, "failed to create question")
	}
	return q, nil
}

// UpdateQuestion changes fields, moves the question when Order is set, and
// revalidates options and answer whenever any of type, options or answer change.
func (s *Service) UpdateQuestion(ctx context.Context, id rbac.Identity, quizID, questionID string, in QuestionInput) (Question, error) {
	var q Question
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, _, err := ownedQuiz(ctx, st, id, quizID); err != nil {
			return err
		}
		var err error
		if q, err = st.QuestionByID(ctx, quizID, questionID); err != nil {
			return err
		}
		if in.Order != nil && *in.Order != q.Order {
			if err := ordering.Questions.Move(ctx, st.q, quizID, questionID, *in.Order); err != nil {
				return err
			}
			s.log.WithField("question_id", questionID).WithField("from", q.Order).WithField("to", *in.Order).
				Debug("question moved")
			q.Order = *in.Order
		}
		if in.Text != nil {
			if q.Text = strings.TrimSpace(*in.Text); q.Text == "" {
				return apperr.BadRequest("question text is required")
			}
		}
		if in.Points != nil {
			if *in.Points <= 0 {
				return apperr.BadRequest("points must be greater than 0")
			}
			q.Points = *in.Points
		}
		if in.Type != nil || in.Options != nil || in.CorrectAnswer != nil {
			typ, opts, answer := q.Type, q.Options, storedAnswer(q.Type, q.CorrectAnswer)
			if in.Type != nil {
				typ = *in.Type
			}
			if in.Options != nil {
				opts = in.Options
			}
			if in.CorrectAnswer != nil {
				answer = in.CorrectAnswer
			}
			if in.Options == nil && typ != grading.MultipleChoice && typ != grading.SingleChoice {
				opts = nil
			}
			if q.Options, q.CorrectAnswer, err = normalizeQuestion(typ, opts, answer); err != nil {
				return err
			}
			q.Type = typ
		}
		q.UpdatedAt = s.now()
		return st.UpdateQuestion(ctx, q)
	})
	return q, apperr.Wrap(err, "failed to update question")
}

// DeleteQuestion removes a question and closes the order gap.
func (s *Service) DeleteQuestion(ctx context.Context, id rbac.Identity, quizID, questionID string) error {
	err := s.store.InTx(ctx, func(st *SQLStore) error {
		if _, _, err := ownedQuiz(ctx, st, id, quizID); err != nil {
			return err
		}
		q, err := st.QuestionByID(ctx, quizID, questionID)
		if err != nil {
			return err
		}
		if err := st.DeleteQuestion(ctx, questionID); err != nil {
			return err
		}
		return ordering.Questions.Compact(ctx, st.q, quizID, q.Order)
	})
	return apperr.Wrap(err, "failed to delete question")
}

// reveal reports whether the caller may see correct answers of quizID.
func (s *Service) reveal(ctx context.Context, id rbac.Identity, quizID string) (bool, error) {
	_, o, err := s.store.OwnerOfQuiz(ctx, quizID)
	if err != nil {
		return false, err
	}
	return manages(id, o), nil
}

// ListQuestions lists a quiz's questions in order. Correct answers are only
// included for the course's instructor and admins.
func (s *Service) ListQuestions(ctx context.Context, id rbac.Identity, quizID string, page db.Page) (db.Paged[Question], error) {
	show, err := s.reveal(ctx, id, quizID)
	if err != nil {
		return db.Paged[Question]{}, apperr.Wrap(err, "failed to list questions")
	}
	items, total, err := s.store.ListQuestions(ctx, quizID, page)
	if err != nil {
		return db.Paged[Question]{}, apperr.Wrap(err, "failed to list questions")
	}
	if !show {
		for i := range items {
			items[i].CorrectAnswer = ""
		}
	}
	return db.NewPaged(items, page, total), nil
}

func (s *Service) GetQuestion(ctx context.Context, id rbac.Identity, quizID, questionID string) (Question, error) {
	show, err := s.reveal(ctx, id, quizID)
	if err != nil {
		return Question{}, apperr.Wrap(err, "failed to get question")
	}
	q, err := s.store.QuestionByID(ctx, quizID, questionID)
	if err != nil {
		return Question{}, apperr.Wrap(err, "failed to get question")
	}
	if !show {
		q.CorrectAnswer = ""
	}
	return q, nil
}
