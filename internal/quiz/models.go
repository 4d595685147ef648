package quiz

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type Quiz struct {
	ID           string    `json:"id"`
	ContentID    string    `json:"contentId"`
	TimeLimit    *int      `json:"timeLimit"` // minutes; nil means unlimited
	PassingScore int       `json:"passingScore"`
	MaxAttempts  int       `json:"maxAttempts"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type NewQuiz struct {
	TimeLimit    *int
	PassingScore int
	MaxAttempts  int
}

type QuizInput struct {
	TimeLimit    *int
	PassingScore *int
	MaxAttempts  *int
}

// OptionID accepts either a JSON string or a JSON number.
type OptionID string

func (o *OptionID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*o = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*o = OptionID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*o = OptionID(n.String())
	return nil
}

type Option struct {
	ID   OptionID `json:"id"`
	Text string   `json:"text"`
}

type Question struct {
	ID            string    `json:"id"`
	QuizID        string    `json:"quizId"`
	Text          string    `json:"questionText"`
	Type          string    `json:"questionType"`
	Options       []Option  `json:"options"`
	CorrectAnswer string    `json:"correctAnswer,omitempty"`
	Points        float64   `json:"points"`
	Order         int       `json:"order"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// QuestionInput carries create and update fields. Nil fields are left as they are.
// CorrectAnswer holds the decoded JSON value: a string, number, bool or array.
type QuestionInput struct {
	Text          *string
	Type          *string
	Options       []Option
	CorrectAnswer any
	Points        *float64
	Order         *int
}

// Attempt statuses.
const (
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusExpired    = "EXPIRED"
)

type Attempt struct {
	ID          string       `json:"id"`
	QuizID      string       `json:"quizId"`
	UserID      string       `json:"userId"`
	Status      string       `json:"status"`
	StartedAt   time.Time    `json:"startedAt"`
	ExpiresAt   *time.Time   `json:"expiresAt"`
	CompletedAt *time.Time   `json:"completedAt"`
	Score       *float64     `json:"score"`
	Passed      *bool        `json:"passed"`
	User        *AttemptUser `json:"user,omitempty"`
}

type AttemptUser struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// expired reports whether an in-progress attempt ran past its deadline.
func (a Attempt) expired(now time.Time) bool {
	return a.Status == StatusInProgress && a.ExpiresAt != nil && now.After(*a.ExpiresAt)
}

type Answer struct {
	ID         string    `json:"id"`
	AttemptID  string    `json:"attemptId"`
	QuestionID string    `json:"questionId"`
	AnswerText string    `json:"answerText"`
	IsCorrect  *bool     `json:"isCorrect"`
	Points     *float64  `json:"points"`
	GradedBy   string    `json:"gradedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// StudentAnswer is an answer with the question it responds to.
type StudentAnswer struct {
	Answer
	QuestionText string `json:"questionText"`
	QuestionType string `json:"questionType"`
}

// scalar renders a decoded JSON scalar as a string.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}
