package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Question types.
const (
	MultipleChoice = "MULTIPLE_CHOICE"
	SingleChoice   = "SINGLE_CHOICE"
	TrueFalse      = "TRUE_FALSE"
	ShortAnswer    = "SHORT_ANSWER"
	Essay          = "ESSAY"
)

// Types lists every supported question type.
var Types = []string{MultipleChoice, SingleChoice, TrueFalse, ShortAnswer, Essay}

// Q is the view of a question needed for grading.
type Q struct {
	Type      string
	Points    float64
	AnswerKey []string
}

// Result is the outcome of grading a single answer. Correct and Points are nil
// when the answer needs manual grading.
type Result struct {
	Correct   *bool
	Points    *float64
	MaxPoints float64
}

func (r Result) NeedsManual() bool { return r.Correct == nil }

// Strategy grades a single question type.
type Strategy interface {
	Grade(ctx context.Context, q Q, response any) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response any) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

var ErrUnknownType = errors.New("invalid question type")

func (g *defaultGrader) Grade(ctx context.Context, q Q, response any) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownType, q.Type)
	}
	return s.Grade(ctx, q, response)
}

// NewDefaultGrader installs the built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			MultipleChoice: multiChoiceStrategy{},
			SingleChoice:   exactStrategy{},
			TrueFalse:      exactStrategy{},
			ShortAnswer:    shortAnswerStrategy{},
			Essay:          essayStrategy{},
		},
	}
}

// --- Strategies ---

// exactStrategy awards full points when the response equals the key.
type exactStrategy struct{}

func (exactStrategy) Grade(_ context.Context, q Q, response any) (Result, error) {
	resp, ok := response.(string)
	if !ok {
		return verdict(q, false), nil
	}
	for _, k := range q.AnswerKey {
		if resp == k {
			return verdict(q, true), nil
		}
	}
	return verdict(q, false), nil
}

// multiChoiceStrategy compares as sets: order and duplicates are ignored.
type multiChoiceStrategy struct{}

func (multiChoiceStrategy) Grade(_ context.Context, q Q, response any) (Result, error) {
	respSlice, ok := toStringSlice(response)
	if !ok {
		return verdict(q, false), nil
	}
	return verdict(q, setEqual(toSet(q.AnswerKey), toSet(respSlice))), nil
}

type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Grade(_ context.Context, q Q, response any) (Result, error) {
	resp, ok := response.(string)
	if !ok {
		return verdict(q, false), nil
	}
	want := ""
	if len(q.AnswerKey) > 0 {
		want = q.AnswerKey[0]
	}
	return verdict(q, foldTrim(resp) == foldTrim(want)), nil
}

type essayStrategy struct{}

func (essayStrategy) Grade(_ context.Context, q Q, _ any) (Result, error) {
	return Result{MaxPoints: q.Points}, nil
}

// ManualResult builds the result of an instructor awarding points by hand.
func ManualResult(q Q, points float64) (Result, error) {
	if points < 0 || points > q.Points {
		return Result{}, fmt.Errorf("points must be between 0 and %g", q.Points)
	}
	correct := points > 0
	return Result{Correct: &correct, Points: &points, MaxPoints: q.Points}, nil
}

// helpers

func verdict(q Q, correct bool) Result {
	pts := 0.0
	if correct {
		pts = q.Points
	}
	return Result{Correct: &correct, Points: &pts, MaxPoints: q.Points}
}

func foldTrim(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// ParseAnswer decodes a stored or submitted answer for a question of type
// typ. Only MULTIPLE_CHOICE answers are JSON arrays; one that does not decode
// to a list of strings or numbers stays a raw string and grades as wrong.
// Every other type is compared as the raw string.
func ParseAnswer(typ, raw string) any {
	if typ != MultipleChoice {
		return raw
	}
	var arr []any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &arr); err != nil {
		return raw
	}
	if out, ok := toStringSlice(arr); ok {
		return out
	}
	return raw
}

// Key converts a stored correct answer into the answer key for typ.
func Key(typ, raw string) []string {
	if typ != MultipleChoice {
		return []string{raw}
	}
	if v, ok := ParseAnswer(typ, raw).([]string); ok {
		return v
	}
	return nil
}

// toStringSlice accepts only strings and numbers; any other element makes the
// whole list invalid.
func toStringSlice(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			switch s := e.(type) {
			case string:
				out = append(out, s)
			case float64:
				out = append(out, fmt.Sprintf("%g", s))
			default:
				return nil, false
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
