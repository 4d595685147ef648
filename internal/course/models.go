package course

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	ParentID    *string   `json:"parentId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CategoryNode is a root category with its direct children.
type CategoryNode struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	Children []CategoryNode `json:"children,omitempty"`
}

type CategoryDetails struct {
	Category
	Courses []CourseCard `json:"courses"`
}

type CategoryInput struct {
	Name        *string
	Description *string
}

// CourseCard is the short form of a course used inside other resources.
type CourseCard struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Price     decimal.Decimal `json:"price"`
}

// Levels.
const (
	LevelBeginner     = "BEGINNER"
	LevelIntermediate = "INTERMEDIATE"
	LevelAdvanced     = "ADVANCED"
)

type Course struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Level        string          `json:"level"`
	Price        decimal.Decimal `json:"price"`
	Duration     int             `json:"duration"`
	Thumbnail    string          `json:"thumbnail,omitempty"`
	ThumbnailRef string          `json:"-"`
	InstructorID string          `json:"instructorId"`
	IsPublished  bool            `json:"isPublished"`
	IsApproved   bool            `json:"isApproved"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Instructor struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
}

type ModuleBrief struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Order       int    `json:"order"`
}

// CourseDetail is a course with the data shown on its page.
type CourseDetail struct {
	Course
	Instructor      Instructor    `json:"instructor"`
	Categories      []string      `json:"categories"`
	Modules         []ModuleBrief `json:"modules"`
	EnrollmentCount int           `json:"enrollmentCount"`
}

type CourseInput struct {
	Title       *string
	Description *string
	Level       *string
	Price       *decimal.Decimal
	Duration    *int
}

type Module struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ModuleInput struct {
	Title       *string
	Description *string
	Order       *int
}

// Content types.
const (
	ContentText         = "TEXT"
	ContentVideo        = "VIDEO"
	ContentAudio        = "AUDIO"
	ContentDocument     = "DOCUMENT"
	ContentQuiz         = "QUIZ"
	ContentAssignment   = "ASSIGNMENT"
	ContentPresentation = "PRESENTATION"
	ContentLink         = "LINK"
)

type Content struct {
	ID          string    `json:"id"`
	ModuleID    string    `json:"moduleId"`
	AuthorID    string    `json:"authorId"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	ContentData string    `json:"contentData,omitempty"`
	ContentRef  string    `json:"-"`
	Duration    *int      `json:"duration,omitempty"`
	Order       int       `json:"order"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ContentInput struct {
	Title       *string
	Type        *string
	ContentData *string
	Duration    *int
	Order       *int
}

// Enrollment statuses.
const (
	EnrollmentPending   = "PENDING"
	EnrollmentActive    = "ACTIVE"
	EnrollmentCompleted = "COMPLETED"
	EnrollmentDropped   = "DROPPED"
	EnrollmentRejected  = "REJECTED"
)

type Enrollment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	CourseID    string     `json:"courseId"`
	Status      string     `json:"status"`
	EnrolledAt  time.Time  `json:"enrolledAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// EnrollmentRow is an enrollment as listed to the course owner.
type EnrollmentRow struct {
	Enrollment
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
