package assignment

import "time"

type Assignment struct {
	ID             string    `json:"id"`
	CourseID       string    `json:"courseId"`
	CreatorID      string    `json:"creatorId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Instruction    string    `json:"instruction"`
	Attachment     []string  `json:"attachment"`
	DueDate        time.Time `json:"dueDate"`
	PointsPossible float64   `json:"pointsPossible"`
	IsPublished    bool      `json:"isPublished"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type NewAssignment struct {
	Title          string
	Description    string
	Instruction    string
	Attachment     []string
	DueDate        time.Time
	PointsPossible float64
}

type AssignmentInput struct {
	Title          *string
	Description    *string
	Instruction    *string
	Attachment     []string
	DueDate        *time.Time
	PointsPossible *float64
}

// Submission statuses.
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusLate      = "LATE"
	StatusGraded    = "GRADED"
	StatusReturned  = "RETURNED"
)

type Submission struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignmentId"`
	UserID       string     `json:"userId"`
	Content      string     `json:"content"`
	Attachment   []string   `json:"attachment"`
	Status       string     `json:"status"`
	Grade        *float64   `json:"grade"`
	Feedback     string     `json:"feedback,omitempty"`
	SubmittedAt  *time.Time `json:"submittedAt"`
	GradedAt     *time.Time `json:"gradedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	User         *Submitter `json:"user,omitempty"`
}

type Submitter struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// handedIn reports whether the student has turned the submission in.
func (s Submission) handedIn() bool {
	return s.Status == StatusSubmitted || s.Status == StatusLate || s.Status == StatusGraded
}
