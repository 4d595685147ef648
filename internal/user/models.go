package user

import "time"

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Username     string    `json:"username"`
	Gender       string    `json:"gender,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Bio          string    `json:"bio,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	AvatarRef    string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary is the public part of a user returned by auth endpoints.
type Summary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Gender    string
	Email     string
	Password  string
}

// ProfileInput holds the profile fields to change; nil means unchanged.
type ProfileInput struct {
	FirstName *string
	LastName  *string
	Username  *string
	Email     *string
	Bio       *string
	Phone     *string
}

type Tokens struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken,omitempty"`
	User         Summary `json:"user"`
}

// Record is one row of a user's activity in a data export.
type Record struct {
	ID     string    `json:"id"`
	Ref    string    `json:"ref"`
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

// Export is everything stored about a user, for admin data requests.
type Export struct {
	User        User     `json:"user"`
	Enrollments []Record `json:"enrollments"`
	Attempts    []Record `json:"attempts"`
	Submissions []Record `json:"submissions"`
}
