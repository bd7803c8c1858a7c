package models

import "time"

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) Valid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

type Avatar struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// CourseRef records a purchased course on the owning user.
type CourseRef struct {
	CourseID string `json:"courseId"`
}

// User is also the session snapshot stored in the cache, so secrets are
// excluded from its JSON form.
type User struct {
	ID           string      `json:"_id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	Avatar       Avatar      `json:"avatar"`
	Role         UserRole    `json:"role"`
	IsVerified   bool        `json:"isVerified"`
	Courses      []CourseRef `json:"courses"`

	PasswordResetCode      string     `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	PasswordResetVerified  bool       `json:"-"`
	PasswordChangedAt      *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) HasCourse(courseID string) bool {
	for _, ref := range u.Courses {
		if ref.CourseID == courseID {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// PendingRegistration is held in the cache between register and activate.
type PendingRegistration struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CodeHash     string `json:"codeHash"`
}
