package lms

import (
	"regexp"
	"strings"
)

// User represents a learning-platform user
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// UsersResponse represents the response from the users API
type UsersResponse struct {
	Data []User `json:"data"`
}

// NewUser is the payload for creating a user
type NewUser struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// EnrollmentRequest is the payload for enrolling a user in a course
type EnrollmentRequest struct {
	Price         float64 `json:"price"`
	Justification string  `json:"justification"`
}

var usernameCleaner = regexp.MustCompile(`[^a-z0-9_.-]+`)

// UsernameFor derives a username from the names, falling back to the email's
// local part.
func UsernameFor(u NewUser) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Email
		if at := strings.Index(name, "@"); at > 0 {
			name = name[:at]
		}
	}
	name = usernameCleaner.ReplaceAllString(strings.ToLower(name), "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "learner"
	}
	return name
}
