package model

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor identifies who performed a status change or wrote a comment.
type Actor struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Role     Role   `json:"role,omitempty"`
}
