package models

import (
	"strings"
	"time"
)

// UnknownOwner is recorded in history when the previous owner row is gone.
const UnknownOwner = "Unknown"

// User is an employee who can be accountable for items.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Company      string    `json:"company" db:"company"`
	Department   string    `json:"department" db:"department"`
	EmployeeID   *string   `json:"employee_id,omitempty" db:"employee_id"`
	Email        *string   `json:"email,omitempty" db:"email"`
	PasswordHash *string   `json:"-" db:"password_hash"` // Never expose in JSON
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DisplayName is the name written into item history.
func (u *User) DisplayName() string {
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return UnknownOwner
	}
	return u.Name
}

// Identity returns the matching key used by find-or-create.
func (u *User) Identity() UserIdentity {
	id := UserIdentity{Name: u.Name, Company: u.Company, Department: u.Department}
	if u.EmployeeID != nil {
		id.EmployeeID = *u.EmployeeID
	}
	return id
}

// UserIdentity is how imports and creates name an owner.
type UserIdentity struct {
	Name       string `json:"name"`
	Company    string `json:"company"`
	Department string `json:"department"`
	EmployeeID string `json:"employee_id,omitempty"`
}

// Blank reports whether no owner was named.
func (id UserIdentity) Blank() bool {
	return strings.TrimSpace(id.Name) == ""
}

// CreateUserRequest represents the request body for creating a new user
type CreateUserRequest struct {
	UserIdentity
	Email    *string `json:"email,omitempty"`
	Password string  `json:"password,omitempty"`
	Role     string  `json:"role,omitempty"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the response body for successful login
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
