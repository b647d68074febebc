package models

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	id "teamdns/pkg/domain"
	dErrors "teamdns/pkg/domain-errors"
)

// User is an account in the directory. PasswordHash never leaves the service.
type User struct {
	ID           id.UserID
	Username     string
	Email        string
	PasswordHash string
	FullName     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

const (
	minUsernameLength = 3
	maxUsernameLength = 50
	minPasswordLength = 8
	// bcrypt ignores bytes beyond 72.
	maxPasswordLength = 72
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.FullName = strings.TrimSpace(r.FullName)
}

// Follows validation order: Size -> Required -> Syntax.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	if len(r.Username) > maxUsernameLength {
		return dErrors.New(dErrors.CodeValidation, "username must be 50 characters or less")
	}
	if len(r.Email) > 254 {
		return dErrors.New(dErrors.CodeValidation, "email must be 254 characters or less")
	}
	if len(r.Password) > maxPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be 72 bytes or less")
	}
	if len(r.FullName) > 200 {
		return dErrors.New(dErrors.CodeValidation, "full_name must be 200 characters or less")
	}

	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}

	if len(r.Username) < minUsernameLength || !usernamePattern.MatchString(r.Username) {
		return dErrors.New(dErrors.CodeValidation, "username must be at least 3 characters of letters, digits, '.', '_' or '-'")
	}
	if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if len(r.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	return nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func ToUserResponse(u *User) *UserResponse {
	return &UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}
