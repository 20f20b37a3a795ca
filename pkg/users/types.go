package users

import (
	"time"

	"github.com/platinummonkey/checklist/pkg/auth"
)

// Field bounds for account data
const (
	MaxNameLength  = 100
	MaxPhoneLength = 8
	MaxEmailLength = 30
)

// RegistrationRequest is the body of an anonymous sign-up
type RegistrationRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// UpdateRequest changes only the fields that are set
type UpdateRequest struct {
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Email       *string `json:"email,omitempty"`
	Password    *string `json:"password,omitempty"`
}

// UserResponse is the public view of an account. It never carries credentials.
type UserResponse struct {
	ID          auth.UserID `json:"id"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	PhoneNumber string      `json:"phoneNumber"`
	Email       string      `json:"email"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// NewUserResponse builds the public view of u
func NewUserResponse(u *auth.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// RolesResponse lists the roles held by an account
type RolesResponse struct {
	UserID auth.UserID `json:"userId"`
	Roles  []string    `json:"roles"`
}
