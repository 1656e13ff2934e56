package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is the per-user document. It owns the ordered credential collection
// the lifecycle manager reads and mutates; persistence is the caller's job.
type User struct {
	UserID    string      `json:"id" dynamodbav:"user_id"`
	Email     string      `json:"email" dynamodbav:"email"`
	Role      string      `json:"role" dynamodbav:"role"`
	Passwords Credentials `json:"passwords" dynamodbav:"passwords"`
	Version   int64       `json:"version" dynamodbav:"version"`
	CreatedAt time.Time   `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time   `json:"updated" dynamodbav:"updated_at"`
}

// Ref is the user reference sent to the verification service.
func (u *User) Ref() string { return u.UserID }

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AddPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,password"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password,nefield=OldPassword"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,password"`
}

type RevokePasswordsRequest struct {
	Reason      string `json:"reason" validate:"required,max=128"`
	Application string `json:"application" validate:"omitempty,max=64"`
}

type PasswordRecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordRecoveryConfirmRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,password"`
}
