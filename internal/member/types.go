package member

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrUsernameTaken  = errors.New("username already taken")
)

type Member struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Password     string    `json:"-"`
	Bio          string    `json:"bio,omitempty"`
	StudyField   string    `json:"study_field,omitempty"`
	ProfileImage string    `json:"profile_image,omitempty"`
	Level        int       `json:"level"`
	TotalExp     int       `json:"total_exp"`
	Deleted      bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	Member       *Member `json:"member"`
}

type UpdateProfileRequest struct {
	Bio        *string `json:"bio"`
	StudyField *string `json:"study_field"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
