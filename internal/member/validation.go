package member

import (
	"fmt"
	"strings"
)

const (
	minUsernameLen = 2
	maxUsernameLen = 28
	minPasswordLen = 8
	maxBioLen      = 500
)

func validateSignupRequest(req *SignupRequest) error {
	if req.Username == "" {
		return fmt.Errorf("username is required")
	}
	if len(req.Username) < minUsernameLen {
		return fmt.Errorf("username must be at least %d characters long, got %d", minUsernameLen, len(req.Username))
	}
	if len(req.Username) > maxUsernameLen {
		return fmt.Errorf("username must be no more than %d characters long, got %d", maxUsernameLen, len(req.Username))
	}

	if req.Email == "" {
		return fmt.Errorf("email is required")
	}
	if err := validateEmail(req.Email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	if err := validatePassword(req.Password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	return nil
}

func validateEmail(email string) error {
	// Basic validation - at least has @ with text before and after, and a dot after @
	atIndex := strings.Index(email, "@")
	if atIndex <= 0 {
		return fmt.Errorf("must contain @ with text before it")
	}

	afterAt := email[atIndex+1:]
	if afterAt == "" || !strings.Contains(afterAt, ".") {
		return fmt.Errorf("must have a domain with a dot after @")
	}

	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("must be at least %d characters long", minPasswordLen)
	}
	return nil
}

func validateProfileUpdate(req *UpdateProfileRequest) error {
	if req.Bio != nil && len(*req.Bio) > maxBioLen {
		return fmt.Errorf("bio must be no more than %d characters long", maxBioLen)
	}
	return nil
}
