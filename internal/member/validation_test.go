package member

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSignupRequest(t *testing.T) {
	valid := func() *SignupRequest {
		return &SignupRequest{
			Username: "mira",
			Email:    "mira@example.com",
			Password: "longenough",
		}
	}

	t.Run("valid request passes", func(t *testing.T) {
		assert.NoError(t, validateSignupRequest(valid()))
	})

	t.Run("username too short", func(t *testing.T) {
		req := valid()
		req.Username = "m"
		assert.Error(t, validateSignupRequest(req))
	})

	t.Run("username too long", func(t *testing.T) {
		req := valid()
		req.Username = strings.Repeat("a", maxUsernameLen+1)
		assert.Error(t, validateSignupRequest(req))
	})

	t.Run("missing email", func(t *testing.T) {
		req := valid()
		req.Email = ""
		assert.Error(t, validateSignupRequest(req))
	})

	t.Run("password too short", func(t *testing.T) {
		req := valid()
		req.Password = "short"
		assert.Error(t, validateSignupRequest(req))
	})
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		ok    bool
	}{
		{"mira@example.com", true},
		{"a@b.co", true},
		{"no-at-sign", false},
		{"@example.com", false},
		{"mira@nodot", false},
		{"mira@", false},
	}

	for _, tt := range tests {
		err := validateEmail(tt.email)
		if tt.ok {
			assert.NoError(t, err, tt.email)
		} else {
			assert.Error(t, err, tt.email)
		}
	}
}

func TestValidateProfileUpdate(t *testing.T) {
	longBio := strings.Repeat("x", maxBioLen+1)
	assert.Error(t, validateProfileUpdate(&UpdateProfileRequest{Bio: &longBio}))

	okBio := "studying for the bar exam"
	assert.NoError(t, validateProfileUpdate(&UpdateProfileRequest{Bio: &okBio}))
	assert.NoError(t, validateProfileUpdate(&UpdateProfileRequest{}))
}
