package auth

import "strings"

// LoginDTO carries the credential pair posted to the login endpoint.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token"`
}

// ValidationError marks a request rejected before any credential check ran,
// so the handler can answer 400 instead of 401.
type ValidationError struct {
	Field string
	Msg   string
}

func (v ValidationError) Error() string { return v.Field + ": " + v.Msg }

func (d LoginDTO) Validate() error {
	email := strings.TrimSpace(d.Email)
	if email == "" {
		return ValidationError{Field: "email", Msg: "must not be empty"}
	}
	if !strings.Contains(email, "@") {
		return ValidationError{Field: "email", Msg: "must be an email address"}
	}
	if d.Password == "" {
		return ValidationError{Field: "password", Msg: "must not be empty"}
	}
	return nil
}

func (d RefreshTokenDTO) Validate() error {
	if d.RefreshToken == "" {
		return ValidationError{Field: "refresh_token", Msg: "must not be empty"}
	}
	return nil
}
