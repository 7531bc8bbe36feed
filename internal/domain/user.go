package domain

import "time"

// User is an operator identity. ACGs holds the IDs of the access-control
// groups the user belongs to. Admin status is not stored here; it lives in
// a separate admin record (see AdminRepository) so that directory-backed
// identities can be promoted without a local user row.
type User struct {
	ID        string
	Name      string
	ACGs      []string
	CreatedAt time.Time
}

// UserCredentials pairs a user with their stored password hash. Only the
// database identity backend ever sees this; directory-backed deployments
// verify secrets against the directory instead.
type UserCredentials struct {
	User
	PasswordHash string
}

// RegisterUserRequest holds parameters for registering a new user.
type RegisterUserRequest struct {
	Name            string
	Password        string
	ConfirmPassword string
}

// Validate checks the structural fields of the request. Password policy is
// enforced separately against the configured PasswordRequirements.
func (r *RegisterUserRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("username is required")
	}
	if r.Password != r.ConfirmPassword {
		return ErrValidation("passwords do not match")
	}
	return nil
}

// PasswordRequirements is the configurable password policy applied at
// registration and password change.
type PasswordRequirements struct {
	RequireUppercase bool `yaml:"require_uppercase"`
	RequireLowercase bool `yaml:"require_lowercase"`
	RequireNumber    bool `yaml:"require_number"`
	MinLength        int  `yaml:"min_length"`
}

// TokenValidity records the minimum acceptable issue time for a user's
// session tokens. Tokens issued before MinTokenValidity are rejected;
// logout advances the floor to "now", revoking all prior tokens at once.
type TokenValidity struct {
	UserID           string
	MinTokenValidity time.Time
}
