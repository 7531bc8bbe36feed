package domain

import "time"

// Group is a named access-control group (ACG). Implants and users reference
// groups by ID; deleting a group does not cascade into those references.
// A dangling ID simply never matches a live group during membership checks.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// CreateGroupRequest holds parameters for creating a new ACG.
type CreateGroupRequest struct {
	Name string
}

// Validate checks that the request is well-formed.
func (r *CreateGroupRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("group name is required")
	}
	return nil
}
