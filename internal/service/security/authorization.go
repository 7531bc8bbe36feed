package security

import (
	"context"
	"fmt"

	"warden/internal/domain"
)

// Engine makes authorization decisions. Decisions are data: a clean "no" is
// (false, nil), and a non-nil error always means a backend fault, never a
// denial.
type Engine struct {
	admins   domain.AdminRepository
	backend  domain.IdentityBackend
	implants domain.ImplantRepository
}

func NewEngine(admins domain.AdminRepository, backend domain.IdentityBackend, implants domain.ImplantRepository) *Engine {
	return &Engine{admins: admins, backend: backend, implants: implants}
}

// IsAdmin reports whether the user holds the admin role.
func (e *Engine) IsAdmin(ctx context.Context, userID string) (bool, error) {
	return e.admins.IsAdmin(ctx, userID)
}

// Authorize decides whether userID may perform op on the identified entity.
// The checks run in a fixed order: self-service on the user's own record,
// then the admin override, then per-entity rules. Entity kinds without a
// rule are denied.
func (e *Engine) Authorize(ctx context.Context, userID string, entity domain.EntityType, entityID string, op domain.Operation) (bool, error) {
	if entity == domain.EntityUser && entityID == userID {
		return true, nil
	}

	isAdmin, err := e.admins.IsAdmin(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("admin lookup for %s: %w", userID, err)
	}
	if isAdmin {
		return true, nil
	}

	switch entity {
	case domain.EntityImplant:
		return e.authorizeImplant(ctx, userID, entityID, op)
	default:
		return false, nil
	}
}

func (e *Engine) authorizeImplant(ctx context.Context, userID, implantID string, op domain.Operation) (bool, error) {
	imp, err := e.implants.GetByImplantID(ctx, implantID)
	if err != nil {
		return false, err
	}
	groups, err := e.backend.GroupsForUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("group lookup for %s: %w", userID, err)
	}

	switch op {
	case domain.OperationRead:
		return canReadImplant(groups, imp), nil
	case domain.OperationEdit:
		return canEditImplant(groups, imp), nil
	default:
		return false, nil
	}
}

// FilterImplantsForView returns the implants the user may read. Admins see
// everything; for everyone else the group memberships are fetched once and
// each implant is tested with the same predicate Authorize uses for READ.
func (e *Engine) FilterImplantsForView(ctx context.Context, userID string, implants []domain.Implant) ([]domain.Implant, error) {
	isAdmin, err := e.admins.IsAdmin(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("admin lookup for %s: %w", userID, err)
	}
	if isAdmin {
		return implants, nil
	}

	groups, err := e.backend.GroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("group lookup for %s: %w", userID, err)
	}

	visible := []domain.Implant{}
	for _, imp := range implants {
		if canReadImplant(groups, &imp) {
			visible = append(visible, imp)
		}
	}
	return visible, nil
}

// canReadImplant permits READ when the implant has no access control groups
// at all, or when the user belongs to any group in either list.
func canReadImplant(groups []string, imp *domain.Implant) bool {
	if len(imp.ReadOnlyACGs) == 0 && len(imp.OperatorACGs) == 0 {
		return true
	}
	return memberOfAny(groups, imp.ReadOnlyACGs) || memberOfAny(groups, imp.OperatorACGs)
}

// canEditImplant permits EDIT only through the operator list. An implant with
// read-only groups but no operator groups is editable by admins alone;
// membership in a read-only group never grants EDIT.
func canEditImplant(groups []string, imp *domain.Implant) bool {
	if len(imp.ReadOnlyACGs) == 0 && len(imp.OperatorACGs) == 0 {
		return true
	}
	return memberOfAny(groups, imp.OperatorACGs)
}

func memberOfAny(groups, acgs []string) bool {
	if len(groups) == 0 || len(acgs) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(acgs))
	for _, a := range acgs {
		set[a] = struct{}{}
	}
	for _, g := range groups {
		if _, ok := set[g]; ok {
			return true
		}
	}
	return false
}
