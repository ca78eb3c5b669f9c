// Package access decides which actor may invoke which operation. Checks run
// before any mutation and return apperr Authentication (no credential) or
// Authorization (credential present, privilege missing) errors.
package access

import (
	"github.com/google/uuid"

	"restaurant-directory-api/apperr"
	"restaurant-directory-api/models"
	"restaurant-directory-api/statemachine"
)

// Actor is the identity behind a request. The zero value is anonymous.
type Actor struct {
	UserID uuid.UUID
	Role   models.UserRole
}

func Anonymous() Actor { return Actor{} }

func (a Actor) Authenticated() bool { return a.UserID != uuid.Nil }
func (a Actor) IsAdmin() bool       { return a.Authenticated() && a.Role == models.RoleAdmin }

func (a Actor) IsBusinessOwner() bool {
	return a.Authenticated() && a.Role == models.RoleBusinessOwner
}

func (a Actor) Owns(r *models.Restaurant) bool {
	return a.Authenticated() && r.OwnerID == a.UserID
}

var (
	errNoCredential = apperr.Authentication("Not authorized, no token")
	errAdminsOnly   = apperr.Authorization("Access denied. Admins only.")
)

// RequireAuthenticated admits any signed-in actor.
func RequireAuthenticated(a Actor) error {
	if !a.Authenticated() {
		return errNoCredential
	}
	return nil
}

func RequireAdmin(a Actor) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !a.IsAdmin() {
		return errAdminsOnly
	}
	return nil
}

// CanCreateRestaurant admits business owners.
func CanCreateRestaurant(a Actor) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !a.IsBusinessOwner() {
		return apperr.Authorization("Only business owners can register restaurants.")
	}
	return nil
}

// CanListOwned admits business owners listing their own restaurants.
func CanListOwned(a Actor) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !a.IsBusinessOwner() && !a.IsAdmin() {
		return apperr.Authorization("Only business owners have restaurants.")
	}
	return nil
}

// CanUpdateRestaurant admits the owning user and any admin.
func CanUpdateRestaurant(a Actor, r *models.Restaurant) error {
	if err := RequireAuthenticated(a); err != nil {
		return err
	}
	if !a.Owns(r) && !a.IsAdmin() {
		return apperr.Authorization("Not authorized to edit this restaurant.")
	}
	return nil
}

// CanView reports whether a restaurant is visible to the actor: approved
// listings to everyone, any other status to its owner and admins.
func CanView(a Actor, r *models.Restaurant) bool {
	return r.Status == models.StatusApproved || a.Owns(r) || a.IsAdmin()
}

// TransitionActor resolves the lifecycle role the actor plays for action on
// r, or an error if they play none.
func TransitionActor(a Actor, action statemachine.Action, r *models.Restaurant) (statemachine.Actor, error) {
	if err := RequireAuthenticated(a); err != nil {
		return "", err
	}
	switch action {
	case statemachine.ActionRequestDelete:
		if !a.Owns(r) {
			return "", apperr.Authorization("Not authorized to request deletion.")
		}
		return statemachine.ActorOwner, nil
	default:
		if !a.IsAdmin() {
			return "", errAdminsOnly
		}
		return statemachine.ActorAdmin, nil
	}
}
