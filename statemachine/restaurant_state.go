package statemachine

import (
	"fmt"
	"strings"

	"restaurant-directory-api/models"
)

// Action names an operation that moves a restaurant between statuses.
type Action string

const (
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionRequestDelete Action = "request-delete"
	ActionApproveDelete Action = "approve-delete"
	ActionForceDelete   Action = "force-delete"
)

// Actor is the party allowed to trigger a transition.
type Actor string

const (
	ActorOwner Actor = "owner"
	ActorAdmin Actor = "admin"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	Action Action                  `json:"action"`
	From   models.RestaurantStatus `json:"from"`
	To     models.RestaurantStatus `json:"to"`
	Actor  Actor                   `json:"actor"`
}

var (
	pending         = models.StatusPending
	approved        = models.StatusApproved
	rejected        = models.StatusRejected
	deleteRequested = models.StatusDeleteRequested
	deleted         = models.StatusDeleted
)

// validTransitions is the authoritative lifecycle definition
var validTransitions = []Transition{
	// Approval is repeatable and also pulls a listing back out of rejected
	// or delete_requested.
	{ActionApprove, pending, approved, ActorAdmin},
	{ActionApprove, approved, approved, ActorAdmin},
	{ActionApprove, rejected, approved, ActorAdmin},
	{ActionApprove, deleteRequested, approved, ActorAdmin},
	// Only a pending listing can be rejected
	{ActionReject, pending, rejected, ActorAdmin},
	// Owner asks for removal from any status except an open request
	{ActionRequestDelete, pending, deleteRequested, ActorOwner},
	{ActionRequestDelete, approved, deleteRequested, ActorOwner},
	{ActionRequestDelete, rejected, deleteRequested, ActorOwner},
	// Admin honours a removal request
	{ActionApproveDelete, deleteRequested, deleted, ActorAdmin},
	// Admin removes a listing outright
	{ActionForceDelete, pending, deleted, ActorAdmin},
	{ActionForceDelete, approved, deleted, ActorAdmin},
	{ActionForceDelete, rejected, deleted, ActorAdmin},
	{ActionForceDelete, deleteRequested, deleted, ActorAdmin},
}

type transitionKey struct {
	Action Action
	From   models.RestaurantStatus
	Actor  Actor
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]models.RestaurantStatus {
	m := make(map[transitionKey]models.RestaurantStatus)
	for _, t := range validTransitions {
		m[transitionKey{t.Action, t.From, t.Actor}] = t.To
	}
	return m
}()

// ErrInvalidTransition is returned when an action does not apply to the
// current status.
type ErrInvalidTransition struct {
	Action Action
	From   models.RestaurantStatus
	Actor  Actor
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot %s a restaurant in status %s as %s; allowed actions: %s",
		e.Action, e.From, e.Actor, describeActionsFrom(e.From))
}

// Next returns the status reached when actor performs action on a restaurant
// currently in from.
func Next(action Action, from models.RestaurantStatus, actor Actor) (models.RestaurantStatus, error) {
	if to, ok := transitionMap[transitionKey{action, from, actor}]; ok {
		return to, nil
	}
	return "", &ErrInvalidTransition{Action: action, From: from, Actor: actor}
}

// CanTransition checks if a given actor can perform action from a status
func CanTransition(action Action, from models.RestaurantStatus, actor Actor) error {
	_, err := Next(action, from, actor)
	return err
}

// ValidActionsFrom returns all actions applicable to a given status
func ValidActionsFrom(status models.RestaurantStatus) []Action {
	var actions []Action
	seen := map[Action]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.Action] {
			actions = append(actions, t.Action)
			seen[t.Action] = true
		}
	}
	return actions
}

func describeActionsFrom(status models.RestaurantStatus) string {
	actions := ValidActionsFrom(status)
	if len(actions) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full lifecycle for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}
