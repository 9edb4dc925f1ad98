package order

import (
	"fmt"

	"bonstock-be/internal/actor"
)

// transitions is the workflow graph. pending is the sole initial state;
// rejected, delivered and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:   {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusPurchased, StatusCancelled},
	StatusPurchased:  {StatusDelivered, StatusCancelled},
}

type edge struct {
	from, to Status
}

// edgeAuthority maps each workflow edge to the roles allowed to drive it.
// Cancellation is handled separately in authorized because it also depends
// on ownership.
var edgeAuthority = map[edge][]actor.Role{
	{StatusPending, StatusApproved}:     {actor.RoleDepartmentHead, actor.RoleAdmin},
	{StatusPending, StatusRejected}:     {actor.RoleDepartmentHead, actor.RoleAdmin},
	{StatusApproved, StatusProcessing}:  {actor.RolePurchasing, actor.RoleAdmin},
	{StatusProcessing, StatusPurchased}: {actor.RolePurchasing, actor.RoleAdmin},
	{StatusPurchased, StatusDelivered}:  {actor.RoleWarehouse, actor.RoleAdmin},
}

func IsTerminal(s Status) bool {
	switch s {
	case StatusRejected, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func canTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// authorized reports whether the actor may drive the order along the edge.
// Requesters may cancel their own order while it is still pending; admins
// may cancel any pre-delivered, non-rejected order.
func authorized(a actor.Actor, o *Order, to Status) bool {
	if to == StatusCancelled {
		if a.Role == actor.RoleAdmin {
			return true
		}
		return o.Status == StatusPending && a.ID == o.CreatedBy
	}

	for _, role := range edgeAuthority[edge{o.Status, to}] {
		if a.Role == role {
			return true
		}
	}
	return false
}

// checkTransition validates the edge and the actor's authority over it,
// distinguishing the one-shot decision race from plain illegal moves.
func checkTransition(o *Order, to Status, a actor.Actor) error {
	if !canTransition(o.Status, to) {
		// A decision already recorded on a request is a race, not a
		// malformed call; callers handle it differently.
		if o.Status != StatusPending && (to == StatusApproved || to == StatusRejected) {
			return fmt.Errorf("order %s: decision already recorded (status %s): %w", o.ID, o.Status, ErrAlreadyDecided)
		}
		return fmt.Errorf("order %s: %s -> %s: %w", o.ID, o.Status, to, ErrInvalidTransition)
	}

	if !authorized(a, o, to) {
		return fmt.Errorf("order %s: role %s may not drive %s -> %s: %w", o.ID, a.Role, o.Status, to, ErrInvalidTransition)
	}

	return nil
}
