package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/pkg/enums"
	"github.com/angelmondragon/listingz-backend/pkg/outbox"
)

// Actor is the authenticated caller a service acts on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// ActorFromClaims lifts token claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// CanAccess reports whether the actor owns the resource or is an admin.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsAdmin() || (a.UserID != uuid.Nil && a.UserID == ownerID)
}

// Ref renders the actor for outbox envelopes. The zero Actor is the system.
func (a Actor) Ref() *outbox.ActorRef {
	if a.UserID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: a.UserID, Role: string(a.Role)}
}

// IDPtr returns the actor id for audit columns, nil for the system.
func (a Actor) IDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}
