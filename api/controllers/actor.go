package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/listingz-backend/api/middleware"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
)

func requireActor(r *http.Request) (auth.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok || actor.UserID == uuid.Nil {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}
