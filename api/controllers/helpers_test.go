package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/listingz-backend/api/middleware"
	"github.com/angelmondragon/listingz-backend/pkg/auth"
	"github.com/angelmondragon/listingz-backend/pkg/enums"
	"github.com/angelmondragon/listingz-backend/pkg/types"
)

func userActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
}

func adminActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

type call struct {
	method string
	target string
	body   string
	actor  *auth.Actor
	params map[string]string
	header map[string]string
}

func serve(t *testing.T, h http.Handler, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != "" {
		body = strings.NewReader(c.body)
	}
	req := httptest.NewRequest(c.method, c.target, body)
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	ctx := req.Context()
	if len(c.params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range c.params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	if c.actor != nil {
		ctx = middleware.WithActor(ctx, *c.actor)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope), rec.Body.String())
	return envelope.Error.Code
}
