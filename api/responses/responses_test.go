package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/listingz-backend/pkg/errors"
	"github.com/angelmondragon/listingz-backend/pkg/logger"
	"github.com/angelmondragon/listingz-backend/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body types.SuccessEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]int{"total": 3})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "title"})
	WriteError(context.Background(), logger.Nop(), w, err)

	require.Equal(t, http.StatusBadRequest, w.Code)

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	require.Equal(t, "bad input", body.Error.Message)
	require.NotNil(t, body.Error.Details)
}

func TestWriteErrorDomainCodes(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeInvalidCart, http.StatusBadRequest},
		{pkgerrors.CodeUnknownPackage, http.StatusUnprocessableEntity},
		{pkgerrors.CodeInsufficientInventory, http.StatusConflict},
		{pkgerrors.CodeInvalidTransition, http.StatusUnprocessableEntity},
		{pkgerrors.CodeExpiredListing, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(context.Background(), nil, w, pkgerrors.New(tc.code, "specific reason"))

			require.Equal(t, tc.status, w.Code)
			var body types.ErrorEnvelope
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			require.Equal(t, string(tc.code), body.Error.Code)
			require.Equal(t, "specific reason", body.Error.Message)
		})
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	require.Equal(t, "internal server error", body.Error.Message)
	require.Nil(t, body.Error.Details)
}
