package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForEachCode(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NewBadRequestError("bad", nil), http.StatusBadRequest},
		{NewUnauthorizedError("no", nil), http.StatusUnauthorized},
		{NewForbiddenError("no", nil), http.StatusForbidden},
		{NewNotFoundError("gone", nil), http.StatusNotFound},
		{NewConflictError("dup", nil), http.StatusConflict},
		{NewPayloadTooLargeError("big", nil), http.StatusRequestEntityTooLarge},
		{NewStorageError("oops", nil), http.StatusInternalServerError},
		{NewDatabaseError("oops", nil), http.StatusInternalServerError},
		{NewInternalServerError("oops", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.Status())
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("root cause")
	e := NewDatabaseError("query failed", inner)
	assert.Same(t, inner, errors.Unwrap(e))
	assert.Contains(t, e.Error(), "root cause")
}

func TestRespondWithErrorRendersTypedError(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)
	w.RespondWithError(NewNotFoundError("skill not found", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "skill not found", b.Error)
}

func TestRespondWithErrorRendersErrorWrappedWithFmt(t *testing.T) {
	wrapped := errors.New("pq: connection refused")
	appErr := NewConflictError("name already taken", wrapped)
	doubleWrapped := fmt.Errorf("publishing: %w", appErr)

	rec := httptest.NewRecorder()
	w := Wrap(rec)
	w.RespondWithError(doubleWrapped)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "name already taken", b.Error)
}

func TestRespondWithErrorHidesUntypedErrorDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	w := Wrap(rec)
	w.RespondWithError(errors.New("leaked internal detail: credentials xyz"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "Internal server error", b.Error)
	assert.NotContains(t, rec.Body.String(), "credentials")
}
