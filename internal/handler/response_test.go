package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/realtime"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantKind  string
		wantField string
	}{
		{"validation", apperror.ValidationFailed("content", "Comment cannot be empty"), http.StatusBadRequest, "validation_error", "content"},
		{"invalid credentials", apperror.InvalidCredentials(), http.StatusUnauthorized, "invalid_credentials", ""},
		{"unauthorized", apperror.Unauthorized("admin access required"), http.StatusForbidden, "unauthorized", ""},
		{"not found", apperror.NotFound("project", "nope"), http.StatusNotFound, "not_found", ""},
		{"conflict", apperror.Conflict("project", "slug"), http.StatusConflict, "conflict", ""},
		{"not configured", apperror.NotConfigured("no backend"), http.StatusServiceUnavailable, "not_configured", ""},
		{"transport", apperror.Transport("listing comments", errors.New("connection reset")), http.StatusBadGateway, "transport_error", ""},
		{"wrapped", fmt.Errorf("outer: %w", apperror.NotFound("user", "user-9")), http.StatusNotFound, "not_found", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
			assert.Equal(t, tt.wantKind, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestWriteError_HidesUnexpectedErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("sqlite: no such table: kv"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "sqlite")

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "internal_error", body.Error)
}

func TestDecodeJSON(t *testing.T) {
	var dst contentRequest

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"hi"}`))
		require.NoError(t, decodeJSON(httptest.NewRecorder(), r, &dst))
		assert.Equal(t, "hi", dst.Content)
	})

	t.Run("empty body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "Request body is required")
	})

	t.Run("unknown field", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contnet":"typo"}`))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		require.ErrorIs(t, err, apperror.ErrValidation)
		assert.Contains(t, err.Error(), "Invalid JSON body")
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":`))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		require.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"content":"` + strings.Repeat("a", maxBodyBytes) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		err := decodeJSON(httptest.NewRecorder(), r, &dst)
		require.ErrorIs(t, err, apperror.ErrValidation)
	})
}

func TestLiveTopic(t *testing.T) {
	tests := []struct {
		query     string
		wantErr   bool
		wantTopic realtime.Topic
	}{
		{query: "table=comments&entity_type=project&entity_id=project-1",
			wantTopic: realtime.Topic{Table: realtime.TableComments, EntityType: "project", EntityID: "project-1"}},
		{query: "table=likes", wantTopic: realtime.Topic{Table: realtime.TableLikes}},
		{query: "", wantErr: true},
		{query: "table=users", wantErr: true},
		{query: "table=comments&entity_type=video", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/live?"+tt.query, nil)
			topic, err := liveTopic(r)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperror.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTopic, topic)
		})
	}
}
