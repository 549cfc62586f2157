package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	testCases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "valid", body: `{"name":"Cup"}`},
		{name: "empty", body: ``, wantErr: "body must not be empty"},
		{name: "malformed", body: `{"name":`, wantErr: "badly-formed JSON"},
		{name: "wrong type", body: `{"name":1}`, wantErr: `incorrect JSON type for field "name"`},
		{name: "unknown field", body: `{"name":"Cup","extra":true}`, wantErr: `unknown key "extra"`},
		{name: "two values", body: `{"name":"a"}{"name":"b"}`, wantErr: "single JSON value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			w := httptest.NewRecorder()

			var dst payload
			err := ReadJSON(w, r, &dst)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "Cup", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestError(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   bracket.Code
		wantMsg    string
	}{
		{
			name:       "rejection keeps its message",
			err:        bracket.ErrDownstreamLocked,
			wantStatus: http.StatusConflict,
			wantCode:   bracket.CodeDownstreamLocked,
			wantMsg:    bracket.ErrDownstreamLocked.Message,
		},
		{
			name:       "invalid winner",
			err:        bracket.NewError(bracket.CodeInvalidWinner, "winner is not part of this match"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   bracket.CodeInvalidWinner,
			wantMsg:    "winner is not part of this match",
		},
		{
			name:       "storage conflict is retryable",
			err:        bracket.WrapError(bracket.CodeStorageConflict, "lock tournament", errors.New("database is locked")),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   bracket.CodeStorageConflict,
			wantMsg:    "lock tournament",
		},
		{
			name:       "storage failure hides the cause",
			err:        bracket.WrapError(bracket.CodeStorageFailure, "get matches", errors.New("disk I/O error")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   bracket.CodeStorageFailure,
			wantMsg:    http.StatusText(http.StatusInternalServerError),
		},
		{
			name:       "uncoded error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "Internal Server Error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, "request failed", tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body errorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body.Code)
			assert.Equal(t, tc.wantMsg, body.Error)
			assert.NotContains(t, body.Error, "disk I/O")
		})
	}
}
