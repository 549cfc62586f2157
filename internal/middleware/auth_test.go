package middleware

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/db"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	users "github.com/AdamBeresnev/op-bracket/internal/user"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	database, err := db.Open(db.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	sessionManager := scs.New()
	r := chi.NewRouter()
	r.Use(sessionManager.LoadAndSave)
	r.Use(LoadAuthenticatedUser(sessionManager, store.NewUserStore(database)))

	r.Post("/login/{id}", func(w http.ResponseWriter, r *http.Request) {
		sessionManager.Put(r.Context(), SessionUserKey, chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	})
	r.With(RequireAuth).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		userID, _ := GetUserIDFromContext(r.Context())
		user := GetAuthenticatedUser(r.Context())
		if user == nil || user.ID != userID {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(user.Username))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	srv := newTestServer(t)

	resp, err := newClient(t).Get(srv.URL + "/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestSessionUserIsLoaded(t *testing.T) {
	srv := newTestServer(t)
	client := newClient(t)

	resp, err := client.Post(srv.URL+"/login/"+users.GuestID.String(), "", nil)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/me")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownSessionUserIsAnonymous(t *testing.T) {
	testCases := []struct {
		name   string
		userID string
	}{
		{name: "malformed id", userID: "not-a-uuid"},
		{name: "deleted user", userID: uuid.NewString()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t)
			client := newClient(t)

			resp, err := client.Post(srv.URL+"/login/"+tc.userID, "", nil)
			require.NoError(t, err)
			resp.Body.Close()

			resp, err = client.Get(srv.URL + "/me")
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}
