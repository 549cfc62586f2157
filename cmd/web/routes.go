package main

import (
	"net/http"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/config"
	"github.com/AdamBeresnev/op-bracket/internal/httputil"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/realtime"
	"github.com/AdamBeresnev/op-bracket/internal/service"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
)

type application struct {
	cfg            *config.Config
	db             *sqlx.DB
	sessionManager *scs.SessionManager
	hub            *realtime.Hub

	userStore   *store.UserStore
	tournaments *service.TournamentService
	matches     *service.MatchService
	standings   *service.StandingsService
	users       *service.UserService
}

func newApplication(cfg *config.Config, database *sqlx.DB, sessionManager *scs.SessionManager, hub *realtime.Hub) *application {
	tournamentStore := store.NewTournamentStore(database)
	userStore := store.NewUserStore(database)

	return &application{
		cfg:            cfg,
		db:             database,
		sessionManager: sessionManager,
		hub:            hub,
		userStore:      userStore,
		tournaments:    service.NewTournamentService(database, tournamentStore),
		matches: service.NewMatchService(database, tournamentStore, hub,
			service.WithMaxAttempts(cfg.SubmitMaxAttempts),
			service.WithSubmitTimeout(cfg.SubmitTimeout),
		),
		standings: service.NewStandingsService(tournamentStore),
		users:     service.NewUserService(database, userStore),
	}
}

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", app.healthz)
	// Subscriptions are public and must reach the upgrader unbuffered.
	r.Get("/ws/tournaments/{id}", realtime.NewHandler(app.hub, app.cfg.AllowedOrigins).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(app.sessionManager.LoadAndSave)
		r.Use(middleware.LoadAuthenticatedUser(app.sessionManager, app.userStore))

		r.Get("/tournaments/{id}", app.getTournament)
		r.Get("/tournaments/{id}/standings", app.getStandings)

		r.Get("/auth/{provider}", app.beginAuth)
		r.Get("/auth/{provider}/callback", app.completeAuth)
		r.Post("/auth/guest", app.guestLogin)
		r.Post("/logout", app.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)

			r.Get("/me", app.me)
			r.Get("/tournaments", app.listTournaments)
			r.Post("/tournaments", app.createTournament)
			r.Post("/tournaments/{id}/complete", app.completeTournament)
			r.Post("/matches/{id}/result", app.submitResult)
		})
	})

	return r
}

func urlID(w http.ResponseWriter, r *http.Request, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "Invalid "+what+" ID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (app *application) healthz(w http.ResponseWriter, r *http.Request) {
	if err := app.db.PingContext(r.Context()); err != nil {
		httputil.Error(w, "Database unavailable", bracket.WrapError(bracket.CodeStorageFailure, "ping database", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (app *application) me(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, middleware.GetAuthenticatedUser(r.Context()))
}

func (app *application) listTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := app.tournaments.GetTournamentsForUser(r.Context())
	if err != nil {
		httputil.Error(w, "Failed to get tournaments", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tournaments)
}

func (app *application) createTournament(w http.ResponseWriter, r *http.Request) {
	var input service.CreateTournamentInput
	if err := httputil.ReadJSON(w, r, &input); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}

	id, err := app.tournaments.CreateTournament(r.Context(), input)
	if err != nil {
		httputil.Error(w, "Failed to create tournament", err)
		return
	}

	snapshot, err := app.tournaments.GetSnapshot(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get tournament", err)
		return
	}
	w.Header().Set("Location", "/tournaments/"+id.String())
	httputil.WriteJSON(w, http.StatusCreated, snapshot)
}

func (app *application) getTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "tournament")
	if !ok {
		return
	}

	snapshot, err := app.tournaments.GetSnapshot(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get tournament", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

func (app *application) completeTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "tournament")
	if !ok {
		return
	}

	snapshot, err := app.tournaments.CompleteTournament(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to complete tournament", err)
		return
	}
	app.hub.Notify(r.Context(), snapshot)
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

func (app *application) getStandings(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r, "tournament")
	if !ok {
		return
	}

	standings, err := app.standings.GetStandings(r.Context(), id)
	if err != nil {
		httputil.Error(w, "Failed to get standings", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, standings)
}

type submitResultRequest struct {
	WinnerTeamID *uuid.UUID      `json:"winner_team_id"`
	Score1       int              `json:"score1"`
	Score2       int              `json:"score2"`
	MapsData     bracket.MapsData `json:"maps_data,omitempty"`
}

func (app *application) submitResult(w http.ResponseWriter, r *http.Request) {
	matchID, ok := urlID(w, r, "match")
	if !ok {
		return
	}

	var req submitResultRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error(), err)
		return
	}
	if req.Score1 < 0 || req.Score2 < 0 {
		httputil.BadRequest(w, "Scores must not be negative", nil)
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	canEdit, err := app.tournaments.CanEditMatch(r.Context(), matchID, userID)
	if err != nil {
		httputil.Error(w, "Failed to check permissions", err)
		return
	}

	snapshot, err := app.matches.SubmitMatchResult(r.Context(), service.SubmitResultInput{
		MatchID:      matchID,
		WinnerTeamID: req.WinnerTeamID,
		Score1:       req.Score1,
		Score2:       req.Score2,
		MapsData:     req.MapsData,
		CanEdit:      canEdit,
	})
	if err != nil {
		httputil.Error(w, "Failed to submit match result", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snapshot)
}

func (app *application) beginAuth(w http.ResponseWriter, r *http.Request) {
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))
	gothic.BeginAuthHandler(w, r)
}

func (app *application) completeAuth(w http.ResponseWriter, r *http.Request) {
	r = gothic.GetContextWithProvider(r, chi.URLParam(r, "provider"))

	gothUser, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		httputil.BadRequest(w, "Authentication failure", err)
		return
	}

	user, err := app.users.FindOrCreateUserByProvider(r.Context(), gothUser)
	if err != nil {
		httputil.Error(w, "Failed to find or create user", err)
		return
	}

	if err := app.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	app.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())

	http.Redirect(w, r, "/", http.StatusFound)
}

func (app *application) guestLogin(w http.ResponseWriter, r *http.Request) {
	user, err := app.users.EnsureGuestUser(r.Context())
	if err != nil {
		httputil.Error(w, "Failed to login as guest", err)
		return
	}

	if err := app.sessionManager.RenewToken(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to renew session", err)
		return
	}
	app.sessionManager.Put(r.Context(), middleware.SessionUserKey, user.ID.String())
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (app *application) logout(w http.ResponseWriter, r *http.Request) {
	if err := app.sessionManager.Destroy(r.Context()); err != nil {
		httputil.InternalServerError(w, "Failed to end session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
