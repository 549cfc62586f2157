package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/db"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const (
	tournamentColumns  = "id, owner_id, name, format, status, created_at"
	teamColumns        = "id, tournament_id, name, seed"
	participantColumns = "id, tournament_id, user_id, team_id, name, seed"
	matchColumns       = `id, tournament_id, round, bracket_type, match_number, team1_id, team2_id, winner_team_id,
		score1, score2, maps_data, status, next_match_id, loser_next_match_id, is_third_place_match, is_bye, created_at`
)

const (
	createTournamentQuery = `INSERT INTO tournaments (id, owner_id, name, format, status, created_at)
		VALUES (:id, :owner_id, :name, :format, :status, :created_at)`
	createTeamsQuery = `INSERT INTO teams (id, tournament_id, name, seed)
		VALUES (:id, :tournament_id, :name, :seed)`
	createParticipantsQuery = `INSERT INTO participants (id, tournament_id, user_id, team_id, name, seed)
		VALUES (:id, :tournament_id, :user_id, :team_id, :name, :seed)`
	createMatchesQuery = `INSERT INTO matches (id, tournament_id, round, bracket_type, match_number, team1_id, team2_id,
		winner_team_id, score1, score2, maps_data, status, next_match_id, loser_next_match_id, is_third_place_match, is_bye, created_at)
		VALUES (:id, :tournament_id, :round, :bracket_type, :match_number, :team1_id, :team2_id,
		:winner_team_id, :score1, :score2, :maps_data, :status, :next_match_id, :loser_next_match_id, :is_third_place_match, :is_bye, :created_at)`
	updateMatchQuery = `UPDATE matches SET
		team1_id = :team1_id,
		team2_id = :team2_id,
		winner_team_id = :winner_team_id,
		score1 = :score1,
		score2 = :score2,
		maps_data = :maps_data,
		status = :status,
		next_match_id = :next_match_id,
		loser_next_match_id = :loser_next_match_id
		WHERE id = :id`
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

// forUpdate appends a row lock where the driver supports one. SQLite
// transactions already hold the database write lock from BEGIN.
func (s *TournamentStore) forUpdate(query string) string {
	if s.db.DriverName() == db.DriverPostgres {
		return query + " FOR UPDATE"
	}
	return query
}

// BeginTx opens a transaction. Read-only transactions get a repeatable read
// snapshot on Postgres; SQLite transactions are serialized anyway.
func (s *TournamentStore) BeginTx(ctx context.Context, readOnly bool) (*sqlx.Tx, error) {
	var opts *sql.TxOptions
	if readOnly && s.db.DriverName() == db.DriverPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, classify("begin transaction", err)
	}
	return tx, nil
}

func (s *TournamentStore) Commit(tx *sqlx.Tx) error {
	return classify("commit", tx.Commit())
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	if tournament.CreatedAt.IsZero() {
		tournament.CreatedAt = time.Now().UTC()
	}
	_, err := tx.NamedExecContext(ctx, createTournamentQuery, tournament)
	return classify("create tournament", err)
}

func (s *TournamentStore) AddAdmin(ctx context.Context, tx *sqlx.Tx, tournamentID, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO tournament_admins (tournament_id, user_id) VALUES (?, ?)"), tournamentID, userID)
	return classify("add tournament admin", err)
}

func (s *TournamentStore) CreateTeams(ctx context.Context, tx *sqlx.Tx, teams []bracket.Team) error {
	if len(teams) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, createTeamsQuery, teams)
	return classify("create teams", err)
}

func (s *TournamentStore) CreateParticipants(ctx context.Context, tx *sqlx.Tx, participants []bracket.Participant) error {
	if len(participants) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, createParticipantsQuery, participants)
	return classify("create participants", err)
}

func (s *TournamentStore) CreateMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	if len(matches) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range matches {
		if matches[i].CreatedAt.IsZero() {
			matches[i].CreatedAt = now
		}
	}
	_, err := tx.NamedExecContext(ctx, createMatchesQuery, matches)
	return classify("create matches", err)
}

func (s *TournamentStore) UpdateMatch(ctx context.Context, tx *sqlx.Tx, match *bracket.Match) error {
	res, err := tx.NamedExecContext(ctx, updateMatchQuery, match)
	if err != nil {
		return classify("update match", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update match", err)
	}
	if n == 0 {
		return bracket.NewError(bracket.CodeNotFound, "match not found")
	}
	return nil
}

func (s *TournamentStore) UpdateTournamentStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status bracket.TournamentStatus) error {
	_, err := tx.ExecContext(ctx, tx.Rebind("UPDATE tournaments SET status = ? WHERE id = ?"), status, id)
	return classify("update tournament status", err)
}

// LockTournament reads the tournament row and holds its lock for the rest of tx.
func (s *TournamentStore) LockTournament(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	query := s.forUpdate("SELECT " + tournamentColumns + " FROM tournaments WHERE id = ?")
	if err := tx.GetContext(ctx, &tournament, tx.Rebind(query), id); err != nil {
		return nil, classify("lock tournament", err)
	}
	return &tournament, nil
}

// LockMatches reads every match of the tournament under lock.
func (s *TournamentStore) LockMatches(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	query := s.forUpdate("SELECT " + matchColumns + " FROM matches WHERE tournament_id = ? ORDER BY bracket_type, round, match_number")
	if err := tx.SelectContext(ctx, &matches, tx.Rebind(query), tournamentID); err != nil {
		return nil, classify("lock matches", err)
	}
	return matches, nil
}

// The read methods below run on q, which is either the pool or an open transaction.

func (s *TournamentStore) GetTournament(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*bracket.Tournament, error) {
	var tournament bracket.Tournament
	query := s.db.Rebind("SELECT " + tournamentColumns + " FROM tournaments WHERE id = ?")
	if err := sqlx.GetContext(ctx, q, &tournament, query, id); err != nil {
		return nil, classify("get tournament", err)
	}
	return &tournament, nil
}

func (s *TournamentStore) GetTournamentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]bracket.Tournament, error) {
	tournaments := []bracket.Tournament{}
	query := s.db.Rebind("SELECT " + tournamentColumns + " FROM tournaments WHERE owner_id = ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &tournaments, query, ownerID); err != nil {
		return nil, classify("list tournaments", err)
	}
	return tournaments, nil
}

func (s *TournamentStore) IsAdmin(ctx context.Context, q sqlx.QueryerContext, tournamentID, userID uuid.UUID) (bool, error) {
	var n int
	query := s.db.Rebind("SELECT COUNT(*) FROM tournament_admins WHERE tournament_id = ? AND user_id = ?")
	if err := sqlx.GetContext(ctx, q, &n, query, tournamentID, userID); err != nil {
		return false, classify("check tournament admin", err)
	}
	return n > 0, nil
}

func (s *TournamentStore) GetTeams(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Team, error) {
	teams := []bracket.Team{}
	query := s.db.Rebind("SELECT " + teamColumns + " FROM teams WHERE tournament_id = ? ORDER BY seed ASC, name ASC")
	if err := sqlx.SelectContext(ctx, q, &teams, query, tournamentID); err != nil {
		return nil, classify("get teams", err)
	}
	return teams, nil
}

func (s *TournamentStore) GetParticipants(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Participant, error) {
	participants := []bracket.Participant{}
	query := s.db.Rebind("SELECT " + participantColumns + " FROM participants WHERE tournament_id = ? ORDER BY seed ASC, name ASC")
	if err := sqlx.SelectContext(ctx, q, &participants, query, tournamentID); err != nil {
		return nil, classify("get participants", err)
	}
	return participants, nil
}

func (s *TournamentStore) GetMatch(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*bracket.Match, error) {
	var match bracket.Match
	query := s.db.Rebind("SELECT " + matchColumns + " FROM matches WHERE id = ?")
	if err := sqlx.GetContext(ctx, q, &match, query, id); err != nil {
		return nil, classify("get match", err)
	}
	return &match, nil
}

func (s *TournamentStore) GetMatches(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	matches := []bracket.Match{}
	query := s.db.Rebind("SELECT " + matchColumns + " FROM matches WHERE tournament_id = ? ORDER BY bracket_type, round, match_number")
	if err := sqlx.SelectContext(ctx, q, &matches, query, tournamentID); err != nil {
		return nil, classify("get matches", err)
	}
	return matches, nil
}

// GetSnapshot reads the full state of a tournament on q.
func (s *TournamentStore) GetSnapshot(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) (*bracket.Snapshot, error) {
	tournament, err := s.GetTournament(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	teams, err := s.GetTeams(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	participants, err := s.GetParticipants(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.GetMatches(ctx, q, tournamentID)
	if err != nil {
		return nil, err
	}
	return &bracket.Snapshot{
		Tournament:   *tournament,
		Teams:        teams,
		Participants: participants,
		Matches:      matches,
	}, nil
}
