package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/middleware"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const maxNameLength = 50

type TournamentService struct {
	db    *sqlx.DB
	store *store.TournamentStore
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore) *TournamentService {
	return &TournamentService{db: db, store: store}
}

// EntryInput is one seeded entrant. In mix tournaments it is a team and
// Members lists its players; otherwise it is a single player.
type EntryInput struct {
	Name    string     `json:"name"`
	UserID  *uuid.UUID `json:"user_id,omitempty"`
	Members []string   `json:"members,omitempty"`
}

type CreateTournamentInput struct {
	Name            string         `json:"name"`
	Format          bracket.Format `json:"format"`
	Entries         []EntryInput   `json:"entries"`
	ThirdPlaceMatch bool           `json:"third_place_match"`
}

func (in CreateTournamentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return bracket.NewError(bracket.CodeInvalidInput, "tournament name is required")
	}
	if !in.Format.Valid() {
		return bracket.NewError(bracket.CodeInvalidInput, fmt.Sprintf("unknown format %q", in.Format))
	}
	if len(in.Entries) < 2 {
		return bracket.NewError(bracket.CodeInvalidInput, "at least two entries are required")
	}
	// Loser-bracket rounds only pair evenly at these sizes.
	if in.Format == bracket.DoubleElimination && len(in.Entries) != 4 && len(in.Entries) != 8 {
		return bracket.NewError(bracket.CodeInvalidInput, "double elimination needs exactly 4 or 8 entries")
	}
	for _, e := range in.Entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return bracket.NewError(bracket.CodeInvalidInput, "entry name is required")
		}
		if len(name) > maxNameLength {
			return bracket.NewError(bracket.CodeInvalidInput, fmt.Sprintf("entry name '%s' exceeds %d characters", name, maxNameLength))
		}
	}
	return nil
}

// CreateTournament stores a tournament, its entrants and its bracket in one
// transaction and starts it.
func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (uuid.UUID, error) {
	ownerID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, bracket.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return uuid.Nil, err
	}

	tx, err := s.store.BeginTx(ctx, false)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback()

	tournament := bracket.Tournament{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(in.Name),
		Format:    in.Format,
		Status:    bracket.TournamentInProgress,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateTournament(ctx, tx, &tournament); err != nil {
		return uuid.Nil, err
	}
	if err := s.store.AddAdmin(ctx, tx, tournament.ID, ownerID); err != nil {
		return uuid.Nil, err
	}

	teams, participants := buildEntrants(tournament, in.Entries)
	if err := s.store.CreateTeams(ctx, tx, teams); err != nil {
		return uuid.Nil, err
	}
	if err := s.store.CreateParticipants(ctx, tx, participants); err != nil {
		return uuid.Nil, err
	}

	matches := generateBracket(tournament.ID, tournament.Format, teams, in.ThirdPlaceMatch)
	if err := s.store.CreateMatches(ctx, tx, matches); err != nil {
		return uuid.Nil, err
	}

	return tournament.ID, s.store.Commit(tx)
}

// buildEntrants gives every entry a team. Solo formats get one participant per
// team; mix teams get one participant per member.
func buildEntrants(t bracket.Tournament, entries []EntryInput) ([]bracket.Team, []bracket.Participant) {
	teams := make([]bracket.Team, 0, len(entries))
	var participants []bracket.Participant

	for i, e := range entries {
		team := bracket.Team{
			ID:           uuid.New(),
			TournamentID: t.ID,
			Name:         strings.TrimSpace(e.Name),
			Seed:         i + 1,
		}
		teams = append(teams, team)
		teamID := team.ID

		if t.Format != bracket.Mix {
			participants = append(participants, bracket.Participant{
				ID:           uuid.New(),
				TournamentID: t.ID,
				UserID:       e.UserID,
				TeamID:       &teamID,
				Name:         team.Name,
				Seed:         team.Seed,
			})
			continue
		}
		for _, member := range e.Members {
			if member = strings.TrimSpace(member); member == "" {
				continue
			}
			participants = append(participants, bracket.Participant{
				ID:           uuid.New(),
				TournamentID: t.ID,
				TeamID:       &teamID,
				Name:         member,
				Seed:         team.Seed,
			})
		}
	}
	return teams, participants
}

func (s *TournamentService) GetSnapshot(ctx context.Context, id uuid.UUID) (*bracket.Snapshot, error) {
	return s.store.GetSnapshot(ctx, s.db, id)
}

func (s *TournamentService) GetTournamentsForUser(ctx context.Context) ([]bracket.Tournament, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("user ID not found in the context")
	}
	return s.store.GetTournamentsByOwner(ctx, userID)
}

// CompleteTournament closes a tournament whose bracket has its final result.
// Only the owner and admins may close it.
func (s *TournamentService) CompleteTournament(ctx context.Context, tournamentID uuid.UUID) (*bracket.Snapshot, error) {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok {
		return nil, bracket.ErrUnauthorized
	}

	tx, err := s.store.BeginTx(ctx, false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	tournament, err := s.store.LockTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.OwnerID != userID {
		isAdmin, err := s.store.IsAdmin(ctx, tx, tournamentID, userID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, bracket.ErrUnauthorized
		}
	}
	if !tournament.Status.AcceptsResults() {
		return nil, bracket.NewError(bracket.CodeInvalidState, fmt.Sprintf("tournament is %s", tournament.Status))
	}

	matches, err := s.store.LockMatches(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !bracket.Decided(tournament.Format, matches) {
		return nil, bracket.NewError(bracket.CodeInvalidState, "bracket has no final result yet")
	}

	if err := s.store.UpdateTournamentStatus(ctx, tx, tournamentID, bracket.TournamentCompleted); err != nil {
		return nil, err
	}
	snapshot, err := s.store.GetSnapshot(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Commit(tx); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// CanEdit reports whether the user owns or administers the tournament.
func (s *TournamentService) CanEdit(ctx context.Context, tournamentID, userID uuid.UUID) (bool, error) {
	tournament, err := s.store.GetTournament(ctx, s.db, tournamentID)
	if err != nil {
		return false, err
	}
	if tournament.OwnerID == userID {
		return true, nil
	}
	return s.store.IsAdmin(ctx, s.db, tournamentID, userID)
}

// CanEditMatch is CanEdit for the tournament the match belongs to. An
// unknown match yields false so the submission reports it as not found.
func (s *TournamentService) CanEditMatch(ctx context.Context, matchID, userID uuid.UUID) (bool, error) {
	match, err := s.store.GetMatch(ctx, s.db, matchID)
	if err != nil {
		if bracket.CodeOf(err) == bracket.CodeNotFound {
			return false, nil
		}
		return false, err
	}
	return s.CanEdit(ctx, match.TournamentID, userID)
}
