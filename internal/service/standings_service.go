package service

import (
	"context"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type StandingsService struct {
	store  *store.TournamentStore
	tracer trace.Tracer
}

func NewStandingsService(store *store.TournamentStore) *StandingsService {
	return &StandingsService{store: store, tracer: otel.Tracer(tracerName)}
}

// GetStandings ranks every team of the tournament from one consistent read.
func (s *StandingsService) GetStandings(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Standing, error) {
	ctx, span := s.tracer.Start(ctx, "StandingsService.GetStandings", trace.WithAttributes(
		attribute.String("tournament.id", tournamentID.String()),
	))
	defer span.End()

	standings, err := s.getStandings(ctx, tournamentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(bracket.CodeOf(err)))
		return nil, err
	}
	return standings, nil
}

func (s *StandingsService) getStandings(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Standing, error) {
	tx, err := s.store.BeginTx(ctx, true)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	snapshot, err := s.store.GetSnapshot(ctx, tx, tournamentID)
	if err != nil {
		return nil, err
	}
	return bracket.ComputeStandings(snapshot.Tournament, snapshot.Teams, snapshot.Participants, snapshot.Matches), nil
}
