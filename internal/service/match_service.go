package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/AdamBeresnev/op-bracket/internal/store"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/AdamBeresnev/op-bracket/internal/service"

// Notifier receives the committed state of a tournament after every accepted
// submission.
type Notifier interface {
	Notify(ctx context.Context, snapshot *bracket.Snapshot)
}

type MatchService struct {
	db       *sqlx.DB
	store    *store.TournamentStore
	notifier Notifier
	tracer   trace.Tracer

	maxAttempts   int
	submitTimeout time.Duration
}

type MatchServiceOption func(*MatchService)

// WithMaxAttempts bounds how often a submission is tried when it loses a
// storage conflict.
func WithMaxAttempts(n int) MatchServiceOption {
	return func(s *MatchService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithSubmitTimeout(d time.Duration) MatchServiceOption {
	return func(s *MatchService) {
		if d > 0 {
			s.submitTimeout = d
		}
	}
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, notifier Notifier, opts ...MatchServiceOption) *MatchService {
	s := &MatchService{
		db:            db,
		store:         store,
		notifier:      notifier,
		tracer:        otel.Tracer(tracerName),
		maxAttempts:   5,
		submitTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type SubmitResultInput struct {
	MatchID      uuid.UUID
	WinnerTeamID *uuid.UUID
	Score1       int
	Score2       int
	MapsData     bracket.MapsData
	CanEdit      bool
}

// SubmitMatchResult records a result and every bracket change it causes as
// one transaction, then hands the committed snapshot to the notifier.
// Storage conflicts are retried; every other error is returned as is and
// leaves the tournament unchanged.
func (s *MatchService) SubmitMatchResult(ctx context.Context, in SubmitResultInput) (*bracket.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "MatchService.SubmitMatchResult", trace.WithAttributes(
		attribute.String("match.id", in.MatchID.String()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.submitTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = time.Second

	attempts := 0
	snapshot, err := backoff.Retry(ctx, func() (*bracket.Snapshot, error) {
		attempts++
		snapshot, err := s.submitOnce(ctx, in)
		if err != nil && !bracket.CodeOf(err).Retryable() {
			return nil, backoff.Permanent(err)
		}
		return snapshot, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(s.maxAttempts)))
	span.SetAttributes(attribute.Int("submit.attempts", attempts))

	if err != nil {
		if bracket.CodeOf(err) == bracket.CodeUnknown {
			// Timeout or cancellation between attempts.
			err = bracket.WrapError(bracket.CodeStorageFailure, "submit match result", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, string(bracket.CodeOf(err)))
		if errors.Is(err, bracket.ErrBracketCorruption) {
			slog.Error("bracket corruption detected",
				"match_id", in.MatchID,
				"error", err,
				"operator_attention", true,
			)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("tournament.id", snapshot.Tournament.ID.String()))
	if s.notifier != nil {
		s.notifier.Notify(ctx, snapshot)
	}
	return snapshot, nil
}

func (s *MatchService) submitOnce(ctx context.Context, in SubmitResultInput) (*bracket.Snapshot, error) {
	tx, err := s.store.BeginTx(ctx, false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	match, err := s.store.GetMatch(ctx, tx, in.MatchID)
	if err != nil {
		return nil, err
	}
	tournament, err := s.store.LockTournament(ctx, tx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	matches, err := s.store.LockMatches(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}

	board := bracket.NewBoard(*tournament, matches)
	changes, err := board.Apply(bracket.Result{
		MatchID:      in.MatchID,
		WinnerTeamID: in.WinnerTeamID,
		Score1:       in.Score1,
		Score2:       in.Score2,
		MapsData:     in.MapsData,
	}, in.CanEdit)
	if err != nil {
		return nil, err
	}

	// Created loser matches must exist before updated rows link to them.
	if err := s.store.CreateMatches(ctx, tx, changes.Created); err != nil {
		return nil, err
	}
	for i := range changes.Updated {
		if err := s.store.UpdateMatch(ctx, tx, &changes.Updated[i]); err != nil {
			return nil, err
		}
	}
	snapshot, err := s.store.GetSnapshot(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Commit(tx); err != nil {
		return nil, err
	}

	slog.Info("match result recorded",
		"tournament_id", tournament.ID,
		"match_id", in.MatchID,
		"updated", len(changes.Updated),
		"created", len(changes.Created),
		"decided", changes.Decided,
	)
	return snapshot, nil
}
