package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentActive       TournamentStatus = "active"
	TournamentInProgress   TournamentStatus = "in_progress"
	TournamentCompleted    TournamentStatus = "completed"
)

// AcceptsResults reports whether match results may be recorded.
func (s TournamentStatus) AcceptsResults() bool {
	return s == TournamentActive || s == TournamentInProgress
}

type Format string

const (
	SingleElimination Format = "single_elimination"
	DoubleElimination Format = "double_elimination"
	Mix               Format = "mix"
)

func (f Format) Valid() bool {
	switch f {
	case SingleElimination, DoubleElimination, Mix:
		return true
	}
	return false
}

type Tournament struct {
	ID        uuid.UUID        `db:"id" json:"id"`
	OwnerID   uuid.UUID        `db:"owner_id" json:"owner_id"`
	Name      string           `db:"name" json:"name"`
	Format    Format           `db:"format" json:"format"`
	Status    TournamentStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
