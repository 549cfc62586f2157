package bracket

import "github.com/google/uuid"

// Team is the unit that occupies match slots. Solo formats give every
// participant a team of one.
type Team struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`
	Name         string    `db:"name" json:"name"`
	Seed         int       `db:"seed" json:"seed"`
}

type Participant struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TournamentID uuid.UUID  `db:"tournament_id" json:"tournament_id"`
	UserID       *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	TeamID       *uuid.UUID `db:"team_id" json:"team_id,omitempty"`
	Name         string     `db:"name" json:"name"`
	Seed         int        `db:"seed" json:"seed"`
}

// Snapshot is the full state of one tournament as handed to notifiers and API clients.
type Snapshot struct {
	Tournament   Tournament    `json:"tournament"`
	Teams        []Team        `json:"teams"`
	Participants []Participant `json:"participants"`
	Matches      []Match       `json:"matches"`
}
