package bracket

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchPending    MatchStatus = "pending"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

type BracketType string

const (
	WinnerBracket   BracketType = "winner"
	LoserBracket    BracketType = "loser"
	GrandFinal      BracketType = "grand_final"
	GrandFinalReset BracketType = "grand_final_reset"
	Placement       BracketType = "placement"
)

// PreliminaryRound is the play-in round played before main round 0.
const PreliminaryRound = -1

// MapsData is the ordered per-map result list of a match. The engine stores it
// as-is; it is kept as JSON text so every driver writes it to a TEXT column.
type MapsData json.RawMessage

func (d MapsData) Value() (driver.Value, error) {
	if len(d) == 0 {
		return "[]", nil
	}
	if !json.Valid(d) {
		return nil, fmt.Errorf("maps_data is not valid JSON")
	}
	return string(d), nil
}

func (d *MapsData) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = MapsData("[]")
	case string:
		*d = MapsData(v)
	case []byte:
		*d = append((*d)[0:0], v...)
	default:
		return fmt.Errorf("unsupported maps_data type %T", src)
	}
	return nil
}

func (d MapsData) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("[]"), nil
	}
	return json.RawMessage(d).MarshalJSON()
}

func (d *MapsData) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = nil
		return nil
	}
	*d = append((*d)[0:0], b...)
	return nil
}

type Match struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TournamentID uuid.UUID `db:"tournament_id" json:"tournament_id"`

	// Position in the bracket. Main winner rounds count from 0, loser rounds from 1.
	Round       int         `db:"round" json:"round"`
	BracketType BracketType `db:"bracket_type" json:"bracket_type"`
	MatchNumber int         `db:"match_number" json:"match_number"`

	Team1ID      *uuid.UUID `db:"team1_id" json:"team1_id"`
	Team2ID      *uuid.UUID `db:"team2_id" json:"team2_id"`
	WinnerTeamID *uuid.UUID `db:"winner_team_id" json:"winner_team_id"`

	Score1   int         `db:"score1" json:"score1"`
	Score2   int         `db:"score2" json:"score2"`
	MapsData MapsData    `db:"maps_data" json:"maps_data"`
	Status   MatchStatus `db:"status" json:"status"`

	NextMatchID      *uuid.UUID `db:"next_match_id" json:"next_match_id"`
	LoserNextMatchID *uuid.UUID `db:"loser_next_match_id" json:"loser_next_match_id"`

	IsThirdPlaceMatch bool `db:"is_third_place_match" json:"is_third_place_match"`
	IsBye             bool `db:"is_bye" json:"is_bye"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

func (m *Match) HasTeam(teamID uuid.UUID) bool {
	return sameTeam(m.Team1ID, &teamID) || sameTeam(m.Team2ID, &teamID)
}

func (m *Match) HasOpenSlot() bool {
	return m.Team1ID == nil || m.Team2ID == nil
}

func (m *Match) Decided() bool {
	return m.Status == MatchCompleted && m.WinnerTeamID != nil
}

// LoserTeamID returns the team that did not win, or nil when the match is
// undecided or the other slot was empty.
func (m *Match) LoserTeamID() *uuid.UUID {
	if m.WinnerTeamID == nil {
		return nil
	}
	switch {
	case sameTeam(m.WinnerTeamID, m.Team1ID):
		return m.Team2ID
	case sameTeam(m.WinnerTeamID, m.Team2ID):
		return m.Team1ID
	}
	return nil
}

func sameTeam(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
