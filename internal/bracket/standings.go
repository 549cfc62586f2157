package bracket

import (
	"sort"

	"github.com/google/uuid"
)

// Standing is one ranked unit: a participant in elimination formats, a team in mix.
type Standing struct {
	Place            int        `json:"place"`
	ParticipantID    *uuid.UUID `json:"participant_id,omitempty"`
	TeamID           *uuid.UUID `json:"team_id,omitempty"`
	Name             string     `json:"name"`
	Seed             int        `json:"seed"`
	Wins             int        `json:"wins"`
	Losses           int        `json:"losses"`
	EliminationRound *int       `json:"elimination_round"`
}

type record struct {
	wins, losses int
	elimination  *int
}

// ComputeStandings ranks every unit of the tournament from its matches.
func ComputeStandings(t Tournament, teams []Team, participants []Participant, matches []Match) []Standing {
	records := make(map[uuid.UUID]*record)
	get := func(id uuid.UUID) *record {
		r, ok := records[id]
		if !ok {
			r = &record{}
			records[id] = r
		}
		return r
	}

	for i := range matches {
		m := &matches[i]
		if !m.Decided() || m.IsBye {
			continue
		}
		get(*m.WinnerTeamID).wins++
		if loser := m.LoserTeamID(); loser != nil {
			r := get(*loser)
			r.losses++
			if r.elimination == nil || m.Round > *r.elimination {
				round := m.Round
				r.elimination = &round
			}
		}
	}

	var rows []*Standing
	if t.Format == Mix {
		for _, team := range teams {
			id := team.ID
			rows = append(rows, &Standing{TeamID: &id, Name: team.Name, Seed: team.Seed})
		}
	} else {
		for _, p := range participants {
			id := p.ID
			rows = append(rows, &Standing{ParticipantID: &id, TeamID: copyID(p.TeamID), Name: p.Name, Seed: p.Seed})
		}
	}
	for _, row := range rows {
		if row.TeamID == nil {
			continue
		}
		if r, ok := records[*row.TeamID]; ok {
			row.Wins = r.wins
			row.Losses = r.losses
			row.EliminationRound = r.elimination
		}
	}

	switch t.Format {
	case SingleElimination:
		placeSingleElimination(rows, matches)
	case DoubleElimination:
		placeDoubleElimination(rows, matches)
	default:
		placeByRecord(rows)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Place != rows[j].Place {
			return rows[i].Place < rows[j].Place
		}
		return bySeed(rows[i], rows[j])
	})

	out := make([]Standing, len(rows))
	for i, row := range rows {
		out[i] = *row
	}
	return out
}

func placeSingleElimination(rows []*Standing, matches []Match) {
	next := 1
	if final := lastWinnerMatch(matches); final != nil && final.Decided() {
		next = podium(rows, next, final)
	}
	for i := range matches {
		if m := &matches[i]; m.IsThirdPlaceMatch && m.Decided() {
			next = podium(rows, next, m)
		}
	}
	placeByElimination(rows, next)
}

func placeDoubleElimination(rows []*Standing, matches []Match) {
	var gf, reset *Match
	for i := range matches {
		switch matches[i].BracketType {
		case GrandFinal:
			gf = &matches[i]
		case GrandFinalReset:
			reset = &matches[i]
		}
	}

	next := 1
	switch {
	case reset != nil && reset.Decided():
		next = podium(rows, next, reset)
	case gf != nil && gf.Decided():
		next = podium(rows, next, gf)
	}
	if lf := loserFinal(matches, gf); lf != nil && lf.Decided() {
		next += assign(rows, lf.LoserTeamID(), next)
	}
	placeByElimination(rows, next)
}

// podium assigns the winner and loser of m and returns the next free place.
func podium(rows []*Standing, place int, m *Match) int {
	place += assign(rows, m.WinnerTeamID, place)
	place += assign(rows, m.LoserTeamID(), place)
	return place
}

// assign gives place to every unplaced row of team and returns how many got it.
func assign(rows []*Standing, team *uuid.UUID, place int) int {
	if team == nil {
		return 0
	}
	n := 0
	for _, row := range rows {
		if row.Place == 0 && sameTeam(row.TeamID, team) {
			row.Place = place
			n++
		}
	}
	return n
}

// placeByElimination ranks the unplaced rows starting at place. Rows that are
// still alive come first, then later eliminations before earlier ones. Rows
// eliminated in the same round share a place.
func placeByElimination(rows []*Standing, place int) {
	var rest []*Standing
	for _, row := range rows {
		if row.Place == 0 {
			rest = append(rest, row)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		if c := compareElimination(rest[i].EliminationRound, rest[j].EliminationRound); c != 0 {
			return c < 0
		}
		return bySeed(rest[i], rest[j])
	})

	for i := 0; i < len(rest); {
		j := i
		for j < len(rest) && compareElimination(rest[i].EliminationRound, rest[j].EliminationRound) == 0 {
			rest[j].Place = place
			j++
		}
		place += j - i
		i = j
	}
}

func placeByRecord(rows []*Standing) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Losses != b.Losses {
			return a.Losses < b.Losses
		}
		if c := compareElimination(a.EliminationRound, b.EliminationRound); c != 0 {
			return c < 0
		}
		return bySeed(a, b)
	})
	for i, row := range rows {
		row.Place = i + 1
	}
}

// compareElimination orders nil (never eliminated) first, then higher rounds.
func compareElimination(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return -1
	case *a < *b:
		return 1
	}
	return 0
}

func bySeed(a, b *Standing) bool {
	if a.Seed != b.Seed {
		return a.Seed < b.Seed
	}
	return a.Name < b.Name
}

func lastWinnerMatch(matches []Match) *Match {
	var final *Match
	for i := range matches {
		m := &matches[i]
		if m.BracketType != WinnerBracket || m.IsThirdPlaceMatch {
			continue
		}
		if final == nil || m.Round > final.Round {
			final = m
		}
	}
	return final
}

// loserFinal is the highest loser-bracket round match, preferring the one
// that feeds the grand final.
func loserFinal(matches []Match, gf *Match) *Match {
	var lf *Match
	for i := range matches {
		m := &matches[i]
		if m.BracketType != LoserBracket || m.IsThirdPlaceMatch {
			continue
		}
		if gf != nil && m.NextMatchID != nil && *m.NextMatchID == gf.ID {
			return m
		}
		if lf == nil || m.Round > lf.Round || (m.Round == lf.Round && m.MatchNumber < lf.MatchNumber) {
			lf = m
		}
	}
	return lf
}

// Decided reports whether the bracket has produced its final placements.
func Decided(format Format, matches []Match) bool {
	switch format {
	case SingleElimination:
		final := lastWinnerMatch(matches)
		if final == nil || !final.Decided() {
			return false
		}
		for i := range matches {
			if matches[i].IsThirdPlaceMatch && !matches[i].Decided() {
				return false
			}
		}
		return true

	case DoubleElimination:
		var gf, reset *Match
		for i := range matches {
			switch matches[i].BracketType {
			case GrandFinal:
				gf = &matches[i]
			case GrandFinalReset:
				reset = &matches[i]
			}
		}
		if reset != nil && reset.Decided() {
			return true
		}
		if gf == nil || !gf.Decided() {
			return false
		}
		if reset == nil {
			return true
		}
		champion := *gf.WinnerTeamID
		for i := range matches {
			m := &matches[i]
			if m.ID != gf.ID && m.Decided() && m.HasTeam(champion) && !sameTeam(m.WinnerTeamID, &champion) {
				return false
			}
		}
		return true
	}

	if len(matches) == 0 {
		return false
	}
	for i := range matches {
		if !matches[i].Decided() && !matches[i].IsBye {
			return false
		}
	}
	return true
}
