package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

// Result is a match result as submitted by an editor.
type Result struct {
	MatchID      uuid.UUID
	WinnerTeamID *uuid.UUID
	Score1       int
	Score2       int
	MapsData     MapsData
}

// Changes lists the rows one Apply call touched. Created matches must be
// inserted before Updated ones are written. Decided is set once the bracket
// has its final result; the tournament status is left to its admins.
type Changes struct {
	Updated []Match
	Created []Match
	Decided bool
}

// Board holds every match of one tournament, read under lock, and plans the
// writes a result causes. A Board whose Apply returned an error must be
// discarded.
type Board struct {
	tournament Tournament
	matches    []*Match
	byID       map[uuid.UUID]*Match

	order   []uuid.UUID
	touched map[uuid.UUID]bool
	created map[uuid.UUID]bool

	// NewID generates ids for matches created in the loser bracket.
	NewID func() uuid.UUID
}

func NewBoard(t Tournament, matches []Match) *Board {
	b := &Board{
		tournament: t,
		byID:       make(map[uuid.UUID]*Match, len(matches)),
		NewID:      uuid.New,
	}
	for i := range matches {
		m := matches[i]
		b.add(&m)
	}
	return b
}

func (b *Board) Tournament() Tournament {
	return b.tournament
}

func (b *Board) Match(id uuid.UUID) *Match {
	return b.byID[id]
}

// Matches returns a copy of the current match set in load order.
func (b *Board) Matches() []Match {
	out := make([]Match, 0, len(b.matches))
	for _, m := range b.matches {
		out = append(out, *m)
	}
	return out
}

// Downstream returns the matches linked from m that a result change would affect.
func (b *Board) Downstream(m *Match) []*Match {
	var out []*Match
	if m.NextMatchID != nil {
		out = append(out, b.byID[*m.NextMatchID])
	}
	if m.LoserNextMatchID != nil {
		out = append(out, b.byID[*m.LoserNextMatchID])
	}
	return out
}

// Apply validates r and advances the bracket.
func (b *Board) Apply(r Result, canEdit bool) (*Changes, error) {
	b.order = nil
	b.touched = make(map[uuid.UUID]bool)
	b.created = make(map[uuid.UUID]bool)

	m := b.byID[r.MatchID]
	if m == nil {
		return nil, NewError(CodeNotFound, "match not found")
	}

	proposal := Proposal{WinnerTeamID: r.WinnerTeamID, Score1: r.Score1, Score2: r.Score2}
	if err := Validate(&b.tournament, m, b.Downstream(m), proposal, canEdit); err != nil {
		return nil, err
	}

	if m.WinnerTeamID != nil && !sameTeam(m.WinnerTeamID, r.WinnerTeamID) {
		if err := b.retract(m); err != nil {
			return nil, err
		}
	}

	m.WinnerTeamID = copyID(r.WinnerTeamID)
	m.Score1 = r.Score1
	m.Score2 = r.Score2
	if len(r.MapsData) > 0 {
		m.MapsData = r.MapsData
	}
	m.Status = MatchInProgress
	if m.WinnerTeamID != nil {
		m.Status = MatchCompleted
	}
	b.touch(m)

	if m.WinnerTeamID != nil {
		if err := b.advanceWinner(m); err != nil {
			return nil, err
		}
		if err := b.routeLoser(m); err != nil {
			return nil, err
		}
	}

	changes := &Changes{Decided: b.decided()}
	for _, id := range b.order {
		if b.created[id] {
			changes.Created = append(changes.Created, *b.byID[id])
		} else {
			changes.Updated = append(changes.Updated, *b.byID[id])
		}
	}
	return changes, nil
}

// retract takes the teams advanced by m's previous result back out of the
// downstream slots they were placed in.
func (b *Board) retract(m *Match) error {
	prevWinner := *m.WinnerTeamID
	prevLoser := m.LoserTeamID()

	if m.NextMatchID != nil {
		next, err := b.linked(m, *m.NextMatchID)
		if err != nil {
			return err
		}
		b.vacate(next, prevWinner)
		if m.BracketType == GrandFinal && prevLoser != nil {
			b.vacate(next, *prevLoser)
		}
	}
	if m.LoserNextMatchID != nil && prevLoser != nil {
		lm, err := b.linked(m, *m.LoserNextMatchID)
		if err != nil {
			return err
		}
		b.vacate(lm, *prevLoser)
	}
	return nil
}

func (b *Board) advanceWinner(m *Match) error {
	winner := *m.WinnerTeamID

	if m.BracketType == GrandFinal {
		// The winner-bracket champion takes the title without a reset.
		if !b.lostOutside(winner, m.ID) || m.NextMatchID == nil {
			return nil
		}
		reset, err := b.linked(m, *m.NextMatchID)
		if err != nil {
			return err
		}
		if err := b.place(reset, winner); err != nil {
			return err
		}
		if loser := m.LoserTeamID(); loser != nil {
			return b.place(reset, *loser)
		}
		return nil
	}

	if m.NextMatchID != nil {
		next, err := b.linked(m, *m.NextMatchID)
		if err != nil {
			return err
		}
		return b.place(next, winner)
	}

	if b.tournament.Format != DoubleElimination || m.BracketType != LoserBracket || m.IsThirdPlaceMatch {
		return nil
	}

	var target *Match
	if m.Round >= b.totalLoserRounds() {
		target = b.first(func(x *Match) bool { return x.BracketType == GrandFinal })
	} else {
		target = b.findOrCreateLoserMatch(m.Round+1, winner)
	}
	if target == nil {
		return nil
	}
	if err := b.place(target, winner); err != nil {
		return err
	}
	m.NextMatchID = copyID(&target.ID)
	return nil
}

func (b *Board) routeLoser(m *Match) error {
	loser := m.LoserTeamID()
	if loser == nil {
		return nil
	}

	if m.LoserNextMatchID != nil {
		lm, err := b.linked(m, *m.LoserNextMatchID)
		if err != nil {
			return err
		}
		return b.place(lm, *loser)
	}

	// Anywhere else a loss eliminates.
	if b.tournament.Format != DoubleElimination || m.BracketType != WinnerBracket || m.IsThirdPlaceMatch {
		return nil
	}

	target := b.findOrCreateLoserMatch(b.targetLoserRound(m), *loser)
	if err := b.place(target, *loser); err != nil {
		return err
	}
	m.LoserNextMatchID = copyID(&target.ID)
	return nil
}

// targetLoserRound is the loser-bracket round a loser of winner-bracket match m drops into.
func (b *Board) targetLoserRound(m *Match) int {
	switch {
	case m.Round == PreliminaryRound:
		return 1
	case m.Round == b.totalWinnerRounds()-1:
		return b.totalLoserRounds()
	}
	return m.Round + 1
}

func (b *Board) totalWinnerRounds() int {
	total := 0
	for _, m := range b.matches {
		if m.BracketType == WinnerBracket && !m.IsThirdPlaceMatch && m.Round+1 > total {
			total = m.Round + 1
		}
	}
	return total
}

// totalLoserRounds never shrinks below the standard loser-bracket depth, so
// early on-demand matches do not pull the winner-final drop-in forward.
func (b *Board) totalLoserRounds() int {
	total := 2 * (b.totalWinnerRounds() - 1)
	for _, m := range b.matches {
		if m.BracketType == LoserBracket && !m.IsThirdPlaceMatch && m.Round > total {
			total = m.Round
		}
	}
	if total < 1 {
		total = 1
	}
	return total
}

// findOrCreateLoserMatch returns the loser match in round that already holds
// team, else the first open one team has not been paired into, else a new one.
func (b *Board) findOrCreateLoserMatch(round int, team uuid.UUID) *Match {
	var open *Match
	highest := 0
	for _, x := range b.matches {
		if x.BracketType != LoserBracket || x.Round != round || x.IsThirdPlaceMatch {
			continue
		}
		if x.MatchNumber > highest {
			highest = x.MatchNumber
		}
		if x.HasTeam(team) && x.WinnerTeamID == nil {
			return x
		}
		if x.WinnerTeamID != nil || !x.HasOpenSlot() || x.HasTeam(team) {
			continue
		}
		if open == nil || x.MatchNumber < open.MatchNumber {
			open = x
		}
	}
	if open != nil {
		return open
	}

	nm := &Match{
		ID:           b.NewID(),
		TournamentID: b.tournament.ID,
		Round:        round,
		BracketType:  LoserBracket,
		MatchNumber:  highest + 1,
		MapsData:     MapsData("[]"),
		Status:       MatchPending,
	}
	b.add(nm)
	b.created[nm.ID] = true
	return nm
}

// place puts team into the first empty slot of target. A team already in
// target is left where it is.
func (b *Board) place(target *Match, team uuid.UUID) error {
	if target.HasTeam(team) {
		return nil
	}
	if target.WinnerTeamID != nil {
		return NewError(CodeBracketCorruption, fmt.Sprintf("match %s is decided but still receiving team %s", target.ID, team))
	}
	switch {
	case target.Team1ID == nil:
		target.Team1ID = copyID(&team)
	case target.Team2ID == nil:
		target.Team2ID = copyID(&team)
	default:
		return NewError(CodeBracketCorruption, fmt.Sprintf("match %s has no open slot for team %s", target.ID, team))
	}
	b.touch(target)
	return nil
}

func (b *Board) vacate(target *Match, team uuid.UUID) {
	switch {
	case sameTeam(target.Team1ID, &team):
		target.Team1ID = nil
	case sameTeam(target.Team2ID, &team):
		target.Team2ID = nil
	default:
		return
	}
	b.touch(target)
}

func (b *Board) linked(from *Match, id uuid.UUID) (*Match, error) {
	m := b.byID[id]
	if m == nil {
		return nil, NewError(CodeBracketCorruption, fmt.Sprintf("match %s links to missing match %s", from.ID, id))
	}
	return m, nil
}

// lostOutside reports whether team lost a decided match other than exclude.
func (b *Board) lostOutside(team uuid.UUID, exclude uuid.UUID) bool {
	for _, m := range b.matches {
		if m.ID == exclude || !m.Decided() || !m.HasTeam(team) {
			continue
		}
		if !sameTeam(m.WinnerTeamID, &team) {
			return true
		}
	}
	return false
}

func (b *Board) decided() bool {
	return Decided(b.tournament.Format, b.Matches())
}

func (b *Board) first(pred func(*Match) bool) *Match {
	for _, m := range b.matches {
		if pred(m) {
			return m
		}
	}
	return nil
}

func (b *Board) add(m *Match) {
	b.matches = append(b.matches, m)
	b.byID[m.ID] = m
}

func (b *Board) touch(m *Match) {
	if b.touched[m.ID] {
		return
	}
	b.touched[m.ID] = true
	b.order = append(b.order, m.ID)
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
