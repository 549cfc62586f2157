package bracket

import (
	"fmt"

	"github.com/google/uuid"
)

// Proposal is a result submitted for one match.
type Proposal struct {
	WinnerTeamID *uuid.UUID
	Score1       int
	Score2       int
}

// Validate checks a proposed result against the stored match and its linked
// downstream matches. It has no side effects.
func Validate(t *Tournament, m *Match, downstream []*Match, p Proposal, canEdit bool) error {
	if m == nil {
		return NewError(CodeNotFound, "match not found")
	}
	if t == nil || m.TournamentID != t.ID {
		return NewError(CodeNotFound, "tournament not found")
	}
	if !t.Status.AcceptsResults() {
		// A closed bracket still names the result that pins the match.
		if t.Status == TournamentCompleted && canEdit {
			if err := downstreamLocked(downstream); err != nil {
				return err
			}
		}
		return NewError(CodeInvalidState, fmt.Sprintf("tournament is %s", t.Status))
	}

	if !canEdit {
		return ErrUnauthorized
	}

	if err := downstreamLocked(downstream); err != nil {
		return err
	}

	if p.WinnerTeamID != nil && !m.HasTeam(*p.WinnerTeamID) {
		return ErrInvalidWinner
	}

	if sameTeam(p.WinnerTeamID, m.WinnerTeamID) && p.Score1 == m.Score1 && p.Score2 == m.Score2 {
		return ErrNoChange
	}

	return nil
}

func downstreamLocked(downstream []*Match) error {
	for _, d := range downstream {
		if d != nil && d.WinnerTeamID != nil {
			return NewError(CodeDownstreamLocked, fmt.Sprintf("match %s already has a result", d.ID))
		}
	}
	return nil
}
