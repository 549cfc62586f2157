package service

import (
	"math"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
)

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs returns seed index pairs for the first round so the top
// seeds meet as late as possible.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

func newMatch(tournamentID uuid.UUID, bracketType bracket.BracketType, round, number int) bracket.Match {
	return bracket.Match{
		ID:           uuid.New(),
		TournamentID: tournamentID,
		Round:        round,
		BracketType:  bracketType,
		MatchNumber:  number,
		MapsData:     bracket.MapsData("[]"),
		Status:       bracket.MatchPending,
	}
}

// generateWinnerBracket lays out the winner bracket for the seeded teams,
// pairs the first round and settles its byes. Rounds count from 0 up to the
// final.
func generateWinnerBracket(tournamentID uuid.UUID, teams []bracket.Team) []bracket.Match {
	var matches []bracket.Match

	bracketSize := calcBracketSize(len(teams))
	totalRounds := int(math.Log2(float64(bracketSize)))

	nextRoundMatchIDs := make(map[int]uuid.UUID)

	// Significantly easier to start from the last round and work backwards
	for r := totalRounds - 1; r >= 0; r-- {
		matchesInCurrentRound := int(math.Pow(2, float64(totalRounds-1-r)))
		currentRoundMatchIDs := make(map[int]uuid.UUID)

		for i := 0; i < matchesInCurrentRound; i++ {
			m := newMatch(tournamentID, bracket.WinnerBracket, r, i+1)
			if r < totalRounds-1 {
				parentID := nextRoundMatchIDs[(m.MatchNumber+1)/2]
				m.NextMatchID = &parentID
			}

			matches = append(matches, m)
			currentRoundMatchIDs[m.MatchNumber] = m.ID
		}
		nextRoundMatchIDs = currentRoundMatchIDs
	}

	matchMap := make(map[uuid.UUID]*bracket.Match, len(matches))
	var round1Matches []*bracket.Match
	for i := range matches {
		matchMap[matches[i].ID] = &matches[i]
		if matches[i].Round == 0 {
			round1Matches = append(round1Matches, &matches[i])
		}
	}

	for i, pair := range generateRound1Pairs(bracketSize) {
		match := round1Matches[i]
		if pair[0] < len(teams) {
			match.Team1ID = &teams[pair[0]].ID
		}
		if pair[1] < len(teams) {
			match.Team2ID = &teams[pair[1]].ID
		}

		// The top seed of a short pairing gets a bye straight into round 1.
		if match.Team1ID == nil || match.Team2ID != nil {
			continue
		}
		match.WinnerTeamID = match.Team1ID
		match.Status = bracket.MatchCompleted
		match.IsBye = true
		if match.NextMatchID != nil {
			if next, ok := matchMap[*match.NextMatchID]; ok {
				if match.MatchNumber%2 != 0 {
					next.Team1ID = match.Team1ID
				} else {
					next.Team2ID = match.Team1ID
				}
			}
		}
	}

	return matches
}

// addThirdPlaceMatch links both semifinals' losers into a third-place match.
func addThirdPlaceMatch(tournamentID uuid.UUID, matches []bracket.Match) []bracket.Match {
	finalRound := 0
	for _, m := range matches {
		if m.Round > finalRound {
			finalRound = m.Round
		}
	}
	if finalRound < 1 {
		return matches
	}

	third := newMatch(tournamentID, bracket.WinnerBracket, finalRound, 2)
	third.IsThirdPlaceMatch = true
	for i := range matches {
		if matches[i].Round == finalRound-1 {
			matches[i].LoserNextMatchID = &third.ID
		}
	}
	return append(matches, third)
}

// addDoubleEliminationFinals appends the loser final, grand final and reset.
// The earlier loser-bracket rounds are created as losers drop in.
func addDoubleEliminationFinals(tournamentID uuid.UUID, matches []bracket.Match) []bracket.Match {
	winnerFinal := 0
	for i := range matches {
		if matches[i].Round > matches[winnerFinal].Round {
			winnerFinal = i
		}
	}
	totalRounds := matches[winnerFinal].Round + 1

	reset := newMatch(tournamentID, bracket.GrandFinalReset, 0, 1)
	grandFinal := newMatch(tournamentID, bracket.GrandFinal, 0, 1)
	grandFinal.NextMatchID = &reset.ID
	loserFinal := newMatch(tournamentID, bracket.LoserBracket, 2*(totalRounds-1), 1)
	loserFinal.NextMatchID = &grandFinal.ID

	matches[winnerFinal].NextMatchID = &grandFinal.ID
	matches[winnerFinal].LoserNextMatchID = &loserFinal.ID

	return append(matches, loserFinal, grandFinal, reset)
}

// generateBracket builds every pre-generated match of a new tournament.
func generateBracket(tournamentID uuid.UUID, format bracket.Format, teams []bracket.Team, thirdPlace bool) []bracket.Match {
	matches := generateWinnerBracket(tournamentID, teams)

	switch format {
	case bracket.DoubleElimination:
		matches = addDoubleEliminationFinals(tournamentID, matches)
	default:
		// Byes never reach the semifinals from four entrants up.
		if thirdPlace && len(teams) >= 4 {
			matches = addThirdPlaceMatch(tournamentID, matches)
		}
	}
	return matches
}
