package service

import (
	"fmt"
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededTeams(tournamentID uuid.UUID, n int) []bracket.Team {
	teams := make([]bracket.Team, 0, n)
	for i := range n {
		teams = append(teams, bracket.Team{
			ID:           uuid.New(),
			TournamentID: tournamentID,
			Name:         fmt.Sprintf("Team %d", i+1),
			Seed:         i + 1,
		})
	}
	return teams
}

func matchAt(t *testing.T, matches []bracket.Match, bt bracket.BracketType, round, number int) *bracket.Match {
	t.Helper()
	for i := range matches {
		m := &matches[i]
		if m.BracketType == bt && m.Round == round && m.MatchNumber == number && !m.IsThirdPlaceMatch {
			return m
		}
	}
	require.Failf(t, "match not found", "%s round %d #%d", bt, round, number)
	return nil
}

func TestCalcBracketSize(t *testing.T) {
	for count, expected := range map[int]int{0: 0, 1: 1, 2: 2, 3: 4, 5: 8, 8: 8, 9: 16} {
		assert.Equal(t, expected, calcBracketSize(count), "count %d", count)
	}
}

func TestGenerateRound1SeedOrder(t *testing.T) {
	testCases := []struct {
		name        string
		bracketSize int
		expected    [][2]int
	}{
		{
			name:        "2 entries",
			bracketSize: 2,
			expected:    [][2]int{{0, 1}},
		},
		{
			name:        "4 entries",
			bracketSize: 4,
			expected:    [][2]int{{0, 3}, {1, 2}},
		},
		{
			name:        "8 entries",
			bracketSize: 8,
			expected:    [][2]int{{0, 7}, {3, 4}, {1, 6}, {2, 5}},
		},
		{
			name:        "Non-power of 2 rounds up",
			bracketSize: 7,
			expected:    [][2]int{{0, 7}, {3, 4}, {1, 6}, {2, 5}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual := generateRound1Pairs(tc.bracketSize)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestGenerateWinnerBracket(t *testing.T) {
	tournamentID := uuid.New()
	teams := seededTeams(tournamentID, 4)

	matches := generateWinnerBracket(tournamentID, teams)
	require.Len(t, matches, 3)

	final := matchAt(t, matches, bracket.WinnerBracket, 1, 1)
	assert.Nil(t, final.NextMatchID)

	semi1 := matchAt(t, matches, bracket.WinnerBracket, 0, 1)
	semi2 := matchAt(t, matches, bracket.WinnerBracket, 0, 2)
	for _, semi := range []*bracket.Match{semi1, semi2} {
		require.NotNil(t, semi.NextMatchID)
		assert.Equal(t, final.ID, *semi.NextMatchID)
		assert.NotNil(t, semi.Team1ID, "Team1ID should not be nil for round 0 match")
		assert.NotNil(t, semi.Team2ID, "Team2ID should not be nil for round 0 match")
		assert.Equal(t, bracket.MatchPending, semi.Status)
		assert.Equal(t, tournamentID, semi.TournamentID)
	}

	// Seed 1 meets seed 4 and seed 2 meets seed 3.
	assert.Equal(t, teams[0].ID, *semi1.Team1ID)
	assert.Equal(t, teams[3].ID, *semi1.Team2ID)
	assert.Equal(t, teams[1].ID, *semi2.Team1ID)
	assert.Equal(t, teams[2].ID, *semi2.Team2ID)
}

func TestGenerateWinnerBracket_Byes(t *testing.T) {
	tournamentID := uuid.New()
	teams := seededTeams(tournamentID, 5)

	matches := generateWinnerBracket(tournamentID, teams)
	require.Len(t, matches, 7)

	byes := 0
	for _, m := range matches {
		if m.IsBye {
			byes++
			assert.Equal(t, bracket.MatchCompleted, m.Status)
			assert.Nil(t, m.Team2ID)
			assert.Equal(t, m.Team1ID, m.WinnerTeamID)
		}
	}
	assert.Equal(t, 3, byes)

	// Pairs are (1,-) (4,5) (2,-) (3,-), so seeds 1, 2 and 3 advance at once.
	played := matchAt(t, matches, bracket.WinnerBracket, 0, 2)
	assert.False(t, played.IsBye)
	assert.Equal(t, teams[3].ID, *played.Team1ID)
	assert.Equal(t, teams[4].ID, *played.Team2ID)

	upper := matchAt(t, matches, bracket.WinnerBracket, 1, 1)
	require.NotNil(t, upper.Team1ID)
	assert.Equal(t, teams[0].ID, *upper.Team1ID)
	assert.Nil(t, upper.Team2ID)

	lower := matchAt(t, matches, bracket.WinnerBracket, 1, 2)
	require.NotNil(t, lower.Team1ID)
	require.NotNil(t, lower.Team2ID)
	assert.Equal(t, teams[1].ID, *lower.Team1ID)
	assert.Equal(t, teams[2].ID, *lower.Team2ID)
}

func TestGenerateBracket(t *testing.T) {
	testCases := []struct {
		name       string
		format     bracket.Format
		teams      int
		thirdPlace bool
		expected   int
	}{
		{name: "single elimination with 2 entries", format: bracket.SingleElimination, teams: 2, expected: 1},
		{name: "single elimination with 4 entries", format: bracket.SingleElimination, teams: 4, expected: 3},
		{name: "single elimination with 5 entries", format: bracket.SingleElimination, teams: 5, expected: 7},
		{name: "third place match", format: bracket.SingleElimination, teams: 4, thirdPlace: true, expected: 4},
		{name: "no third place match below 4 entries", format: bracket.SingleElimination, teams: 3, thirdPlace: true, expected: 3},
		{name: "mix with third place match", format: bracket.Mix, teams: 8, thirdPlace: true, expected: 8},
		{name: "double elimination with 4 entries", format: bracket.DoubleElimination, teams: 4, expected: 6},
		{name: "double elimination ignores third place", format: bracket.DoubleElimination, teams: 8, thirdPlace: true, expected: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tournamentID := uuid.New()
			matches := generateBracket(tournamentID, tc.format, seededTeams(tournamentID, tc.teams), tc.thirdPlace)
			assert.Len(t, matches, tc.expected)

			ids := make(map[uuid.UUID]bool, len(matches))
			for _, m := range matches {
				ids[m.ID] = true
			}
			for _, m := range matches {
				if m.NextMatchID != nil {
					assert.True(t, ids[*m.NextMatchID], "dangling next link")
				}
				if m.LoserNextMatchID != nil {
					assert.True(t, ids[*m.LoserNextMatchID], "dangling loser link")
				}
			}
		})
	}
}

func TestGenerateBracket_ThirdPlaceLinks(t *testing.T) {
	tournamentID := uuid.New()
	matches := generateBracket(tournamentID, bracket.SingleElimination, seededTeams(tournamentID, 8), true)

	var third *bracket.Match
	for i := range matches {
		if matches[i].IsThirdPlaceMatch {
			third = &matches[i]
		}
	}
	require.NotNil(t, third)
	assert.Equal(t, 2, third.Round)

	for _, number := range []int{1, 2} {
		semi := matchAt(t, matches, bracket.WinnerBracket, 1, number)
		require.NotNil(t, semi.LoserNextMatchID)
		assert.Equal(t, third.ID, *semi.LoserNextMatchID)
	}
}

func TestGenerateBracket_DoubleEliminationFinals(t *testing.T) {
	testCases := []struct {
		teams           int
		winnerFinal     int
		loserFinalRound int
	}{
		{teams: 4, winnerFinal: 1, loserFinalRound: 2},
		{teams: 8, winnerFinal: 2, loserFinalRound: 4},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%d entries", tc.teams), func(t *testing.T) {
			tournamentID := uuid.New()
			matches := generateBracket(tournamentID, bracket.DoubleElimination, seededTeams(tournamentID, tc.teams), false)

			grandFinal := matchAt(t, matches, bracket.GrandFinal, 0, 1)
			reset := matchAt(t, matches, bracket.GrandFinalReset, 0, 1)
			loserFinal := matchAt(t, matches, bracket.LoserBracket, tc.loserFinalRound, 1)
			winnerFinal := matchAt(t, matches, bracket.WinnerBracket, tc.winnerFinal, 1)

			require.NotNil(t, grandFinal.NextMatchID)
			assert.Equal(t, reset.ID, *grandFinal.NextMatchID)
			require.NotNil(t, loserFinal.NextMatchID)
			assert.Equal(t, grandFinal.ID, *loserFinal.NextMatchID)
			require.NotNil(t, winnerFinal.NextMatchID)
			assert.Equal(t, grandFinal.ID, *winnerFinal.NextMatchID)
			require.NotNil(t, winnerFinal.LoserNextMatchID)
			assert.Equal(t, loserFinal.ID, *winnerFinal.LoserNextMatchID)
			assert.Nil(t, reset.NextMatchID)

			loserMatches := 0
			for _, m := range matches {
				if m.BracketType == bracket.LoserBracket {
					loserMatches++
				}
			}
			assert.Equal(t, 1, loserMatches, "earlier loser rounds are created on demand")
		})
	}
}
