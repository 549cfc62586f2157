package service

import (
	"context"
	"testing"

	"github.com/AdamBeresnev/op-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStandings_SingleEliminationWithThirdPlace(t *testing.T) {
	f := newFixture(t)
	snapshot := f.create(t, bracket.SingleElimination, 4, true)
	tournamentID := snapshot.Tournament.ID

	snapshot = f.play(t, tournamentID, team1)
	require.True(t, bracket.Decided(bracket.SingleElimination, snapshot.Matches))

	standings, err := f.standings.GetStandings(context.Background(), tournamentID)
	require.NoError(t, err)
	require.Len(t, standings, 4)

	places := make([]int, 0, len(standings))
	for _, s := range standings {
		places = append(places, s.Place)
		assert.NotNil(t, s.ParticipantID)
	}
	assert.Equal(t, []int{1, 2, 3, 4}, places)

	champion := standings[0]
	assert.Equal(t, 2, champion.Wins)
	assert.Zero(t, champion.Losses)
}

func TestGetStandings_UnfinishedBracketPlacesEveryone(t *testing.T) {
	f := newFixture(t)
	snapshot := f.create(t, bracket.SingleElimination, 5, false)

	standings, err := f.standings.GetStandings(context.Background(), snapshot.Tournament.ID)
	require.NoError(t, err)
	require.Len(t, standings, 5)

	seen := make(map[uuid.UUID]bool)
	for _, s := range standings {
		require.NotNil(t, s.ParticipantID)
		assert.False(t, seen[*s.ParticipantID])
		seen[*s.ParticipantID] = true
		assert.GreaterOrEqual(t, s.Place, 1)
		// Byes are not wins.
		assert.Zero(t, s.Wins)
	}
}

func TestGetStandings_MixRanksTeams(t *testing.T) {
	f := newFixture(t)
	id, err := f.tournaments.CreateTournament(guestContext(), CreateTournamentInput{
		Name:   "Mix",
		Format: bracket.Mix,
		Entries: []EntryInput{
			{Name: "Red", Members: []string{"Ann", "Bob"}},
			{Name: "Blue", Members: []string{"Cid", "Dee"}},
		},
	})
	require.NoError(t, err)

	f.play(t, id, func(m bracket.Match) *uuid.UUID { return m.Team2ID })

	standings, err := f.standings.GetStandings(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, "Blue", standings[0].Name)
	assert.Equal(t, 1, standings[0].Wins)
	assert.Equal(t, "Red", standings[1].Name)
	assert.Nil(t, standings[0].ParticipantID)
}

func TestGetStandings_UnknownTournament(t *testing.T) {
	f := newFixture(t)

	_, err := f.standings.GetStandings(context.Background(), uuid.New())
	assert.ErrorIs(t, err, bracket.ErrNotFound)
}
