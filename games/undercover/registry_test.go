package undercover

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	reg := NewRegistry(0)

	code := reg.NewCode()
	require.Len(t, code, roomCodeLength)
	for _, c := range code {
		assert.Contains(t, roomCodeAlphabet, string(c))
	}

	room, err := reg.CreateRoom(code, "Alice")
	require.NoError(t, err)
	require.NotNil(t, room.Host())
	assert.Equal(t, "Alice", room.Host().Name)
	assert.True(t, room.Host().IsHost)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.CreateRoom(code, "Mallory")
	require.ErrorIs(t, err, ErrRoomExists)

	got, err := reg.Get(code)
	require.NoError(t, err)
	assert.Same(t, room, got)

	_, err = reg.Get("NOPE99")
	require.ErrorIs(t, err, ErrRoomNotFound)

	reg.Remove(code)
	assert.Equal(t, 0, reg.Len())
	_, err = reg.Get(code)
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistryAddPlayer(t *testing.T) {
	reg := NewRegistry(0)
	room, err := reg.CreateRoom("ROOM42", "Alice")
	require.NoError(t, err)

	p, err := reg.AddPlayer("ROOM42", "Bob")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.NotEqual(t, room.Host().ID, p.ID)

	_, err = reg.AddPlayer("NOPE99", "Carol")
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomMembershipRules(t *testing.T) {
	r := NewRoom("TEST42", "host", "Alice", 0, testRand(1))

	_, err := r.AddPlayer("b", "Bob")
	require.NoError(t, err)

	// Names are unique ignoring case.
	_, err = r.AddPlayer("b2", "BOB")
	require.ErrorIs(t, err, ErrNameTaken)

	_, err = r.AddPlayer("b3", "   ")
	require.ErrorIs(t, err, ErrBadName)

	for i := len(r.Players); i < MaxPlayers; i++ {
		_, err := r.AddPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player%d", i))
		require.NoError(t, err)
	}
	_, err = r.AddPlayer("extra", "Extra")
	require.ErrorIs(t, err, ErrRoomFull)

	require.ErrorIs(t, r.RemovePlayer("host"), ErrCannotRemoveHost)
	require.ErrorIs(t, r.RemovePlayer("nobody"), ErrPlayerNotFound)
	require.NoError(t, r.RemovePlayer("b"))
	assert.Len(t, r.Players, MaxPlayers-1)
}

func TestMembershipLockedOutsideWaiting(t *testing.T) {
	r := newTestRoom(t, 5, 1, nil)
	startGame(t, r)

	_, err := r.AddPlayer("x", "Late")
	require.ErrorIs(t, err, ErrWrongPhase)
	require.ErrorIs(t, r.RemovePlayer(r.Players[1].ID), ErrWrongPhase)
	require.ErrorIs(t, r.UpdateSettings(DefaultSettings()), ErrWrongPhase)
	require.ErrorIs(t, r.ResetScores(), ErrWrongPhase)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry(0)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("ROOM%02d", i)
			_, err := reg.CreateRoom(code, "Host")
			assert.NoError(t, err)
			_, err = reg.Get(code)
			assert.NoError(t, err)
			if i%2 == 0 {
				reg.Remove(code)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 16, reg.Len())
}

func TestResetScores(t *testing.T) {
	r := newTestRoom(t, 5, 11, func(s *Settings) {
		s.IncludeMrWhite = false
	})
	startGame(t, r)
	revealAll(t, r)

	uc := findByRole(r, RoleUndercover)
	result, err := r.Eliminate(uc.ID)
	require.NoError(t, err)
	require.True(t, result.GameOver)
	require.NoError(t, r.PlayAgain())

	require.NoError(t, r.ResetScores())
	assert.Empty(t, r.History)
	for _, p := range r.Players {
		assert.Zero(t, p.Score)
		assert.Zero(t, p.GamesPlayed)
		assert.Zero(t, p.GamesWon)
	}
}
