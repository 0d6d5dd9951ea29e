package undercover

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

type stubDrawer struct {
	pair WordPair
	err  error
}

func (s stubDrawer) Draw([]string) (WordPair, error) {
	return s.pair, s.err
}

var testPair = WordPair{Civilian: "Lion", Undercover: "Tiger", Category: "Animals"}

// newTestRoom builds a waiting room with n players (host included), one
// selected category, and any extra settings applied.
func newTestRoom(t *testing.T, n int, seed uint64, mutate func(*Settings)) *Room {
	t.Helper()
	require.LessOrEqual(t, n, MaxPlayers)

	r := NewRoom("TEST42", "host", "Alice", 0, testRand(seed))
	for i := 1; i < n; i++ {
		_, err := r.AddPlayer(fmt.Sprintf("p%d", i), fmt.Sprintf("Player%d", i))
		require.NoError(t, err)
	}

	s := DefaultSettings()
	s.Categories = []string{"Animals"}
	if mutate != nil {
		mutate(&s)
	}
	require.NoError(t, r.UpdateSettings(s))
	return r
}

func startGame(t *testing.T, r *Room) {
	t.Helper()
	require.NoError(t, r.Start(stubDrawer{pair: testPair}))
}

func revealAll(t *testing.T, r *Room) {
	t.Helper()
	for _, p := range r.Players {
		_, err := r.Reveal(p.ID)
		require.NoError(t, err)
	}
	require.Equal(t, StatusPlaying, r.Status)
}

func findByRole(r *Room, role Role) *Player {
	for _, p := range r.Players {
		if p.Alive && p.Role == role {
			return p
		}
	}
	return nil
}

func findBySpecial(r *Room, special SpecialRole) *Player {
	for _, p := range r.Players {
		if p.Alive && p.Special == special {
			return p
		}
	}
	return nil
}

func aliveNames(r *Room) []string {
	return r.SpeakingOrder()
}

func TestStartValidation(t *testing.T) {
	t.Run("too few players", func(t *testing.T) {
		r := newTestRoom(t, 2, 1, nil)
		err := r.Start(stubDrawer{pair: testPair})
		require.ErrorIs(t, err, ErrNotEnoughPlayers)
		assert.Equal(t, StatusWaiting, r.Status)
	})

	t.Run("too many bad roles", func(t *testing.T) {
		// 3 players with 1 undercover + Mr. White leaves a single civilian.
		r := newTestRoom(t, 3, 1, nil)
		err := r.Start(stubDrawer{pair: testPair})
		require.ErrorIs(t, err, ErrTooManyBadRoles)
		assert.Equal(t, StatusWaiting, r.Status)
	})

	t.Run("no categories", func(t *testing.T) {
		r := newTestRoom(t, 5, 1, func(s *Settings) {
			s.Categories = nil
		})
		err := r.Start(stubDrawer{pair: testPair})
		require.ErrorIs(t, err, ErrNoCategories)
		assert.Equal(t, StatusWaiting, r.Status)
	})

	t.Run("word draw failure", func(t *testing.T) {
		r := newTestRoom(t, 5, 1, nil)
		err := r.Start(stubDrawer{err: fmt.Errorf("catalog offline")})
		require.Error(t, err)
		assert.Equal(t, StatusWaiting, r.Status)
		assert.Nil(t, r.WordPair)
	})

	t.Run("already started", func(t *testing.T) {
		r := newTestRoom(t, 5, 1, nil)
		startGame(t, r)
		require.ErrorIs(t, r.Start(stubDrawer{pair: testPair}), ErrWrongPhase)
	})
}

func TestStartFivePlayerDistribution(t *testing.T) {
	// 5 players, 1 undercover, Mr. White enabled, no special roles.
	r := newTestRoom(t, 5, 7, nil)
	startGame(t, r)

	var civilians, undercovers, mrWhites int
	for _, p := range r.Players {
		switch p.Role {
		case RoleCivilian:
			civilians++
			assert.Equal(t, "Lion", p.Word)
		case RoleUndercover:
			undercovers++
			assert.Equal(t, "Tiger", p.Word)
		case RoleMrWhite:
			mrWhites++
			assert.Empty(t, p.Word)
		}
	}
	assert.Equal(t, 3, civilians)
	assert.Equal(t, 1, undercovers)
	assert.Equal(t, 1, mrWhites)

	assert.Equal(t, StatusRoleReveal, r.Status)
	assert.Equal(t, 1, r.Round)
	assert.Equal(t, &testPair, r.WordPair)
	assert.Len(t, r.SpeakingOrder(), 5)
}

func TestRevealFlow(t *testing.T) {
	r := newTestRoom(t, 5, 3, nil)
	startGame(t, r)

	// Partial reveals keep the room in role reveal.
	card, err := r.Reveal(r.Players[0].ID)
	require.NoError(t, err)
	require.NotNil(t, card)
	assert.Equal(t, StatusRoleReveal, r.Status)
	assert.True(t, r.Players[0].Revealed)

	for _, p := range r.Players {
		card, err := r.Reveal(p.ID)
		require.NoError(t, err)
		if p.Role == RoleMrWhite {
			assert.True(t, card.MrWhite)
			assert.Empty(t, card.Word)
		} else {
			assert.False(t, card.MrWhite)
			assert.NotEmpty(t, card.Word)
			assert.Equal(t, "Animals", card.Category)
		}
	}
	assert.Equal(t, StatusPlaying, r.Status)

	_, err = r.Reveal("nobody")
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestRevealBlindModeHidesCategory(t *testing.T) {
	r := newTestRoom(t, 5, 3, func(s *Settings) {
		s.BlindMode = true
	})
	startGame(t, r)

	for _, p := range r.Players {
		card, err := r.Reveal(p.ID)
		require.NoError(t, err)
		assert.Empty(t, card.Category)
	}
}

func TestEliminateAdvancesRound(t *testing.T) {
	r := newTestRoom(t, 5, 11, func(s *Settings) {
		s.IncludeMrWhite = false
	})
	startGame(t, r)
	revealAll(t, r)

	civ := findByRole(r, RoleCivilian)
	require.NotNil(t, civ)

	result, err := r.Eliminate(civ.ID)
	require.NoError(t, err)
	require.Len(t, result.Eliminated, 1)
	assert.Equal(t, civ.Name, result.Eliminated[0].Name)
	assert.Equal(t, "civilian", result.Eliminated[0].Role)
	assert.False(t, result.GameOver)

	assert.Equal(t, StatusPlaying, r.Status)
	assert.Equal(t, 2, r.Round)
	assert.False(t, civ.Alive)
	assert.NotContains(t, r.SpeakingOrder(), civ.Name)
}

func TestEliminateRejections(t *testing.T) {
	r := newTestRoom(t, 5, 11, func(s *Settings) {
		s.IncludeMrWhite = false
	})

	_, err := r.Eliminate("anyone")
	require.ErrorIs(t, err, ErrWrongPhase)

	startGame(t, r)
	revealAll(t, r)

	_, err = r.Eliminate("nobody")
	require.ErrorIs(t, err, ErrPlayerNotFound)

	civ := findByRole(r, RoleCivilian)
	_, err = r.Eliminate(civ.ID)
	require.NoError(t, err)

	// Already eliminated: idempotent rejection, no state change.
	before := len(aliveNames(r))
	_, err = r.Eliminate(civ.ID)
	require.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Len(t, aliveNames(r), before)
}

func TestEliminateLastUndercoverEndsGame(t *testing.T) {
	r := newTestRoom(t, 5, 11, func(s *Settings) {
		s.IncludeMrWhite = false
	})
	startGame(t, r)
	revealAll(t, r)

	uc := findByRole(r, RoleUndercover)
	require.NotNil(t, uc)

	result, err := r.Eliminate(uc.ID)
	require.NoError(t, err)
	assert.True(t, result.GameOver)
	assert.Equal(t, []string{"civilian"}, result.Winners)
	assert.Equal(t, StatusFinished, r.Status)
	assert.NotEmpty(t, result.Breakdown)
	assert.NotEmpty(t, result.Leaderboard)
	assert.Len(t, r.History, 1)
}

func TestBadGuysWinByOutnumbering(t *testing.T) {
	// 5 players, 1 undercover, Mr. White: eliminating one civilian leaves
	// 2 civilians vs 2 bad guys, which the bad guys win.
	r := newTestRoom(t, 5, 5, nil)
	startGame(t, r)
	revealAll(t, r)

	civ := findByRole(r, RoleCivilian)
	result, err := r.Eliminate(civ.ID)
	require.NoError(t, err)
	assert.True(t, result.GameOver)
	assert.ElementsMatch(t, []string{"undercover", "mr_white"}, result.Winners)
}

func TestMrWhiteGuess(t *testing.T) {
	t.Run("correct guess wins instantly", func(t *testing.T) {
		r := newTestRoom(t, 5, 5, nil)
		startGame(t, r)
		revealAll(t, r)

		mw := findByRole(r, RoleMrWhite)
		result, err := r.Eliminate(mw.ID)
		require.NoError(t, err)
		assert.False(t, result.GameOver)
		assert.Equal(t, StatusMrWhiteGuess, r.Status)
		assert.Equal(t, mw.ID, r.MrWhiteGuesserID)

		// Case and whitespace differences do not matter.
		result, err = r.GuessWord("  lIoN ")
		require.NoError(t, err)
		assert.True(t, result.GameOver)
		assert.Equal(t, []string{"mr_white"}, result.Winners)
		assert.Equal(t, StatusFinished, r.Status)

		for _, line := range result.Breakdown {
			if line.PlayerID == mw.ID {
				// 10 for winning plus 5 for the guess; Mr. White is dead,
				// so no survivor bonus.
				assert.Equal(t, 15, line.Points)
			}
		}
	})

	t.Run("wrong guess resumes play", func(t *testing.T) {
		r := newTestRoom(t, 6, 5, nil)
		startGame(t, r)
		revealAll(t, r)

		mw := findByRole(r, RoleMrWhite)
		_, err := r.Eliminate(mw.ID)
		require.NoError(t, err)

		result, err := r.GuessWord("Giraffe")
		require.NoError(t, err)
		assert.False(t, result.GameOver)
		assert.Equal(t, StatusPlaying, r.Status)
		assert.Equal(t, 2, r.Round)
		assert.Empty(t, r.MrWhiteGuesserID)
	})

	t.Run("guess outside phase rejected", func(t *testing.T) {
		r := newTestRoom(t, 5, 5, nil)
		startGame(t, r)
		revealAll(t, r)
		_, err := r.GuessWord("Lion")
		require.ErrorIs(t, err, ErrWrongPhase)
	})
}

func TestLoverChainElimination(t *testing.T) {
	r := newTestRoom(t, 8, 2, func(s *Settings) {
		s.IncludeMrWhite = false
		s.Lovers = RoleOption{Enabled: true, Chance: 100}
	})
	startGame(t, r)
	revealAll(t, r)

	lover := findBySpecial(r, SpecialLover)
	require.NotNil(t, lover, "lovers should be assigned at 100% chance")
	partnerName := lover.PartnerName
	require.NotEmpty(t, partnerName)

	before := len(aliveNames(r))
	result, err := r.Eliminate(lover.ID)
	require.NoError(t, err)

	// Exactly the lover and their partner die, nobody else.
	require.Len(t, result.Eliminated, 2)
	assert.Equal(t, lover.Name, result.Eliminated[0].Name)
	assert.False(t, result.Eliminated[0].Chained)
	assert.Equal(t, partnerName, result.Eliminated[1].Name)
	assert.True(t, result.Eliminated[1].Chained)
	if !result.GameOver {
		assert.Len(t, aliveNames(r), before-2)
	}
}

func TestRevengerPhase(t *testing.T) {
	r := newTestRoom(t, 7, 9, func(s *Settings) {
		s.IncludeMrWhite = false
		s.Revenger = RoleOption{Enabled: true, Chance: 100}
	})
	startGame(t, r)
	revealAll(t, r)

	revenger := findBySpecial(r, SpecialRevenger)
	require.NotNil(t, revenger)

	_, err := r.Eliminate(revenger.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRevengerRevenge, r.Status)
	assert.Equal(t, revenger.ID, r.RevengerID)

	// Revenge on a dead player is rejected.
	_, err = r.Revenge(revenger.ID)
	require.ErrorIs(t, err, ErrPlayerNotFound)

	victim := findByRole(r, RoleCivilian)
	require.NotNil(t, victim)
	result, err := r.Revenge(victim.ID)
	require.NoError(t, err)
	assert.False(t, victim.Alive)
	assert.NotEmpty(t, result.Eliminated)
	if !result.GameOver {
		assert.Equal(t, StatusPlaying, r.Status)
		assert.Equal(t, 2, r.Round)
	}
}

func TestRevengeOnMrWhiteOpensGuess(t *testing.T) {
	r := newTestRoom(t, 7, 4, func(s *Settings) {
		s.Revenger = RoleOption{Enabled: true, Chance: 100}
	})
	startGame(t, r)
	revealAll(t, r)

	revenger := findBySpecial(r, SpecialRevenger)
	require.NotNil(t, revenger)
	require.NotEqual(t, RoleMrWhite, revenger.Role)

	_, err := r.Eliminate(revenger.ID)
	require.NoError(t, err)
	require.Equal(t, StatusRevengerRevenge, r.Status)

	mw := findByRole(r, RoleMrWhite)
	require.NotNil(t, mw)
	_, err = r.Revenge(mw.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusMrWhiteGuess, r.Status)
	assert.Equal(t, mw.ID, r.MrWhiteGuesserID)
}

func TestSkipOnlyAdvancesRound(t *testing.T) {
	r := newTestRoom(t, 5, 11, func(s *Settings) {
		s.IncludeMrWhite = false
	})
	startGame(t, r)
	revealAll(t, r)

	before := aliveNames(r)
	result, err := r.Skip()
	require.NoError(t, err)
	assert.Empty(t, result.Eliminated)
	assert.False(t, result.GameOver)
	assert.Equal(t, 2, r.Round)
	assert.Equal(t, before, aliveNames(r))
	for _, p := range r.Players {
		assert.True(t, p.Alive)
	}
}

func TestPlayAgain(t *testing.T) {
	r := newTestRoom(t, 5, 11, func(s *Settings) {
		s.IncludeMrWhite = false
	})
	startGame(t, r)
	revealAll(t, r)

	require.ErrorIs(t, r.PlayAgain(), ErrWrongPhase)

	uc := findByRole(r, RoleUndercover)
	result, err := r.Eliminate(uc.ID)
	require.NoError(t, err)
	require.True(t, result.GameOver)

	scores := make(map[string]int)
	for _, p := range r.Players {
		scores[p.ID] = p.Score
	}

	require.NoError(t, r.PlayAgain())
	assert.Equal(t, StatusWaiting, r.Status)
	assert.Equal(t, 0, r.Round)
	assert.Nil(t, r.WordPair)
	assert.Len(t, r.Players, 5)
	assert.Len(t, r.History, 1, "history survives play again")
	assert.Equal(t, 0, r.UndoDepth())

	for _, p := range r.Players {
		assert.Equal(t, scores[p.ID], p.Score, "cumulative scores survive play again")
		assert.Equal(t, RoleNone, p.Role)
		assert.Equal(t, SpecialNone, p.Special)
		assert.Empty(t, p.Word)
		assert.True(t, p.Alive)
		assert.False(t, p.Revealed)
	}
}

func TestEvaluateWinners(t *testing.T) {
	mk := func(alive string) []*Player {
		// alive: one letter per alive player, c/u/w.
		var ps []*Player
		for _, ch := range alive {
			p := &Player{Alive: true}
			switch ch {
			case 'c':
				p.Role = RoleCivilian
			case 'u':
				p.Role = RoleUndercover
			case 'w':
				p.Role = RoleMrWhite
			}
			ps = append(ps, p)
		}
		return ps
	}

	testCases := []struct {
		desc    string
		alive   string
		over    bool
		winners []Role
	}{
		{desc: "game continues", alive: "cccu", over: false},
		{desc: "bad guys equal civilians", alive: "ccuw", over: true, winners: []Role{RoleUndercover, RoleMrWhite}},
		{desc: "only alive faction wins", alive: "cu", over: true, winners: []Role{RoleUndercover}},
		{desc: "mr white alone outnumbers", alive: "cw", over: true, winners: []Role{RoleMrWhite}},
		{desc: "civilians win", alive: "ccc", over: true, winners: []Role{RoleCivilian}},
		{desc: "lone civilian wins", alive: "c", over: true, winners: []Role{RoleCivilian}},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			winners, _, over := evaluateWinners(mk(tc.alive))
			assert.Equal(t, tc.over, over)
			assert.ElementsMatch(t, tc.winners, winners)
		})
	}
}

func TestWinConditionsMutuallyExclusive(t *testing.T) {
	// Over every alive-count combination a room can reach, at most one of
	// the two winning branches holds.
	for civ := 0; civ <= 10; civ++ {
		for uc := 0; uc <= 4; uc++ {
			for mw := 0; mw <= 1; mw++ {
				if civ+uc+mw == 0 {
					continue
				}
				bad := uc + mw
				outnumbered := bad > 0 && bad >= civ
				eradicated := bad == 0
				assert.False(t, outnumbered && eradicated,
					"civ=%d uc=%d mw=%d", civ, uc, mw)
			}
		}
	}
}
