package undercover

import (
	"fmt"
	"strings"
)

// WordDrawer supplies one word pair per game, already polarity-resolved.
// The words catalog implements this; tests pass stubs.
type WordDrawer interface {
	Draw(categories []string) (WordPair, error)
}

// Eliminated describes one death applied by an operation. Chained marks a
// Lover dragged down by their partner rather than the voted target.
type Eliminated struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Special string `json:"special,omitempty"`
	Chained bool   `json:"chained,omitempty"`
}

// Result is the outcome of a state-mutating operation, shaped for display.
type Result struct {
	Eliminated  []Eliminated `json:"eliminated,omitempty"`
	GameOver    bool         `json:"game_over"`
	Winners     []string     `json:"winners,omitempty"`
	WinReason   string       `json:"win_reason,omitempty"`
	Breakdown   []ScoreLine  `json:"breakdown,omitempty"`
	Leaderboard []Standing   `json:"leaderboard,omitempty"`
}

// Card is one player's private reveal: what they see when the phone is
// handed to them during role reveal.
type Card struct {
	Name     string `json:"name"`
	MrWhite  bool   `json:"mr_white"`
	Word     string `json:"word,omitempty"`
	Category string `json:"category,omitempty"`
	Special  string `json:"special,omitempty"`
	Partner  string `json:"partner,omitempty"`
}

// Start begins a game: validates the roster against the settings, deals
// roles, draws the word pair, and moves the room into role reveal. On any
// validation failure the room is left untouched.
func (r *Room) Start(words WordDrawer) error {
	if r.Status != StatusWaiting {
		return ErrWrongPhase
	}
	if len(r.Players) < MinPlayers {
		return ErrNotEnoughPlayers
	}
	if r.Settings.badRoleCount() >= len(r.Players)-1 {
		return ErrTooManyBadRoles
	}
	if len(r.Settings.Categories) == 0 {
		return ErrNoCategories
	}

	pair, err := words.Draw(r.Settings.Categories)
	if err != nil {
		return fmt.Errorf("drawing word pair: %w", err)
	}

	for _, p := range r.Players {
		p.Role = RoleNone
		p.Special = SpecialNone
		p.PartnerName = ""
		p.Word = ""
		p.Alive = true
		p.Revealed = false
	}

	r.assignRoles()

	for _, p := range r.Players {
		switch p.Role {
		case RoleUndercover:
			p.Word = pair.Undercover
		case RoleMrWhite:
			// Mr. White gets no word; bluffing is the role.
		default:
			p.Word = pair.Civilian
		}
	}

	r.WordPair = &pair
	r.Round = 1
	r.Status = StatusRoleReveal
	r.MrWhiteGuesserID = ""
	r.RevengerID = ""
	r.FirstEliminatedID = ""
	r.FirstDuelistDownID = ""
	r.winners = nil
	r.winReason = ""
	r.undo = nil
	r.drawMime()
	return nil
}

// Reveal returns a player's private card and marks them as having seen it.
// Once every player has revealed, play begins. Revealing twice is allowed;
// the room only transitions once.
func (r *Room) Reveal(playerID string) (*Card, error) {
	if r.Status != StatusRoleReveal {
		return nil, ErrWrongPhase
	}
	p := r.player(playerID)
	if p == nil {
		return nil, ErrPlayerNotFound
	}
	p.Revealed = true

	all := true
	for _, q := range r.Players {
		if !q.Revealed {
			all = false
			break
		}
	}
	if all {
		r.Status = StatusPlaying
	}

	card := &Card{
		Name:    p.Name,
		MrWhite: p.Role == RoleMrWhite,
		Word:    p.Word,
		Special: p.Special.String(),
		Partner: p.PartnerName,
	}
	if !r.Settings.BlindMode && p.Role != RoleMrWhite {
		card.Category = r.WordPair.Category
	}
	return card, nil
}

// kill marks a player dead and applies the bookkeeping every death shares:
// first-elimination tracking for Joy Fool, first-duelist-down tracking, and
// the Lover chain. The chained partner dies in the same operation and never
// opens a sub-phase of their own.
func (r *Room) kill(p *Player, chained bool, result *Result) {
	p.Alive = false
	if r.FirstEliminatedID == "" {
		r.FirstEliminatedID = p.ID
	}
	if p.Special == SpecialDuelist && r.FirstDuelistDownID == "" {
		r.FirstDuelistDownID = p.ID
	}
	result.Eliminated = append(result.Eliminated, Eliminated{
		ID:      p.ID,
		Name:    p.Name,
		Role:    p.Role.String(),
		Special: p.Special.String(),
		Chained: chained,
	})
	if p.Special == SpecialLover && !chained {
		for _, q := range r.Players {
			if q.Alive && q.Special == SpecialLover && q.ID != p.ID {
				r.kill(q, true, result)
				break
			}
		}
	}
}

// Eliminate records the result of a voting round: the named player dies,
// along with any chained Lover, and the room branches into whichever phase
// the death demands.
func (r *Room) Eliminate(playerID string) (*Result, error) {
	if r.Status != StatusPlaying {
		return nil, ErrWrongPhase
	}
	p := r.player(playerID)
	if p == nil || !p.Alive {
		return nil, ErrPlayerNotFound
	}

	r.pushUndo()
	result := &Result{}
	r.kill(p, false, result)

	switch {
	case p.Role == RoleMrWhite:
		r.Status = StatusMrWhiteGuess
		r.MrWhiteGuesserID = p.ID
	case p.Special == SpecialRevenger && r.anyAlive():
		r.Status = StatusRevengerRevenge
		r.RevengerID = p.ID
	default:
		r.settle(result)
	}
	return result, nil
}

// Skip records a tied vote: nobody dies, the round simply advances.
func (r *Room) Skip() (*Result, error) {
	if r.Status != StatusPlaying {
		return nil, ErrWrongPhase
	}
	r.pushUndo()
	r.nextRound()
	return &Result{}, nil
}

// Revenge applies the dead Revenger's parting shot. The victim (and any
// chained Lover) dies; a Mr. White victim still gets his guess.
func (r *Room) Revenge(victimID string) (*Result, error) {
	if r.Status != StatusRevengerRevenge {
		return nil, ErrWrongPhase
	}
	v := r.player(victimID)
	if v == nil || !v.Alive {
		return nil, ErrPlayerNotFound
	}

	r.pushUndo()
	r.RevengerID = ""
	result := &Result{}
	r.kill(v, false, result)

	if v.Role == RoleMrWhite {
		r.Status = StatusMrWhiteGuess
		r.MrWhiteGuesserID = v.ID
	} else {
		r.settle(result)
	}
	return result, nil
}

// GuessWord resolves Mr. White's last stand. A correct guess of the
// civilian word (compared ignoring case and whitespace) ends the game with
// Mr. White winning outright, no matter who else is still alive.
func (r *Room) GuessWord(guess string) (*Result, error) {
	if r.Status != StatusMrWhiteGuess {
		return nil, ErrWrongPhase
	}
	r.pushUndo()
	r.MrWhiteGuesserID = ""

	result := &Result{}
	if wordsMatch(guess, r.WordPair.Civilian) {
		r.finish([]Role{RoleMrWhite}, "Mr. White guessed the word", true, result)
	} else {
		r.settle(result)
	}
	return result, nil
}

// wordsMatch compares a guess to the civilian word, ignoring case and any
// whitespace differences.
func wordsMatch(guess, word string) bool {
	normalize := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return normalize(guess) == normalize(word)
}

// settle runs the win check after all deaths of an operation have been
// applied, and either finishes the game or advances to the next round.
func (r *Room) settle(result *Result) {
	winners, reason, over := evaluateWinners(r.Players)
	if over {
		r.finish(winners, reason, false, result)
		return
	}
	r.nextRound()
}

func (r *Room) nextRound() {
	r.Status = StatusPlaying
	r.Round++
	r.drawMime()
}

func (r *Room) anyAlive() bool {
	for _, p := range r.Players {
		if p.Alive {
			return true
		}
	}
	return false
}

// evaluateWinners is the pure win-condition check over alive role counts.
// The outnumber branch is checked first: it requires at least one bad guy
// alive, so the two winning branches can never both hold.
func evaluateWinners(players []*Player) (winners []Role, reason string, over bool) {
	var civilians, undercovers, mrWhites int
	for _, p := range players {
		if !p.Alive {
			continue
		}
		switch p.Role {
		case RoleCivilian:
			civilians++
		case RoleUndercover:
			undercovers++
		case RoleMrWhite:
			mrWhites++
		}
	}

	bad := undercovers + mrWhites
	switch {
	case bad > 0 && bad >= civilians:
		if undercovers > 0 {
			winners = append(winners, RoleUndercover)
		}
		if mrWhites > 0 {
			winners = append(winners, RoleMrWhite)
		}
		return winners, "the bad guys outnumber the civilians", true
	case bad == 0:
		return []Role{RoleCivilian}, "every bad guy has been eliminated", true
	default:
		return nil, "", false
	}
}

// finish ends the game: scores are applied once, the outcome is archived,
// and the result is filled in for display.
func (r *Room) finish(winners []Role, reason string, mrWhiteGuessed bool, result *Result) {
	r.Status = StatusFinished
	r.winners = winners
	r.winReason = reason

	breakdown, leaderboard := r.applyScores(winners, mrWhiteGuessed)
	r.History = append(r.History, GameRecord{
		Finished:  now(),
		Winners:   roleNames(winners),
		WinReason: reason,
		Breakdown: breakdown,
	})

	result.GameOver = true
	result.Winners = roleNames(winners)
	result.WinReason = reason
	result.Breakdown = breakdown
	result.Leaderboard = leaderboard
}

// PlayAgain returns a finished room to the waiting state with the same
// roster. Cumulative scores and game history survive; everything tied to
// the finished game is cleared.
func (r *Room) PlayAgain() error {
	if r.Status != StatusFinished {
		return ErrWrongPhase
	}
	for _, p := range r.Players {
		p.Role = RoleNone
		p.Special = SpecialNone
		p.PartnerName = ""
		p.Word = ""
		p.Alive = true
		p.Revealed = false
	}
	r.Status = StatusWaiting
	r.Round = 0
	r.WordPair = nil
	r.MimeID = ""
	r.MrWhiteGuesserID = ""
	r.RevengerID = ""
	r.FirstEliminatedID = ""
	r.FirstDuelistDownID = ""
	r.winners = nil
	r.winReason = ""
	r.undo = nil
	return nil
}

func roleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.String())
	}
	return names
}
