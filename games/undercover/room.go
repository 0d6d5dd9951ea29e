// Undercover is a pass-the-phone social deduction game.
//
// One host device holds the whole room: the host adds the players sitting
// around the table, hands the phone around so everyone can peek at their
// secret word, and records the outcome of each spoken voting round. Most
// players share a "civilian" word, a few hold a close-but-different
// "undercover" word, and Mr. White holds no word at all and has to bluff.
// Optional special roles (Joy Fool, Lovers, Revenger, Duelists, Mr. Meme)
// layer extra win conditions and scoring on top.
//
// This package is the game core: the room/game state machine, role
// assignment, scoring, undo, and the room registry. It performs no I/O and
// assumes single-writer access per room; the transport layer serializes all
// calls for one room.
package undercover

import (
	"math/rand/v2"
	"strings"
	"time"
)

// Status is a room's position in the elimination state machine.
type Status int

// now is a test seam for history timestamps.
var now = time.Now

const (
	StatusWaiting Status = iota
	StatusRoleReveal
	StatusPlaying
	StatusMrWhiteGuess
	StatusRevengerRevenge
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRoleReveal:
		return "role_reveal"
	case StatusPlaying:
		return "playing"
	case StatusMrWhiteGuess:
		return "mr_white_guess"
	case StatusRevengerRevenge:
		return "revenger_revenge"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Role is one of the three standard factions. Undercover and MrWhite are
// collectively the bad guys.
type Role int

const (
	RoleNone Role = iota
	RoleCivilian
	RoleUndercover
	RoleMrWhite
)

func (r Role) String() string {
	switch r {
	case RoleCivilian:
		return "civilian"
	case RoleUndercover:
		return "undercover"
	case RoleMrWhite:
		return "mr_white"
	default:
		return ""
	}
}

// SpecialRole is an optional secondary tag layered on a standard role.
// A player holds at most one. Mr. Meme is not a held role; it is redrawn
// every round and tracked on the room instead.
type SpecialRole int

const (
	SpecialNone SpecialRole = iota
	SpecialJoyFool
	SpecialLover
	SpecialRevenger
	SpecialDuelist
)

func (s SpecialRole) String() string {
	switch s {
	case SpecialJoyFool:
		return "joy_fool"
	case SpecialLover:
		return "lover"
	case SpecialRevenger:
		return "revenger"
	case SpecialDuelist:
		return "duelist"
	default:
		return ""
	}
}

const (
	// MinPlayers is the smallest roster a game can start with.
	MinPlayers = 3

	// MaxPlayers is the largest roster a room can hold.
	MaxPlayers = 12

	// DefaultUndoDepth bounds the undo stack; the oldest snapshot is
	// dropped once the stack is full.
	DefaultUndoDepth = 32
)

// RoleOption configures one optional special role: whether it is in play at
// all, and the percent chance (0-100) that it is actually dealt each game.
type RoleOption struct {
	Enabled bool `json:"enabled"`
	Chance  int  `json:"chance"`
}

// Settings is the per-room configuration, mutable only while the room is
// waiting for a game to start.
type Settings struct {
	Undercovers    int        `json:"undercovers"`
	IncludeMrWhite bool       `json:"include_mr_white"`
	Categories     []string   `json:"categories"`
	FairStart      bool       `json:"fair_start"`
	BlindMode      bool       `json:"blind_mode"`
	JoyFool        RoleOption `json:"joy_fool"`
	Lovers         RoleOption `json:"lovers"`
	Revenger       RoleOption `json:"revenger"`
	Duelists       RoleOption `json:"duelists"`
	MrMeme         RoleOption `json:"mr_meme"`
}

// DefaultSettings returns the configuration a fresh room starts with.
func DefaultSettings() Settings {
	return Settings{
		Undercovers:    1,
		IncludeMrWhite: true,
		Categories:     []string{},
		FairStart:      true,
	}
}

func (s Settings) validate() error {
	if s.Undercovers < 1 || s.Undercovers > 4 {
		return ErrBadSettings
	}
	for _, opt := range []RoleOption{s.JoyFool, s.Lovers, s.Revenger, s.Duelists, s.MrMeme} {
		if opt.Chance < 0 || opt.Chance > 100 {
			return ErrBadSettings
		}
	}
	return nil
}

// badRoleCount is how many non-civilian standard roles these settings deal.
func (s Settings) badRoleCount() int {
	n := s.Undercovers
	if s.IncludeMrWhite {
		n++
	}
	return n
}

// WordPair is the word assignment for one game. Polarity (which of the
// catalog's two words ended up civilian) is already resolved by the word
// source at draw time.
type WordPair struct {
	Civilian   string `json:"civilian"`
	Undercover string `json:"undercover"`
	Category   string `json:"category"`
}

// Player is one seat at the table. Players belong to exactly one room and
// are never removed mid-game, only marked dead.
type Player struct {
	ID          string
	Name        string
	IsHost      bool
	Role        Role
	Special     SpecialRole
	PartnerName string
	Word        string
	Alive       bool
	Revealed    bool
	Score       int
	GamesPlayed int
	GamesWon    int
}

// GameRecord is one finished game's archived outcome. Records survive
// play-again resets and are only dropped by an explicit score reset.
type GameRecord struct {
	Finished  time.Time   `json:"finished"`
	Winners   []string    `json:"winners"`
	WinReason string      `json:"win_reason"`
	Breakdown []ScoreLine `json:"breakdown"`
}

// Room is one active game session. All mutation goes through the state
// machine methods; callers never touch fields directly.
type Room struct {
	Code     string
	Status   Status
	Settings Settings
	Players  []*Player
	Round    int
	WordPair *WordPair
	History  []GameRecord

	// Special-role bookkeeping for the current game.
	MimeID             string
	MrWhiteGuesserID   string
	RevengerID         string
	FirstEliminatedID  string
	FirstDuelistDownID string

	winners   []Role
	winReason string

	undo      []snapshot
	undoDepth int
	rng       *rand.Rand
}

// NewRoom creates a room in the waiting state with its host already seated.
// The rng drives every shuffle and probability roll so tests can pass a
// deterministic source.
func NewRoom(code, hostID, hostName string, undoDepth int, rng *rand.Rand) *Room {
	if undoDepth <= 0 {
		undoDepth = DefaultUndoDepth
	}
	return &Room{
		Code:     code,
		Status:   StatusWaiting,
		Settings: DefaultSettings(),
		Players: []*Player{{
			ID:     hostID,
			Name:   hostName,
			IsHost: true,
			Alive:  true,
		}},
		undoDepth: undoDepth,
		rng:       rng,
	}
}

// Host returns the room's host player. Every room has exactly one for its
// whole lifetime.
func (r *Room) Host() *Player {
	for _, p := range r.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (r *Room) player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// SpeakingOrder is the alive players in current seating order. It is a
// derived view, so it is always consistent with the roster.
func (r *Room) SpeakingOrder() []string {
	order := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Alive {
			order = append(order, p.Name)
		}
	}
	return order
}

func (r *Room) aliveCount() (civilians, undercovers, mrWhites int) {
	for _, p := range r.Players {
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
	return
}

// AddPlayer seats a new player. Only allowed while waiting, capped at
// MaxPlayers, and names must be unique within the room ignoring case.
func (r *Room) AddPlayer(id, name string) (*Player, error) {
	if r.Status != StatusWaiting {
		return nil, ErrWrongPhase
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBadName
	}
	if len(r.Players) >= MaxPlayers {
		return nil, ErrRoomFull
	}
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			return nil, ErrNameTaken
		}
	}
	p := &Player{ID: id, Name: name, Alive: true}
	r.Players = append(r.Players, p)
	return p, nil
}

// RemovePlayer unseats a player. Only allowed while waiting, and the host
// can never be removed.
func (r *Room) RemovePlayer(id string) error {
	if r.Status != StatusWaiting {
		return ErrWrongPhase
	}
	for i, p := range r.Players {
		if p.ID != id {
			continue
		}
		if p.IsHost {
			return ErrCannotRemoveHost
		}
		r.Players = append(r.Players[:i], r.Players[i+1:]...)
		return nil
	}
	return ErrPlayerNotFound
}

// UpdateSettings replaces the room settings. Only allowed while waiting.
func (r *Room) UpdateSettings(s Settings) error {
	if r.Status != StatusWaiting {
		return ErrWrongPhase
	}
	if err := s.validate(); err != nil {
		return err
	}
	r.Settings = s
	return nil
}

// ResetScores zeroes every player's cumulative counters and drops the game
// history. Only allowed while waiting.
func (r *Room) ResetScores() error {
	if r.Status != StatusWaiting {
		return ErrWrongPhase
	}
	for _, p := range r.Players {
		p.Score = 0
		p.GamesPlayed = 0
		p.GamesWon = 0
	}
	r.History = nil
	return nil
}
