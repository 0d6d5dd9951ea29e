package undercover

// PlayerView is one roster entry as shown on the shared display. Role,
// word, and special-role fields are empty unless the view is privileged or
// the game is over; a shared screen must never leak a hidden role mid-game.
type PlayerView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsHost      bool   `json:"is_host"`
	Alive       bool   `json:"alive"`
	Revealed    bool   `json:"revealed"`
	Score       int    `json:"score"`
	GamesPlayed int    `json:"games_played"`
	GamesWon    int    `json:"games_won"`
	Role        string `json:"role,omitempty"`
	Word        string `json:"word,omitempty"`
	Special     string `json:"special,omitempty"`
	Partner     string `json:"partner,omitempty"`
}

// RoomView is the public room state returned by every operation.
type RoomView struct {
	Code          string       `json:"code"`
	Status        string       `json:"status"`
	Round         int          `json:"round"`
	Settings      Settings     `json:"settings"`
	SpeakingOrder []string     `json:"speaking_order"`
	Players       []PlayerView `json:"players"`
	WordPair      *WordPair    `json:"word_pair,omitempty"`
	Mime          string       `json:"mime,omitempty"`
	Guesser       string       `json:"guesser,omitempty"`
	Winners       []string     `json:"winners,omitempty"`
	WinReason     string       `json:"win_reason,omitempty"`
	History       []GameRecord `json:"history,omitempty"`
}

// View renders the room for a caller. Privileged callers (the host device's
// own screens) and finished games see everything; everyone else gets the
// redacted version.
func (r *Room) View(privileged bool) RoomView {
	unredacted := privileged || r.Status == StatusFinished

	view := RoomView{
		Code:          r.Code,
		Status:        r.Status.String(),
		Round:         r.Round,
		Settings:      r.Settings,
		SpeakingOrder: r.SpeakingOrder(),
		Players:       make([]PlayerView, 0, len(r.Players)),
		History:       r.History,
	}

	for _, p := range r.Players {
		pv := PlayerView{
			ID:          p.ID,
			Name:        p.Name,
			IsHost:      p.IsHost,
			Alive:       p.Alive,
			Revealed:    p.Revealed,
			Score:       p.Score,
			GamesPlayed: p.GamesPlayed,
			GamesWon:    p.GamesWon,
		}
		if unredacted {
			pv.Role = p.Role.String()
			pv.Word = p.Word
			pv.Special = p.Special.String()
			pv.Partner = p.PartnerName
		}
		view.Players = append(view.Players, pv)
	}

	if r.Status == StatusFinished {
		view.WordPair = r.WordPair
		view.Winners = roleNames(r.winners)
		view.WinReason = r.winReason
	}
	if unredacted {
		if mime := r.player(r.MimeID); mime != nil {
			view.Mime = mime.Name
		}
	}
	if guesser := r.player(r.MrWhiteGuesserID); guesser != nil {
		view.Guesser = guesser.Name
	}

	return view
}
