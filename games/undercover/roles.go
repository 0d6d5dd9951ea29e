package undercover

// Role assignment for one game: the standard role multiset, the optional
// special roles, and the seating reshuffle that produces the reveal order.

const (
	minPlayersJoyFool  = 3
	minPlayersRevenger = 5
	minPlayersLovers   = 5
	minPlayersDuelists = 5

	// fairStartRetries bounds the reshuffle loop that keeps Mr. White out
	// of the first speaking slot.
	fairStartRetries = 16
)

// assignRoles deals standard and special roles to the current roster and
// reshuffles the seating order. Callers have already validated the roster
// against the settings.
func (r *Room) assignRoles() {
	n := len(r.Players)

	roles := make([]Role, 0, n)
	for i := 0; i < r.Settings.Undercovers; i++ {
		roles = append(roles, RoleUndercover)
	}
	if r.Settings.IncludeMrWhite {
		roles = append(roles, RoleMrWhite)
	}
	for len(roles) < n {
		roles = append(roles, RoleCivilian)
	}

	r.rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})
	for i, p := range r.Players {
		p.Role = roles[i]
	}

	r.assignSpecialRoles()
	r.shuffleSeating()
}

// roll returns true when an enabled option passes its percent chance.
func (r *Room) roll(opt RoleOption) bool {
	if !opt.Enabled || opt.Chance <= 0 {
		return false
	}
	return r.rng.IntN(100) < opt.Chance
}

// unassigned returns players with no special role yet, filtered by ok.
func (r *Room) unassigned(ok func(*Player) bool) []*Player {
	var out []*Player
	for _, p := range r.Players {
		if p.Special != SpecialNone {
			continue
		}
		if ok != nil && !ok(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *Room) pickOne(candidates []*Player) *Player {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[r.rng.IntN(len(candidates))]
}

func (r *Room) assignSpecialRoles() {
	n := len(r.Players)

	// Joy Fool: any unassigned player.
	if n >= minPlayersJoyFool && r.roll(r.Settings.JoyFool) {
		if p := r.pickOne(r.unassigned(nil)); p != nil {
			p.Special = SpecialJoyFool
		}
	}

	// Revenger: must not be Mr. White, who already gets an end-of-life
	// action of his own.
	if n >= minPlayersRevenger && r.roll(r.Settings.Revenger) {
		if p := r.pickOne(r.unassigned(func(p *Player) bool {
			return p.Role != RoleMrWhite
		})); p != nil {
			p.Special = SpecialRevenger
		}
	}

	// Lovers: at least one of the pair must be a Civilian, so two
	// disruptive bad-guy roles never end up chained together.
	if n >= minPlayersLovers && r.roll(r.Settings.Lovers) {
		first := r.pickOne(r.unassigned(func(p *Player) bool {
			return p.Role == RoleCivilian
		}))
		if first != nil {
			second := r.pickOne(r.unassigned(func(p *Player) bool {
				return p != first
			}))
			if second != nil {
				first.Special, second.Special = SpecialLover, SpecialLover
				first.PartnerName, second.PartnerName = second.Name, first.Name
			}
		}
	}

	// Duelists: any two unassigned players.
	if n >= minPlayersDuelists && r.roll(r.Settings.Duelists) {
		pool := r.unassigned(nil)
		if len(pool) >= 2 {
			i := r.rng.IntN(len(pool))
			first := pool[i]
			pool = append(pool[:i], pool[i+1:]...)
			second := pool[r.rng.IntN(len(pool))]
			first.Special, second.Special = SpecialDuelist, SpecialDuelist
			first.PartnerName, second.PartnerName = second.Name, first.Name
		}
	}
}

// shuffleSeating reorders the player array itself so reveal and speaking
// order are fresh each game. With fair start enabled, bounded retries keep
// Mr. White out of the first slot.
func (r *Room) shuffleSeating() {
	shuffle := func() {
		r.rng.Shuffle(len(r.Players), func(i, j int) {
			r.Players[i], r.Players[j] = r.Players[j], r.Players[i]
		})
	}

	shuffle()
	if !r.Settings.FairStart || !r.Settings.IncludeMrWhite {
		return
	}
	for i := 0; i < fairStartRetries && r.Players[0].Role == RoleMrWhite; i++ {
		shuffle()
	}
}

// drawMime picks the round's Mr. Meme, or nobody. Mr. White is never
// eligible: gesture-only play would mask having no word at all.
func (r *Room) drawMime() {
	r.MimeID = ""
	if !r.roll(r.Settings.MrMeme) {
		return
	}
	var pool []*Player
	for _, p := range r.Players {
		if p.Alive && p.Role != RoleMrWhite {
			pool = append(pool, p)
		}
	}
	if p := r.pickOne(pool); p != nil {
		r.MimeID = p.ID
	}
}
