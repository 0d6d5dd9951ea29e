package undercover

// Undo is snapshot-based: a deep copy of every mutable game field is pushed
// before each state-mutating action, and Undo restores the most recent copy
// wholesale. The stack is bounded (oldest dropped first) and never crosses
// a game boundary: Start and PlayAgain clear it.

type snapshot struct {
	status             Status
	round              int
	players            []Player
	wordPair           *WordPair
	mimeID             string
	mrWhiteGuesserID   string
	revengerID         string
	firstEliminatedID  string
	firstDuelistDownID string
	winners            []Role
	winReason          string
	historyLen         int
}

// pushUndo captures the room's mutable state. Called immediately before
// every elimination, skip, revenge pick, and Mr. White guess.
func (r *Room) pushUndo() {
	snap := snapshot{
		status:             r.Status,
		round:              r.Round,
		players:            make([]Player, len(r.Players)),
		mimeID:             r.MimeID,
		mrWhiteGuesserID:   r.MrWhiteGuesserID,
		revengerID:         r.RevengerID,
		firstEliminatedID:  r.FirstEliminatedID,
		firstDuelistDownID: r.FirstDuelistDownID,
		winners:            append([]Role(nil), r.winners...),
		winReason:          r.winReason,
		historyLen:         len(r.History),
	}
	for i, p := range r.Players {
		snap.players[i] = *p
	}
	if r.WordPair != nil {
		pair := *r.WordPair
		snap.wordPair = &pair
	}

	if len(r.undo) >= r.undoDepth {
		copy(r.undo, r.undo[1:])
		r.undo = r.undo[:len(r.undo)-1]
	}
	r.undo = append(r.undo, snap)
}

// Undo reverts the last state-mutating action, reviving any players it
// eliminated and restoring phase, round, and special-role bookkeeping. If
// the action had finished the game, its archived record is dropped too.
func (r *Room) Undo() error {
	if len(r.undo) == 0 {
		return ErrNothingToUndo
	}
	snap := r.undo[len(r.undo)-1]
	r.undo = r.undo[:len(r.undo)-1]

	r.Status = snap.status
	r.Round = snap.round
	r.MimeID = snap.mimeID
	r.MrWhiteGuesserID = snap.mrWhiteGuesserID
	r.RevengerID = snap.revengerID
	r.FirstEliminatedID = snap.firstEliminatedID
	r.FirstDuelistDownID = snap.firstDuelistDownID
	r.winners = snap.winners
	r.winReason = snap.winReason
	r.WordPair = snap.wordPair
	if len(r.History) > snap.historyLen {
		r.History = r.History[:snap.historyLen]
	}

	players := make([]*Player, len(snap.players))
	for i := range snap.players {
		p := snap.players[i]
		players[i] = &p
	}
	r.Players = players
	return nil
}

// UndoDepth reports how many snapshots are currently stacked.
func (r *Room) UndoDepth() int {
	return len(r.undo)
}
