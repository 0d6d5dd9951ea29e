package undercover

import "errors"

// Every operation is total over these preconditions: a rejection never
// mutates room state.
var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomExists       = errors.New("room code already in use")
	ErrRoomFull         = errors.New("room is full")
	ErrWrongPhase       = errors.New("not allowed in the current phase")
	ErrPlayerNotFound   = errors.New("player not found or already eliminated")
	ErrNameTaken        = errors.New("that name is already taken")
	ErrBadName          = errors.New("player name must not be empty")
	ErrCannotRemoveHost = errors.New("the host cannot be removed")
	ErrNotEnoughPlayers = errors.New("at least 3 players are required")
	ErrTooManyBadRoles  = errors.New("too many undercover roles for this player count")
	ErrNoCategories     = errors.New("at least one category must be selected")
	ErrNothingToUndo    = errors.New("nothing to undo")
	ErrBadSettings      = errors.New("invalid settings")
)
