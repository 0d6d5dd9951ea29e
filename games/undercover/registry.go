package undercover

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

const (
	roomCodeLength = 6

	// No 0/O/1/I, so codes survive being read aloud and typed.
	roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// Registry is the process-wide keyed store of live rooms. The map itself is
// safe for concurrent use across rooms; a single room's internals are still
// single-writer and must be serialized by the caller.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	undoDepth int
}

// NewRegistry creates an empty registry. undoDepth bounds each room's undo
// stack; zero means DefaultUndoDepth.
func NewRegistry(undoDepth int) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		undoDepth: undoDepth,
	}
}

// NewCode returns a room code not used by any live room.
func (reg *Registry) NewCode() string {
	for {
		code := randomCode(roomCodeLength)

		reg.mu.RLock()
		_, exists := reg.rooms[code]
		reg.mu.RUnlock()

		if !exists {
			return code
		}
	}
}

// CreateRoom registers a new room under code with its host seated. The host
// player id is generated here and unique for the process lifetime.
func (reg *Registry) CreateRoom(code, hostName string) (*Room, error) {
	room := NewRoom(code, uuid.NewString(), hostName, reg.undoDepth, newRand())

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rooms[code]; exists {
		return nil, ErrRoomExists
	}
	reg.rooms[code] = room
	return room, nil
}

// Get looks up a live room by code.
func (reg *Registry) Get(code string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Remove destroys a room. Removing an unknown code is a no-op.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, code)
}

// Len reports how many rooms are live.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// AddPlayer seats a player in a room, minting their id.
func (reg *Registry) AddPlayer(code, name string) (*Player, error) {
	room, err := reg.Get(code)
	if err != nil {
		return nil, err
	}
	return room.AddPlayer(uuid.NewString(), name)
}

func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := crand.Read(buf); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = roomCodeAlphabet[int(buf[i])%len(roomCodeAlphabet)]
	}
	return string(out)
}

// newRand seeds a per-room source from crypto/rand. Rooms own their source
// so tests can build rooms with deterministic ones instead.
func newRand() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}
