// Undercover party game transport
//
// One device runs the whole room: the host opens a room, seats the players
// sitting around the table, and passes the phone so everyone can peek at
// their secret card. The host device records the outcome of each spoken
// voting round; the game core in games/undercover decides what happens.
//
// Features:
// - WebSockets per room code: /path/:code and /path/:code/ws
// - First connection to a room becomes the host device (cookie-based)
// - All game actions are host-only; other connections spectate
// - Private reveal cards are sent only to the requesting connection
// - Everyone else sees the redacted room state (roles hidden mid-game)
// - Per-connection rate limiting on inbound messages
// - Rooms auto-reaped after configurable idle timeout
// - Host disconnect tears the room down after a grace period
// - Random 6-char room codes, collision-checked server-side
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
	"golang.org/x/time/rate"

	"github.com/partydeck/undercover/games/undercover"
	"github.com/partydeck/undercover/words"
)

// Messages coming from clients
type ClientMessage struct {
	Type     string               `json:"type"`                // action name
	Name     string               `json:"name,omitempty"`      // create / add_player
	TargetID string               `json:"target_id,omitempty"` // remove_player / reveal / eliminate / revenge
	Guess    string               `json:"guess,omitempty"`     // guess
	Settings *undercover.Settings `json:"settings,omitempty"`  // settings
}

// SessionInfoMessage is sent immediately on connect so the client knows
// whether this cookie is the host device and whether the room exists yet.
type SessionInfoMessage struct {
	Type       string `json:"type"` // "session_info"
	Code       string `json:"code"`
	IsHost     bool   `json:"is_host"`
	RoomExists bool   `json:"room_exists"`
}

// RoomStateMessage carries the redacted room view to every connection.
type RoomStateMessage struct {
	Type string              `json:"type"` // "room_state"
	Room undercover.RoomView `json:"room"`
}

// CardMessage is a private reveal, sent only to the connection that asked.
type CardMessage struct {
	Type string           `json:"type"` // "card"
	Card *undercover.Card `json:"card"`
}

// ResultMessage reports the outcome of a state-mutating action.
type ResultMessage struct {
	Type   string             `json:"type"` // "result"
	Action string             `json:"action"`
	Result *undercover.Result `json:"result"`
}

// ErrorMessage is sent only to the offending connection.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	deviceID string
	limiter  *rate.Limiter
}

type actionRequest struct {
	client *Client
	msg    ClientMessage
}

// Hub owns one room's connections. All room mutation happens on the run
// goroutine, which satisfies the core's single-writer requirement.
type Hub struct {
	code    string
	clients map[*Client]bool
	room    *undercover.Room

	register chan *Client
	unreg    chan *Client
	actions  chan actionRequest

	mu sync.RWMutex

	createdAt    time.Time
	lastActive   time.Time
	hostDeviceID string // cookie of the first connection; only it may act

	registry *undercover.Registry
	drawer   undercover.WordDrawer
}

func newHub(code string, registry *undercover.Registry, drawer undercover.WordDrawer) *Hub {
	now := time.Now()
	return &Hub{
		code:       code,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		actions:    make(chan actionRequest),
		createdAt:  now,
		lastActive: now,
		registry:   registry,
		drawer:     drawer,
	}
}

func (h *Hub) run(cfg *Config, rm *RoomManager) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()

			// First connection becomes the host device
			if h.hostDeviceID == "" {
				h.hostDeviceID = c.deviceID
			}
			isHost := h.hostDeviceID == c.deviceID

			h.clients[c] = true

			c.send <- SessionInfoMessage{
				Type:       "session_info",
				Code:       h.code,
				IsHost:     isHost,
				RoomExists: h.room != nil,
			}
			if h.room != nil {
				c.send <- RoomStateMessage{
					Type: "room_state",
					Room: h.room.View(false),
				}
			}
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			wasHost := c.deviceID == h.hostDeviceID
			h.mu.Unlock()

			// A room without its host device is dead weight; give the
			// host a grace period to reconnect, then tear it down.
			if wasHost {
				go h.scheduleTeardown(cfg, rm, hostGracePeriod)
			}

		case ar := <-h.actions:
			h.handleAction(cfg, ar)
		}
	}
}

const hostGracePeriod = 2 * time.Minute

// scheduleTeardown waits for d, and if no connection with the host cookie
// has returned, destroys the room and disconnects everyone.
func (h *Hub) scheduleTeardown(cfg *Config, rm *RoomManager, d time.Duration) {
	time.Sleep(d)

	h.mu.Lock()
	for c := range h.clients {
		if c.deviceID == h.hostDeviceID {
			h.mu.Unlock()
			return
		}
	}
	h.mu.Unlock()

	logf(cfg, "GAMES: Host left room %s; closing it", h.code)
	rm.remove(h.code)
}

// handleAction dispatches one client message against the room.
func (h *Hub) handleAction(cfg *Config, ar actionRequest) {
	c := ar.client
	msg := ar.msg

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if c.deviceID != h.hostDeviceID {
		h.sendLocked(c, ErrorMessage{
			Type:    "error",
			Message: "Only the host device can do that.",
		})
		return
	}

	if h.room == nil && msg.Type != "create" {
		h.sendLocked(c, ErrorMessage{
			Type:    "error",
			Message: "This room has not been opened yet.",
		})
		return
	}

	var (
		err    error
		result *undercover.Result
	)

	switch msg.Type {
	case "create":
		if h.room != nil {
			return
		}
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			name = "Host"
		}
		h.room, err = h.registry.CreateRoom(h.code, name)
		if err == nil {
			logf(cfg, "GAMES: Opened room %s for %q", h.code, name)
		}

	case "add_player":
		_, err = h.registry.AddPlayer(h.code, msg.Name)
		if err == nil {
			logf(cfg, "GAMES: Player %q joined %s", strings.TrimSpace(msg.Name), h.code)
		}

	case "remove_player":
		err = h.room.RemovePlayer(msg.TargetID)

	case "settings":
		if msg.Settings == nil {
			return
		}
		err = h.room.UpdateSettings(*msg.Settings)

	case "start":
		err = h.room.Start(h.drawer)
		if err == nil {
			logf(cfg, "GAMES: Started a game in %s with %d players", h.code, len(h.room.Players))
		}

	case "reveal":
		var card *undercover.Card
		card, err = h.room.Reveal(msg.TargetID)
		if err == nil {
			h.sendLocked(c, CardMessage{Type: "card", Card: card})
		}

	case "eliminate":
		result, err = h.room.Eliminate(msg.TargetID)

	case "skip":
		result, err = h.room.Skip()

	case "revenge":
		result, err = h.room.Revenge(msg.TargetID)

	case "guess":
		result, err = h.room.GuessWord(msg.Guess)

	case "play_again":
		err = h.room.PlayAgain()

	case "undo":
		err = h.room.Undo()

	case "reset_scores":
		err = h.room.ResetScores()

	default:
		return
	}

	if err != nil {
		h.sendLocked(c, ErrorMessage{
			Type:    "error",
			Message: err.Error(),
		})
		return
	}

	if result != nil {
		h.broadcastLocked(ResultMessage{
			Type:   "result",
			Action: msg.Type,
			Result: result,
		})
		if result.GameOver {
			logf(cfg, "GAMES: Game over in %s: %s", h.code, result.WinReason)
		}
	}
	h.broadcastStateLocked()
}

func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

func (h *Hub) broadcastStateLocked() {
	if h.room == nil {
		return
	}
	h.broadcastLocked(RoomStateMessage{
		Type: "room_state",
		Room: h.room.View(false),
	})
}

// closeAll disconnects all clients of this hub (used by the reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "undercover_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// RoomManager holds a set of hubs keyed by room code, so each $path/$code
// is its own isolated session. Hubs and the registry stay in lockstep.
type RoomManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	registry    *undercover.Registry
	drawer      undercover.WordDrawer
	idleTimeout time.Duration
}

func newRoomManager(cfg *Config, drawer undercover.WordDrawer) *RoomManager {
	rm := &RoomManager{
		hubs:        make(map[string]*Hub),
		registry:    undercover.NewRegistry(cfg.undoDepth),
		drawer:      drawer,
		idleTimeout: cfg.sessionTimeout,
	}
	if cfg.sessionTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

func (rm *RoomManager) getHub(cfg *Config, code string) *Hub {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if hub, ok := rm.hubs[code]; ok {
		return hub
	}

	hub := newHub(code, rm.registry, rm.drawer)
	rm.hubs[code] = hub
	go hub.run(cfg, rm)
	return hub
}

// remove destroys a room: registry entry, hub, and all its connections.
func (rm *RoomManager) remove(code string) {
	rm.mu.Lock()
	hub, ok := rm.hubs[code]
	if ok {
		delete(rm.hubs, code)
	}
	rm.mu.Unlock()

	rm.registry.Remove(code)
	if ok {
		hub.closeAll()
	}
}

// reaperLoop periodically removes hubs that have been idle longer than
// idleTimeout.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rm.idleTimeout)

		rm.mu.Lock()
		stale := make([]string, 0)
		for code, hub := range rm.hubs {
			hub.mu.RLock()
			last := hub.lastActive
			hub.mu.RUnlock()

			if last.Before(cutoff) {
				stale = append(stale, code)
			}
		}
		rm.mu.Unlock()

		for _, code := range stale {
			rm.remove(code)
		}
	}
}

// WebSocket handler that picks the hub based on :code
func serveWSForRooms(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := ps.ByName("code")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		deviceID := getOrSetPlayerID(w, r)
		if deviceID == "" {
			http.Error(w, "unable to assign device id", http.StatusInternalServerError)
			return
		}

		hub := rm.getHub(cfg, code)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 8),
			deviceID: deviceID,
			limiter:  rate.NewLimiter(rate.Limit(10), 20),
		}

		hub.register <- client

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		if !c.limiter.Allow() {
			continue
		}

		h.actions <- actionRequest{
			client: c,
			msg:    msg,
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("code")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:code/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// catalogDrawer adapts the words catalog to the game core's word source.
// The catalog's Main is the civilian word; polarity is already resolved.
type catalogDrawer struct {
	store *words.Store
}

func (d catalogDrawer) Draw(categories []string) (undercover.WordPair, error) {
	p, err := d.store.Draw(categories)
	if err != nil {
		return undercover.WordPair{}, err
	}
	return undercover.WordPair{
		Civilian:   p.Main,
		Undercover: p.Alt,
		Category:   p.Category,
	}, nil
}

// serveCategories lists the catalog's categories so the settings screen can
// offer them.
func serveCategories(cfg *Config, catalog *words.Store) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		counts, err := catalog.Categories()
		if err != nil {
			http.Error(w, "catalog unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(counts)
	}
}

// ---- Static file paths ----

//go:embed undercover/index.html
var indexHTML []byte

//go:embed undercover/app.css
var undercoverCSS []byte

//go:embed undercover/app.js
var undercoverJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(undercoverCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(undercoverJS)
	}
}

// redirectNewRoom handles GET /path by generating a new random room code
// (with server-side collision detection) and redirecting to /path/:code.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := rm.registry.NewCode()
		logf(cfg, "GAMES: Created room %s/%s", path, code)
		http.Redirect(w, r, cfg.prefix+path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// registerUndercoverGame sets up routes so that:
//   - $path                  → redirects to a new random room (6-char code)
//   - $path/:code            → HTML client
//   - $path/:code/ws         → WebSocket for that room
//   - $path/:code/qr         → PNG QR code for that room URL
func registerUndercoverGame(cfg *Config, path string, mux *httprouter.Router, catalog *words.Store) {
	rm := newRoomManager(cfg, catalogDrawer{store: catalog})

	// Root path → redirect to new random room
	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, path, rm))

	// Per-room client view (HTML)
	mux.GET(cfg.prefix+path+"/:code", getIndexHandler(cfg))

	// Shared assets (no code in route)
	mux.GET(cfg.prefix+"/assets/undercover/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/undercover/app.js", getJsHandler(cfg))

	// Word catalog categories for the settings screen
	mux.GET(cfg.prefix+"/api/undercover/categories", serveCategories(cfg, catalog))

	// Per-room websocket
	mux.GET(cfg.prefix+path+"/:code/ws", serveWSForRooms(cfg, rm))

	// Per-room QR code
	mux.GET(cfg.prefix+path+"/:code/qr", qrHandler)
}
