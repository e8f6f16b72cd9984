package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub manages all connected clients and routes them to rooms
type Hub struct {
	cfg RelayConfig

	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	rooms      *RoomManager

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	db        *DB
	auth      *Auth
	analytics *Analytics
}

// NewHub creates a Hub. db may be nil, in which case the leaderboard is
// not persisted.
func NewHub(cfg RelayConfig, db *DB) *Hub {
	return &Hub{
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		rooms:      NewRoomManager(cfg.MaxRooms, cfg.RoomCodeLen),
		ipConns:    make(map[string]int),
		db:         db,
		auth:       NewAuth(db),
		analytics:  NewAnalytics(db),
	}
}

// CanAccept reports whether another connection from ip is allowed
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.cfg.MaxConns > 0 && h.totalConns >= h.cfg.MaxConns {
		return false
	}
	if h.cfg.MaxConnsIP > 0 && h.ipConns[ip] >= h.cfg.MaxConnsIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer h.analytics.Stop()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.updateLive()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.leaveRoom(client)
			h.updateLive()
		}
	}
}

// leaveRoom detaches c from its room and tells the others. A departing
// host closes the room.
func (h *Hub) leaveRoom(c *Client) {
	res := h.rooms.Leave(c)
	if res.Room == nil {
		return
	}
	logger := log.With().Str("room", res.Room.Code).Str("player", c.Name()).Logger()
	switch {
	case res.Closed:
		for _, m := range res.Notify {
			m.SendJSON(Envelope{T: MsgHostDisconnected})
		}
		h.analytics.Track(EvtRoomClosed, res.Room.Code, "")
		logger.Info().Msg("host left, room closed")
	case res.WasGuest:
		for _, m := range res.Notify {
			m.SendJSON(Envelope{T: MsgPlayerLeft})
		}
		logger.Info().Msg("guest left")
	default:
		logger.Debug().Msg("spectator left")
	}
	h.BroadcastRooms()
}

// BroadcastRooms pushes the room list to every client not in a room
func (h *Hub) BroadcastRooms() {
	list := h.rooms.List()
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if h.rooms.RoomOf(c) == nil {
			c.SendJSON(Envelope{T: MsgRoomsUpdated, Data: list})
		}
	}
}

// BroadcastAll sends a message to every connected client
func (h *Hub) BroadcastAll(msg Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.SendJSON(msg)
	}
}

// Leaderboard returns the current top scorers as name -> goals
func (h *Hub) Leaderboard() map[string]int {
	if h.db == nil {
		return map[string]int{}
	}
	entries, err := h.db.GetLeaderboard(10)
	if err != nil {
		log.Warn().Err(err).Msg("read leaderboard")
		return map[string]int{}
	}
	return LeaderboardMap(entries)
}

// RecordGoal credits a goal to the player's running total and pushes the
// new leaderboard to everyone. Only the total is kept; the room is logged.
func (h *Hub) RecordGoal(roomCode, playerName string) {
	if h.db != nil {
		if _, err := h.db.AddGoal(playerName); err != nil {
			log.Warn().Err(err).Str("player", playerName).Msg("record goal")
			return
		}
	}
	log.Debug().Str("room", roomCode).Str("player", playerName).Msg("goal")
	h.BroadcastAll(Envelope{T: MsgLeaderboard, Data: h.Leaderboard()})
}

func (h *Hub) updateLive() {
	h.analytics.SetLive(h.ClientCount(), h.rooms.Count())
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
