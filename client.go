package main

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBufSize    = 256
	maxNameLen     = 20
	binaryMarker   = 0xFF
)

// Client represents one websocket connection to the relay
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	log        zerolog.Logger

	msgCount   int
	msgResetAt time.Time

	mu   sync.Mutex
	name string
	kit  string
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	id := GenerateUUID()
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         id,
		remoteAddr: remoteAddr,
		log:        log.With().Str("conn", id).Str("remote", remoteAddr).Logger(),
	}
}

// Name returns the display name the client last used
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) setIdentity(name, kit string) {
	c.mu.Lock()
	c.name = name
	c.kit = kit
	c.mu.Unlock()
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	// join-room may carry an avatar data URL
	c.conn.SetReadLimit(int64(maxMessageSize + c.hub.cfg.MaxAvatar))
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("ws error")
			}
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.hub.cfg.MsgPerSecond > 0 && c.msgCount > c.hub.cfg.MsgPerSecond {
			c.log.Warn().Msg("rate limit exceeded, disconnecting")
			break
		}

		if msgType == websocket.BinaryMessage {
			c.forwardBinary(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			var err error
			if len(message) > 0 && message[0] == binaryMarker {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("marshal error")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	// send may already be closed by the hub
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends bytes as a binary websocket message. The marker byte
// lets WritePump tell it apart from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = binaryMarker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// forwardBinary relays an input or state frame without decoding it
func (c *Client) forwardBinary(frame []byte) {
	if len(frame) < 2 {
		return
	}
	for _, to := range c.hub.rooms.Route(c, frame[0]) {
		to.SendBinary(frame)
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Debug().Err(err).Msg("unmarshal error")
		return
	}

	switch env.T {
	case MsgCreateRoom:
		c.handleCreate(env.Rid, env.D)
	case MsgJoinRoom:
		c.handleJoin(env.Rid, env.D)
	case MsgGetRooms:
		c.ack(env.Rid, c.hub.rooms.List())
	case MsgSendInput:
		c.handleInput(env.D)
	case MsgSendState:
		c.handleState(env.D)
	case MsgSendChat:
		c.handleChat(env.D)
	case MsgGoalScored:
		c.handleGoal(env.D)
	case MsgCreateInvite:
		c.handleInvite(env.Rid)
	case MsgLeaveRoom:
		c.hub.leaveRoom(c)
		c.ack(env.Rid, map[string]bool{"success": true})
	default:
		c.SendJSON(Envelope{T: MsgError, Rid: env.Rid, Data: ErrorMsg{Msg: "unknown message type"}})
	}
}

// ack answers a request. Requests without a rid still get the reply, the
// same way a fire-and-forget emit with a callback would.
func (c *Client) ack(rid string, payload interface{}) {
	c.SendJSON(Envelope{T: MsgAck, Rid: rid, Data: payload})
}

func cleanName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	return truncate(name, maxNameLen)
}

func (c *Client) handleCreate(rid string, data json.RawMessage) {
	var msg CreateRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.ack(rid, CreateRoomReply{Error: "bad request"})
		return
	}
	name := cleanName(msg.PlayerName, "Host")
	hash, err := c.hub.auth.HashPassword(msg.Password)
	if err != nil {
		c.ack(rid, CreateRoomReply{Error: err.Error()})
		return
	}

	c.hub.leaveRoom(c)
	room, err := c.hub.rooms.Create(c, name, msg.Duration, hash)
	if err != nil {
		c.ack(rid, CreateRoomReply{Error: err.Error()})
		return
	}
	c.setIdentity(name, "")
	c.ack(rid, CreateRoomReply{Success: true, RoomCode: room.Code})

	c.log.Info().Str("room", room.Code).Str("player", name).Bool("locked", hash != "").Msg("room created")
	c.hub.analytics.Track(EvtRoomCreated, room.Code, name)
	c.hub.BroadcastRooms()
	c.hub.updateLive()
}

func (c *Client) handleJoin(rid string, data json.RawMessage) {
	var msg JoinRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		c.ack(rid, JoinRoomReply{Error: "bad request"})
		return
	}
	code := NormalizeCode(msg.RoomCode)
	room := c.hub.rooms.Get(code)
	if room == nil {
		c.ack(rid, JoinRoomReply{Error: ErrRoomNotFound.Error()})
		return
	}
	if len(msg.Avatar) > c.hub.cfg.MaxAvatar {
		c.ack(rid, JoinRoomReply{Error: "avatar too large"})
		return
	}
	if err := c.hub.auth.CheckJoin(room.PassHash, msg.Password, msg.Invite, room.Code, c.remoteAddr); err != nil {
		c.ack(rid, JoinRoomReply{Error: err.Error()})
		return
	}

	name := cleanName(msg.PlayerName, "Guest")
	if c.hub.rooms.RoomOf(c) != nil {
		c.hub.leaveRoom(c)
	}
	role, notify, err := c.hub.rooms.Join(code, c)
	if err != nil {
		c.ack(rid, JoinRoomReply{Error: err.Error()})
		return
	}
	c.setIdentity(name, msg.KitColor)
	c.ack(rid, JoinRoomReply{Success: true, Role: role, Duration: room.Duration})

	joined := Envelope{T: MsgPlayerJoined, Data: PlayerJoinedMsg{
		PlayerName: name,
		KitColor:   msg.KitColor,
		Avatar:     msg.Avatar,
		Role:       role,
	}}
	for _, m := range notify {
		m.SendJSON(joined)
	}
	c.SendJSON(Envelope{T: MsgLeaderboard, Data: c.hub.Leaderboard()})

	c.log.Info().Str("room", code).Str("player", name).Str("role", role).Msg("joined room")
	c.hub.analytics.Track(EvtRoomJoined, code, role)
	c.hub.BroadcastRooms()
}

// handleInvite issues an invite for the caller's room. Only the host may
// hand out the password bypass.
func (c *Client) handleInvite(rid string) {
	room := c.hub.rooms.RoomOf(c)
	if room == nil || !c.hub.rooms.IsHost(c) {
		c.ack(rid, InviteReply{Error: ErrNotHost.Error()})
		return
	}
	reply, err := buildInvite(c.hub, room)
	if err != nil {
		c.log.Error().Err(err).Str("room", room.Code).Msg("invite")
		c.ack(rid, InviteReply{Error: "could not issue invite"})
		return
	}
	c.ack(rid, reply)
}

// handleInput is the JSON fallback for input frames
func (c *Client) handleInput(data json.RawMessage) {
	var msg InputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	for _, to := range c.hub.rooms.Route(c, FrameInput) {
		to.SendJSON(Envelope{T: MsgReceiveInput, Data: msg})
	}
}

// handleState is the JSON fallback for state frames. The payload is
// passed through untouched.
func (c *Client) handleState(data json.RawMessage) {
	if len(data) == 0 {
		return
	}
	for _, to := range c.hub.rooms.Route(c, FrameState) {
		to.SendJSON(Envelope{T: MsgReceiveState, Data: data})
	}
}

func (c *Client) handleChat(data json.RawMessage) {
	var msg ChatMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	text := truncate(strings.TrimSpace(msg.Message), c.hub.cfg.MaxChatLen)
	if text == "" {
		return
	}
	peers := c.hub.rooms.Peers(c)
	if peers == nil {
		return
	}
	out := ChatMsg{Message: text, PlayerName: cleanName(msg.PlayerName, c.Name()), Color: msg.Color}
	for _, to := range peers {
		to.SendJSON(Envelope{T: MsgReceiveChat, Data: out})
	}
	c.hub.analytics.Track(EvtChat, "", "")
}

// handleGoal credits a goal. Only a room's host is authoritative.
func (c *Client) handleGoal(data json.RawMessage) {
	var msg GoalScoredMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if !c.hub.rooms.IsHost(c) {
		c.log.Debug().Msg("goal report from non-host ignored")
		return
	}
	name := cleanName(msg.PlayerName, "")
	if name == "" {
		return
	}
	room := c.hub.rooms.RoomOf(c)
	code := ""
	if room != nil {
		code = room.Code
	}
	c.hub.RecordGoal(code, name)
}
