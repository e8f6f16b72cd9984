package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected  = errors.New("not connected to relay")
	ErrRequestFailed = errors.New("relay request failed")
)

// PeerEventType names an asynchronous message from the relay
type PeerEventType string

const (
	EvPlayerJoined     PeerEventType = MsgPlayerJoined
	EvHostDisconnected PeerEventType = MsgHostDisconnected
	EvPlayerLeft       PeerEventType = MsgPlayerLeft
	EvLeaderboard      PeerEventType = MsgLeaderboard
	EvRoomsUpdated     PeerEventType = MsgRoomsUpdated
	EvInput            PeerEventType = MsgReceiveInput
	EvState            PeerEventType = MsgReceiveState
	EvChat             PeerEventType = MsgReceiveChat
	EvDisconnected     PeerEventType = "disconnected"
)

// PeerEvent is one message from the relay, already decoded
type PeerEvent struct {
	Type        PeerEventType
	Input       ControlState
	State       Snapshot
	Joined      PlayerJoinedMsg
	Chat        ChatMsg
	Leaderboard map[string]int
	Rooms       []RoomInfo
	Err         error
}

// StateSender is what the host needs from the transport
type StateSender interface {
	SendState(s Snapshot) error
	ReportGoal(playerName string) error
}

// InputSender is what a client needs from the transport
type InputSender interface {
	SendInput(c ControlState) error
}

// Transport is the full relay surface used by a peer
type Transport interface {
	StateSender
	InputSender
	CreateRoom(ctx context.Context, req CreateRoomMsg) (CreateRoomReply, error)
	JoinRoom(ctx context.Context, req JoinRoomMsg) (JoinRoomReply, error)
	ListRooms(ctx context.Context) ([]RoomInfo, error)
	CreateInvite(ctx context.Context) (InviteReply, error)
	SendChat(text, name, color string) error
	Events() <-chan PeerEvent
	Close() error
}

type outFrame struct {
	binary bool
	data   []byte
}

// RelayClient talks to the relay server over one websocket
type RelayClient struct {
	conn   *websocket.Conn
	send   chan outFrame
	events chan PeerEvent

	mu      sync.Mutex
	pending map[string]chan json.RawMessage

	done      chan struct{}
	closeOnce sync.Once
}

// DialRelay connects to a relay websocket URL
func DialRelay(ctx context.Context, url string) (*RelayClient, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	c := &RelayClient{
		conn:    conn,
		send:    make(chan outFrame, sendBufSize),
		events:  make(chan PeerEvent, sendBufSize),
		pending: make(map[string]chan json.RawMessage),
		done:    make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c, nil
}

// Events delivers relay messages. The channel is closed after the
// connection drops (an EvDisconnected event is sent first).
func (c *RelayClient) Events() <-chan PeerEvent {
	return c.events
}

// Close shuts the connection down
func (c *RelayClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *RelayClient) enqueue(f outFrame) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return ErrNotConnected
	default:
		// relay too slow; dropping is fine for a full-state stream
		return nil
	}
}

func (c *RelayClient) emit(t string, payload interface{}) error {
	data, err := json.Marshal(Envelope{T: t, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", t, err)
	}
	return c.enqueue(outFrame{data: data})
}

// request sends a message and waits for the relay's ack
func (c *RelayClient) request(ctx context.Context, t string, payload, reply interface{}) error {
	rid := GenerateUUID()
	ch := make(chan json.RawMessage, 1)
	c.mu.Lock()
	c.pending[rid] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, rid)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(Envelope{T: t, Rid: rid, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", t, err)
	}
	select {
	case c.send <- outFrame{data: data}:
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case raw := <-ch:
		if reply == nil {
			return nil
		}
		if err := json.Unmarshal(raw, reply); err != nil {
			return fmt.Errorf("decode %s reply: %w", t, err)
		}
		return nil
	case <-c.done:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateRoom creates a room and makes this connection its host
func (c *RelayClient) CreateRoom(ctx context.Context, req CreateRoomMsg) (CreateRoomReply, error) {
	var reply CreateRoomReply
	if err := c.request(ctx, MsgCreateRoom, req, &reply); err != nil {
		return reply, err
	}
	if !reply.Success {
		return reply, fmt.Errorf("%w: %s", ErrRequestFailed, reply.Error)
	}
	return reply, nil
}

// JoinRoom joins an existing room
func (c *RelayClient) JoinRoom(ctx context.Context, req JoinRoomMsg) (JoinRoomReply, error) {
	var reply JoinRoomReply
	if err := c.request(ctx, MsgJoinRoom, req, &reply); err != nil {
		return reply, err
	}
	if !reply.Success {
		return reply, fmt.Errorf("%w: %s", ErrRequestFailed, reply.Error)
	}
	return reply, nil
}

// CreateInvite asks for an invite to the room this connection hosts
func (c *RelayClient) CreateInvite(ctx context.Context) (InviteReply, error) {
	var reply InviteReply
	if err := c.request(ctx, MsgCreateInvite, nil, &reply); err != nil {
		return reply, err
	}
	if !reply.Success {
		return reply, fmt.Errorf("%w: %s", ErrRequestFailed, reply.Error)
	}
	return reply, nil
}

// ListRooms returns the open rooms
func (c *RelayClient) ListRooms(ctx context.Context) ([]RoomInfo, error) {
	var rooms []RoomInfo
	if err := c.request(ctx, MsgGetRooms, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// SendInput sends the local intent to the host as a binary frame
func (c *RelayClient) SendInput(ctl ControlState) error {
	return c.enqueue(outFrame{binary: true, data: EncodeInputFrame(ctl)})
}

// SendState broadcasts a snapshot to the rest of the room
func (c *RelayClient) SendState(s Snapshot) error {
	frame, err := EncodeStateFrame(s)
	if err != nil {
		return err
	}
	return c.enqueue(outFrame{binary: true, data: frame})
}

// SendChat posts a chat line to the room
func (c *RelayClient) SendChat(text, name, color string) error {
	return c.emit(MsgSendChat, ChatMsg{Message: text, PlayerName: name, Color: color})
}

// ReportGoal credits a goal on the relay leaderboard
func (c *RelayClient) ReportGoal(playerName string) error {
	return c.emit(MsgGoalScored, GoalScoredMsg{PlayerName: playerName})
}

func (c *RelayClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case f := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, f.data); err != nil {
				log.Debug().Err(err).Msg("relay write failed")
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *RelayClient) readPump() {
	var cause error
	defer func() {
		c.Close()
		c.deliver(PeerEvent{Type: EvDisconnected, Err: cause})
		close(c.events)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cause = err
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if msgType == websocket.BinaryMessage {
			c.handleBinary(raw)
			continue
		}
		c.handleText(raw)
	}
}

func (c *RelayClient) handleBinary(frame []byte) {
	if len(frame) == 0 {
		return
	}
	switch frame[0] {
	case FrameInput:
		ctl, err := DecodeInputFrame(frame)
		if err != nil {
			log.Debug().Err(err).Msg("dropping input frame")
			return
		}
		c.deliver(PeerEvent{Type: EvInput, Input: ctl})
	case FrameState:
		snap, err := DecodeStateFrame(frame)
		if err != nil {
			log.Debug().Err(err).Msg("dropping state frame")
			return
		}
		c.deliver(PeerEvent{Type: EvState, State: snap})
	}
}

func (c *RelayClient) handleText(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().Err(err).Msg("unmarshal relay message")
		return
	}
	if env.T == MsgAck {
		c.mu.Lock()
		ch, ok := c.pending[env.Rid]
		c.mu.Unlock()
		if ok {
			ch <- env.D
		}
		return
	}

	ev := PeerEvent{Type: PeerEventType(env.T)}
	var err error
	switch ev.Type {
	case EvPlayerJoined:
		err = json.Unmarshal(env.D, &ev.Joined)
	case EvChat:
		err = json.Unmarshal(env.D, &ev.Chat)
	case EvLeaderboard:
		err = json.Unmarshal(env.D, &ev.Leaderboard)
	case EvRoomsUpdated:
		err = json.Unmarshal(env.D, &ev.Rooms)
	case EvInput:
		var in InputMsg
		err = json.Unmarshal(env.D, &in)
		ev.Input = in.Input
	case EvState:
		err = json.Unmarshal(env.D, &ev.State)
	case EvHostDisconnected, EvPlayerLeft:
	default:
		return
	}
	if err != nil {
		log.Debug().Err(err).Str("type", env.T).Msg("decode relay event")
		return
	}
	c.deliver(ev)
}

func (c *RelayClient) deliver(ev PeerEvent) {
	select {
	case c.events <- ev:
	case <-time.After(writeWait):
		log.Warn().Str("type", string(ev.Type)).Msg("event consumer stalled, dropping")
	}
}
