package main

import "encoding/json"

// Client -> relay message types
const (
	MsgCreateRoom   = "create-room"
	MsgJoinRoom     = "join-room"
	MsgGetRooms     = "get-rooms"
	MsgSendInput    = "send-input"
	MsgSendState    = "send-state"
	MsgSendChat     = "send-chat"
	MsgGoalScored   = "goal-scored"
	MsgLeaveRoom    = "leave-room"
	MsgCreateInvite = "create-invite"
)

// Relay -> client message types
const (
	MsgAck              = "ack"
	MsgPlayerJoined     = "player-joined"
	MsgHostDisconnected = "host-disconnected"
	MsgPlayerLeft       = "player-left"
	MsgLeaderboard      = "leaderboard-update"
	MsgRoomsUpdated     = "rooms-updated"
	MsgReceiveInput     = "receive-input"
	MsgReceiveState     = "receive-state"
	MsgReceiveChat      = "receive-chat"
	MsgError            = "error"
)

// Room roles
const (
	RoleNamePlayer    = "player"
	RoleNameSpectator = "spectator"
)

// Envelope wraps all outgoing messages with a type field. Rid echoes the
// request id of the message being acknowledged.
type Envelope struct {
	T    string      `json:"t"`
	Rid  string      `json:"rid,omitempty"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage defers the
// payload decode to the handler that knows its type.
type InEnvelope struct {
	T   string          `json:"t"`
	Rid string          `json:"rid,omitempty"`
	D   json.RawMessage `json:"d,omitempty"`
}

// CreateRoomMsg asks the relay for a new room
type CreateRoomMsg struct {
	PlayerName string `json:"playerName"`
	Duration   int    `json:"duration"`
	Password   string `json:"password,omitempty"`
}

// CreateRoomReply answers CreateRoomMsg
type CreateRoomReply struct {
	Success  bool   `json:"success"`
	RoomCode string `json:"roomCode,omitempty"`
	Error    string `json:"error,omitempty"`
}

// JoinRoomMsg asks to join a room. Invite may replace the password.
type JoinRoomMsg struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	KitColor   string `json:"kitColor,omitempty"`
	Password   string `json:"password,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Invite     string `json:"invite,omitempty"`
}

// JoinRoomReply answers JoinRoomMsg
type JoinRoomReply struct {
	Success  bool   `json:"success"`
	Role     string `json:"role,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Error    string `json:"error,omitempty"`
}

// InviteReply answers create-invite. The token stands in for the room
// password; QR is the link as a PNG data URL.
type InviteReply struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Token   string `json:"token,omitempty"`
	QR      string `json:"qr,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PlayerJoinedMsg tells the room someone arrived
type PlayerJoinedMsg struct {
	PlayerName string `json:"playerName"`
	KitColor   string `json:"kitColor,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	Role       string `json:"role"`
}

// InputMsg is the JSON form of an input update (binary frames are preferred)
type InputMsg struct {
	PlayerID string       `json:"playerId,omitempty"`
	Input    ControlState `json:"input"`
}

// ChatMsg is a chat line
type ChatMsg struct {
	Message    string `json:"message"`
	PlayerName string `json:"playerName"`
	Color      string `json:"color,omitempty"`
}

// GoalScoredMsg credits a goal to a player name on the leaderboard
type GoalScoredMsg struct {
	PlayerName string `json:"playerName"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	Code        string `json:"code"`
	Host        string `json:"host"`
	PlayerCount int    `json:"playerCount"`
	IsLocked    bool   `json:"isLocked"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
