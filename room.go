package main

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	seatsPerRoom       = 2
	maxSpectators      = 8
	maxRoomSeconds     = 3600
	roomCodeRetryLimit = 16
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomLimit    = errors.New("too many active rooms")
	ErrRoomFull     = errors.New("room is full")
	ErrNotHost      = errors.New("only the host can do that")
)

// Room pairs a host with one guest. Anyone arriving after the two seats
// are taken watches as a spectator.
type Room struct {
	Code      string
	HostName  string
	PassHash  string
	Duration  int
	CreatedAt time.Time

	host       *Client
	guest      *Client
	spectators map[*Client]bool
}

// PlayerCount returns the number of occupied seats
func (r *Room) PlayerCount() int {
	n := 0
	if r.host != nil {
		n++
	}
	if r.guest != nil {
		n++
	}
	return n
}

// Info describes the room for the room browser
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		Code:        r.Code,
		Host:        r.HostName,
		PlayerCount: r.PlayerCount(),
		IsLocked:    r.PassHash != "",
	}
}

// others returns every member except c
func (r *Room) others(c *Client) []*Client {
	out := make([]*Client, 0, 2+len(r.spectators))
	if r.host != nil && r.host != c {
		out = append(out, r.host)
	}
	if r.guest != nil && r.guest != c {
		out = append(out, r.guest)
	}
	for s := range r.spectators {
		if s != c {
			out = append(out, s)
		}
	}
	return out
}

// LeaveResult tells the caller whom to notify after a departure
type LeaveResult struct {
	Room *Room
	// Closed is set when the host left and the room is gone
	Closed bool
	// WasGuest is set when the departing client held the guest seat
	WasGuest bool
	// Notify are the remaining members at the time of leaving
	Notify []*Client
}

// RoomManager handles creation, lookup and membership of rooms. It is the
// only owner of membership state; clients never keep a room pointer.
type RoomManager struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	members  map[*Client]*Room
	maxRooms int
	codeLen  int
}

// NewRoomManager creates a RoomManager
func NewRoomManager(maxRooms, codeLen int) *RoomManager {
	if codeLen <= 0 {
		codeLen = 6
	}
	return &RoomManager{
		rooms:    make(map[string]*Room),
		members:  make(map[*Client]*Room),
		maxRooms: maxRooms,
		codeLen:  codeLen,
	}
}

// NormalizeCode upper-cases and trims a user supplied room code
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create opens a room hosted by c. c must not be in another room.
func (rm *RoomManager) Create(c *Client, hostName string, duration int, passHash string) (*Room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.maxRooms > 0 && len(rm.rooms) >= rm.maxRooms {
		return nil, ErrRoomLimit
	}
	code := ""
	for i := 0; i < roomCodeRetryLimit; i++ {
		candidate := GenerateRoomCode(rm.codeLen)
		if _, taken := rm.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, ErrRoomLimit
	}

	if duration <= 0 {
		duration = DefaultMatchSeconds
	}
	if duration > maxRoomSeconds {
		duration = maxRoomSeconds
	}
	room := &Room{
		Code:       code,
		HostName:   hostName,
		PassHash:   passHash,
		Duration:   duration,
		CreatedAt:  time.Now(),
		host:       c,
		spectators: make(map[*Client]bool),
	}
	rm.rooms[code] = room
	rm.members[c] = room
	return room, nil
}

// Get returns a room by code, or nil
func (rm *RoomManager) Get(code string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[NormalizeCode(code)]
}

// Join seats c in a room, as the guest when the seat is free and as a
// spectator otherwise. It returns the role name and the members to tell.
func (rm *RoomManager) Join(code string, c *Client) (string, []*Client, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[NormalizeCode(code)]
	if !ok {
		return "", nil, ErrRoomNotFound
	}
	if room.host == c || room.guest == c || room.spectators[c] {
		return "", nil, errors.New("already in this room")
	}
	notify := room.others(c)
	rm.members[c] = room
	if room.PlayerCount() < seatsPerRoom && room.guest == nil {
		room.guest = c
		return RoleNamePlayer, notify, nil
	}
	if len(room.spectators) >= maxSpectators {
		delete(rm.members, c)
		return "", nil, ErrRoomFull
	}
	room.spectators[c] = true
	return RoleNameSpectator, notify, nil
}

// RoomOf returns the room c is in, or nil
func (rm *RoomManager) RoomOf(c *Client) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.members[c]
}

// IsHost reports whether c hosts its room
func (rm *RoomManager) IsHost(c *Client) bool {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room := rm.members[c]
	return room != nil && room.host == c
}

// Leave removes c from its room. When the host leaves the room is closed
// and every remaining member is detached from it.
func (rm *RoomManager) Leave(c *Client) LeaveResult {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.members[c]
	if !ok {
		return LeaveResult{}
	}
	delete(rm.members, c)
	res := LeaveResult{Room: room, Notify: room.others(c)}

	switch {
	case room.host == c:
		res.Closed = true
		for _, m := range res.Notify {
			delete(rm.members, m)
		}
		delete(rm.rooms, room.Code)
	case room.guest == c:
		res.WasGuest = true
		room.guest = nil
	default:
		delete(room.spectators, c)
	}
	return res
}

// Peers returns the other members of c's room
func (rm *RoomManager) Peers(c *Client) []*Client {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room := rm.members[c]
	if room == nil {
		return nil
	}
	return room.others(c)
}

// Route decides who receives a binary frame from c: input goes from the
// guest to the host, state goes from the host to everyone else. Anything
// else is dropped.
func (rm *RoomManager) Route(c *Client, kind byte) []*Client {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room := rm.members[c]
	if room == nil {
		return nil
	}
	switch {
	case kind == FrameInput && room.guest == c && room.host != nil:
		return []*Client{room.host}
	case kind == FrameState && room.host == c:
		return room.others(c)
	}
	return nil
}

// List returns the rooms for the room browser, oldest first
func (rm *RoomManager) List() []RoomInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	rooms := make([]*Room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].Code < rooms[j].Code
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	list := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		list = append(list, r.Info())
	}
	return list
}

// Count returns the number of open rooms
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}
