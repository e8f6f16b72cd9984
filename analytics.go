package main

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Event types for relay analytics
const (
	EvtRoomCreated = "room_created"
	EvtRoomJoined  = "room_joined"
	EvtRoomClosed  = "room_closed"
	EvtChat        = "chat"
)

// AnalyticsEvent represents a single trackable event
type AnalyticsEvent struct {
	Type      string
	RoomCode  string
	Data      string
	Timestamp time.Time
}

// Analytics handles event tracking with batched background writes
type Analytics struct {
	db     *DB
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once

	mu          sync.RWMutex
	connections int
	rooms       int
}

// LiveMetrics is what /api/stats reports
type LiveMetrics struct {
	Connections int            `json:"connections"`
	Rooms       int            `json:"rooms"`
	Today       map[string]int `json:"today"`
}

// NewAnalytics creates and starts the analytics background writer
func NewAnalytics(db *DB) *Analytics {
	a := &Analytics{
		db:     db,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event for async persistence (non-blocking)
func (a *Analytics) Track(evtType, roomCode, data string) {
	if a == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		RoomCode:  roomCode,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full; never block a connection goroutine on analytics
	}
}

// SetLive updates the live gauges
func (a *Analytics) SetLive(connections, rooms int) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.connections = connections
	a.rooms = rooms
	a.mu.Unlock()
}

// Live returns the gauges plus today's event counts
func (a *Analytics) Live() LiveMetrics {
	a.mu.RLock()
	m := LiveMetrics{Connections: a.connections, Rooms: a.rooms}
	a.mu.RUnlock()
	counts, err := a.CountsSince(time.Now().UTC().Truncate(24 * time.Hour))
	if err != nil {
		log.Warn().Err(err).Msg("analytics counts")
	}
	m.Today = counts
	return m
}

// Stop flushes pending events and shuts the writer down
func (a *Analytics) Stop() {
	a.once.Do(func() {
		close(a.stop)
		a.wg.Wait()
	})
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					a.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events in one transaction
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		log.Error().Err(err).Msg("analytics: begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO relay_events (event_type, room_code, data, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		log.Error().Err(err).Msg("analytics: prepare")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		room := sql.NullString{String: evt.RoomCode, Valid: evt.RoomCode != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, room, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			log.Error().Err(err).Msg("analytics: insert")
		}
	}
	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("analytics: commit")
	}
}

// CountsSince returns the number of events per type recorded since t
func (a *Analytics) CountsSince(t time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	if a.db == nil {
		return counts, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM relay_events
		WHERE created_at >= ? GROUP BY event_type`, t.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}
