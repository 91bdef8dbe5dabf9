package game

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// RoomInfo is a lobby-level summary of a room
type RoomInfo struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Round   string `json:"round"`
	Blinds  string `json:"blinds"`
}

// Manager owns the room table: rooms are created on first join and
// destroyed when their last human leaves. Rooms are independent actors;
// the manager only guards the id-to-room mapping.
type Manager struct {
	opts     Options
	logger   *log.Logger
	clock    quartz.Clock
	recorder Recorder
	notify   func(roomID string, snap Snapshot)
	seed     func() int64

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewManager creates a room manager. notify receives every room's
// post-mutation snapshots; seed provides per-room RNG seeds (nil for
// crypto-free time-based seeding via math/rand's global source).
func NewManager(opts Options, logger *log.Logger, clock quartz.Clock, recorder Recorder, notify func(string, Snapshot)) *Manager {
	return &Manager{
		opts:     opts,
		logger:   logger,
		clock:    clock,
		recorder: recorder,
		notify:   notify,
		seed:     rand.Int63,
		rooms:    make(map[string]*Room),
	}
}

// SetSeed overrides per-room RNG seeding, for deterministic tests
func (m *Manager) SetSeed(seed func() int64) {
	m.seed = seed
}

// GetOrCreate returns the room with the given id, creating it on first use
func (m *Manager) GetOrCreate(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[id]; ok {
		return room
	}
	room := NewRoom(id, m.opts, Deps{
		Logger:   m.logger,
		Clock:    m.clock,
		Rng:      rand.New(rand.NewSource(m.seed())),
		Recorder: m.recorder,
		Notify: func(snap Snapshot) {
			if m.notify != nil {
				m.notify(id, snap)
			}
		},
		OnEmpty: m.remove,
	})
	m.rooms[id] = room
	m.logger.Info("room created", "room", id)
	return room
}

// Get returns the room with the given id, or nil
func (m *Manager) Get(id string) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id]
}

// List summarizes all rooms for the lobby
func (m *Manager) List() []RoomInfo {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.Unlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		snap := room.Snapshot()
		infos = append(infos, RoomInfo{
			ID:      room.ID,
			Players: len(snap.Seats),
			Round:   snap.Round,
			Blinds:  blindsLabel(room.opts),
		})
	}
	return infos
}

// CloseAll shuts down every room
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, room := range m.rooms {
		room.Close()
		delete(m.rooms, id)
	}
}

func (m *Manager) remove(id string) {
	// Called from inside the room's own loop; Close only signals it.
	m.mu.Lock()
	room, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()
	if ok {
		room.Close()
		m.logger.Info("room destroyed", "room", id)
	}
}

func blindsLabel(o Options) string {
	o = o.withDefaults()
	return fmt.Sprintf("%d/%d", o.SmallBlind, o.BigBlind)
}
