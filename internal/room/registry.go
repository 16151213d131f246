// Package room tracks the live connections of each game room, caches the
// last reported state of every player and fans messages out to room members.
//
// A room exists only while it has at least one connection. All mutations of
// a room's membership and state cache are serialized by the room's own lock;
// the registry lock only guards the key → room map.
package room

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

var ErrRoomNotFound = errors.New("room not found")

// Conn is one live connection bound to a single room and player.
//
// Send must not block: it either enqueues msg for delivery or returns an
// error. Close must be safe to call more than once.
type Conn interface {
	ID() string
	Player() string
	Send(msg []byte) error
	Close(reason string)
}

type room struct {
	key     string
	mu      sync.Mutex
	conns   map[string]Conn
	players map[string]int // live connection count per player
	states  map[string]PlayerState
	closed  bool
}

func newRoom(key string) *room {
	return &room{
		key:     key,
		conns:   make(map[string]Conn),
		players: make(map[string]int),
		states:  make(map[string]PlayerState),
	}
}

// Registry owns every active room in the process.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*room
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*room),
		logger: logger,
	}
}

func (r *Registry) get(key string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[key]
}

func (r *Registry) getOrCreate(key string) *room {
	r.mu.Lock()
	defer r.mu.Unlock()
	rm, ok := r.rooms[key]
	if !ok {
		rm = newRoom(key)
		r.rooms[key] = rm
		r.logger.Debug("room created", "room", key)
	}
	return rm
}

// Join admits c to the room at key, creating the room if needed. Before c
// becomes visible to broadcasts, the cached state of every other tracked
// player is queued on c, so replay always precedes live relay. It returns the
// number of replayed states.
func (r *Registry) Join(key string, c Conn) (int, error) {
	for {
		rm := r.getOrCreate(key)

		rm.mu.Lock()
		if rm.closed {
			// Lost a race with the last Leave; the key now maps to a new room.
			rm.mu.Unlock()
			continue
		}

		replayed := 0
		for player, state := range rm.states {
			if player == c.Player() {
				continue
			}
			data, err := encode(StateMessage(player, state))
			if err == nil {
				err = c.Send(data)
			}
			if err != nil {
				if len(rm.conns) == 0 {
					r.destroyLocked(rm)
				}
				rm.mu.Unlock()
				return replayed, err
			}
			replayed++
		}

		rm.conns[c.ID()] = c
		rm.players[c.Player()]++
		size := len(rm.conns)
		rm.mu.Unlock()

		r.logger.Info("player joined room", "room", key, "player", c.Player(), "conn", c.ID(), "members", size, "replayed", replayed)
		return replayed, nil
	}
}

// destroyLocked marks rm closed and removes it from the registry. rm.mu must
// be held.
func (r *Registry) destroyLocked(rm *room) {
	rm.closed = true
	rm.states = nil
	rm.players = nil
	rm.conns = nil

	r.mu.Lock()
	if r.rooms[rm.key] == rm {
		delete(r.rooms, rm.key)
	}
	r.mu.Unlock()
	r.logger.Debug("room destroyed", "room", rm.key)
}

// UpdateState overwrites the cached state of player. It is a no-op, and
// returns false, if the room no longer exists or the player has no live
// connection in it.
func (r *Registry) UpdateState(key, player string, s PlayerState) bool {
	rm := r.get(key)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed || rm.players[player] == 0 {
		return false
	}
	rm.states[player] = s
	return true
}

// Leave removes c from its room. The player's cached state is dropped once
// their last connection leaves, and the room is destroyed when it becomes
// empty. Leave reports whether c was a member; calling it twice is harmless.
func (r *Registry) Leave(key string, c Conn) bool {
	rm := r.get(key)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return false
	}
	if _, ok := rm.conns[c.ID()]; !ok {
		return false
	}

	delete(rm.conns, c.ID())
	if rm.players[c.Player()]--; rm.players[c.Player()] <= 0 {
		delete(rm.players, c.Player())
		delete(rm.states, c.Player())
	}

	r.logger.Info("player left room", "room", key, "player", c.Player(), "conn", c.ID(), "members", len(rm.conns))
	if len(rm.conns) == 0 {
		r.destroyLocked(rm)
	}
	return true
}

// Snapshot is a point-in-time view of one room.
type Snapshot struct {
	Key         string                 `json:"room"`
	Players     []string               `json:"players"`
	Connections int                    `json:"connections"`
	States      map[string]PlayerState `json:"states"`
}

func (r *Registry) Snapshot(key string) (Snapshot, error) {
	rm := r.get(key)
	if rm == nil {
		return Snapshot{}, ErrRoomNotFound
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.closed {
		return Snapshot{}, ErrRoomNotFound
	}

	snap := Snapshot{
		Key:         key,
		Players:     make([]string, 0, len(rm.players)),
		Connections: len(rm.conns),
		States:      make(map[string]PlayerState, len(rm.states)),
	}
	for p := range rm.players {
		snap.Players = append(snap.Players, p)
	}
	sort.Strings(snap.Players)
	for p, s := range rm.states {
		snap.States[p] = s
	}
	return snap, nil
}

// Stats summarizes the registry.
type Stats struct {
	Rooms       int            `json:"rooms"`
	Connections int            `json:"connections"`
	PerRoom     map[string]int `json:"perRoom"`
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	rooms := make([]*room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.Unlock()

	st := Stats{PerRoom: make(map[string]int, len(rooms))}
	for _, rm := range rooms {
		rm.mu.Lock()
		if !rm.closed {
			st.Rooms++
			st.Connections += len(rm.conns)
			st.PerRoom[rm.key] = len(rm.conns)
		}
		rm.mu.Unlock()
	}
	return st
}
