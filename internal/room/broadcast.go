package room

import (
	"encoding/json"
	"fmt"
)

func encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s message: %w", m.Type, err)
	}
	return data, nil
}

// Broadcast queues msg on every connection in the room at key, skipping
// exclude when it is non-nil. A recipient that cannot take the message is
// logged and closed, which makes its own connection task run Leave; the
// failure never reaches the caller. It returns the number of recipients the
// message was queued for.
func (r *Registry) Broadcast(key string, msg Message, exclude Conn) int {
	data, err := encode(msg)
	if err != nil {
		r.logger.Error("broadcast dropped", "room", key, "error", err)
		return 0
	}

	rm := r.get(key)
	if rm == nil {
		return 0
	}

	var failed []Conn
	delivered := 0

	rm.mu.Lock()
	if rm.closed {
		rm.mu.Unlock()
		return 0
	}
	for id, c := range rm.conns {
		if exclude != nil && id == exclude.ID() {
			continue
		}
		if err := c.Send(data); err != nil {
			r.logger.Warn("broadcast send failed",
				"room", key,
				"player", c.Player(),
				"conn", id,
				"type", msg.Type,
				"error", err,
			)
			failed = append(failed, c)
			continue
		}
		delivered++
	}
	rm.mu.Unlock()

	for _, c := range failed {
		c.Close("send failed")
	}
	return delivered
}

// Relay caches s as the latest state of from's player and forwards it to
// every other connection in the room.
func (r *Registry) Relay(key string, from Conn, s PlayerState) int {
	if !r.UpdateState(key, from.Player(), s) {
		return 0
	}
	return r.Broadcast(key, MovementMessage(from.Player(), s), from)
}
