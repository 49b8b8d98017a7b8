// Package realtime fans class events out to websocket clients grouped in
// per-class rooms.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	EventViewerCount = "viewer-count"
	EventLeftClass   = "left-class"
)

// Frame is the envelope of every message in both directions
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type ViewerCount struct {
	Count int `json:"count"`
}

// Client is one connection as the hub sees it. Frames queue on a buffered
// channel drained by the connection's writer.
type Client struct {
	ID string

	mu       sync.Mutex
	userID   uint
	userType string
	dropped  string

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(id string, buffer int) *Client {
	return &Client{
		ID:   id,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *Client) SetUser(userID uint, userType string) {
	c.mu.Lock()
	c.userID = userID
	c.userType = userType
	c.mu.Unlock()
}

// UserID is zero until the client authenticates
func (c *Client) UserID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) UserType() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userType
}

// Send exposes queued frames, for writers and tests
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Done is closed once the client is shut down
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// takeDropped returns the room the hub dropped c from, once
func (c *Client) takeDropped() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	room := c.dropped
	c.dropped = ""
	return room, room != ""
}

func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Hub keeps room membership. A client is in at most one room.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	member map[*Client]string
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		member: make(map[*Client]string),
		log:    log,
	}
}

func encode(event string, payload interface{}) ([]byte, error) {
	return json.Marshal(outFrame{Event: event, Data: payload})
}

// Join moves c into room, leaving its previous room first. Both rooms get a
// fresh viewer count.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	prev, had := h.member[c]
	if had && prev == room {
		h.mu.Unlock()
		h.BroadcastViewerCount(room)
		return
	}
	if had {
		h.removeLocked(c, prev)
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	h.member[c] = room
	h.mu.Unlock()

	if had {
		h.BroadcastViewerCount(prev)
	}
	h.BroadcastViewerCount(room)
}

// Leave takes c out of its room and reports which room that was
func (h *Hub) Leave(c *Client) (string, bool) {
	h.mu.Lock()
	room, ok := h.member[c]
	if ok {
		h.removeLocked(c, room)
	}
	h.mu.Unlock()

	if ok {
		h.BroadcastViewerCount(room)
	}
	return room, ok
}

func (h *Hub) removeLocked(c *Client, room string) {
	delete(h.member, c)
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomOf returns the room c is in
func (h *Hub) RoomOf(c *Client) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.member[c]
	return room, ok
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// UserConnections counts the clients of userID inside room
func (h *Hub) UserConnections(room string, userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.rooms[room] {
		if c.UserID() == userID {
			n++
		}
	}
	return n
}

// Emit queues event for every client in room. Clients that cannot keep up
// are dropped.
func (h *Hub) Emit(room, event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.log.Error("encoding frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, c := range clients {
		if !c.enqueue(msg) {
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		h.log.Warn("client send buffer full, dropping",
			zap.String("clientId", c.ID),
			zap.String("room", room))
		h.drop(c)
	}
}

// drop closes a client that cannot keep up. The room it was in is kept on
// the client so the disconnect path can still close its attendance.
func (h *Hub) drop(c *Client) {
	if room, ok := h.Leave(c); ok {
		c.mu.Lock()
		c.dropped = room
		c.mu.Unlock()
	}
	c.Close()
}

// SendTo queues event for one client only
func (h *Hub) SendTo(c *Client, event string, payload interface{}) {
	msg, err := encode(event, payload)
	if err != nil {
		h.log.Error("encoding frame", zap.String("event", event), zap.Error(err))
		return
	}
	if !c.enqueue(msg) {
		h.log.Warn("client send buffer full, dropping", zap.String("clientId", c.ID))
		h.drop(c)
	}
}

func (h *Hub) BroadcastViewerCount(room string) {
	h.Emit(room, EventViewerCount, ViewerCount{Count: h.RoomSize(room)})
}

// EvictUser takes every connection of userID out of room without closing
// them. The caller republishes the viewer count.
func (h *Hub) EvictUser(room string, userID uint) {
	h.mu.Lock()
	var evicted []*Client
	for c := range h.rooms[room] {
		if c.UserID() == userID {
			evicted = append(evicted, c)
		}
	}
	for _, c := range evicted {
		h.removeLocked(c, room)
	}
	h.mu.Unlock()

	for _, c := range evicted {
		h.SendTo(c, EventLeftClass, map[string]string{"room": room})
	}
}
