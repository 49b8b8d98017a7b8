package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"eduvibe/models"
	"eduvibe/services/liveclass"
	"eduvibe/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 8 * 1024
	sendBuffer     = 256
	actionTimeout  = 10 * time.Second
)

// Inbound actions
const (
	ActionAuthenticate = "authenticate"
	ActionJoinClass    = "join-class"
	ActionChatMessage  = "chat-message"
	ActionHandRaise    = "hand-raise"
	ActionPollVote     = "poll-vote"
	ActionLeaveClass   = "leave-class"
)

// Replies sent to a single client
const (
	EventAuthenticated = "authenticated"
	EventAuthError     = "auth_error"
	EventJoinedClass   = "joined-class"
	EventError         = "error"
)

// Authenticator resolves an access token to its user
type Authenticator interface {
	Authenticate(token string) (uint, string, error)
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	errUnauthenticated = &ErrorPayload{Code: "Unauthenticated", Message: "Authenticate first"}
	errNoRoom          = &ErrorPayload{Code: "NotInClass", Message: "Join a class first"}
)

// Gateway serves /ws: it authenticates sockets and turns their actions into
// live class operations.
type Gateway struct {
	hub     *Hub
	engine  *liveclass.Engine
	auth    Authenticator
	origins []string
	log     *zap.Logger
}

func NewGateway(hub *Hub, engine *liveclass.Engine, auth Authenticator, origins []string, log *zap.Logger) *Gateway {
	return &Gateway{hub: hub, engine: engine, auth: auth, origins: origins, log: log}
}

// Upgrade rejects plain HTTP requests to the socket route
func (g *Gateway) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler is the fiber handler for the socket route
func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(g.serve, websocket.Config{Origins: g.origins})
}

func (g *Gateway) serve(conn *websocket.Conn) {
	client := NewClient(uuid.NewString(), sendBuffer)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		g.writePump(conn, client)
	}()

	if token := conn.Query("token"); token != "" {
		g.authenticate(client, token)
	}

	g.readPump(conn, client)

	g.Disconnect(client)
	wg.Wait()
}

func (g *Gateway) readPump(conn *websocket.Conn, client *Client) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.log.Warn("websocket read error", zap.String("clientId", client.ID), zap.Error(err))
			}
			return
		}

		select {
		case <-client.Done():
			return
		default:
		}

		g.Handle(client, message)
	}
}

func (g *Gateway) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message := <-client.Send():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				client.Close()
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}

		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// Handle routes one inbound frame
func (g *Gateway) Handle(client *Client, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		g.hub.SendTo(client, EventError, &ErrorPayload{Code: "BadFrame", Message: "Invalid message format"})
		return
	}

	if frame.Event == ActionAuthenticate {
		token, err := decodeToken(frame.Data)
		if err != nil {
			g.hub.SendTo(client, EventAuthError, &ErrorPayload{Code: "InvalidToken", Message: "Token is required"})
			return
		}
		g.authenticate(client, token)
		return
	}

	if client.UserID() == 0 {
		g.hub.SendTo(client, EventError, errUnauthenticated)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	switch frame.Event {
	case ActionJoinClass:
		g.joinClass(ctx, client, frame.Data)
	case ActionChatMessage:
		g.chatMessage(ctx, client, frame.Data)
	case ActionHandRaise:
		g.handRaise(ctx, client, frame.Data)
	case ActionPollVote:
		g.pollVote(ctx, client, frame.Data)
	case ActionLeaveClass:
		g.leaveRoom(ctx, client)
	default:
		g.hub.SendTo(client, EventError, &ErrorPayload{Code: "UnknownEvent", Message: "Unknown event: " + frame.Event})
	}
}

// Disconnect treats a dropped socket as leaving its room
func (g *Gateway) Disconnect(client *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	g.leaveRoom(ctx, client)
	client.Close()
}

func (g *Gateway) authenticate(client *Client, token string) {
	userID, userType, err := g.auth.Authenticate(token)
	if err != nil {
		g.hub.SendTo(client, EventAuthError, &ErrorPayload{Code: "InvalidToken", Message: "Invalid or expired token"})
		return
	}
	client.SetUser(userID, userType)
	g.hub.SendTo(client, EventAuthenticated, map[string]uint{"userId": userID})
}

func (g *Gateway) sendError(client *Client, err error) {
	if apiErr, ok := utils.AsApiError(err); ok && apiErr.Kind != utils.KindInternal {
		g.hub.SendTo(client, EventError, &ErrorPayload{Code: apiErr.Code, Message: apiErr.Message})
		return
	}
	g.log.Error("socket action failed", zap.String("clientId", client.ID), zap.Error(err))
	g.hub.SendTo(client, EventError, &ErrorPayload{Code: "InternalError", Message: "Something went wrong"})
}

// currentClass is the class of the room the client is in
func (g *Gateway) currentClass(client *Client) (uint, bool) {
	room, ok := g.hub.RoomOf(client)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(room, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func (g *Gateway) joinClass(ctx context.Context, client *Client, data json.RawMessage) {
	classID, err := decodeClassID(data)
	if err != nil {
		g.hub.SendTo(client, EventError, &ErrorPayload{Code: "BadRequest", Message: "classId is required"})
		return
	}

	class, err := g.engine.Get(ctx, classID)
	if err != nil {
		g.sendError(client, err)
		return
	}

	// Switching rooms closes attendance in the old one
	if prev, ok := g.currentClass(client); ok && prev != classID {
		g.leaveRoom(ctx, client)
	}

	userID := client.UserID()
	if class.Status == models.ClassLive {
		_, err := g.engine.Join(ctx, classID, userID, "")
		if err != nil && !errors.Is(err, liveclass.ErrAlreadyJoined) {
			g.sendError(client, err)
			return
		}
	}

	room := liveclass.Room(classID)
	g.hub.Join(client, room)
	g.hub.SendTo(client, EventJoinedClass, map[string]interface{}{
		"classId": classID,
		"status":  class.Status,
	})

	g.log.Debug("socket joined class", zap.String("clientId", client.ID), zap.Uint("classId", classID), zap.Uint("userId", userID))
}

// leaveRoom takes the client out of its room and closes the roster entry
// once the user has no other socket there. A client the hub already dropped
// for being slow still closes attendance in the room it was dropped from.
func (g *Gateway) leaveRoom(ctx context.Context, client *Client) {
	room, ok := g.hub.Leave(client)
	if !ok {
		room, ok = client.takeDropped()
	}
	if !ok {
		return
	}

	userID := client.UserID()
	if userID == 0 || g.hub.UserConnections(room, userID) > 0 {
		return
	}

	id, err := strconv.ParseUint(room, 10, 64)
	if err != nil {
		return
	}
	if err := g.engine.CloseAttendance(ctx, uint(id), userID); err != nil && !errors.Is(err, liveclass.ErrNotFound) {
		g.log.Error("closing attendance", zap.Uint("classId", uint(id)), zap.Uint("userId", userID), zap.Error(err))
	}
}

type chatPayload struct {
	Content  string `json:"content"`
	Username string `json:"username"`
}

func (g *Gateway) chatMessage(ctx context.Context, client *Client, data json.RawMessage) {
	classID, ok := g.currentClass(client)
	if !ok {
		g.hub.SendTo(client, EventError, errNoRoom)
		return
	}

	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		g.hub.SendTo(client, EventError, &ErrorPayload{Code: "BadRequest", Message: "Invalid chat message"})
		return
	}

	if _, err := g.engine.PostChat(ctx, classID, client.UserID(), p.Username, p.Content); err != nil {
		g.sendError(client, err)
	}
}

type handRaisePayload struct {
	Username string `json:"username"`
	Raised   *bool  `json:"raised"`
}

func (g *Gateway) handRaise(ctx context.Context, client *Client, data json.RawMessage) {
	classID, ok := g.currentClass(client)
	if !ok {
		g.hub.SendTo(client, EventError, errNoRoom)
		return
	}

	var p handRaisePayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &p); err != nil {
			g.hub.SendTo(client, EventError, &ErrorPayload{Code: "BadRequest", Message: "Invalid hand raise"})
			return
		}
	}

	var err error
	if p.Raised == nil {
		_, err = g.engine.ToggleHandRaise(ctx, classID, client.UserID(), p.Username)
	} else {
		_, err = g.engine.SetHandRaise(ctx, classID, client.UserID(), p.Username, *p.Raised)
	}
	if err != nil {
		g.sendError(client, err)
	}
}

type pollVotePayload struct {
	PollID      string `json:"pollId"`
	OptionIndex *int   `json:"optionIndex"`
}

func (g *Gateway) pollVote(ctx context.Context, client *Client, data json.RawMessage) {
	classID, ok := g.currentClass(client)
	if !ok {
		g.hub.SendTo(client, EventError, errNoRoom)
		return
	}

	var p pollVotePayload
	if err := json.Unmarshal(data, &p); err != nil || p.PollID == "" || p.OptionIndex == nil {
		g.hub.SendTo(client, EventError, &ErrorPayload{Code: "BadRequest", Message: "pollId and optionIndex are required"})
		return
	}

	if _, err := g.engine.Vote(ctx, classID, p.PollID, client.UserID(), *p.OptionIndex); err != nil {
		g.sendError(client, err)
	}
}

// decodeToken accepts "token" or {"token": "..."}
func decodeToken(data json.RawMessage) (string, error) {
	var token string
	if err := json.Unmarshal(data, &token); err == nil && token != "" {
		return strings.TrimPrefix(token, "Bearer "), nil
	}
	var obj struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Token != "" {
		return strings.TrimPrefix(obj.Token, "Bearer "), nil
	}
	return "", errors.New("missing token")
}

// decodeClassID accepts 12, "12" or {"classId": 12}
func decodeClassID(data json.RawMessage) (uint, error) {
	var n uint
	if err := json.Unmarshal(data, &n); err == nil && n > 0 {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if id, err := strconv.ParseUint(s, 10, 64); err == nil && id > 0 {
			return uint(id), nil
		}
	}
	var obj struct {
		ClassID json.RawMessage `json:"classId"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && len(obj.ClassID) > 0 && obj.ClassID[0] != '{' {
		return decodeClassID(obj.ClassID)
	}
	return 0, errors.New("missing class id")
}
