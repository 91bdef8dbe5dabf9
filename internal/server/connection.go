package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/cardroom/internal/game"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// ErrConnectionClosed is returned when sending on a closed connection
var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one websocket client. Once joined it maps to a
// (room, seat-or-spectator) pair; inbound messages are forwarded to the
// room in the order they arrive on this connection.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu        sync.RWMutex
	playerID  string
	roomID    string
	room      *game.Room
	spectator bool
}

// NewConnection creates a connection wrapper
func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		server: server,
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Send channel closed during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Viewer returns the player id used for redaction (empty for spectators)
func (c *Connection) Viewer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.spectator {
		return ""
	}
	return c.playerID
}

// RoomID returns the joined room id, or empty
func (c *Connection) RoomID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID
}

func (c *Connection) setRoom(roomID, playerID string, room *game.Room, spectator bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
	c.playerID = playerID
	c.room = room
	c.spectator = spectator
}

func (c *Connection) currentRoom() (*game.Room, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.room, c.playerID, c.spectator
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage validates inbound payloads at the gateway boundary;
// malformed messages are rejected before any room is touched.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.Viewer())

	switch msg.Type {
	case MessageTypeJoin:
		var data JoinData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse join data")
			return
		}
		c.handleJoin(data)

	case MessageTypeReady:
		c.withSeat(func(room *game.Room, playerID string) error {
			return room.Ready(playerID)
		})

	case MessageTypeAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse action data")
			return
		}
		kind, err := game.ParseActionKind(data.Kind)
		if err != nil {
			c.sendError("invalid_action", err.Error())
			return
		}
		c.withSeat(func(room *game.Room, playerID string) error {
			return room.Action(playerID, kind, data.Amount)
		})

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Text == "" {
			c.sendError("invalid_message", "failed to parse chat data")
			return
		}
		c.withSeat(func(room *game.Room, playerID string) error {
			return room.Chat(playerID, data.Text)
		})

	case MessageTypeAddBot:
		c.withSeat(func(room *game.Room, playerID string) error {
			return room.AddBot()
		})

	case MessageTypeLeave:
		c.handleLeave()

	case MessageTypeListTables:
		response, _ := NewMessage(MessageTypeTableList, TableListData{
			Tables: c.server.manager.List(),
		})
		_ = c.SendMessage(response)

	default:
		c.sendError("unknown_message_type", "unknown message type: "+string(msg.Type))
	}
}

func (c *Connection) handleJoin(data JoinData) {
	if data.Room == "" || (!data.Spectate && data.Name == "") {
		c.sendError("invalid_message", "room and name required")
		return
	}
	if room, _, _ := c.currentRoom(); room != nil {
		c.sendError("already_joined", "leave the current room first")
		return
	}

	room := c.server.manager.GetOrCreate(data.Room)

	if data.Spectate {
		c.setRoom(data.Room, "", room, true)
		c.server.registerViewer(c)
		response, _ := NewMessage(MessageTypeJoined, JoinedData{Room: data.Room, Spectator: true})
		_ = c.SendMessage(response)
		_ = c.SendMessage(stateMessage(Redact(room.Snapshot(), "")))
		return
	}

	// Display name doubles as the player id: rejoining with the same
	// name reclaims a disconnected seat.
	seat, err := room.Join(data.Name, data.Name)
	if err != nil {
		c.sendError(joinErrorCode(err), err.Error())
		return
	}
	c.setRoom(data.Room, data.Name, room, false)
	c.server.registerViewer(c)
	c.logger.Info("joined room", "room", data.Room, "player", data.Name, "seat", seat)

	response, _ := NewMessage(MessageTypeJoined, JoinedData{Room: data.Room, Seat: seat})
	_ = c.SendMessage(response)
	_ = c.SendMessage(stateMessage(Redact(room.Snapshot(), data.Name)))
}

func (c *Connection) handleLeave() {
	room, playerID, spectator := c.currentRoom()
	if room == nil {
		c.sendError("not_joined", "not in a room")
		return
	}
	if !spectator {
		if err := room.Leave(playerID); err != nil && !errors.Is(err, game.ErrRoomClosed) {
			c.logger.Error("leave failed", "error", err)
		}
	}
	c.server.unregisterViewer(c)
	c.setRoom("", "", nil, false)
}

// withSeat runs fn against the seated player's room, translating engine
// errors into error messages for the client.
func (c *Connection) withSeat(fn func(room *game.Room, playerID string) error) {
	room, playerID, spectator := c.currentRoom()
	if room == nil || spectator {
		c.sendError("not_seated", "join a room with a seat first")
		return
	}
	if err := fn(room, playerID); err != nil {
		c.sendError(actionErrorCode(err), err.Error())
	}
}

func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(errorMsg)
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomFull):
		return "room_full"
	case errors.Is(err, game.ErrSeatTaken):
		return "seat_taken"
	case errors.Is(err, game.ErrRoomClosed):
		return "room_closed"
	default:
		return "join_failed"
	}
}

func actionErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrIllegalAction):
		return "illegal_action"
	case errors.Is(err, game.ErrUnknownSeat):
		return "unknown_seat"
	case errors.Is(err, game.ErrRoomClosed):
		return "room_closed"
	default:
		return "action_failed"
	}
}

func stateMessage(snap game.Snapshot) *Message {
	msg, err := NewMessage(MessageTypeState, snap)
	if err != nil {
		return &Message{Type: MessageTypeError}
	}
	return msg
}
