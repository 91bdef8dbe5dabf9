package server

import (
	"encoding/json"
	"time"

	"github.com/cardroomlabs/cardroom/internal/game"
)

// MessageType identifies a websocket message
type MessageType string

// Client → server
const (
	MessageTypeJoin       MessageType = "join"
	MessageTypeReady      MessageType = "ready"
	MessageTypeAction     MessageType = "action"
	MessageTypeChat       MessageType = "chat"
	MessageTypeLeave      MessageType = "leave"
	MessageTypeAddBot     MessageType = "add_bot"
	MessageTypeListTables MessageType = "list_tables"
)

// Server → client
const (
	MessageTypeJoined    MessageType = "joined"
	MessageTypeState     MessageType = "state"
	MessageTypeTableList MessageType = "table_list"
	MessageTypeError     MessageType = "error"
)

// Message is the websocket envelope
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// JoinData seats the sender at a table, creating the room on first join.
// Spectators watch without a seat and see only public cards.
type JoinData struct {
	Room     string `json:"room"`
	Name     string `json:"name"`
	Spectate bool   `json:"spectate,omitempty"`
}

// ActionData is a betting action. Amount is the total street bet for
// bet/raise ("raise to"), and ignored for fold/check/call.
type ActionData struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount,omitempty"`
}

// ChatData is an inbound chat line
type ChatData struct {
	Text string `json:"text"`
}

// JoinedData confirms a join
type JoinedData struct {
	Room      string `json:"room"`
	Seat      int    `json:"seat"`
	Spectator bool   `json:"spectator,omitempty"`
}

// ErrorData reports a rejected message
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TableListData lists rooms for the lobby
type TableListData struct {
	Tables []game.RoomInfo `json:"tables"`
}
