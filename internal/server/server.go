// Package server is the session and broadcast gateway: it maps websocket
// connections onto room seats or spectators, funnels inbound actions into
// the room actors, and fans redacted state snapshots back out.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/cardroom/internal/game"
)

// Server is the websocket gateway
type Server struct {
	addr       string
	upgrader   websocket.Upgrader
	manager    *game.Manager
	logger     *log.Logger
	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc

	mu          sync.RWMutex
	connections map[*Connection]bool
}

// New creates a gateway server. Rooms are created through the manager on
// first join; every room snapshot flows back through broadcastRoom.
func New(addr string, opts game.Options, clock quartz.Clock, recorder game.Recorder, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The deployment fronts this with a proxy that enforces origin.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		connections: make(map[*Connection]bool),
	}
	s.manager = game.NewManager(opts, logger, clock, recorder, s.broadcastRoom)
	return s
}

// Manager exposes the room manager, mainly for tests
func (s *Server) Manager() *game.Manager {
	return s.manager
}

// Start runs the HTTP listener until Stop is called
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}
	s.logger.Info("starting websocket server", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the gateway down: connections closed, rooms destroyed
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.connections = make(map[*Connection]bool)
	s.mu.Unlock()

	s.manager.CloseAll()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(context.Background())
	}
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s, s.logger)
	client.Start()

	go func() {
		<-client.ctx.Done()
		s.dropConnection(client)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// registerViewer adds a joined connection to the broadcast set
func (s *Server) registerViewer(c *Connection) {
	s.mu.Lock()
	s.connections[c] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Debug("viewer registered", "total", total)
}

// unregisterViewer removes a connection from the broadcast set
func (s *Server) unregisterViewer(c *Connection) {
	s.mu.Lock()
	delete(s.connections, c)
	s.mu.Unlock()
}

// dropConnection handles a closed socket: the seat is flagged
// disconnected (not removed) so the grace policy applies.
func (s *Server) dropConnection(c *Connection) {
	s.unregisterViewer(c)

	room, playerID, spectator := c.currentRoom()
	if room != nil && !spectator {
		s.logger.Info("player disconnected", "room", c.RoomID(), "player", playerID)
		if err := room.SetConnected(playerID, false); err != nil {
			s.logger.Debug("disconnect bookkeeping failed", "error", err)
		}
	}
	_ = c.Close()
}

// broadcastRoom sends one redacted snapshot per viewer of the room
func (s *Server) broadcastRoom(roomID string, snap game.Snapshot) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.RoomID() != roomID {
			continue
		}
		if err := conn.SendMessage(stateMessage(Redact(snap, conn.Viewer()))); err != nil {
			s.logger.Debug("failed to send state", "error", err, "player", conn.Viewer())
		}
	}
}
