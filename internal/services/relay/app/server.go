package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/louisbranch/chatrelay/internal/platform/timeouts"
)

// Config defines the inputs for the relay transport boundary.
type Config struct {
	HTTPAddr          string
	Rooms             []RoomMetadata
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Server hosts the relay HTTP/WebSocket process. It owns the fixed room
// set and the process-wide shutdown signal every session observes.
type Server struct {
	httpAddr        string
	shutdownTimeout time.Duration
	httpServer      *http.Server
	manager         *RoomManager

	quit     chan struct{}
	quitOnce sync.Once
}

// NewServer builds a configured relay server.
func NewServer(config Config) (*Server, error) {
	httpAddr := strings.TrimSpace(config.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	if len(config.Rooms) == 0 {
		return nil, errors.New("at least one room is required")
	}
	if config.ReadHeaderTimeout <= 0 {
		config.ReadHeaderTimeout = timeouts.ReadHeader
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = timeouts.Shutdown
	}

	manager := NewRoomManager(config.Rooms)
	quit := make(chan struct{})
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           newHandler(manager, quit),
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	return &Server{
		httpAddr:        httpAddr,
		shutdownTimeout: config.ShutdownTimeout,
		httpServer:      httpServer,
		manager:         manager,
		quit:            quit,
	}, nil
}

// Run creates and serves a relay server until the context ends.
func Run(ctx context.Context, config Config) error {
	server, err := NewServer(config)
	if err != nil {
		return fmt.Errorf("init relay server: %w", err)
	}
	defer server.Close()

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve relay: %w", err)
	}
	return nil
}

// ListenAndServe runs the HTTP server until the context ends. Context
// cancellation broadcasts the shutdown signal to every live session
// before the listener is closed.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("relay server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("relay server listening on %s", s.httpAddr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close broadcasts the shutdown signal to every session. Sessions
// observe it independently and close their transports; nothing waits
// for them to finish.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.quitOnce.Do(func() {
		close(s.quit)
	})
}

// NewHandler creates relay routes over the given room catalog. Exposed
// for tests and embedding.
func NewHandler(rooms []RoomMetadata) http.Handler {
	return newHandler(NewRoomManager(rooms), make(chan struct{}))
}

func newHandler(manager *RoomManager, quit <-chan struct{}) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeRoomList(w, manager)
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, manager, quit)
	})

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		wsHandler.ServeHTTP(w, r)
	})

	return mux
}

type roomListEntry struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
	MemberCount int      `json:"member_count"`
}

// writeRoomList reports the room catalog with current unique members.
func writeRoomList(w http.ResponseWriter, manager *RoomManager) {
	catalog := manager.Metadata()
	entries := make([]roomListEntry, 0, len(catalog))
	for _, metadata := range catalog {
		room, ok := manager.Room(metadata.Name)
		if !ok {
			continue
		}
		members := room.UniqueUserIDs()
		entries = append(entries, roomListEntry{
			Name:        metadata.Name,
			Description: metadata.Description,
			Members:     members,
			MemberCount: len(members),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		log.Printf("relay: encode room list: %v", err)
	}
}
