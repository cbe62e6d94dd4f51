// Package observer streams world changes to websocket clients. Each completed
// tick becomes one TICK frame; clients that cannot keep up miss frames rather
// than slowing the simulation.
package observer

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/minesim/internal/journal"
	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/internal/sim/state"
	"github.com/signalsfoundry/minesim/model"
)

// Path is where Handler is mounted by Mux.
const Path = "/observe"

// Hello is the first frame sent to a new client.
type Hello struct {
	Type   string `json:"type"`
	Tick   int64  `json:"tick"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Frame is sent once per completed tick.
type Frame struct {
	Type string `json:"type"`
	journal.Record
}

type client struct {
	id  string
	out chan []byte
}

// Server fans per-tick frames out to connected observers.
type Server struct {
	world *state.WorldState
	log   logging.Logger

	batcher  journal.Batcher
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	clients map[string]*client
	dropped atomic.Int64
}

// NewServer returns an observer server for world. Call Observe from a world
// subscription and TickCompleted from the drive loop.
func NewServer(world *state.WorldState, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		world:   world,
		log:     log,
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Mux returns a mux serving the websocket endpoint at Path.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(Path, s.Handler())
	return mux
}

// Observe buffers world events for the next frame.
func (s *Server) Observe(events []state.Event) { s.batcher.Observe(events) }

// TickCompleted broadcasts the frame for tick.
func (s *Server) TickCompleted(tick model.Tick, dirty []model.Point) {
	rec := s.batcher.Take(tick, dirty)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) == 0 {
		return
	}
	b, err := json.Marshal(Frame{Type: "TICK", Record: rec})
	if err != nil {
		s.log.Warn(context.Background(), "observer frame encode failed", logging.Err(err))
		return
	}
	for _, c := range s.clients {
		select {
		case c.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected observers.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped returns how many frames were skipped for slow clients.
func (s *Server) Dropped() int64 { return s.dropped.Load() }

// Handler upgrades loopback requests to a websocket stream.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		c := &client{id: fmt.Sprintf("O%d", s.nextID.Add(1)), out: make(chan []byte, 16)}
		snap := s.world.Snapshot()
		hello, _ := json.Marshal(Hello{Type: "HELLO", Tick: int64(snap.Tick), Width: snap.Width, Height: snap.Height})
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			return
		}

		s.mu.Lock()
		s.clients[c.id] = c
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.clients, c.id)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		s.log.Debug(ctx, "observer connected", logging.String("client", c.id))

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Clients send nothing; reading only detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
		s.log.Debug(ctx, "observer disconnected", logging.String("client", c.id))
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
