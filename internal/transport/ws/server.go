// Package ws exposes the race coordinator over websockets and serves a small
// read-only JSON API for session state and stored results.
package ws

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/vovakirdan/racehub/internal/protocol"
	"github.com/vovakirdan/racehub/internal/race"
	"github.com/vovakirdan/racehub/internal/storage"
)

// Coordinator is the session the server feeds connections into.
type Coordinator interface {
	Connect(ctx context.Context, handle race.SessionHandle) (race.ParticipantID, error)
	Submit(id race.ParticipantID, msg protocol.Inbound)
	Disconnect(id race.ParticipantID)
	Snapshot(ctx context.Context) (race.Snapshot, error)
}

// ResultStore is the read side of result persistence.
type ResultStore interface {
	RecentRaces(limit int) ([]storage.RaceSummary, error)
	RaceResults(raceID string) ([]storage.ResultRow, error)
	Leaderboard(limit int) ([]storage.LeaderboardEntry, error)
}

// Config holds websocket and HTTP settings.
type Config struct {
	WSPath         string
	AllowedOrigins []string
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

// DefaultConfig returns default websocket settings.
func DefaultConfig() Config {
	return Config{
		WSPath:         "/game",
		AllowedOrigins: []string{"*"},
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     256,
	}
}

const connectTimeout = 5 * time.Second

// Server upgrades clients and bridges them to the coordinator.
type Server struct {
	cfg      Config
	coord    Coordinator
	store    ResultStore
	logger   *log.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a server. store may be nil when persistence is disabled.
func NewServer(cfg Config, coord Coordinator, store ResultStore, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	defaults := DefaultConfig()
	if cfg.WSPath == "" {
		cfg.WSPath = defaults.WSPath
	}
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = defaults.SendBuffer
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}

	s := &Server{
		cfg:    cfg,
		coord:  coord,
		store:  store,
		logger: logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the HTTP routes wrapped in CORS.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.WSPath, s.handleGame)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/races", s.handleRaces)
	mux.HandleFunc("GET /api/races/{id}", s.handleRace)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newConnection(conn, s.cfg, s.logger)
	go c.writePump()

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	id, err := s.coord.Connect(ctx, c)
	cancel()
	if err != nil {
		s.logger.Warn("connect rejected", "remote", r.RemoteAddr, "error", err)
		c.close()
		return
	}

	logger := s.logger.With("participant", id)
	logger.Debug("websocket open", "remote", r.RemoteAddr)

	c.readPump(func(msg protocol.Inbound) {
		s.coord.Submit(id, msg)
	})
	s.coord.Disconnect(id)
	logger.Debug("websocket closed")
}
