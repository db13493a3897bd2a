package collab

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/inkwell-hq/inkwell/pkg/protocol"
)

// Session represents one live client connection. Identity is empty
// until the client sends setIdentity; a session is never shared across
// connections.
type Session struct {
	// Identity
	ID        string
	CreatedAt time.Time

	// User identity, populated by setIdentity. Protected by identityMu.
	identityMu  sync.RWMutex
	userID      string
	displayName string
	avatar      string

	// Connection
	conn *websocket.Conn

	// Outbound queue drained by the write pump. Sends are non-blocking:
	// a full queue drops the message for this recipient only.
	send chan []byte

	done        chan struct{}
	closed      atomic.Bool
	cleanupOnce sync.Once

	config *Config
	logger *slog.Logger

	// Metrics
	messagesIn  atomic.Uint64
	messagesOut atomic.Uint64
}

// newSession creates a session for the given connection. conn may be
// nil in tests; the pumps are only started for real connections.
func newSession(conn *websocket.Conn, config *Config, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		conn:      conn,
		send:      make(chan []byte, config.SendQueueSize),
		done:      make(chan struct{}),
		config:    config,
		logger:    logger.With("session_id", id),
	}
}

// SetIdentity fills the identity fields. It may be called repeatedly;
// the last write wins. Already-routed broadcasts are unaffected.
func (s *Session) SetIdentity(userID, displayName, avatar string) {
	s.identityMu.Lock()
	s.userID = userID
	s.displayName = displayName
	s.avatar = avatar
	s.identityMu.Unlock()
}

// Identity returns the public user projection and whether the session
// has been identified. Anonymous sessions return ok=false.
func (s *Session) Identity() (protocol.User, bool) {
	s.identityMu.RLock()
	defer s.identityMu.RUnlock()

	if s.userID == "" {
		return protocol.User{}, false
	}
	return protocol.User{
		UserID:      s.userID,
		DisplayName: s.displayName,
		Avatar:      s.avatar,
	}, true
}

// enqueue queues an encoded message for delivery. It never blocks: a
// closed session returns ErrSessionClosed and a full queue returns
// ErrSendQueueFull; either way the message is dropped.
func (s *Session) enqueue(data []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// IsClosed reports whether the session has been closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Close terminates the session. It is safe to call multiple times; the
// transport may report disconnect through several code paths.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
}
