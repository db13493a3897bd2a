package collab

import (
	"log/slog"

	"github.com/inkwell-hq/inkwell/pkg/protocol"
)

// Router fans events out to rooms and single sessions. Delivery is
// fire-and-forget per recipient: a slow or dead recipient is skipped
// and never fails the sender or the rest of the room.
type Router struct {
	directory *Directory
	registry  *Registry
	logger    *slog.Logger
	metrics   *Metrics
}

// NewRouter creates a Router over the given components.
func NewRouter(directory *Directory, registry *Registry, logger *slog.Logger, metrics *Metrics) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		directory: directory,
		registry:  registry,
		logger:    logger.With("component", "router"),
		metrics:   metrics,
	}
}

// ToRoom delivers an event to every session currently in the room,
// except excludeSessionID (usually the originator, to avoid echo).
// Pass an empty exclude to reach the whole room.
func (r *Router) ToRoom(roomID, event string, payload any, excludeSessionID string) {
	data, err := protocol.Encode(event, payload)
	if err != nil {
		r.logger.Error("encode failed", "event", event, "room", roomID, "error", err)
		return
	}

	delivered, dropped := 0, 0
	for _, sessionID := range r.directory.Members(roomID) {
		if sessionID == excludeSessionID {
			continue
		}
		s := r.registry.Get(sessionID)
		if s == nil {
			continue
		}
		if err := s.enqueue(data); err == nil {
			s.messagesOut.Add(1)
			delivered++
		} else {
			dropped++
			r.logger.Debug("dropped broadcast",
				"event", event,
				"room", roomID,
				"recipient", sessionID,
				"error", err)
		}
	}
	r.metrics.recordBroadcast(delivered, dropped)
}

// ToSession delivers an event directly to one session. Used for query
// responses and denial notices. Unknown sessions are a no-op.
func (r *Router) ToSession(sessionID, event string, payload any) {
	s := r.registry.Get(sessionID)
	if s == nil {
		return
	}
	data, err := protocol.Encode(event, payload)
	if err != nil {
		r.logger.Error("encode failed", "event", event, "session_id", sessionID, "error", err)
		return
	}
	if err := s.enqueue(data); err == nil {
		s.messagesOut.Add(1)
		r.metrics.recordBroadcast(1, 0)
	} else {
		r.logger.Debug("dropped message",
			"event", event,
			"session_id", sessionID,
			"error", err)
		r.metrics.recordBroadcast(0, 1)
	}
}
