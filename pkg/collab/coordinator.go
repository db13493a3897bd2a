package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/inkwell-hq/inkwell/pkg/audit"
	"github.com/inkwell-hq/inkwell/pkg/protocol"
)

const tracerName = "github.com/inkwell-hq/inkwell/pkg/collab"

// Coordinator wires connect, inbound messages, and disconnect to the
// registry, directory, lock manager, and router. Each session's
// messages are handled sequentially by its read pump, so a session's
// own operations never race each other; cross-session safety lives in
// the components.
type Coordinator struct {
	registry  *Registry
	directory *Directory
	presence  *Presence
	locks     *LockManager
	router    *Router

	recorder audit.Recorder
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

// NewCoordinator creates a Coordinator over explicitly injected
// components. recorder may be nil to disable auditing.
func NewCoordinator(registry *Registry, directory *Directory, presence *Presence, locks *LockManager, router *Router, recorder audit.Recorder, logger *slog.Logger, metrics *Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		registry:  registry,
		directory: directory,
		presence:  presence,
		locks:     locks,
		router:    router,
		recorder:  recorder,
		logger:    logger.With("component", "coordinator"),
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
	}
}

// Connect registers a freshly accepted session.
func (c *Coordinator) Connect(s *Session) {
	c.registry.Add(s)
	c.logger.Info("session connected",
		"session_id", s.ID,
		"active_sessions", c.registry.Count())
}

// Handle processes one raw client message. Malformed input earns the
// sender a generic error notice and changes no state; a fault in one
// session's message never affects other sessions.
func (c *Coordinator) Handle(ctx context.Context, s *Session, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		c.metrics.recordMalformed()
		c.logger.Debug("malformed message", "session_id", s.ID, "error", err)
		c.router.ToSession(s.ID, protocol.TypeError, protocol.ErrorNotice{Message: "invalid message"})
		return
	}

	_, span := c.tracer.Start(ctx, "collab.handle",
		trace.WithAttributes(
			attribute.String("message.type", msg.Type),
			attribute.String("session.id", s.ID),
		))
	defer span.End()

	s.messagesIn.Add(1)
	c.metrics.recordMessage(msg.Type)

	switch msg.Type {
	case protocol.TypeSetIdentity:
		c.handleSetIdentity(s, msg)
	case protocol.TypeJoinRoom:
		c.handleJoinRoom(s, msg)
	case protocol.TypeLeaveRoom:
		c.handleLeaveRoom(s, msg)
	case protocol.TypeNewAnnotation:
		c.handleNewAnnotation(s, msg)
	case protocol.TypeUpdatedAnnotation:
		c.handleUpdatedAnnotation(s, msg)
	case protocol.TypeDeletedAnnotation:
		c.handleDeletedAnnotation(s, msg)
	case protocol.TypeCursorPosition:
		c.handleCursorPosition(s, msg)
	case protocol.TypeSelection:
		c.handleSelection(s, msg)
	case protocol.TypeLockAnnotation:
		c.handleLockAnnotation(s, msg)
	case protocol.TypeUnlockAnnotation:
		c.handleUnlockAnnotation(s, msg)
	default:
		c.metrics.recordMalformed()
		c.logger.Debug("unknown message type", "session_id", s.ID, "type", msg.Type)
		c.rejectMalformed(s)
	}
}

func (c *Coordinator) rejectMalformed(s *Session) {
	c.router.ToSession(s.ID, protocol.TypeError, protocol.ErrorNotice{Message: "invalid request"})
}

func (c *Coordinator) handleSetIdentity(s *Session, msg *protocol.Message) {
	var p protocol.SetIdentity
	if err := msg.DecodePayload(&p); err != nil || p.UserID == "" {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	c.registry.SetIdentity(s.ID, p.UserID, p.DisplayName, p.Avatar)
	c.logger.Info("identity set",
		"session_id", s.ID,
		"user_id", p.UserID)
}

func (c *Coordinator) handleJoinRoom(s *Session, msg *protocol.Message) {
	var p protocol.RoomRef
	if err := msg.DecodePayload(&p); err != nil {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	roomID, err := RoomID(p.Type, p.ID)
	if err != nil {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}

	c.directory.Join(roomID, s.ID)
	activeUsers := c.presence.ActiveUsers(roomID)

	c.router.ToSession(s.ID, protocol.TypeRoomJoined, protocol.RoomJoined{
		Room:        roomID,
		ActiveUsers: activeUsers,
	})

	// Anonymous sessions join silently: they carry no presence until
	// identity arrives.
	if user, ok := s.Identity(); ok {
		c.router.ToRoom(roomID, protocol.TypeUserJoined, protocol.UserJoined{
			User:        user,
			ActiveUsers: activeUsers,
		}, s.ID)
	}
}

func (c *Coordinator) handleLeaveRoom(s *Session, msg *protocol.Message) {
	var p protocol.RoomRef
	if err := msg.DecodePayload(&p); err != nil {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	roomID, err := RoomID(p.Type, p.ID)
	if err != nil {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}

	_, remaining := c.directory.Leave(roomID, s.ID)
	if !remaining {
		// Room is gone (or the session was not a member); nothing to announce.
		return
	}
	if user, ok := s.Identity(); ok {
		c.router.ToRoom(roomID, protocol.TypeUserLeft, protocol.UserLeft{
			User:        user,
			ActiveUsers: c.presence.ActiveUsers(roomID),
		}, s.ID)
	}
}

func (c *Coordinator) handleNewAnnotation(s *Session, msg *protocol.Message) {
	var p protocol.NewAnnotation
	if err := msg.DecodePayload(&p); err != nil || p.ArticleID == "" || len(p.Annotation) == 0 {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	roomID := ArticleRoom(p.ArticleID)
	if !c.directory.Contains(roomID, s.ID) {
		c.rejectMalformed(s)
		return
	}

	c.router.ToRoom(roomID, protocol.TypeNewAnnotation, map[string]any{
		"annotation": p.Annotation,
	}, s.ID)
	c.recordAudit(s, annotationID(p.Annotation), audit.ActionCreate)
}

func (c *Coordinator) handleUpdatedAnnotation(s *Session, msg *protocol.Message) {
	var p protocol.UpdatedAnnotation
	if err := msg.DecodePayload(&p); err != nil || p.ArticleID == "" || p.AnnotationID == "" {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	articleRoom := ArticleRoom(p.ArticleID)
	if !c.directory.Contains(articleRoom, s.ID) {
		c.rejectMalformed(s)
		return
	}

	payload := map[string]any{"annotation": p.Annotation}
	c.router.ToRoom(articleRoom, protocol.TypeUpdatedAnnotation, payload, s.ID)
	c.router.ToRoom(AnnotationRoom(p.AnnotationID), protocol.TypeUpdatedAnnotation, payload, s.ID)
	c.recordAudit(s, p.AnnotationID, audit.ActionUpdate)
}

func (c *Coordinator) handleDeletedAnnotation(s *Session, msg *protocol.Message) {
	var p protocol.DeletedAnnotation
	if err := msg.DecodePayload(&p); err != nil || p.ArticleID == "" || p.AnnotationID == "" {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	roomID := ArticleRoom(p.ArticleID)
	if !c.directory.Contains(roomID, s.ID) {
		c.rejectMalformed(s)
		return
	}

	c.router.ToRoom(roomID, protocol.TypeDeletedAnnotation, protocol.DeletedAnnotationBroadcast{
		AnnotationID: p.AnnotationID,
	}, s.ID)
	c.recordAudit(s, p.AnnotationID, audit.ActionDelete)
}

func (c *Coordinator) handleCursorPosition(s *Session, msg *protocol.Message) {
	var p protocol.CursorPosition
	if err := msg.DecodePayload(&p); err != nil || p.AnnotationID == "" {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	user, ok := s.Identity()
	if !ok {
		// Ephemeral updates from anonymous sessions carry no useful
		// attribution; drop quietly.
		return
	}

	c.router.ToRoom(AnnotationRoom(p.AnnotationID), protocol.TypeCursorPosition, protocol.CursorBroadcast{
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
		Position:    p.Position,
	}, s.ID)
}

func (c *Coordinator) handleSelection(s *Session, msg *protocol.Message) {
	var p protocol.Selection
	if err := msg.DecodePayload(&p); err != nil || p.ArticleID == "" {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	user, ok := s.Identity()
	if !ok {
		return
	}

	c.router.ToRoom(ArticleRoom(p.ArticleID), protocol.TypeSelection, protocol.SelectionBroadcast{
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
		Selection:   p.Selection,
	}, s.ID)
}

func (c *Coordinator) handleLockAnnotation(s *Session, msg *protocol.Message) {
	var p protocol.LockRequest
	if err := msg.DecodePayload(&p); err != nil || p.AnnotationID == "" || p.ArticleID == "" {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}
	user, ok := s.Identity()
	if !ok {
		c.logger.Debug("lock request rejected",
			"session_id", s.ID,
			"annotation_id", p.AnnotationID,
			"error", ErrIdentityRequired)
		c.rejectMalformed(s)
		return
	}

	lock, ok := c.locks.Acquire(p.AnnotationID, p.ArticleID, s.ID, user.UserID, user.DisplayName)
	if !ok {
		c.metrics.recordLockDenial()
		c.router.ToSession(s.ID, protocol.TypeDenied, protocol.Denied{
			Code:   protocol.DeniedLocked,
			HeldBy: lock.DisplayName,
		})
		return
	}

	granted := protocol.LockGranted{
		AnnotationID: lock.AnnotationID,
		UserID:       lock.UserID,
		DisplayName:  lock.DisplayName,
	}
	c.router.ToSession(s.ID, protocol.TypeLockGranted, granted)
	c.router.ToRoom(AnnotationRoom(p.AnnotationID), protocol.TypeLockGranted, granted, s.ID)
	c.router.ToRoom(ArticleRoom(p.ArticleID), protocol.TypeLockGranted, granted, s.ID)
}

func (c *Coordinator) handleUnlockAnnotation(s *Session, msg *protocol.Message) {
	var p protocol.LockRequest
	if err := msg.DecodePayload(&p); err != nil || p.AnnotationID == "" || p.ArticleID == "" {
		c.metrics.recordMalformed()
		c.rejectMalformed(s)
		return
	}

	lock, ok := c.locks.Release(p.AnnotationID, s.ID)
	if !ok {
		c.metrics.recordLockDenial()
		c.router.ToSession(s.ID, protocol.TypeDenied, protocol.Denied{
			Code: protocol.DeniedNotHolder,
		})
		return
	}

	released := protocol.LockReleased{AnnotationID: lock.AnnotationID}
	c.router.ToSession(s.ID, protocol.TypeLockReleased, released)
	c.router.ToRoom(AnnotationRoom(lock.AnnotationID), protocol.TypeLockReleased, released, s.ID)
	c.router.ToRoom(ArticleRoom(lock.ArticleID), protocol.TypeLockReleased, released, s.ID)
}

// Disconnect runs the terminal cleanup sequence exactly once, no matter
// how many transport code paths report the disconnect. Locks are
// released and announced before the session is removed so its display
// name is still resolvable in the unlock events.
func (c *Coordinator) Disconnect(s *Session) {
	s.cleanupOnce.Do(func() {
		for _, lock := range c.locks.ReleaseAllHeldBy(s.ID) {
			released := protocol.LockReleased{AnnotationID: lock.AnnotationID}
			c.router.ToRoom(AnnotationRoom(lock.AnnotationID), protocol.TypeLockReleased, released, s.ID)
			c.router.ToRoom(ArticleRoom(lock.ArticleID), protocol.TypeLockReleased, released, s.ID)
		}

		user, identified := s.Identity()
		for _, roomID := range c.directory.RoomsOf(s.ID) {
			_, remaining := c.directory.Leave(roomID, s.ID)
			if remaining && identified {
				c.router.ToRoom(roomID, protocol.TypeUserLeft, protocol.UserLeft{
					User:        user,
					ActiveUsers: c.presence.ActiveUsers(roomID),
				}, s.ID)
			}
		}

		c.registry.Remove(s.ID)
		s.Close()
		c.metrics.recordDisconnect()
		c.logger.Info("session disconnected",
			"session_id", s.ID,
			"active_sessions", c.registry.Count())
	})
}

// annotationID pulls the annotation's own identifier out of its opaque
// body for auditing. The core never interprets the rest of the content.
func annotationID(raw json.RawMessage) string {
	var probe struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return ""
	}
	switch v := probe.ID.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func (c *Coordinator) recordAudit(s *Session, annotationID, action string) {
	if c.recorder == nil {
		return
	}
	user, _ := s.Identity()
	c.recorder.Submit(audit.Record{
		UserID:       user.UserID,
		AnnotationID: annotationID,
		Action:       action,
		Timestamp:    time.Now().UTC(),
	})
}
