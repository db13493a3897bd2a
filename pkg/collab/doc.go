// Package collab implements the real-time collaboration core: live
// WebSocket sessions, room membership, presence, exclusive annotation
// locks, and room-scoped broadcast.
//
// The package is built from small, explicitly wired components:
//
//   - Registry tracks one Session per live connection.
//   - Directory maps room identifiers to member sessions.
//   - Presence derives the visible user list for a room.
//   - LockManager grants at most one edit lock per annotation.
//   - Router fans events out to rooms or single sessions.
//   - Coordinator dispatches client messages and runs disconnect cleanup.
//
// Server ties the components to an HTTP/WebSocket surface and owns the
// process lifecycle. Annotation content is never stored here; the core
// only relays it and records best-effort audit entries.
package collab
