package protocol

import "encoding/json"

// User is the public projection of an identified session. Raw session
// identifiers never appear here.
type User struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

// SetIdentity carries the identity supplied once per connection.
type SetIdentity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
}

// RoomRef addresses a room by its two naming components, joined as
// "{type}:{id}" on the server side.
type RoomRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewAnnotation announces a freshly created annotation to an article room.
type NewAnnotation struct {
	ArticleID  string          `json:"articleId"`
	Annotation json.RawMessage `json:"annotation"`
}

// UpdatedAnnotation relays an edited annotation. ArticleID and
// AnnotationID are lifted out of the annotation body so the server can
// route without understanding annotation content.
type UpdatedAnnotation struct {
	ArticleID    string          `json:"articleId"`
	AnnotationID string          `json:"annotationId"`
	Annotation   json.RawMessage `json:"annotation"`
}

// DeletedAnnotation announces a deletion to an article room.
type DeletedAnnotation struct {
	ArticleID    string `json:"articleId"`
	AnnotationID string `json:"annotationId"`
}

// CursorPosition is an ephemeral caret update scoped to one annotation.
type CursorPosition struct {
	AnnotationID string          `json:"annotationId"`
	Position     json.RawMessage `json:"position"`
}

// Selection is an ephemeral text-selection update scoped to an article.
type Selection struct {
	ArticleID string          `json:"articleId"`
	Selection json.RawMessage `json:"selection"`
}

// LockRequest asks for (or gives up) the exclusive edit lock on an
// annotation. ArticleID names the containing article room so lock
// outcomes can be mirrored there.
type LockRequest struct {
	AnnotationID string `json:"annotationId"`
	ArticleID    string `json:"articleId"`
}

// RoomJoined echoes membership to the client that just joined.
type RoomJoined struct {
	Room        string `json:"room"`
	ActiveUsers []User `json:"activeUsers"`
}

// UserJoined announces a new member to the rest of the room.
type UserJoined struct {
	User        User   `json:"user"`
	ActiveUsers []User `json:"activeUsers"`
}

// UserLeft announces a departure to the remaining members.
type UserLeft struct {
	User        User   `json:"user"`
	ActiveUsers []User `json:"activeUsers"`
}

// DeletedAnnotationBroadcast is the relayed form of DeletedAnnotation.
// Receivers already share the article room, so only the annotation
// identifier travels.
type DeletedAnnotationBroadcast struct {
	AnnotationID string `json:"annotationId"`
}

// CursorBroadcast is the relayed form of CursorPosition, stamped with
// the originating user.
type CursorBroadcast struct {
	UserID      string          `json:"userId"`
	DisplayName string          `json:"displayName"`
	Position    json.RawMessage `json:"position"`
}

// SelectionBroadcast is the relayed form of Selection, stamped with the
// originating user.
type SelectionBroadcast struct {
	UserID      string          `json:"userId"`
	DisplayName string          `json:"displayName"`
	Selection   json.RawMessage `json:"selection"`
}

// LockGranted announces a successful lock acquisition.
type LockGranted struct {
	AnnotationID string `json:"annotationId"`
	UserID       string `json:"userId"`
	DisplayName  string `json:"displayName"`
}

// LockReleased announces that an annotation lock was released.
type LockReleased struct {
	AnnotationID string `json:"annotationId"`
}

// Denied is sent only to the requester when a lock operation fails.
// HeldBy carries the current holder's display name for DeniedLocked.
type Denied struct {
	Code   string `json:"code"`
	HeldBy string `json:"heldBy,omitempty"`
}

// ErrorNotice is the generic rejection for malformed requests. It goes
// only to the offending client and causes no state change.
type ErrorNotice struct {
	Message string `json:"message"`
}
