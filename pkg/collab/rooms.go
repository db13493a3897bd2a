package collab

import (
	"hash/fnv"
	"sort"
	"sync"
)

// Room types accepted in room identifiers.
const (
	RoomArticle    = "article"
	RoomCollection = "collection"
	RoomAnnotation = "annotation"
	RoomUser       = "user"
)

// RoomID builds a canonical "{type}:{id}" room identifier. It returns
// ErrInvalidRoom for unknown types or an empty id.
func RoomID(roomType, id string) (string, error) {
	switch roomType {
	case RoomArticle, RoomCollection, RoomAnnotation, RoomUser:
	default:
		return "", ErrInvalidRoom
	}
	if id == "" {
		return "", ErrInvalidRoom
	}
	return roomType + ":" + id, nil
}

// ArticleRoom returns the room identifier for an article.
func ArticleRoom(articleID string) string {
	return RoomArticle + ":" + articleID
}

// AnnotationRoom returns the room identifier for an annotation.
func AnnotationRoom(annotationID string) string {
	return RoomAnnotation + ":" + annotationID
}

// directoryShards is the number of mutex shards in a Directory. Sharding
// keeps unrelated rooms independent: joins and leaves serialize per
// room, not behind one global lock.
const directoryShards = 32

type roomShard struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // roomID -> set of sessionIDs
}

type sessionRoomShard struct {
	mu       sync.RWMutex
	sessions map[string]map[string]struct{} // sessionID -> set of roomIDs
}

// Directory maps room identifiers to the sessions subscribed to them.
// A room exists exactly as long as it has members: it is created on
// first join and deleted when the last member leaves. A reverse index
// makes RoomsOf proportional to the session's actual membership.
type Directory struct {
	rooms     [directoryShards]roomShard
	bySession [directoryShards]sessionRoomShard
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	d := &Directory{}
	for i := range d.rooms {
		d.rooms[i].rooms = make(map[string]map[string]struct{})
	}
	for i := range d.bySession {
		d.bySession[i].sessions = make(map[string]map[string]struct{})
	}
	return d
}

func shardIndex(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % directoryShards)
}

// Join adds a session to a room, creating the room if absent, and
// returns the member list after the add. Joining a room the session is
// already in is a no-op that still returns the current members.
func (d *Directory) Join(roomID, sessionID string) []string {
	rs := &d.rooms[shardIndex(roomID)]
	rs.mu.Lock()
	members, ok := rs.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		rs.rooms[roomID] = members
	}
	members[sessionID] = struct{}{}
	list := memberList(members)
	rs.mu.Unlock()

	ss := &d.bySession[shardIndex(sessionID)]
	ss.mu.Lock()
	rooms, ok := ss.sessions[sessionID]
	if !ok {
		rooms = make(map[string]struct{})
		ss.sessions[sessionID] = rooms
	}
	rooms[roomID] = struct{}{}
	ss.mu.Unlock()

	return list
}

// Leave removes a session from a room. If the room becomes empty it is
// deleted and Leave returns (nil, false): no further broadcast is
// needed. Otherwise it returns the remaining members and true. Leaving
// a room the session is not in returns (nil, false).
func (d *Directory) Leave(roomID, sessionID string) ([]string, bool) {
	rs := &d.rooms[shardIndex(roomID)]
	rs.mu.Lock()
	members, ok := rs.rooms[roomID]
	if !ok {
		rs.mu.Unlock()
		d.dropSessionRoom(roomID, sessionID)
		return nil, false
	}
	if _, ok := members[sessionID]; !ok {
		rs.mu.Unlock()
		return nil, false
	}
	delete(members, sessionID)
	var list []string
	remaining := len(members) > 0
	if remaining {
		list = memberList(members)
	} else {
		delete(rs.rooms, roomID)
	}
	rs.mu.Unlock()

	d.dropSessionRoom(roomID, sessionID)
	return list, remaining
}

func (d *Directory) dropSessionRoom(roomID, sessionID string) {
	ss := &d.bySession[shardIndex(sessionID)]
	ss.mu.Lock()
	if rooms, ok := ss.sessions[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(ss.sessions, sessionID)
		}
	}
	ss.mu.Unlock()
}

// Members returns the current member list of a room, or an empty list
// if the room does not exist.
func (d *Directory) Members(roomID string) []string {
	rs := &d.rooms[shardIndex(roomID)]
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	members, ok := rs.rooms[roomID]
	if !ok {
		return nil
	}
	return memberList(members)
}

// Contains reports whether a session is a member of a room.
func (d *Directory) Contains(roomID, sessionID string) bool {
	rs := &d.rooms[shardIndex(roomID)]
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	members, ok := rs.rooms[roomID]
	if !ok {
		return false
	}
	_, ok = members[sessionID]
	return ok
}

// RoomsOf returns the rooms a session is currently in. The cost is
// proportional to that session's membership, not to all rooms.
func (d *Directory) RoomsOf(sessionID string) []string {
	ss := &d.bySession[shardIndex(sessionID)]
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rooms, ok := ss.sessions[sessionID]
	if !ok {
		return nil
	}
	list := make([]string, 0, len(rooms))
	for id := range rooms {
		list = append(list, id)
	}
	sort.Strings(list)
	return list
}

// Len returns the number of rooms that currently have members.
func (d *Directory) Len() int {
	n := 0
	for i := range d.rooms {
		rs := &d.rooms[i]
		rs.mu.RLock()
		n += len(rs.rooms)
		rs.mu.RUnlock()
	}
	return n
}

func memberList(members map[string]struct{}) []string {
	list := make([]string, 0, len(members))
	for id := range members {
		list = append(list, id)
	}
	sort.Strings(list)
	return list
}
