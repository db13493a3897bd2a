package collab

import (
	"github.com/inkwell-hq/inkwell/pkg/protocol"
)

// Presence derives the visible user list for a room. It holds no state
// of its own: every call reads through to the Directory and Registry,
// so the answer reflects both as of the moment of the call.
type Presence struct {
	registry  *Registry
	directory *Directory
}

// NewPresence creates a Presence view over the given components.
func NewPresence(registry *Registry, directory *Directory) *Presence {
	return &Presence{registry: registry, directory: directory}
}

// ActiveUsers returns the identified users currently in a room.
// Sessions that have not supplied identity are filtered out, and only
// public fields are exposed, never raw session identifiers.
func (p *Presence) ActiveUsers(roomID string) []protocol.User {
	members := p.directory.Members(roomID)
	users := make([]protocol.User, 0, len(members))
	for _, sessionID := range members {
		s := p.registry.Get(sessionID)
		if s == nil {
			continue
		}
		if user, ok := s.Identity(); ok {
			users = append(users, user)
		}
	}
	return users
}
