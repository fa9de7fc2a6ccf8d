package microbus

import "github.com/google/uuid"

// Handle identifies a registered worker. Identity is the pointer itself:
// two handles with the same name are still different workers.
type Handle struct {
	id   uuid.UUID
	name string
}

// NewHandle creates a fresh worker identity.
func NewHandle(name string) *Handle {
	return &Handle{
		id:   uuid.New(),
		name: name,
	}
}

// Name returns the human-readable name. Names may collide.
func (h *Handle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// ID returns the unique identifier used in logs and diagnostics.
func (h *Handle) ID() string {
	if h == nil {
		return ""
	}
	return h.id.String()
}

// String implements fmt.Stringer.
func (h *Handle) String() string {
	if h == nil {
		return "<nil>"
	}
	return h.name + "/" + h.id.String()[:8]
}
