// Package notify fans server events out to connected console clients.
//
// The registry is an explicit dependency: exactly one instance is created at
// wiring time and handed to the services that publish events. There is no
// package-level registry.
package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event kinds published by the services.
const (
	EventImplantCheckin  = "implant_checkin"
	EventImplantInactive = "implant_inactive"
	EventTaskCreated     = "task_created"
	EventTaskDeleted     = "task_deleted"
)

// Event is a message broadcast to every connected client.
type Event struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

// Client is a connected console session.
type Client interface {
	Send(Event) error
	Close() error
}

// Registry tracks connected clients by connection ID.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:  logger.With("component", "notify"),
		clients: make(map[string]Client),
	}
}

// Add registers the client and returns its connection ID.
func (r *Registry) Add(c Client) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.clients[id] = c
	r.mu.Unlock()
	r.logger.Debug("client connected", "connection_id", id)
	return id
}

// Remove deregisters and closes the client. Unknown IDs are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	c, ok := r.clients[id]
	delete(r.clients, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	_ = c.Close()
	r.logger.Debug("client disconnected", "connection_id", id)
}

// Len reports the number of connected clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast delivers the event to every connected client. Clients whose send
// fails are dropped from the registry; one dead connection must not block
// the rest.
func (r *Registry) Broadcast(e Event) {
	r.mu.RLock()
	snapshot := make(map[string]Client, len(r.clients))
	for id, c := range r.clients {
		snapshot[id] = c
	}
	r.mu.RUnlock()

	for id, c := range snapshot {
		if err := c.Send(e); err != nil {
			r.logger.Warn("dropping client after failed send",
				"connection_id", id, "error", err)
			r.Remove(id)
		}
	}
}
