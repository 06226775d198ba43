package chat

import (
	"sync"

	"github.com/grantbridge/realtime/internal/core"
)

// registry tracks live connections so router effects can be delivered to
// their target connection ids.
type registry struct {
	mu    sync.RWMutex
	conns map[core.ConnID]*wsConn
}

func newRegistry() *registry {
	return &registry{conns: make(map[core.ConnID]*wsConn)}
}

func (r *registry) add(id core.ConnID, c *wsConn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = c
}

func (r *registry) remove(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

func (r *registry) get(id core.ConnID) (*wsConn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[id]
	return c, ok
}
