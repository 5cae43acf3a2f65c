package restclient

import (
	nethttp "net/http"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TransportFactory hands out the *http.Client used for a named client.
// Implementations must return the same handle for the same name.
type TransportFactory interface {
	Acquire(name string) *nethttp.Client
}

// TransportPool caches one *http.Client per name. Handles are never mutated after
// creation; per-call settings travel on the request context.
type TransportPool struct {
	mu        sync.RWMutex
	clients   map[string]*nethttp.Client
	group     singleflight.Group
	newClient func(name string) *nethttp.Client
}

// PoolOption customizes a TransportPool.
type PoolOption func(*TransportPool)

// WithClientConstructor replaces the function that creates a handle for a new name.
func WithClientConstructor(fn func(name string) *nethttp.Client) PoolOption {
	return func(p *TransportPool) {
		if fn != nil {
			p.newClient = fn
		}
	}
}

// NewTransportPool creates an empty pool. By default each name gets its own clone of
// http.DefaultTransport.
func NewTransportPool(opts ...PoolOption) *TransportPool {
	p := &TransportPool{
		clients:   make(map[string]*nethttp.Client),
		newClient: defaultHTTPClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func defaultHTTPClient(_ string) *nethttp.Client {
	transport, ok := nethttp.DefaultTransport.(*nethttp.Transport)
	if !ok {
		return &nethttp.Client{}
	}
	return &nethttp.Client{Transport: transport.Clone()}
}

var defaultPool = NewTransportPool()

// DefaultTransportPool returns the process-wide pool used by clients built without
// an explicit TransportFactory.
func DefaultTransportPool() *TransportPool {
	return defaultPool
}

// Acquire returns the handle for name, creating it on first use. Concurrent first
// calls for the same name share a single construction.
func (p *TransportPool) Acquire(name string) *nethttp.Client {
	p.mu.RLock()
	c, ok := p.clients[name]
	p.mu.RUnlock()
	if ok {
		return c
	}

	v, _, _ := p.group.Do(name, func() (any, error) {
		p.mu.RLock()
		existing, ok := p.clients[name]
		p.mu.RUnlock()
		if ok {
			return existing, nil
		}

		created := p.newClient(name)
		p.mu.Lock()
		p.clients[name] = created
		p.mu.Unlock()
		return created, nil
	})
	return v.(*nethttp.Client)
}

// Len returns the number of cached handles.
func (p *TransportPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}

// CloseIdleConnections closes idle connections on every cached handle.
func (p *TransportPool) CloseIdleConnections() {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, c := range p.clients {
		c.CloseIdleConnections()
	}
}
