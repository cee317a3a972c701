package server

// Registry is the agent's ordered set of known servers, keyed by
// endpoint. Records are never removed; insertion order is preserved so
// heartbeat and timer scans are deterministic.
type Registry struct {
	records map[string]*Record
	order   []*Record
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
	}
}

// Add registers a record. Returns false if the endpoint is already
// registered, in which case the existing record is kept.
func (g *Registry) Add(rec *Record) bool {
	if _, ok := g.records[rec.endpoint]; ok {
		return false
	}
	g.records[rec.endpoint] = rec
	g.order = append(g.order, rec)
	return true
}

// Lookup returns the record for an endpoint, or nil if unregistered.
func (g *Registry) Lookup(endpoint string) *Record {
	return g.records[endpoint]
}

// Each calls fn for every record in registration order.
func (g *Registry) Each(fn func(*Record)) {
	for _, rec := range g.order {
		fn(rec)
	}
}

// Len returns the number of registered servers.
func (g *Registry) Len() int {
	return len(g.order)
}
