package engine

import (
	"context"
	"log/slog"
	"time"
)

const probeTimeout = 5 * time.Second

// Registry holds the configured engines and their availability.
// Availability is probed once during construction and never refreshed:
// an engine that goes down mid-process is discovered through a failed
// transcribe call. The registry is read-only after NewRegistry returns,
// so concurrent reads need no locking.
type Registry struct {
	order     []ID
	engines   map[ID]Capability
	available map[ID]bool
}

// NewRegistry probes each engine once and records the result.
func NewRegistry(ctx context.Context, engines ...Capability) *Registry {
	r := &Registry{
		engines:   make(map[ID]Capability, len(engines)),
		available: make(map[ID]bool, len(engines)),
	}

	for _, e := range engines {
		id := e.ID()
		r.order = append(r.order, id)
		r.engines[id] = e

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := e.Probe(probeCtx)
		cancel()

		if err != nil {
			slog.Warn("Engine unavailable", "engine", id, "error", err.Error())
			r.available[id] = false
			continue
		}
		slog.Info("Engine ready", "engine", id, "descriptor", e.Descriptor())
		r.available[id] = true
	}

	return r
}

// IDs returns the configured engines in registration order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, len(r.order))
	copy(ids, r.order)
	return ids
}

// Get returns the capability for id, if configured.
func (r *Registry) Get(id ID) (Capability, bool) {
	e, ok := r.engines[id]
	return e, ok
}

// IsAvailable reports whether id passed its startup probe.
func (r *Registry) IsAvailable(id ID) bool {
	return r.available[id]
}

// ListAvailable returns the engines that passed their startup probe,
// in registration order.
func (r *Registry) ListAvailable() []ID {
	var ids []ID
	for _, id := range r.order {
		if r.available[id] {
			ids = append(ids, id)
		}
	}
	return ids
}
