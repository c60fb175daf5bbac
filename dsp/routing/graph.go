// Package routing maintains the delay engine's signal topology: a directed
// graph over one Input node, one Output node and a dynamic set of band
// nodes. It owns the connection set, detects cycles, computes the
// topological processing order and publishes immutable snapshots for the
// audio thread.
package routing

import (
	"fmt"
	"sync/atomic"
)

const (
	// InputNodeID is the reserved node id for the engine input.
	InputNodeID = 0

	// MaxBands is the largest supported band capacity.
	MaxBands = 12

	// DefaultBands is the band capacity of a default graph, giving the
	// classic 8-band layout with output node id 9.
	DefaultBands = 8
)

// Connection is a directed edge carrying summed audio from Source to Dest.
type Connection struct {
	Source int `json:"source"`
	Dest   int `json:"dest"`
}

// State is the serialization surface of a graph: the ordered connection
// list plus the active band id set. It fully reconstructs topology.
type State struct {
	Connections []Connection `json:"connections"`
	ActiveBands []int        `json:"activeBands"`
}

// Graph is the single source of truth for topology. Mutations happen on a
// control context; every committed mutation publishes a fresh Snapshot
// that the audio thread loads wait-free at block start.
//
// Graph methods are not safe for concurrent mutation; the intended
// discipline is a single control writer plus any number of Snapshot
// readers.
type Graph struct {
	maxBands int
	outputID int
	active   [MaxBands + 2]bool
	conns    []Connection

	snapshot atomic.Pointer[Snapshot]
}

// Option mutates graph construction parameters.
type Option func(*Graph)

// WithBandCapacity sets the number of band slots (1..12). The output node
// id is always capacity+1.
func WithBandCapacity(n int) Option {
	return func(g *Graph) { g.maxBands = n }
}

// New creates a graph with all bands of the given capacity active and no
// connections. The default capacity is 8 bands (output node id 9).
func New(opts ...Option) (*Graph, error) {
	g := &Graph{maxBands: DefaultBands}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	if g.maxBands < 1 || g.maxBands > MaxBands {
		return nil, fmt.Errorf("routing band capacity must be in [1, %d]: %d", MaxBands, g.maxBands)
	}

	g.outputID = g.maxBands + 1
	for id := 1; id <= g.maxBands; id++ {
		g.active[id] = true
	}

	g.publish()

	return g, nil
}

// OutputNodeID returns the reserved node id for the engine output.
func (g *Graph) OutputNodeID() int { return g.outputID }

// BandCapacity returns the number of band slots.
func (g *Graph) BandCapacity() int { return g.maxBands }

// ActiveBands returns the sorted ids of active bands.
func (g *Graph) ActiveBands() []int {
	out := make([]int, 0, g.maxBands)
	for id := 1; id <= g.maxBands; id++ {
		if g.active[id] {
			out = append(out, id)
		}
	}

	return out
}

// IsBandActive reports whether the band id is in the active set.
func (g *Graph) IsBandActive(id int) bool {
	return id >= 1 && id <= g.maxBands && g.active[id]
}

// AddBand activates a band id. Returns false for out-of-range or already
// active ids. A re-added band starts with no connections.
func (g *Graph) AddBand(id int) bool {
	if id < 1 || id > g.maxBands || g.active[id] {
		return false
	}

	g.active[id] = true
	g.publish()

	return true
}

// RemoveBand deactivates a band id, purging every connection touching it
// first so no dangling edges remain.
func (g *Graph) RemoveBand(id int) bool {
	if !g.IsBandActive(id) {
		return false
	}

	g.disconnectAll(id)
	g.active[id] = false
	g.publish()

	return true
}

// validNode reports whether id names the input, the output, or an active
// band.
func (g *Graph) validNode(id int) bool {
	return id == InputNodeID || id == g.outputID || g.IsBandActive(id)
}

// Connect adds the edge (source, dest). It rejects self-loops, edges into
// the input, edges out of the output, endpoints that are not live nodes,
// and duplicates — all by returning false with no state change.
//
// It deliberately does NOT reject cycle-forming edges: cross-band feedback
// is a legitimate routing. Callers that want to warn first can query
// WouldCreateCycle. Nodes on an unresolved cycle are simply excluded from
// the processing order.
func (g *Graph) Connect(source, dest int) bool {
	if source == dest || dest == InputNodeID || source == g.outputID {
		return false
	}
	if !g.validNode(source) || !g.validNode(dest) {
		return false
	}
	if g.connected(source, dest) {
		return false
	}

	g.conns = append(g.conns, Connection{Source: source, Dest: dest})
	g.publish()

	return true
}

// Disconnect removes the edge (source, dest), reporting whether it existed.
func (g *Graph) Disconnect(source, dest int) bool {
	for i, c := range g.conns {
		if c.Source == source && c.Dest == dest {
			g.conns = append(g.conns[:i], g.conns[i+1:]...)
			g.publish()

			return true
		}
	}

	return false
}

// Connected reports whether the edge (source, dest) exists.
func (g *Graph) Connected(source, dest int) bool {
	return g.connected(source, dest)
}

func (g *Graph) connected(source, dest int) bool {
	for _, c := range g.conns {
		if c.Source == source && c.Dest == dest {
			return true
		}
	}

	return false
}

// disconnectAll removes every connection touching id.
func (g *Graph) disconnectAll(id int) {
	kept := g.conns[:0]
	for _, c := range g.conns {
		if c.Source != id && c.Dest != id {
			kept = append(kept, c)
		}
	}
	g.conns = kept
}

// Connections returns a copy of the ordered connection list.
func (g *Graph) Connections() []Connection {
	out := make([]Connection, len(g.conns))
	copy(out, g.conns)

	return out
}

// NumConnections returns the connection count.
func (g *Graph) NumConnections() int { return len(g.conns) }

// Clear removes every connection, leaving the active band set untouched.
func (g *Graph) Clear() {
	g.conns = g.conns[:0]
	g.publish()
}

// ProcessingOrder returns the current topological order: every node
// referenced by at least one connection, each edge's source strictly
// before its destination. Nodes on an unresolved cycle are excluded.
func (g *Graph) ProcessingOrder() []int {
	return g.snapshot.Load().Order
}

// State captures the serialization surface of the graph.
func (g *Graph) State() State {
	return State{
		Connections: g.Connections(),
		ActiveBands: g.ActiveBands(),
	}
}

// Restore replaces the graph's topology from a previously captured State.
// Connections with invalid endpoints are dropped silently, mirroring
// Connect's local rejection.
func (g *Graph) Restore(s State) error {
	for _, id := range s.ActiveBands {
		if id < 1 || id > g.maxBands {
			return fmt.Errorf("routing state band id out of range [1, %d]: %d", g.maxBands, id)
		}
	}

	for id := 1; id <= g.maxBands; id++ {
		g.active[id] = false
	}
	for _, id := range s.ActiveBands {
		g.active[id] = true
	}

	g.conns = g.conns[:0]
	for _, c := range s.Connections {
		if c.Source == c.Dest || c.Dest == InputNodeID || c.Source == g.outputID {
			continue
		}
		if !g.validNode(c.Source) || !g.validNode(c.Dest) {
			continue
		}
		if !g.connected(c.Source, c.Dest) {
			g.conns = append(g.conns, c)
		}
	}

	g.publish()

	return nil
}
