package routing

// Snapshot is an immutable view of the committed topology: the connection
// list, the Kahn processing order and per-node predecessor lists. The
// audio thread loads one snapshot per block and never sees a partially
// applied mutation.
type Snapshot struct {
	Connections []Connection
	ActiveBands []int
	OutputID    int

	// Order is the topological processing order over nodes referenced by
	// at least one connection; unresolved-cycle nodes are excluded.
	Order []int

	// Predecessors holds, per node id, the source nodes feeding it.
	Predecessors [][]int
}

// Load returns the most recently published snapshot. Wait-free; safe to
// call from the audio thread.
func (g *Graph) Load() *Snapshot {
	return g.snapshot.Load()
}

// publish recomputes the processing order and swaps in a new snapshot.
// Called after every committed mutation, never on the audio thread.
func (g *Graph) publish() {
	snap := &Snapshot{
		Connections:  g.Connections(),
		ActiveBands:  g.ActiveBands(),
		OutputID:     g.outputID,
		Predecessors: make([][]int, g.outputID+1),
	}
	snap.Order = kahnOrder(g.conns, g.outputID)

	for _, c := range g.conns {
		snap.Predecessors[c.Dest] = append(snap.Predecessors[c.Dest], c.Source)
	}

	g.snapshot.Store(snap)
}

// kahnOrder computes a topological order over the nodes referenced by at
// least one connection, using Kahn's algorithm. Tie-breaking among
// zero-in-degree nodes follows discovery order in the connection list.
// Nodes left with nonzero in-degree belong to an unresolved cycle and are
// dropped from the order.
func kahnOrder(conns []Connection, maxNodeID int) []int {
	if len(conns) == 0 {
		return nil
	}

	referenced := make([]bool, maxNodeID+1)
	indegree := make([]int, maxNodeID+1)
	adjacency := make([][]int, maxNodeID+1)

	// Discovery order of node ids, for deterministic queue seeding.
	discovered := make([]int, 0, maxNodeID+1)
	discover := func(id int) {
		if !referenced[id] {
			referenced[id] = true
			discovered = append(discovered, id)
		}
	}

	for _, c := range conns {
		discover(c.Source)
		discover(c.Dest)
		adjacency[c.Source] = append(adjacency[c.Source], c.Dest)
		indegree[c.Dest]++
	}

	queue := make([]int, 0, len(discovered))
	for _, id := range discovered {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]int, 0, len(discovered))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, next := range adjacency[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	return order
}

// HasCycles reports whether the committed connection set contains a
// directed cycle, using a recursive DFS with an on-stack set.
func (g *Graph) HasCycles() bool {
	return hasCycle(g.conns, g.outputID)
}

// WouldCreateCycle reports whether adding the edge (source, dest) to the
// current connection set would create a directed cycle. It is advisory:
// Connect never consults it.
func (g *Graph) WouldCreateCycle(source, dest int) bool {
	if source < 0 || source > g.outputID || dest < 0 || dest > g.outputID {
		return false
	}
	if source == dest {
		return true
	}

	probe := make([]Connection, 0, len(g.conns)+1)
	probe = append(probe, g.conns...)
	probe = append(probe, Connection{Source: source, Dest: dest})

	return hasCycle(probe, g.outputID)
}

func hasCycle(conns []Connection, maxNodeID int) bool {
	adjacency := make([][]int, maxNodeID+1)
	for _, c := range conns {
		adjacency[c.Source] = append(adjacency[c.Source], c.Dest)
	}

	visited := make([]bool, maxNodeID+1)
	onStack := make([]bool, maxNodeID+1)

	var visit func(id int) bool
	visit = func(id int) bool {
		visited[id] = true
		onStack[id] = true

		for _, next := range adjacency[id] {
			if onStack[next] {
				return true
			}
			if !visited[next] && visit(next) {
				return true
			}
		}

		onStack[id] = false

		return false
	}

	for id := 0; id <= maxNodeID; id++ {
		if !visited[id] && visit(id) {
			return true
		}
	}

	return false
}
