package routing

// ApplyParallel rewires the graph so every active band runs independently:
// Input feeds each band and each band feeds Output. With 8 active bands
// this yields 16 connections.
func (g *Graph) ApplyParallel() {
	g.conns = g.conns[:0]
	for _, id := range g.ActiveBands() {
		g.conns = append(g.conns,
			Connection{Source: InputNodeID, Dest: id},
			Connection{Source: id, Dest: g.outputID},
		)
	}

	g.publish()
}

// ApplyPingPong rewires the graph into the factory stereo-bounce layout:
// Input -> band 1 -> band 2 -> Output (falling back to the lowest two
// active bands). The bounce itself comes from the bands' PingPong
// parameter, which cross-wires left/right feedback inside each band;
// keeping the graph acyclic keeps both bands in the processing order.
// Graph-level feedback cycles stay legal to patch by hand, but nodes on
// an unresolved cycle are silent until the cycle is broken.
func (g *Graph) ApplyPingPong() {
	active := g.ActiveBands()
	if len(active) == 0 {
		g.Clear()
		return
	}
	if len(active) == 1 {
		g.conns = g.conns[:0]
		g.conns = append(g.conns,
			Connection{Source: InputNodeID, Dest: active[0]},
			Connection{Source: active[0], Dest: g.outputID},
		)
		g.publish()

		return
	}

	first, second := active[0], active[1]
	g.conns = g.conns[:0]
	g.conns = append(g.conns,
		Connection{Source: InputNodeID, Dest: first},
		Connection{Source: first, Dest: second},
		Connection{Source: second, Dest: g.outputID},
	)

	g.publish()
}

// ApplySeries rewires the graph into a single chain Input -> band -> ... ->
// band -> Output over the active bands in ascending id order. With 8
// active bands this yields 9 connections.
func (g *Graph) ApplySeries() {
	g.conns = g.conns[:0]

	prev := InputNodeID
	for _, id := range g.ActiveBands() {
		g.conns = append(g.conns, Connection{Source: prev, Dest: id})
		prev = id
	}
	g.conns = append(g.conns, Connection{Source: prev, Dest: g.outputID})

	g.publish()
}
