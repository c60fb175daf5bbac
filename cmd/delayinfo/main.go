// Command delayinfo inspects the delay engine's factory routings.
//
// Usage:
//
//	delayinfo [flags] [preset-name ...]
//
// Without arguments it prints info for all factory presets.
//
// Examples:
//
//	delayinfo parallel
//	delayinfo -bands 4 series
//	delayinfo -impulse -time 125 parallel
//	delayinfo -list
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-delaygraph/dsp/analysis"
	"github.com/cwbudde/algo-delaygraph/dsp/band"
	"github.com/cwbudde/algo-delaygraph/dsp/matrix"
	"github.com/cwbudde/algo-delaygraph/dsp/routing"
)

type presetEntry struct {
	name  string
	apply func(*routing.Graph)
}

var registry = []presetEntry{
	{"parallel", (*routing.Graph).ApplyParallel},
	{"series", (*routing.Graph).ApplySeries},
	{"pingpong", (*routing.Graph).ApplyPingPong},
}

func main() {
	var (
		bands      = flag.Int("bands", routing.DefaultBands, "active band count (1..12)")
		sampleRate = flag.Float64("rate", 48000, "sample rate in Hz")
		timeMs     = flag.Float64("time", 250, "band delay time in ms")
		impulse    = flag.Bool("impulse", false, "run an impulse through the engine and print band peaks")
		list       = flag.Bool("list", false, "list preset names and exit")
	)
	flag.Parse()

	if *list {
		names := make([]string, 0, len(registry))
		for _, e := range registry {
			names = append(names, e.name)
		}
		sort.Strings(names)
		fmt.Println(strings.Join(names, "\n"))

		return
	}

	selected := registry
	if args := flag.Args(); len(args) > 0 {
		selected = selected[:0]
		for _, name := range args {
			e, ok := lookup(name)
			if !ok {
				fmt.Fprintf(os.Stderr, "unknown preset %q (try -list)\n", name)
				os.Exit(1)
			}
			selected = append(selected, e)
		}
	}

	for _, e := range selected {
		if err := describe(e, *bands, *sampleRate, *timeMs, *impulse); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func lookup(name string) (presetEntry, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range registry {
		if e.name == name {
			return e, true
		}
	}

	return presetEntry{}, false
}

func describe(e presetEntry, bands int, sampleRate, timeMs float64, impulse bool) error {
	g, err := routing.New(routing.WithBandCapacity(bands))
	if err != nil {
		return err
	}
	e.apply(g)

	fmt.Printf("%s (%d bands, output node %d)\n", e.name, bands, g.OutputNodeID())

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  connections\t%d\n", g.NumConnections())
	fmt.Fprintf(w, "  order\t%v\n", g.ProcessingOrder())
	for _, c := range g.Connections() {
		fmt.Fprintf(w, "  edge\t%d -> %d\n", c.Source, c.Dest)
	}
	w.Flush()

	if impulse {
		if err := runImpulse(g, bands, sampleRate, timeMs); err != nil {
			return err
		}
	}

	fmt.Println()

	return nil
}

// runImpulse drives a unit impulse through the engine and prints per-band
// peaks plus the analyzer's strongest spectral bin.
func runImpulse(g *routing.Graph, bands int, sampleRate, timeMs float64) error {
	const blockSize = 4096

	m, err := matrix.New(matrix.WithBandCapacity(bands))
	if err != nil {
		return err
	}
	if err := m.Prepare(sampleRate, blockSize); err != nil {
		return err
	}

	p := band.DefaultParams()
	p.TimeMs = timeMs
	for id := 1; id <= bands; id++ {
		if err := m.SetBandParams(id, p); err != nil {
			return err
		}
	}

	an, err := analysis.NewAnalyzer(sampleRate, analysis.WithFFTSize(blockSize))
	if err != nil {
		return err
	}

	l := make([]float64, blockSize)
	r := make([]float64, blockSize)
	l[0], r[0] = 1, 1

	m.ProcessWithRouting(l, r, 1.0, g, 0.0, 0)
	an.Push(l, r)

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for id := 1; id <= bands; id++ {
		fmt.Fprintf(w, "  band %d peak\t%.4f\n", id, m.BandPeak(id))
	}
	if mags := an.Compute(); mags != nil {
		best := 0
		for k, v := range mags {
			if v > mags[best] {
				best = k
			}
		}
		fmt.Fprintf(w, "  peak bin\t%.1f Hz (%.4f)\n", an.BinFrequency(best), mags[best])
	}
	if m.Limiter().Muted() {
		fmt.Fprintf(w, "  limiter\tmuted (%s)\n", m.Limiter().Reason())
	}

	return w.Flush()
}
