// Package contact builds the directed contact graph over the population: a
// clique inside every social region plus sparse, distance-decayed random
// edges between regions.
package contact

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/lemonad/outbreak-simulation/internal/epidemic"
	"github.com/lemonad/outbreak-simulation/internal/partition"
)

// Inter-region edge sampling parameters.
const (
	crossRegionFraction = 0.2       // Share of the target region's size scaled by the draw
	crossRegionMeanBase = 2.0 / 3.0 // Exponential mean at zero distance
)

// ErrUnknownIndividual is returned for an ID outside the population.
var ErrUnknownIndividual = errors.New("unknown individual")

// Options controls per-individual attributes set during construction.
type Options struct {
	TransmissionRate      float64
	TransmissionVariation float64
	NoiseSeed             int64
}

// DefaultOptions returns a uniform transmission probability of 0.01.
func DefaultOptions() Options {
	return Options{TransmissionRate: epidemic.DefaultTransmissionRate}
}

// Graph holds the population and its adjacency. Forward adjacency is what the
// stepper reads; the reverse index mirrors it for display of incoming contacts.
// Edge lists are multisets: repeated cross-region samples stay as duplicates.
type Graph struct {
	Individuals []*epidemic.Individual
	Regions     []*partition.Node

	members [][]epidemic.ID // region index → individuals
	forward [][]epidemic.ID
	reverse [][]epidemic.ID
}

// Build materializes one individual per point of every leaf region and wires
// the intra-region cliques and inter-region edges.
func Build(tree *partition.Tree, rng *rand.Rand, opts Options) (*Graph, error) {
	if tree == nil || tree.Root == nil {
		return nil, errors.New("contact: nil partition tree")
	}
	if rng == nil {
		return nil, errors.New("contact: nil random source")
	}
	if opts.TransmissionRate < 0 || opts.TransmissionRate > 1 {
		return nil, fmt.Errorf("contact: transmission rate %v outside [0, 1]", opts.TransmissionRate)
	}

	start := time.Now()
	leaves := tree.Leaves()
	field := NewTransmissionField(opts.TransmissionRate, opts.TransmissionVariation, opts.NoiseSeed)

	g := &Graph{
		Individuals: make([]*epidemic.Individual, 0, tree.Root.Rect.Area()),
		Regions:     leaves,
		members:     make([][]epidemic.ID, len(leaves)),
	}

	for i, leaf := range leaves {
		for _, p := range leaf.Points() {
			id := epidemic.ID(len(g.Individuals))
			g.Individuals = append(g.Individuals, &epidemic.Individual{
				ID:               id,
				Point:            p,
				Region:           leaf,
				RegionIndex:      i,
				State:            epidemic.Susceptible,
				TransmissionRate: field.At(p),
			})
			g.members[i] = append(g.members[i], id)
		}
	}
	g.forward = make([][]epidemic.ID, len(g.Individuals))
	g.reverse = make([][]epidemic.ID, len(g.Individuals))

	intra := g.linkRegions()
	slog.Debug("intra-region contacts created", "regions", len(leaves), "edges", humanize.Comma(int64(intra)))

	inter := g.linkAcrossRegions(tree, rng)

	slog.Info("contact graph built",
		"individuals", humanize.Comma(int64(len(g.Individuals))),
		"regions", len(leaves),
		"intra_edges", humanize.Comma(int64(intra)),
		"inter_edges", humanize.Comma(int64(inter)),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return g, nil
}

// linkRegions adds p_i → p_j for every i < j within each region.
func (g *Graph) linkRegions() int {
	edges := 0
	for _, ids := range g.members {
		for i := 0; i < len(ids)-1; i++ {
			for j := i + 1; j < len(ids); j++ {
				g.addEdge(ids[i], ids[j])
				edges++
			}
		}
	}
	return edges
}

// linkAcrossRegions draws, for every unordered region pair (A, B), an edge
// count from an exponential whose mean shrinks with distance, then pairs
// that many samples from A and from B (with replacement).
func (g *Graph) linkAcrossRegions(tree *partition.Tree, rng *rand.Rand) int {
	n := len(g.Regions)
	edges := 0
	lastDecile := 0

	for i := 0; i < n-1; i++ {
		if n > 2 {
			if decile := 10 * i / (n - 2); decile > lastDecile {
				lastDecile = decile
				slog.Debug("inter-region contacts", "progress_pct", decile*10, "edges", humanize.Comma(int64(edges)))
			}
		}

		from := g.members[i]
		for j := i + 1; j < n; j++ {
			to := g.members[j]
			d := tree.RelativeDistance(g.Regions[i], g.Regions[j])
			mean := crossRegionMeanBase * (1 - d)
			k := int(float64(len(to)) * crossRegionFraction * rng.ExpFloat64() * mean)
			if k <= 0 {
				continue
			}

			sources := make([]epidemic.ID, k)
			for s := range sources {
				sources[s] = from[rng.IntN(len(from))]
			}
			for s := 0; s < k; s++ {
				g.addEdge(sources[s], to[rng.IntN(len(to))])
			}
			edges += k
		}
	}
	return edges
}

func (g *Graph) addEdge(from, to epidemic.ID) {
	g.forward[from] = append(g.forward[from], to)
	g.reverse[to] = append(g.reverse[to], from)
}

// Len returns the population size.
func (g *Graph) Len() int {
	return len(g.Individuals)
}

// Individual returns the individual with the given ID.
func (g *Graph) Individual(id epidemic.ID) (*epidemic.Individual, error) {
	if int(id) >= len(g.Individuals) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndividual, id)
	}
	return g.Individuals[id], nil
}

// Contacts returns the forward contact list of id. The slice is shared with
// the graph and must not be modified.
func (g *Graph) Contacts(id epidemic.ID) ([]epidemic.ID, error) {
	if int(id) >= len(g.forward) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndividual, id)
	}
	return g.forward[id], nil
}

// Incoming returns the individuals that list id as a forward contact.
func (g *Graph) Incoming(id epidemic.ID) ([]epidemic.ID, error) {
	if int(id) >= len(g.reverse) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndividual, id)
	}
	return g.reverse[id], nil
}

// Members returns the individuals living in region index i.
func (g *Graph) Members(i int) []epidemic.ID {
	if i < 0 || i >= len(g.members) {
		return nil
	}
	return g.members[i]
}

// EdgeCount returns the number of forward edges, duplicates included.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, c := range g.forward {
		total += len(c)
	}
	return total
}

// Thin replaces every forward contact list with a uniform random subset of
// size floor(len × rate) drawn without replacement, then rebuilds the
// reverse index. It returns the number of edges removed.
func (g *Graph) Thin(rate float64, rng *rand.Rand) int {
	removed := 0
	for id, contacts := range g.forward {
		keep := int(float64(len(contacts)) * rate)
		kept := make([]epidemic.ID, len(contacts))
		copy(kept, contacts)
		// Partial Fisher-Yates: the first keep entries are the sample.
		for i := 0; i < keep; i++ {
			j := i + rng.IntN(len(kept)-i)
			kept[i], kept[j] = kept[j], kept[i]
		}
		g.forward[id] = kept[:keep:keep]
		removed += len(contacts) - keep
	}

	for id := range g.reverse {
		g.reverse[id] = g.reverse[id][:0]
	}
	for from, contacts := range g.forward {
		for _, to := range contacts {
			g.reverse[to] = append(g.reverse[to], epidemic.ID(from))
		}
	}
	return removed
}
