package algorithm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/fyerfyer/gatecheck/pkg/circuit"
	"github.com/fyerfyer/gatecheck/pkg/utils"
)

// Unranked marks an instance that no primary input reaches
const Unranked = math.MinInt32

// sourceRank is the rank of SourceID, so instances fed by it start at 0
const sourceRank = -1

// RankEntry is one line of the rank report
type RankEntry struct {
	Rank int
	Name string
}

// String returns the report line for the entry
func (e RankEntry) String() string {
	return fmt.Sprintf("%d %s", e.Rank, e.Name)
}

// CycleError reports instances that lie on or behind a combinational loop
type CycleError struct {
	Instances []string
}

func (e *CycleError) Error() string {
	const shown = 10
	names := e.Instances
	suffix := ""
	if len(names) > shown {
		suffix = fmt.Sprintf(" (and %d more)", len(names)-shown)
		names = names[:shown]
	}
	return fmt.Sprintf("combinational cycle through %d instances: %s%s",
		len(e.Instances), strings.Join(names, ", "), suffix)
}

// ComputeRanks labels every instance with the length of the longest path
// from SourceID. Instances not reachable from SourceID are omitted. The
// result is sorted by rank, then by name.
func ComputeRanks(g *DependencyGraph, logger *utils.Logger) ([]RankEntry, error) {
	if logger == nil {
		logger = utils.NewDiscardLogger()
	}

	rank := make(map[string]int, len(g.InDegree))
	inDegree := make(map[string]int, len(g.InDegree))
	queue := make([]string, 0)
	for _, name := range g.Vertices() {
		rank[name] = Unranked
		inDegree[name] = g.InDegree[name]
		if inDegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	rank[SourceID] = sourceRank

	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		r := rank[current]
		for _, next := range g.Adj[current] {
			if r != Unranked && r+1 > rank[next] {
				rank[next] = r + 1
				logger.Rank("%s -> %d (from %s)", next, r+1, current)
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited < len(inDegree) {
		stuck := make([]string, 0, len(inDegree)-visited)
		for name, d := range inDegree {
			if d > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, &CycleError{Instances: stuck}
	}

	entries := make([]RankEntry, 0, len(rank))
	for name, r := range rank {
		if name == SourceID || r == Unranked {
			continue
		}
		entries = append(entries, RankEntry{Rank: r, Name: name})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return entries[i].Name < entries[j].Name
	})

	logger.Info("Ranked %d of %d instances", len(entries), len(rank)-1)
	return entries, nil
}

// RankCell builds the dependency graph of a flat cell and ranks it
func RankCell(flat *circuit.Cell, globals circuit.Globals, opts GraphOptions) ([]RankEntry, error) {
	g, err := BuildDependencyGraph(flat, globals, opts)
	if err != nil {
		return nil, err
	}
	entries, err := ComputeRanks(g, opts.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "rank %s", flat.Name)
	}
	return entries, nil
}

// WriteRankReport writes one "<rank> <instance>" line per entry
func WriteRankReport(w io.Writer, entries []RankEntry) error {
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := fmt.Fprintln(bw, e.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteRankFile writes the rank report to the named file
func WriteRankFile(filename string, entries []RankEntry) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create rank report")
	}
	if err := WriteRankReport(file, entries); err != nil {
		file.Close()
		return errors.Wrapf(err, "failed to write %s", filename)
	}
	return file.Close()
}
