// Package parser builds a graph.Graph from the files graph-insight ingests:
// a headerless "lat,long" locations file and a users file whose line i lists
// the out-neighbours of node base+i. A plain "from to [weight]" edge list is
// also accepted.
package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/graph-insight/pkg/graph"
)

const (
	// DefaultMaxNodes bounds the id range when Options.MaxNodes is unset.
	DefaultMaxNodes = 10_000_000

	// maxLineBytes is the longest single line the scanners accept.
	maxLineBytes = 64 << 20

	// cancellation is polled every checkEvery lines
	checkEvery = 1 << 16
)

// Options controls how input is mapped onto node ids.
type Options struct {
	// Base is the id of the first row.
	Base int
	// MaxNodes bounds the number of rows read and the valid id range.
	MaxNodes int
	// MaxNeighbors caps the destinations kept per adjacency line; 0 keeps all.
	MaxNeighbors int
	// Header skips the first line of the locations file.
	Header bool

	Logger zerolog.Logger
}

// DefaultOptions returns zero-based ids, the default node bound and a
// disabled logger.
func DefaultOptions() Options {
	return Options{
		MaxNodes: DefaultMaxNodes,
		Logger:   zerolog.Nop(),
	}
}

func (o Options) normalized() Options {
	if o.MaxNodes <= 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.MaxNeighbors < 0 {
		o.MaxNeighbors = 0
	}
	return o
}

// LoadReport counts what ingestion saw. Malformed input is counted here
// instead of failing the load.
type LoadReport struct {
	LocationRows       int `json:"location_rows"`
	MalformedLocations int `json:"malformed_locations"`
	AdjacencyRows      int `json:"adjacency_rows"`
	MalformedTokens    int `json:"malformed_tokens"`
	TruncatedRows      int `json:"truncated_rows"`
	MalformedLines     int `json:"malformed_lines"`
	InvalidIDs         int `json:"invalid_ids"`
	EdgesAdded         int `json:"edges_added"`

	Graph    graph.Stats   `json:"graph"`
	Duration time.Duration `json:"duration_ns"`
}

func newScanner(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return s
}

// parseLocation parses "lat,long" with optional surrounding blanks.
func parseLocation(line string) (graph.Location, bool) {
	parts := strings.Split(strings.TrimSpace(line), ",")
	if len(parts) != 2 {
		return graph.Location{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return graph.Location{}, false
	}
	long, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return graph.Location{}, false
	}
	return graph.Location{Lat: lat, Long: long}, true
}

// LoadLocations adds one node per row of r, row i becoming node base+i.
// A malformed row still adds its node, without a location, so that rows of
// the users file stay aligned with ids. Reading stops after MaxNodes rows.
func LoadLocations(ctx context.Context, r io.Reader, g *graph.Graph, opts Options, rep *LoadReport) error {
	opts = opts.normalized()
	scanner := newScanner(r)
	if opts.Header && !scanner.Scan() {
		return scanner.Err()
	}

	row := 0
	for row < opts.MaxNodes && scanner.Scan() {
		if row%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		id := opts.Base + row
		row++

		var err error
		if loc, ok := parseLocation(scanner.Text()); ok {
			err = g.AddNode(id, &loc)
		} else {
			rep.MalformedLocations++
			err = g.AddNode(id, nil)
		}
		if err != nil {
			return fmt.Errorf("locations row %d: %w", row, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading locations: %w", err)
	}
	rep.LocationRows += row
	return nil
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// ParseAdjacency splits one users line into destination ids. Tokens are
// separated by commas and/or blanks; tokens that are not plain unsigned
// integers are skipped and counted in the second result.
func ParseAdjacency(line string) ([]int, int) {
	tokens := strings.FieldsFunc(line, isSeparator)
	ids := make([]int, 0, len(tokens))
	bad := 0
	for _, tok := range tokens {
		v, err := strconv.ParseUint(tok, 10, 63)
		if err != nil {
			bad++
			continue
		}
		ids = append(ids, int(v))
	}
	return ids, bad
}

// LoadAdjacency adds the out-edges listed on each line of r; line i belongs
// to node base+i. Destinations that are not nodes of g are rejected by the
// graph and show up in its RejectedEdges counter.
func LoadAdjacency(ctx context.Context, r io.Reader, g *graph.Graph, opts Options, rep *LoadReport) error {
	opts = opts.normalized()
	scanner := newScanner(r)

	row := 0
	for row < opts.MaxNodes && scanner.Scan() {
		if row%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		u := opts.Base + row
		row++

		ids, bad := ParseAdjacency(scanner.Text())
		rep.MalformedTokens += bad
		if opts.MaxNeighbors > 0 && len(ids) > opts.MaxNeighbors {
			ids = ids[:opts.MaxNeighbors]
			rep.TruncatedRows++
		}
		if len(ids) > 0 {
			rep.EdgesAdded += g.AddEdgesBatch(u, ids)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading users: %w", err)
	}
	rep.AdjacencyRows += row
	return nil
}

// countLines returns the number of lines in path, a final unterminated line
// included.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	buf := make([]byte, 1<<20)
	count, last := 0, byte('\n')
	for {
		n, err := f.Read(buf)
		for _, b := range buf[:n] {
			if b == '\n' {
				count++
			}
		}
		if n > 0 {
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		count++
	}
	return count, nil
}

// LoadFiles builds a graph from a locations file and a users file. The
// locations file is counted first so the graph is sized once.
func LoadFiles(ctx context.Context, locationsPath, usersPath string, opts Options) (*graph.Graph, *LoadReport, error) {
	opts = opts.normalized()
	start := time.Now()
	logger := opts.Logger

	lines, err := countLines(locationsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open locations: %w", err)
	}
	if opts.Header && lines > 0 {
		lines--
	}

	g := graph.New(opts.Base, opts.MaxNodes)
	g.Reserve(lines)
	rep := &LoadReport{}

	logger.Info().Str("file", locationsPath).Int("rows", lines).Msg("Loading locations")
	lf, err := os.Open(locationsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open locations: %w", err)
	}
	err = LoadLocations(ctx, lf, g, opts, rep)
	lf.Close()
	if err != nil {
		return nil, nil, err
	}

	logger.Info().Str("file", usersPath).Int("nodes", g.NumNodes()).Msg("Loading adjacency")
	uf, err := os.Open(usersPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open users: %w", err)
	}
	err = LoadAdjacency(ctx, uf, g, opts, rep)
	uf.Close()
	if err != nil {
		return nil, nil, err
	}

	rep.Graph = g.Stats()
	rep.Duration = time.Since(start)
	logger.Info().
		Int("nodes", g.NumNodes()).
		Int("edges", g.NumEdges()).
		Int64("rejected_edges", rep.Graph.RejectedEdges).
		Int("malformed_locations", rep.MalformedLocations).
		Int("malformed_tokens", rep.MalformedTokens).
		Dur("duration", rep.Duration).
		Msg("Graph loaded")
	return g, rep, nil
}
