// Package oracle talks to the position-evaluation engine over the UCI
// protocol. The engine is a single shared, stateful worker: exactly one
// evaluation may be in flight per gateway, and callers must cancel a
// stale request before issuing a new one.
package oracle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MateValue is the score magnitude used to fold forced mates into the
// centipawn scale, so numeric comparisons still order mates above
// everything else. Mate in n maps to MateValue-n (sign preserved).
const MateValue = 32000

// DefaultInitTimeout bounds the uci/isready handshake.
const DefaultInitTimeout = 10 * time.Second

var (
	// ErrBusy is returned when an evaluation is requested while a prior
	// one has not settled. Callers must Cancel the stale request first.
	ErrBusy = errors.New("oracle: evaluation already in flight")

	// ErrCancelled is returned by the in-flight Evaluate after Cancel.
	ErrCancelled = errors.New("oracle: evaluation cancelled")

	// ErrInitTimeout is returned when the engine fails to complete the
	// UCI handshake in time. Recoverable: callers degrade to
	// non-evaluation feedback.
	ErrInitTimeout = errors.New("oracle: engine failed to initialize in time")

	// ErrClosed is returned after the gateway has been shut down.
	ErrClosed = errors.New("oracle: gateway closed")
)

// Sample is one normalized evaluation result. Score and MateDistance
// are relative to the side to move in the evaluated position; callers
// needing the prior mover's perspective use grade.MoverScore rather
// than negating ad hoc. A fresh Sample replaces a stale one, never
// patches it.
type Sample struct {
	Score        int    // centipawns, side-to-move perspective
	MateDistance int    // 0 = no forced mate; sign says who mates
	BestMove     string // coordinate form, may be empty
	Depth        int
}

// Gateway serializes request/response cycles against one UCI engine.
type Gateway struct {
	w     io.Writer
	lines chan string

	mu        sync.Mutex
	inflight  bool
	cancelled bool
	closed    bool

	closeFn func() error
}

// New builds a gateway over an already-running engine's streams. The
// reader goroutine owns r until it hits EOF.
func New(r io.Reader, w io.Writer) *Gateway {
	g := &Gateway{
		w:     w,
		lines: make(chan string, 64),
	}
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			g.lines <- scanner.Text()
		}
		close(g.lines)
	}()
	return g
}

// Init performs the UCI handshake, bounded by timeout.
func (g *Gateway) Init(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	deadline := time.After(timeout)

	if err := g.send("uci"); err != nil {
		return err
	}
	if err := g.waitFor("uciok", deadline); err != nil {
		return err
	}
	if err := g.send("isready"); err != nil {
		return err
	}
	return g.waitFor("readyok", deadline)
}

func (g *Gateway) waitFor(token string, deadline <-chan time.Time) error {
	for {
		select {
		case line, ok := <-g.lines:
			if !ok {
				return fmt.Errorf("oracle: engine stream closed during handshake")
			}
			if strings.HasPrefix(line, token) {
				return nil
			}
		case <-deadline:
			return ErrInitTimeout
		}
	}
}

func (g *Gateway) send(cmd string) error {
	_, err := io.WriteString(g.w, cmd+"\n")
	if err != nil {
		return fmt.Errorf("oracle: send %q: %w", cmd, err)
	}
	return nil
}

// Evaluate runs one search on the position encoded by fen and blocks
// until the engine's terminal "bestmove" line. Streaming info lines
// update an internal accumulator; the returned Sample carries the best
// accumulated score, mate distance and move. A second Evaluate before
// the first settles is rejected with ErrBusy, so a reply can never be
// attributed to a later request.
func (g *Gateway) Evaluate(ctx context.Context, fen string, depth int) (*Sample, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	if g.inflight {
		g.mu.Unlock()
		return nil, ErrBusy
	}
	g.inflight = true
	g.cancelled = false
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inflight = false
		g.mu.Unlock()
	}()

	if err := g.send(fmt.Sprintf("position fen %s", fen)); err != nil {
		return nil, err
	}
	if err := g.send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return nil, err
	}

	acc := &Sample{}
	stopped := false
	for {
		select {
		case line, ok := <-g.lines:
			if !ok {
				return nil, fmt.Errorf("oracle: engine stream closed mid-search")
			}
			if strings.HasPrefix(line, "info ") {
				accumulate(acc, line)
				continue
			}
			if strings.HasPrefix(line, "bestmove") {
				fields := strings.Fields(line)
				if len(fields) > 1 && fields[1] != "(none)" {
					acc.BestMove = fields[1]
				}
				if g.isCancelled() {
					return nil, ErrCancelled
				}
				return acc, nil
			}
		case <-ctx.Done():
			// Ask the engine to stop, then keep draining until its
			// bestmove so the stream is clean for the next request.
			if !stopped {
				stopped = true
				g.send("stop")
			}
			line, ok := <-g.lines
			if !ok {
				return nil, ctx.Err()
			}
			if strings.HasPrefix(line, "bestmove") {
				return nil, ctx.Err()
			}
		}
	}
}

// Cancel aborts the in-flight evaluation, if any. The blocked Evaluate
// returns ErrCancelled once the engine acknowledges with bestmove.
// The stop is sent while still holding the lock, so it can only target
// the request observed as in flight; a search that settles concurrently
// makes Cancel a no-op for the next request rather than truncating it.
func (g *Gateway) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.inflight || g.closed {
		return
	}
	g.cancelled = true
	g.send("stop")
}

func (g *Gateway) isCancelled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled
}

// Close shuts the engine down.
func (g *Gateway) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	g.send("quit")
	if g.closeFn != nil {
		return g.closeFn()
	}
	return nil
}

// accumulate folds one streaming info line into the sample. Only lines
// carrying a score are interesting; the latest (deepest) one wins.
func accumulate(s *Sample, line string) {
	fields := strings.Fields(line)
	var depth, cp, mate int
	var pvMove string
	hasScore := false
	hasMate := false

	for i, f := range fields {
		switch f {
		case "depth":
			if i+1 < len(fields) {
				depth, _ = strconv.Atoi(fields[i+1])
			}
		case "score":
			if i+2 >= len(fields) {
				continue
			}
			switch fields[i+1] {
			case "cp":
				cp, _ = strconv.Atoi(fields[i+2])
				hasScore = true
			case "mate":
				mate, _ = strconv.Atoi(fields[i+2])
				hasMate = true
			}
		case "pv":
			if i+1 < len(fields) {
				pvMove = fields[i+1]
			}
		}
	}

	if !hasScore && !hasMate {
		return
	}
	// Score, depth and best move update together, so a shallower line
	// can never leave the sample half-replaced.
	if depth >= s.Depth {
		s.Depth = depth
		if pvMove != "" {
			s.BestMove = pvMove
		}
		if hasMate {
			s.MateDistance = mate
			if mate >= 0 {
				s.Score = MateValue - mate
			} else {
				s.Score = -MateValue - mate
			}
		} else {
			s.MateDistance = 0
			s.Score = cp
		}
	}
}
