package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeEngine scripts a UCI engine over pipes. It answers the handshake
// immediately and lets tests choose how each search request resolves.
type fakeEngine struct {
	out *io.PipeWriter // engine -> gateway

	mu      sync.Mutex
	lastFEN string
	stops   int

	goReceived chan string // fen of each "go" request, in order
	holdSearch bool        // if set, only "stop" produces bestmove
}

func newFakeEngine() (*fakeEngine, *Gateway) {
	engineOut, gwIn := io.Pipe()
	fe := &fakeEngine{
		out:        gwIn,
		goReceived: make(chan string, 4),
	}
	gw := New(engineOut, fe)
	return fe, gw
}

// Write receives gateway commands.
func (fe *fakeEngine) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		fe.handle(line)
	}
	return len(p), nil
}

func (fe *fakeEngine) handle(cmd string) {
	switch {
	case cmd == "uci":
		fmt.Fprintf(fe.out, "id name fake\nuciok\n")
	case cmd == "isready":
		fmt.Fprintf(fe.out, "readyok\n")
	case strings.HasPrefix(cmd, "position fen "):
		fe.mu.Lock()
		fe.lastFEN = strings.TrimPrefix(cmd, "position fen ")
		fe.mu.Unlock()
	case strings.HasPrefix(cmd, "go"):
		fe.mu.Lock()
		fen := fe.lastFEN
		hold := fe.holdSearch
		fe.mu.Unlock()
		fe.goReceived <- fen
		if !hold {
			go fe.finishSearch(fen)
		}
	case cmd == "stop":
		fe.mu.Lock()
		fe.stops++
		fen := fe.lastFEN
		fe.mu.Unlock()
		go fe.finishSearch(fen)
	case cmd == "quit":
		fe.out.Close()
	}
}

// finishSearch emits a scripted result tied to the request's FEN so
// tests can detect cross-attribution: the best move is derived from
// the first field of the FEN.
func (fe *fakeEngine) finishSearch(fen string) {
	tag := strings.Fields(fen)[0]
	fmt.Fprintf(fe.out, "info depth 8 score cp 31 pv %s\n", tag)
	fmt.Fprintf(fe.out, "info depth 12 score cp 55 nodes 1000 pv %s\n", tag)
	fmt.Fprintf(fe.out, "bestmove %s\n", tag)
}

func TestGatewayEvaluate(t *testing.T) {
	_, gw := newFakeEngine()
	if err := gw.Init(time.Second); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	s, err := gw.Evaluate(context.Background(), "e2e4 w - - 0 1", 12)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if s.Score != 55 {
		t.Errorf("Expected deepest score 55, got %d", s.Score)
	}
	if s.Depth != 12 {
		t.Errorf("Expected depth 12, got %d", s.Depth)
	}
	if s.BestMove != "e2e4" {
		t.Errorf("Expected best move e2e4, got %q", s.BestMove)
	}
}

func TestGatewayBusyRejection(t *testing.T) {
	fe, gw := newFakeEngine()
	if err := gw.Init(time.Second); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	fe.mu.Lock()
	fe.holdSearch = true
	fe.mu.Unlock()

	type result struct {
		s   *Sample
		err error
	}
	firstDone := make(chan result, 1)
	go func() {
		s, err := gw.Evaluate(context.Background(), "first_fen w - - 0 1", 10)
		firstDone <- result{s, err}
	}()

	// Wait until the first request reached the engine.
	<-fe.goReceived

	// A second evaluate without cancelling the first must be rejected,
	// not silently fulfilled by the first request's result.
	if _, err := gw.Evaluate(context.Background(), "second_fen w - - 0 1", 10); !errors.Is(err, ErrBusy) {
		t.Fatalf("Expected ErrBusy for overlapping evaluate, got %v", err)
	}

	// Let the first request finish and check it carries its own data.
	fe.handle("stop")
	r := <-firstDone
	if r.err != nil {
		t.Fatalf("First evaluate failed: %v", r.err)
	}
	if r.s.BestMove != "first_fen" {
		t.Errorf("First promise resolved with foreign data: %q", r.s.BestMove)
	}
}

func TestGatewayCancel(t *testing.T) {
	fe, gw := newFakeEngine()
	if err := gw.Init(time.Second); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	fe.mu.Lock()
	fe.holdSearch = true
	fe.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		_, err := gw.Evaluate(context.Background(), "held w - - 0 1", 10)
		errCh <- err
	}()
	<-fe.goReceived

	gw.Cancel()
	if err := <-errCh; !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}

	// The gateway must accept a fresh request after cancellation.
	fe.mu.Lock()
	fe.holdSearch = false
	fe.mu.Unlock()
	s, err := gw.Evaluate(context.Background(), "fresh w - - 0 1", 10)
	if err != nil {
		t.Fatalf("Evaluate after cancel failed: %v", err)
	}
	if s.BestMove != "fresh" {
		t.Errorf("Expected fresh request's data, got %q", s.BestMove)
	}
}

func TestGatewayInitTimeout(t *testing.T) {
	// An engine that never answers the handshake.
	r, _ := io.Pipe()
	gw := New(r, io.Discard)
	if err := gw.Init(20 * time.Millisecond); !errors.Is(err, ErrInitTimeout) {
		t.Fatalf("Expected ErrInitTimeout, got %v", err)
	}
}

func TestAccumulateMate(t *testing.T) {
	s := &Sample{}
	accumulate(s, "info depth 10 score cp 120 pv e2e4")
	accumulate(s, "info depth 14 score mate 3 pv d8h4")
	if s.MateDistance != 3 {
		t.Errorf("Expected mate distance 3, got %d", s.MateDistance)
	}
	if s.Score != MateValue-3 {
		t.Errorf("Expected folded mate score %d, got %d", MateValue-3, s.Score)
	}

	neg := &Sample{}
	accumulate(neg, "info depth 9 score mate -2 pv a1a2")
	if neg.Score != -MateValue+2 {
		t.Errorf("Expected folded score %d, got %d", -MateValue+2, neg.Score)
	}
}

func TestAccumulateShallowerLineIgnored(t *testing.T) {
	s := &Sample{}
	accumulate(s, "info depth 12 score cp 80 pv e2e4")
	accumulate(s, "info depth 6 score cp -500 pv h2h4")
	if s.Score != 80 || s.Depth != 12 {
		t.Errorf("Shallower line overwrote accumulator: %+v", s)
	}
	if s.BestMove != "e2e4" {
		t.Errorf("Shallower line replaced the deeper line's move: %q", s.BestMove)
	}
}

func TestCancelAfterSettleIsNoop(t *testing.T) {
	fe, gw := newFakeEngine()
	if err := gw.Init(time.Second); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, err := gw.Evaluate(context.Background(), "settled w - - 0 1", 10); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	// A cancel arriving after the search settled must not emit a stop
	// that would truncate the next request's search.
	gw.Cancel()

	s, err := gw.Evaluate(context.Background(), "fresh w - - 0 1", 10)
	if err != nil {
		t.Fatalf("Evaluate after stale cancel failed: %v", err)
	}
	if s.Depth != 12 || s.BestMove != "fresh" {
		t.Errorf("Fresh search was truncated: %+v", s)
	}

	fe.mu.Lock()
	stops := fe.stops
	fe.mu.Unlock()
	if stops != 0 {
		t.Errorf("Expected no stop for a stale cancel, engine saw %d", stops)
	}
}
