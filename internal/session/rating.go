package session

import (
	"context"
	"log"

	"github.com/velimir/blunderlab/internal/chessx"
	"github.com/velimir/blunderlab/internal/grade"
	"github.com/velimir/blunderlab/internal/oracle"
	"github.com/velimir/blunderlab/internal/puzzle"
)

// Phase of the rating-guess variant.
type Phase int

const (
	Presenting Phase = iota
	Guessing
	Revealed
	FreePlay
	Final
)

func (p Phase) String() string {
	switch p {
	case Presenting:
		return "presenting"
	case Guessing:
		return "guessing"
	case Revealed:
		return "revealed"
	case FreePlay:
		return "free-play"
	default:
		return "final"
	}
}

// FreePlayResult is the outcome of the player's free-play move.
type FreePlayResult struct {
	Legal    bool
	Move     chessx.MoveRecord
	Points   int
	BestMove string // engine's preferred move, when known
	Degraded bool   // no evaluation was available
}

// RatingSession runs the rating-guess variant:
// Presenting -> Guessing -> Revealed -> FreePlay -> Final.
type RatingSession struct {
	pz    *puzzle.Puzzle
	eval  Evaluator
	sink  Sink
	clock Clock
	cfg   Config

	phase  Phase
	cursor int

	priorStreak int
	priorBest   int
	verdict     *grade.RatingVerdict

	baseline   *oracle.Sample
	baselineCh chan *oracle.Sample
	closed     chan struct{}

	// OnMove is called for each ply shown during playback.
	OnMove func(index int, rec chessx.MoveRecord)
}

// NewRating creates a session for one reconstructed puzzle. The sink is
// read here, once, for the prior streak values.
func NewRating(pz *puzzle.Puzzle, eval Evaluator, sink Sink, cfg Config, opts ...Option) *RatingSession {
	o := buildOptions(opts)
	s := &RatingSession{
		pz:         pz,
		eval:       eval,
		sink:       sink,
		clock:      o.clock,
		cfg:        cfg,
		phase:      Presenting,
		cursor:     CursorStart,
		baselineCh: make(chan *oracle.Sample, 1),
		closed:     make(chan struct{}),
	}

	if sink != nil {
		if stats, err := sink.LoadScores(); err != nil {
			log.Printf("Warning: failed to load scores: %v", err)
		} else {
			s.priorStreak = stats.CurrentStreak
			s.priorBest = stats.BestStreak
		}
	}
	return s
}

// Phase returns the current phase.
func (s *RatingSession) Phase() Phase { return s.phase }

// Puzzle returns the session's puzzle.
func (s *RatingSession) Puzzle() *puzzle.Puzzle { return s.pz }

// Verdict returns the rating-guess verdict after it has been revealed.
func (s *RatingSession) Verdict() *grade.RatingVerdict { return s.verdict }

// Present plays the timeline forward from one ply before the blunder to
// the end, pausing longer after the blunder than between solution
// moves, then transitions to Guessing. This is the only automatic,
// time-driven transition. The baseline evaluation of the pre-blunder
// position starts here in the background and is never awaited by the
// transition; FreePlay reads it when needed.
func (s *RatingSession) Present(ctx context.Context) error {
	if s.phase != Presenting {
		return ErrPhase
	}

	s.startBaseline(ctx)

	tl := s.pz.Timeline
	from := tl.BlunderIndex - 1
	if from < 0 {
		from = 0
	}

	for i := from; i < tl.Len(); i++ {
		s.cursor = i
		if s.OnMove != nil {
			s.OnMove(i, tl.Moves[i])
		}
		if i == tl.Len()-1 {
			break
		}

		delay := s.cfg.StepDelay
		if i == tl.BlunderIndex {
			delay = s.cfg.BlunderPause
		}
		select {
		case <-s.clock.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return ErrClosed
		}
	}

	s.phase = Guessing
	return nil
}

// startBaseline evaluates the pre-blunder position in the background.
// The single-slot channel means a result arriving after teardown is
// simply never read.
func (s *RatingSession) startBaseline(ctx context.Context) {
	if s.eval == nil {
		s.baselineCh <- nil
		return
	}
	go func() {
		sample, err := s.eval.Evaluate(ctx, s.pz.PreBlunderFEN, s.cfg.Depth)
		if err != nil {
			log.Printf("Warning: baseline evaluation unavailable: %v", err)
			s.baselineCh <- nil
			return
		}
		s.baselineCh <- sample
	}()
}

func (s *RatingSession) awaitBaseline(ctx context.Context) *oracle.Sample {
	if s.baseline != nil {
		return s.baseline
	}
	select {
	case b := <-s.baselineCh:
		s.baseline = b
		return b
	case <-ctx.Done():
		return nil
	case <-s.closed:
		return nil
	}
}

// SubmitRating grades the player's single rating guess and moves to
// Revealed. The accumulator write is atomic: it either lands fully or
// not at all.
func (s *RatingSession) SubmitRating(guess int) (grade.RatingVerdict, error) {
	if s.phase != Guessing {
		return grade.RatingVerdict{}, ErrPhase
	}

	v := grade.RateGuess(guess, s.pz.BlundererRating(), s.priorStreak, s.priorBest)
	if s.sink != nil {
		if err := s.sink.RecordRatingGuess(v); err != nil {
			log.Printf("Warning: failed to record rating guess: %v", err)
		}
	}

	s.verdict = &v
	s.phase = Revealed
	return v, nil
}

// EnterFreePlay resets the board to the pre-blunder position for the
// player's own attempt. Returns the position and the opponent setup
// move for redisplay.
func (s *RatingSession) EnterFreePlay() (string, *chessx.MoveRecord, error) {
	if s.phase != Revealed {
		return "", nil, ErrPhase
	}
	s.phase = FreePlay
	s.cursor = s.pz.Timeline.BlunderIndex - 1
	return s.pz.PreBlunderFEN, s.pz.OpponentSetup, nil
}

// Skip leaves Revealed or FreePlay without a move, ending the puzzle.
func (s *RatingSession) Skip() error {
	if s.phase != Revealed && s.phase != FreePlay {
		return ErrPhase
	}
	s.phase = Final
	return nil
}

// PlayMove applies the player's free-play move. An illegal move is a
// no-op, not an error: the board reverts and the phase is unchanged.
// A legal move is evaluated against the baseline best move and graded;
// the session then ends.
func (s *RatingSession) PlayMove(ctx context.Context, uci string) (FreePlayResult, error) {
	if s.phase != FreePlay {
		return FreePlayResult{}, ErrPhase
	}

	rec, err := chessx.ReplayUCI(s.pz.PreBlunderFEN, uci)
	if err != nil {
		return FreePlayResult{Legal: false}, nil
	}

	res := FreePlayResult{Legal: true, Move: rec}
	baseline := s.awaitBaseline(ctx)
	if baseline == nil || baseline.BestMove == "" {
		res.Degraded = true
	} else {
		res.BestMove = baseline.BestMove
		res.Points = s.gradeFreePlay(ctx, rec, baseline.BestMove)
	}

	if s.sink != nil {
		if err := s.sink.RecordMovePoints(res.Points); err != nil {
			log.Printf("Warning: failed to record move points: %v", err)
		}
	}

	s.phase = Final
	return res, nil
}

// gradeFreePlay compares the player's move against the engine's best
// move. An exact match is a perfect score with no further oracle calls;
// otherwise both post-move positions are evaluated at the same depth so
// the centipawn comparison is meaningful.
func (s *RatingSession) gradeFreePlay(ctx context.Context, rec chessx.MoveRecord, bestMove string) int {
	if rec.UCI == bestMove {
		return 100
	}

	userEval, err := s.eval.Evaluate(ctx, rec.FEN, s.cfg.Depth)
	if err != nil {
		log.Printf("Warning: free-play evaluation unavailable: %v", err)
		return grade.MoveQuality(nil, nil, rec.UCI, bestMove)
	}

	bestRec, err := chessx.ReplayUCI(s.pz.PreBlunderFEN, bestMove)
	if err != nil {
		log.Printf("Warning: engine best move %q does not replay: %v", bestMove, err)
		return grade.MoveQuality(nil, nil, rec.UCI, bestMove)
	}
	bestEval, err := s.eval.Evaluate(ctx, bestRec.FEN, s.cfg.Depth)
	if err != nil {
		log.Printf("Warning: best-move evaluation unavailable: %v", err)
		return grade.MoveQuality(nil, nil, rec.UCI, bestMove)
	}

	return grade.MoveQuality(userEval, bestEval, rec.UCI, bestMove)
}

// Range returns the inclusive navigable cursor bounds: from one ply
// before the blunder (so the setup stays visible) to the timeline end.
func (s *RatingSession) Range() (lo, hi int) {
	return s.pz.Timeline.BlunderIndex - 1, s.pz.Timeline.Len() - 1
}

// SetCursor moves the navigation cursor within the navigable range.
func (s *RatingSession) SetCursor(i int) error {
	if s.phase == Presenting {
		return ErrPhase
	}
	lo, hi := s.Range()
	if i < lo || i > hi {
		return ErrCursorRange
	}
	s.cursor = i
	return nil
}

// Cursor returns the current cursor index.
func (s *RatingSession) Cursor() int { return s.cursor }

// CurrentFEN returns the position at the cursor.
func (s *RatingSession) CurrentFEN() string {
	if s.cursor == CursorStart {
		return startFEN(s.pz)
	}
	return s.pz.Timeline.Moves[s.cursor].FEN
}

// Close tears the session down. Results of any pending evaluation are
// discarded, never applied to a later session.
func (s *RatingSession) Close() {
	select {
	case <-s.closed:
		return
	default:
	}
	close(s.closed)
	if s.eval != nil {
		s.eval.Cancel()
	}
}

func startFEN(pz *puzzle.Puzzle) string {
	if pz.Source.StartFEN != "" {
		return pz.Source.StartFEN
	}
	return chessx.StartFEN
}
