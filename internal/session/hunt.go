package session

import (
	"context"
	"log"

	"github.com/velimir/blunderlab/internal/chessx"
	"github.com/velimir/blunderlab/internal/grade"
	"github.com/velimir/blunderlab/internal/oracle"
	"github.com/velimir/blunderlab/internal/puzzle"
)

// HuntPhase of the find-the-blunder variant.
type HuntPhase int

const (
	HuntPresenting HuntPhase = iota
	HuntAwaitingGuess
	HuntSolved
)

func (p HuntPhase) String() string {
	switch p {
	case HuntPresenting:
		return "presenting"
	case HuntAwaitingGuess:
		return "awaiting-guess"
	default:
		return "solved"
	}
}

// HuntResult is the outcome of one blunder guess.
type HuntResult struct {
	Legal    bool
	Correct  bool
	Move     chessx.MoveRecord
	Feedback string // set on wrong guesses
	Attempts int
}

// HuntSession runs the find-the-blunder variant: the game history plays
// up to the position in which the blunder was made, and the player must
// play the very move that was played. Wrong guesses get evaluation-based
// feedback and the board resets after a fixed display delay; the phase
// and the attempt semantics never change on a wrong guess.
type HuntSession struct {
	pz    *puzzle.Puzzle
	eval  Evaluator
	sink  Sink
	clock Clock
	cfg   Config

	phase     HuntPhase
	attempts  int
	hintUsed  bool
	cursor    int
	reviewing bool

	blunderEval   *oracle.Sample
	blunderEvalCh chan *oracle.Sample
	closed        chan struct{}

	// OnMove is called for each history ply shown during playback.
	OnMove func(index int, rec chessx.MoveRecord)
	// OnBoardReset fires after the wrong-guess display delay.
	OnBoardReset func(fen string)
}

// NewHunt creates a find-the-blunder session for one puzzle.
func NewHunt(pz *puzzle.Puzzle, eval Evaluator, sink Sink, cfg Config, opts ...Option) *HuntSession {
	o := buildOptions(opts)
	return &HuntSession{
		pz:            pz,
		eval:          eval,
		sink:          sink,
		clock:         o.clock,
		cfg:           cfg,
		phase:         HuntPresenting,
		cursor:        pz.Timeline.BlunderIndex - 1,
		blunderEvalCh: make(chan *oracle.Sample, 1),
		closed:        make(chan struct{}),
	}
}

// Phase returns the current phase.
func (s *HuntSession) Phase() HuntPhase { return s.phase }

// Puzzle returns the session's puzzle.
func (s *HuntSession) Puzzle() *puzzle.Puzzle { return s.pz }

// Attempts returns the number of guesses so far, right or wrong.
func (s *HuntSession) Attempts() int { return s.attempts }

// Present plays the pre-blunder history and stops on the position the
// blunder was played from, then awaits guesses. A background evaluation
// of the post-blunder position is started for wrong-guess feedback; it
// is read non-blockingly when needed, never waited for.
func (s *HuntSession) Present(ctx context.Context) error {
	if s.phase != HuntPresenting {
		return ErrPhase
	}

	s.startBlunderEval(ctx)

	tl := s.pz.Timeline
	for i := 0; i < tl.BlunderIndex; i++ {
		s.cursor = i
		if s.OnMove != nil {
			s.OnMove(i, tl.Moves[i])
		}
		if i == tl.BlunderIndex-1 {
			break
		}
		select {
		case <-s.clock.After(s.cfg.StepDelay):
		case <-ctx.Done():
			return ctx.Err()
		case <-s.closed:
			return ErrClosed
		}
	}

	s.phase = HuntAwaitingGuess
	return nil
}

func (s *HuntSession) startBlunderEval(ctx context.Context) {
	if s.eval == nil {
		s.blunderEvalCh <- nil
		return
	}
	go func() {
		sample, err := s.eval.Evaluate(ctx, s.pz.PostBlunderFEN, s.cfg.Depth)
		if err != nil {
			log.Printf("Warning: blunder evaluation unavailable: %v", err)
			s.blunderEvalCh <- nil
			return
		}
		s.blunderEvalCh <- sample
	}()
}

// pollBlunderEval checks for the pre-computed blunder evaluation
// without blocking; wrong-guess feedback degrades to the fixed fallback
// message when it has not arrived yet.
func (s *HuntSession) pollBlunderEval() *oracle.Sample {
	if s.blunderEval != nil {
		return s.blunderEval
	}
	select {
	case b := <-s.blunderEvalCh:
		s.blunderEval = b
		return b
	default:
		return nil
	}
}

// Guess applies one candidate blunder move. Attempts increment on every
// legal guess, right or wrong. A wrong guess gets feedback, then the
// board resets to the pre-blunder position after the display delay with
// no phase change.
func (s *HuntSession) Guess(ctx context.Context, uci string) (HuntResult, error) {
	if s.phase != HuntAwaitingGuess {
		return HuntResult{}, ErrPhase
	}
	if s.reviewing {
		return HuntResult{}, ErrReviewing
	}

	rec, err := chessx.ReplayUCI(s.pz.PreBlunderFEN, uci)
	if err != nil {
		return HuntResult{Legal: false, Attempts: s.attempts}, nil
	}

	s.attempts++

	if chessx.PositionsMatch(rec.FEN, s.pz.PostBlunderFEN) {
		s.solve()
		return HuntResult{Legal: true, Correct: true, Move: rec, Attempts: s.attempts}, nil
	}

	res := HuntResult{
		Legal:    true,
		Move:     rec,
		Feedback: s.wrongGuessFeedback(ctx, rec),
		Attempts: s.attempts,
	}
	s.scheduleReset()
	return res, nil
}

// wrongGuessFeedback grades the guessed move against the historical
// blunder. Without the pre-computed blunder evaluation the fixed
// fallback message is used immediately instead of waiting.
func (s *HuntSession) wrongGuessFeedback(ctx context.Context, rec chessx.MoveRecord) string {
	blunderEval := s.pollBlunderEval()
	if blunderEval == nil {
		return grade.FallbackFeedback
	}

	userEval, err := s.eval.Evaluate(ctx, rec.FEN, blunderEval.Depth)
	if err != nil {
		log.Printf("Warning: wrong-guess evaluation unavailable: %v", err)
		return grade.FallbackFeedback
	}
	return grade.DescribeMistake(userEval, blunderEval)
}

func (s *HuntSession) scheduleReset() {
	fen := s.pz.PreBlunderFEN
	go func() {
		select {
		case <-s.clock.After(s.cfg.ResetDelay):
			if s.OnBoardReset != nil {
				s.OnBoardReset(fen)
			}
		case <-s.closed:
		}
	}()
}

// Hint reveals the blunder's origin square without changing phase.
// Using it unlocks Reveal.
func (s *HuntSession) Hint() (string, error) {
	if s.phase != HuntAwaitingGuess {
		return "", ErrPhase
	}
	s.hintUsed = true
	return s.pz.Blunder.Origin, nil
}

// Reveal injects the known blunder as the accepted guess. Allowed only
// after a hint.
func (s *HuntSession) Reveal() (chessx.MoveRecord, error) {
	if s.phase != HuntAwaitingGuess || !s.hintUsed {
		return chessx.MoveRecord{}, ErrPhase
	}
	s.attempts++
	s.solve()
	return s.pz.Blunder, nil
}

func (s *HuntSession) solve() {
	s.phase = HuntSolved
	if s.sink != nil {
		if err := s.sink.RecordSolved(); err != nil {
			log.Printf("Warning: failed to record solved puzzle: %v", err)
		}
	}
}

// Range returns the navigable cursor bounds: the whole pre-blunder
// history while guessing, the full timeline once solved.
func (s *HuntSession) Range() (lo, hi int) {
	if s.phase == HuntSolved {
		return CursorStart, s.pz.Timeline.Len() - 1
	}
	return CursorStart, s.pz.Timeline.BlunderIndex - 1
}

// SetCursor moves the review cursor. Leaving the current position puts
// the session into review; the board accepts no guesses until
// ReturnToPuzzle.
func (s *HuntSession) SetCursor(i int) error {
	if s.phase == HuntPresenting {
		return ErrPhase
	}
	lo, hi := s.Range()
	if i < lo || i > hi {
		return ErrCursorRange
	}
	s.cursor = i
	s.reviewing = i != s.pz.Timeline.BlunderIndex-1
	return nil
}

// ReturnToPuzzle restores the cursor to the puzzle position and makes
// the board interactive again.
func (s *HuntSession) ReturnToPuzzle() {
	s.cursor = s.pz.Timeline.BlunderIndex - 1
	s.reviewing = false
}

// Reviewing reports whether the player has navigated away from the
// puzzle position.
func (s *HuntSession) Reviewing() bool { return s.reviewing }

// Cursor returns the current cursor index.
func (s *HuntSession) Cursor() int { return s.cursor }

// CurrentFEN returns the position at the cursor.
func (s *HuntSession) CurrentFEN() string {
	if s.cursor == CursorStart {
		return startFEN(s.pz)
	}
	return s.pz.Timeline.Moves[s.cursor].FEN
}

// Close tears the session down; pending evaluation results and reset
// timers are abandoned.
func (s *HuntSession) Close() {
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
