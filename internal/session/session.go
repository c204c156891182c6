// Package session orchestrates puzzle phases: timeline playback,
// guessing, reveal, free play. A session exclusively owns the puzzle it
// displays and is torn down on puzzle change; the evaluation gateway is
// shared across sessions and reached only through the Evaluator
// interface.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/velimir/blunderlab/internal/grade"
	"github.com/velimir/blunderlab/internal/oracle"
	"github.com/velimir/blunderlab/internal/storage"
)

var (
	// ErrPhase is returned for an action the current phase does not accept.
	ErrPhase = errors.New("session: action not valid in current phase")

	// ErrReviewing is returned for a guess made while browsing history;
	// the player must return to the puzzle first.
	ErrReviewing = errors.New("session: return to the puzzle before moving")

	// ErrCursorRange is returned for navigation outside the navigable range.
	ErrCursorRange = errors.New("session: cursor outside navigable range")

	// ErrClosed is returned once the session has been torn down.
	ErrClosed = errors.New("session: closed")
)

// CursorStart is the cursor sentinel for "before any move".
const CursorStart = -1

// Clock abstracts timer scheduling so tests drive playback instantly.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Evaluator is the session's view of the evaluation gateway.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string, depth int) (*oracle.Sample, error)
	Cancel()
}

// Sink receives graded outcomes. Reads happen once at session start,
// writes once per graded guess; reconstruction never reads it back.
type Sink interface {
	LoadScores() (*storage.ScoreStats, error)
	RecordRatingGuess(grade.RatingVerdict) error
	RecordMovePoints(points int) error
	RecordSolved() error
}

// Config carries the fixed delays and search depth for a session.
type Config struct {
	Depth        int
	StepDelay    time.Duration // between solution moves during playback
	BlunderPause time.Duration // after the blunder; deliberately longer
	ResetDelay   time.Duration // wrong-guess display time before board reset
}

// DefaultConfig returns the standard pacing.
func DefaultConfig() Config {
	return Config{
		Depth:        15,
		StepDelay:    800 * time.Millisecond,
		BlunderPause: 2 * time.Second,
		ResetDelay:   1500 * time.Millisecond,
	}
}

// Option configures a session.
type Option func(*options)

type options struct {
	clock Clock
}

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func buildOptions(opts []Option) options {
	o := options{clock: realClock{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
