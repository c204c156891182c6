// Package puzzle turns raw historical-game records into verified,
// navigable move timelines with a marked blunder point.
package puzzle

import (
	"fmt"

	"github.com/velimir/blunderlab/internal/chessx"
)

// RawRecord is a puzzle as delivered by the data provider: one
// historical game whose final move is the blunder, plus the punishing
// solution in coordinate form and player metadata.
type RawRecord struct {
	ID          string
	GameMoves   []string // SAN, possibly annotated; blunder is last
	Solution    []string // coordinate form (UCI)
	StartFEN    string   // empty means standard initial position
	WhiteName   string
	BlackName   string
	WhiteRating int
	BlackRating int
	Rating      int // puzzle difficulty rating
	Popularity  int
}

// Timeline is the full ordered move sequence: pre-blunder history,
// the blunder itself, then the solution. Built once per puzzle and
// immutable afterwards; navigation only moves a cursor over it.
type Timeline struct {
	Moves        []chessx.MoveRecord
	BlunderIndex int
}

// Len returns the number of plies in the timeline.
func (t *Timeline) Len() int { return len(t.Moves) }

// Blunder returns the blunder ply.
func (t *Timeline) Blunder() chessx.MoveRecord { return t.Moves[t.BlunderIndex] }

// Puzzle is the reconstructed, displayable form of a raw record.
// Owned exclusively by one session and discarded on puzzle change.
type Puzzle struct {
	Source         RawRecord
	PreBlunderFEN  string
	Blunder        chessx.MoveRecord
	PostBlunderFEN string
	SolutionUCI    []string
	Timeline       *Timeline
	OpponentSetup  *chessx.MoveRecord // move just before the blunder; nil if none
}

// BlundererRating returns the rating of the player who made the blunder.
func (p *Puzzle) BlundererRating() int {
	if p.Blunder.Mover == chessx.White {
		return p.Source.WhiteRating
	}
	return p.Source.BlackRating
}

// ReconstructionError marks a raw record whose replay failed: an illegal
// move inside a supposedly valid historical game. Fatal for the puzzle.
type ReconstructionError struct {
	Move  string
	Index int // ply index within the spliced timeline
	Err   error
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("reconstruction failed at ply %d (%s): %v", e.Index, e.Move, e.Err)
}

func (e *ReconstructionError) Unwrap() error { return e.Err }

// BuildTimeline replays rawMoves (SAN, blunder last) and then
// solutionMoves (UCI) from startFEN, producing the spliced timeline.
// Any replay step the rules engine rejects aborts the whole build.
func BuildTimeline(rawMoves, solutionMoves []string, startFEN string) (*Timeline, error) {
	if len(rawMoves) == 0 {
		return nil, &ReconstructionError{Index: 0, Err: fmt.Errorf("record has no moves")}
	}
	if startFEN == "" {
		startFEN = chessx.StartFEN
	}

	moves := make([]chessx.MoveRecord, 0, len(rawMoves)+len(solutionMoves))
	fen := startFEN

	for i, san := range rawMoves {
		rec, err := chessx.Replay(fen, san)
		if err != nil {
			return nil, &ReconstructionError{Move: san, Index: i, Err: err}
		}
		moves = append(moves, rec)
		fen = rec.FEN
	}

	blunderIndex := len(rawMoves) - 1
	for i, uci := range solutionMoves {
		rec, err := chessx.ReplayUCI(fen, uci)
		if err != nil {
			return nil, &ReconstructionError{Move: uci, Index: blunderIndex + 1 + i, Err: err}
		}
		moves = append(moves, rec)
		fen = rec.FEN
	}

	return &Timeline{Moves: moves, BlunderIndex: blunderIndex}, nil
}

// Reconstruct builds the full puzzle view from a raw record.
func Reconstruct(rec RawRecord) (*Puzzle, error) {
	tl, err := BuildTimeline(rec.GameMoves, rec.Solution, rec.StartFEN)
	if err != nil {
		return nil, err
	}

	start := rec.StartFEN
	if start == "" {
		start = chessx.StartFEN
	}

	preFEN := start
	if tl.BlunderIndex > 0 {
		preFEN = tl.Moves[tl.BlunderIndex-1].FEN
	}

	var setup *chessx.MoveRecord
	if tl.BlunderIndex >= 1 {
		m := tl.Moves[tl.BlunderIndex-1]
		setup = &m
	}

	return &Puzzle{
		Source:         rec,
		PreBlunderFEN:  preFEN,
		Blunder:        tl.Blunder(),
		PostBlunderFEN: tl.Blunder().FEN,
		SolutionUCI:    rec.Solution,
		Timeline:       tl,
		OpponentSetup:  setup,
	}, nil
}
