// Package chessx adapts the chess rules library for deterministic replay.
// The puzzle engine never generates moves itself; it only asks this
// package to replay a given move against a given position and report
// the outcome (resulting FEN, normalized SAN, coordinates, mover).
package chessx

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartFEN is the FEN string for the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Color identifies the side that played a move.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Other returns the opposite color.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// MoveRecord describes one replayed ply. Records are immutable once
// produced; they are only ever created by Replay or ReplayUCI.
type MoveRecord struct {
	Notation string // SAN, including check/mate suffix
	UCI      string // coordinate form, e.g. "d8h4" or "e7e8q"
	FEN      string // position after the move
	Mover    Color
	Origin   string // origin square, e.g. "d8"
	Dest     string // destination square
}

// IllegalMoveError reports a move the rules engine rejected for a
// position. Replay and ReplayUCI return it unwrapped; the timeline
// builder annotates it with the ply index.
type IllegalMoveError struct {
	Move string
	FEN  string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q in position %q", e.Move, e.FEN)
}

func positionFromFEN(fen string) (*chess.Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return chess.NewGame(opt).Position(), nil
}

// stripAnnotations removes SAN annotation suffixes ("??", "!?", ...).
// Historical records carry them; the notation decoder does not.
func stripAnnotations(san string) string {
	return strings.TrimRight(san, "?!")
}

// Replay applies a SAN move to the position encoded by fen.
func Replay(fen, san string) (MoveRecord, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return MoveRecord{}, err
	}

	move, err := chess.AlgebraicNotation{}.Decode(pos, stripAnnotations(san))
	if err != nil {
		return MoveRecord{}, &IllegalMoveError{Move: san, FEN: fen}
	}
	return record(pos, move), nil
}

// ReplayUCI applies a coordinate-form move to the position encoded by fen.
func ReplayUCI(fen, uci string) (MoveRecord, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return MoveRecord{}, err
	}

	move, err := chess.UCINotation{}.Decode(pos, uci)
	if err != nil {
		return MoveRecord{}, &IllegalMoveError{Move: uci, FEN: fen}
	}

	// UCI decoding is syntactic; confirm the move is actually legal here.
	if !isValid(pos, move) {
		return MoveRecord{}, &IllegalMoveError{Move: uci, FEN: fen}
	}
	return record(pos, move), nil
}

func isValid(pos *chess.Position, move *chess.Move) bool {
	for _, m := range pos.ValidMoves() {
		if m.S1() == move.S1() && m.S2() == move.S2() && m.Promo() == move.Promo() {
			return true
		}
	}
	return false
}

func record(pos *chess.Position, move *chess.Move) MoveRecord {
	mover := White
	if pos.Turn() == chess.Black {
		mover = Black
	}

	san := chess.AlgebraicNotation{}.Encode(pos, move)
	uci := chess.UCINotation{}.Encode(pos, move)
	next := pos.Update(move)

	return MoveRecord{
		Notation: san,
		UCI:      uci,
		FEN:      next.String(),
		Mover:    mover,
		Origin:   move.S1().String(),
		Dest:     move.S2().String(),
	}
}

// SideToMove reports which color moves next in the position.
func SideToMove(fen string) (Color, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return "", err
	}
	if pos.Turn() == chess.Black {
		return Black, nil
	}
	return White, nil
}

// LegalDestinations maps each origin square with at least one legal move
// to its reachable destination squares.
func LegalDestinations(fen string) (map[string][]string, error) {
	pos, err := positionFromFEN(fen)
	if err != nil {
		return nil, err
	}

	dests := make(map[string][]string)
	for _, m := range pos.ValidMoves() {
		from := m.S1().String()
		to := m.S2().String()
		if len(dests[from]) > 0 && dests[from][len(dests[from])-1] == to {
			continue // promotion variants share from/to
		}
		dests[from] = append(dests[from], to)
	}
	return dests, nil
}
