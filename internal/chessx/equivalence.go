package chessx

import "strings"

// PositionsMatch compares two FEN encodings ignoring the halfmove clock
// and fullmove number. Two replays of the same position can carry
// different counters depending on where the replay started, so raw
// string equality is too strict for "did the player find this move".
// Piece placement, side to move, castling rights and the en passant
// target all still have to agree.
func PositionsMatch(a, b string) bool {
	return coreFields(a) == coreFields(b)
}

func coreFields(fen string) string {
	parts := strings.Fields(fen)
	if len(parts) < 4 {
		return strings.Join(parts, " ")
	}
	return strings.Join(parts[:4], " ")
}
