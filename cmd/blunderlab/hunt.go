package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velimir/blunderlab/internal/chessx"
	"github.com/velimir/blunderlab/internal/session"
)

var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Find the move that lost the game",
	Long: `Replays the game up to the position in which the blunder was made and
asks you to play the losing move yourself. Type a move in coordinate
form, or "hint", "reveal" (after a hint), "moves" to list legal moves,
"prev"/"next"/"return" to browse the history, "quit" to give up.`,
	RunE: runHunt,
}

func runHunt(cmd *cobra.Command, _ []string) error {
	st := openStore()
	if st != nil {
		defer st.Close()
	}
	cfg, err := loadConfig(st)
	if err != nil {
		return err
	}
	savePreferences(st, cfg)

	pz, err := fetchPuzzle(cfg)
	if err != nil {
		return err
	}

	var eval session.Evaluator
	if gw := startEngine(cfg); gw != nil {
		defer gw.Close()
		eval = gw
	}
	var sink session.Sink
	if st != nil {
		sink = st
	}

	s := session.NewHunt(pz, eval, sink, sessionConfig(cfg))
	defer s.Close()
	s.OnMove = printMove
	s.OnBoardReset = func(fen string) {
		fmt.Printf("\nBack to the puzzle position:\n%s\n", fen)
	}

	printMatchup(pz)
	fmt.Println("The game so far:")
	if err := s.Present(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("\nOne of these moves lost the game. Which was it?\n%s\n", pz.PreBlunderFEN)

	sc := bufio.NewScanner(os.Stdin)
	for s.Phase() != session.HuntSolved {
		line, ok := prompt(sc, "> ")
		if !ok || line == "quit" {
			return nil
		}

		switch line {
		case "":
		case "hint":
			sq, err := s.Hint()
			if err != nil {
				return err
			}
			fmt.Printf("The blunder moved the piece on %s\n", sq)
		case "reveal":
			rec, err := s.Reveal()
			if errors.Is(err, session.ErrPhase) {
				fmt.Println("Ask for a hint first")
				continue
			}
			if err != nil {
				return err
			}
			fmt.Printf("The blunder was %s\n", rec.Notation)
		case "moves":
			printLegalMoves(pz.PreBlunderFEN)
		case "prev", "next", "return":
			browse(s, line)
		default:
			if err := guess(cmd, s, line); err != nil {
				return err
			}
		}
	}

	fmt.Printf("\nSolved in %d attempts. The punishment:\n", s.Attempts())
	tl := pz.Timeline
	for i := tl.BlunderIndex + 1; i < tl.Len(); i++ {
		printMove(i, tl.Moves[i])
	}
	return nil
}

func guess(cmd *cobra.Command, s *session.HuntSession, uci string) error {
	res, err := s.Guess(cmd.Context(), uci)
	if errors.Is(err, session.ErrReviewing) {
		fmt.Println("Type \"return\" to go back to the puzzle first")
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case !res.Legal:
		fmt.Println("Not a legal move here")
	case res.Correct:
		fmt.Printf("Correct! %s was the blunder\n", res.Move.Notation)
	default:
		fmt.Println(res.Feedback)
	}
	return nil
}

func printLegalMoves(fen string) {
	dests, err := chessx.LegalDestinations(fen)
	if err != nil {
		fmt.Println(err)
		return
	}
	origins := make([]string, 0, len(dests))
	for from := range dests {
		origins = append(origins, from)
	}
	sort.Strings(origins)
	for _, from := range origins {
		fmt.Printf("%s -> %s\n", from, strings.Join(dests[from], " "))
	}
}

func browse(s *session.HuntSession, dir string) {
	switch dir {
	case "prev":
		if err := s.SetCursor(s.Cursor() - 1); err != nil {
			fmt.Println("Already at the start")
			return
		}
	case "next":
		lo, _ := s.Range()
		next := s.Cursor() + 1
		if next < lo {
			next = lo
		}
		if err := s.SetCursor(next); err != nil {
			fmt.Println("Already at the latest position")
			return
		}
	case "return":
		s.ReturnToPuzzle()
	}
	fmt.Println(s.CurrentFEN())
}
