package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/velimir/blunderlab/internal/chessx"
	"github.com/velimir/blunderlab/internal/session"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Guess the rating of the player who blundered",
	Long: `Replays the blunder and its punishment, then asks you to guess the
rating of the player who made it. Afterwards you can try to find a
better move yourself.`,
	RunE: runPlay,
}

func runPlay(cmd *cobra.Command, _ []string) error {
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

	s := session.NewRating(pz, eval, sink, sessionConfig(cfg))
	defer s.Close()
	s.OnMove = printMove

	printMatchup(pz)
	fmt.Println("Watch the blunder and its punishment:")
	if err := s.Present(cmd.Context()); err != nil {
		return err
	}

	sc := bufio.NewScanner(os.Stdin)
	guess := readRatingGuess(sc)
	if guess < 0 {
		return nil
	}

	v, err := s.SubmitRating(guess)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s\n", v.Message)
	fmt.Printf("Actual rating: %d (you were off by %d)\n", pz.BlundererRating(), v.Difference)
	if v.NewStreak > 0 {
		fmt.Printf("Streak: %d (best %d)\n", v.NewStreak, v.NewBest)
	} else {
		fmt.Println("Streak reset")
	}

	return runFreePlay(cmd, s, sc)
}

func readRatingGuess(sc *bufio.Scanner) int {
	for {
		line, ok := prompt(sc, "\nYour rating guess: ")
		if !ok {
			return -1
		}
		n, err := strconv.Atoi(line)
		if err != nil || n <= 0 {
			fmt.Println("Enter a rating, e.g. 1500")
			continue
		}
		return n
	}
}

// runFreePlay lets the player attempt a better move from the blunder
// position. An illegal move reverts; one legal move ends the puzzle.
func runFreePlay(cmd *cobra.Command, s *session.RatingSession, sc *bufio.Scanner) error {
	fen, setup, err := s.EnterFreePlay()
	if err != nil {
		return err
	}
	fmt.Printf("\nBack to the position before the blunder:\n%s\n", fen)
	if setup != nil {
		fmt.Printf("(%s just played %s)\n", setup.Mover, setup.Notation)
	}
	side, err := chessx.SideToMove(fen)
	if err != nil {
		return err
	}

	for {
		line, ok := prompt(sc, fmt.Sprintf("Your move for %s (e.g. d2d4), or Enter to skip: ", side))
		if !ok || line == "" {
			return s.Skip()
		}

		res, err := s.PlayMove(cmd.Context(), line)
		if err != nil {
			return err
		}
		if !res.Legal {
			fmt.Println("Illegal move")
			continue
		}

		fmt.Printf("\nYou played %s", res.Move.Notation)
		if res.Degraded {
			fmt.Println(" (engine unavailable, move not graded)")
			return nil
		}
		fmt.Printf(": %d points (engine preferred %s)\n", res.Points, res.BestMove)
		return nil
	}
}
