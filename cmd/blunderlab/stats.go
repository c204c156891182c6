package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/velimir/blunderlab/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your accumulated scores",
	RunE:  runStats,
}

func runStats(_ *cobra.Command, _ []string) error {
	st, err := storage.NewStorage()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.LoadScores()
	if err != nil {
		return err
	}
	prefs, err := st.LoadPreferences()
	if err != nil {
		return err
	}

	fmt.Printf("Player:           %s\n", prefs.Username)
	if !prefs.LastPlayed.IsZero() {
		fmt.Printf("Last played:      %s\n", prefs.LastPlayed.Format("2006-01-02 15:04"))
	}
	fmt.Printf("Rating guesses:   %d\n", stats.TotalGuesses)
	if stats.TotalGuesses > 0 {
		fmt.Printf("Average error:    %.0f points\n", stats.AverageDifference())
	}
	fmt.Printf("Current streak:   %d\n", stats.CurrentStreak)
	fmt.Printf("Best streak:      %d\n", stats.BestStreak)
	fmt.Printf("Move points:      %d\n", stats.MovePoints)
	fmt.Printf("Blunders found:   %d\n", stats.PuzzlesSolved)
	return nil
}
