package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/velimir/blunderlab/internal/chessx"
	"github.com/velimir/blunderlab/internal/config"
	"github.com/velimir/blunderlab/internal/oracle"
	"github.com/velimir/blunderlab/internal/provider"
	"github.com/velimir/blunderlab/internal/puzzle"
	"github.com/velimir/blunderlab/internal/session"
	"github.com/velimir/blunderlab/internal/storage"
)

var (
	flagConfig string
	flagEngine string
	flagDepth  int
	flagAPI    string
	flagID     string
	flagDaily  bool
)

var rootCmd = &cobra.Command{
	Use:   "blunderlab",
	Short: "Chess blunder puzzles from real games",
	Long: `Blunderlab replays real games up to a losing move and asks you either
to guess the rating of the player who made it, or to find the move itself.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: data dir config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagEngine, "engine", "", "UCI engine binary")
	rootCmd.PersistentFlags().IntVar(&flagDepth, "depth", 0, "engine search depth")
	rootCmd.PersistentFlags().StringVar(&flagAPI, "api", "", "puzzle API base URL")

	for _, c := range []*cobra.Command{playCmd, huntCmd} {
		c.Flags().StringVar(&flagID, "id", "", "play a specific puzzle")
		c.Flags().BoolVar(&flagDaily, "daily", false, "play the daily puzzle")
	}

	rootCmd.AddCommand(playCmd, huntCmd, statsCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: built-in defaults,
// then the last-used preferences from the store, then the config file,
// then flags.
func loadConfig(st *storage.Storage) (config.Config, error) {
	base := config.Default()
	if st != nil {
		prefs, err := st.LoadPreferences()
		if err != nil {
			log.Printf("Warning: failed to load preferences: %v", err)
		} else {
			base.Engine.Path = prefs.EnginePath
			base.Engine.Depth = prefs.SearchDepth
		}
	}

	path := flagConfig
	if path == "" {
		dataDir, err := storage.GetDataDir()
		if err != nil {
			return base, err
		}
		path = filepath.Join(dataDir, "config.yaml")
	}

	cfg, err := config.LoadOver(path, base)
	if err != nil {
		return cfg, err
	}
	if flagEngine != "" {
		cfg.Engine.Path = flagEngine
	}
	if flagDepth != 0 {
		cfg.Engine.Depth = flagDepth
	}
	if flagAPI != "" {
		cfg.Provider.BaseURL = flagAPI
	}
	return cfg, cfg.Validate()
}

// savePreferences records the engine settings this run resolved to, so
// the next run starts from them without flags or a config file.
func savePreferences(st *storage.Storage, cfg config.Config) {
	if st == nil {
		return
	}
	prefs, err := st.LoadPreferences()
	if err != nil {
		log.Printf("Warning: failed to load preferences: %v", err)
		prefs = storage.DefaultPreferences()
	}
	prefs.EnginePath = cfg.Engine.Path
	prefs.SearchDepth = cfg.Engine.Depth
	if err := st.SavePreferences(prefs); err != nil {
		log.Printf("Warning: failed to save preferences: %v", err)
	}
}

func sessionConfig(cfg config.Config) session.Config {
	return session.Config{
		Depth:        cfg.Engine.Depth,
		StepDelay:    cfg.Playback.StepDelay,
		BlunderPause: cfg.Playback.BlunderPause,
		ResetDelay:   cfg.Playback.ResetDelay,
	}
}

// fetchPuzzle picks a puzzle per the flags: --id, --daily, or random.
func fetchPuzzle(cfg config.Config) (*puzzle.Puzzle, error) {
	client := provider.NewClient(cfg.Provider.BaseURL)

	var rec puzzle.RawRecord
	var err error
	switch {
	case flagID != "":
		rec, err = client.ByID(flagID)
	case flagDaily:
		rec, err = client.Daily()
	default:
		rec, err = client.Random()
	}
	if err != nil {
		return nil, err
	}
	return puzzle.Reconstruct(rec)
}

// startEngine launches the evaluation engine. A missing engine is not
// fatal: puzzles still work, grading degrades.
func startEngine(cfg config.Config) *oracle.Gateway {
	gw, err := oracle.Start(cfg.Engine.Path, cfg.Engine.InitTimeout)
	if err != nil {
		log.Printf("Warning: engine unavailable, grading degraded: %v", err)
		return nil
	}
	return gw
}

// openStore opens the score store. Failure degrades to no persistence.
func openStore() *storage.Storage {
	st, err := storage.NewStorage()
	if err != nil {
		log.Printf("Warning: score store unavailable: %v", err)
		return nil
	}
	return st
}

func printMove(index int, rec chessx.MoveRecord) {
	n := index/2 + 1
	if rec.Mover == chessx.White {
		fmt.Printf("%d. %s\n", n, rec.Notation)
	} else {
		fmt.Printf("%d... %s\n", n, rec.Notation)
	}
}

func printMatchup(pz *puzzle.Puzzle) {
	src := pz.Source
	fmt.Printf("Puzzle %s: %s vs %s\n\n", src.ID, src.WhiteName, src.BlackName)
}

func prompt(sc *bufio.Scanner, msg string) (string, bool) {
	fmt.Print(msg)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}
