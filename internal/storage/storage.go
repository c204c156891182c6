// Package storage provides persistent storage for user preferences and
// the cross-puzzle score accumulator.
package storage

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/velimir/blunderlab/internal/grade"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyScores      = "scores"
)

// UserPreferences stores user settings.
type UserPreferences struct {
	Username    string    `json:"username"`
	EnginePath  string    `json:"engine_path"`
	SearchDepth int       `json:"search_depth"`
	LastPlayed  time.Time `json:"last_played"`
}

// DefaultPreferences returns default user preferences.
func DefaultPreferences() *UserPreferences {
	return &UserPreferences{
		Username:    "Player",
		EnginePath:  "stockfish",
		SearchDepth: 15,
		LastPlayed:  time.Now(),
	}
}

// ScoreStats is the cross-puzzle score accumulator: monotonically
// growing counters, written once per graded guess and never read back
// into puzzle reconstruction.
type ScoreStats struct {
	TotalGuesses  int `json:"total_guesses"`
	RatingDiffSum int `json:"rating_diff_sum"`
	CurrentStreak int `json:"current_streak"`
	BestStreak    int `json:"best_streak"`
	MovePoints    int `json:"move_points"`
	PuzzlesSolved int `json:"puzzles_solved"`
}

// NewScoreStats returns an empty accumulator.
func NewScoreStats() *ScoreStats {
	return &ScoreStats{}
}

// AverageDifference returns the mean absolute rating-guess error.
func (s *ScoreStats) AverageDifference() float64 {
	if s.TotalGuesses == 0 {
		return 0
	}
	return float64(s.RatingDiffSum) / float64(s.TotalGuesses)
}

// Storage wraps BadgerDB for persistent storage.
type Storage struct {
	db *badger.DB
}

// NewStorage creates a storage instance in the platform data directory.
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return Open(dbDir)
}

// Open creates a storage instance rooted at dir.
func Open(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SavePreferences saves user preferences.
func (s *Storage) SavePreferences(prefs *UserPreferences) error {
	prefs.LastPlayed = time.Now()

	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPreferences), data)
	})
}

// LoadPreferences loads user preferences, returns defaults if not found.
func (s *Storage) LoadPreferences() (*UserPreferences, error) {
	prefs := DefaultPreferences()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPreferences))
		if err == badger.ErrKeyNotFound {
			return nil // Use defaults
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, prefs)
		})
	})

	return prefs, err
}

// LoadScores loads the accumulator, returns empty stats if not found.
func (s *Storage) LoadScores() (*ScoreStats, error) {
	stats := NewScoreStats()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyScores))
		if err == badger.ErrKeyNotFound {
			return nil // Use empty stats
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})

	return stats, err
}

// update applies fn to the stored accumulator inside one transaction,
// so a graded guess either lands fully or not at all.
func (s *Storage) update(fn func(*ScoreStats)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		stats := NewScoreStats()

		item, err := txn.Get([]byte(keyScores))
		if err == nil {
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, stats)
			}); err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		fn(stats)

		data, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyScores), data)
	})
}

// RecordRatingGuess folds one rating-guess verdict into the accumulator.
func (s *Storage) RecordRatingGuess(v grade.RatingVerdict) error {
	return s.update(func(stats *ScoreStats) {
		stats.TotalGuesses++
		stats.RatingDiffSum += v.Difference
		stats.CurrentStreak = v.NewStreak
		if v.NewBest > stats.BestStreak {
			stats.BestStreak = v.NewBest
		}
	})
}

// RecordMovePoints adds free-play move-quality points.
func (s *Storage) RecordMovePoints(points int) error {
	return s.update(func(stats *ScoreStats) {
		stats.MovePoints += points
	})
}

// RecordSolved counts a solved find-the-blunder puzzle.
func (s *Storage) RecordSolved() error {
	return s.update(func(stats *ScoreStats) {
		stats.PuzzlesSolved++
	})
}
