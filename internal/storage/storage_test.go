package storage

import (
	"os"
	"testing"

	"github.com/velimir/blunderlab/internal/grade"
)

func TestScoreStats(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		stats := NewScoreStats()
		if stats.TotalGuesses != 0 {
			t.Errorf("Expected 0 guesses")
		}
		if stats.AverageDifference() != 0 {
			t.Errorf("Expected 0 average difference")
		}
	})

	t.Run("AverageDifference", func(t *testing.T) {
		stats := &ScoreStats{TotalGuesses: 4, RatingDiffSum: 600}
		if got := stats.AverageDifference(); got != 150 {
			t.Errorf("Expected average 150, got %.2f", got)
		}
	})
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()
	if prefs.Username != "Player" {
		t.Errorf("Expected username 'Player', got %q", prefs.Username)
	}
	if prefs.SearchDepth != 15 {
		t.Errorf("Expected default depth 15, got %d", prefs.SearchDepth)
	}
}

func TestRecordRatingGuess(t *testing.T) {
	s := openTestStorage(t)

	v := grade.RateGuess(1550, 1500, 0, 0)
	if err := s.RecordRatingGuess(v); err != nil {
		t.Fatalf("RecordRatingGuess failed: %v", err)
	}
	v2 := grade.RateGuess(1900, 1200, v.NewStreak, v.NewBest)
	if err := s.RecordRatingGuess(v2); err != nil {
		t.Fatalf("RecordRatingGuess failed: %v", err)
	}

	stats, err := s.LoadScores()
	if err != nil {
		t.Fatalf("LoadScores failed: %v", err)
	}
	if stats.TotalGuesses != 2 {
		t.Errorf("Expected 2 guesses, got %d", stats.TotalGuesses)
	}
	if stats.RatingDiffSum != 750 {
		t.Errorf("Expected diff sum 750, got %d", stats.RatingDiffSum)
	}
	if stats.CurrentStreak != 0 {
		t.Errorf("Streak should have reset, got %d", stats.CurrentStreak)
	}
	if stats.BestStreak != 1 {
		t.Errorf("Expected best streak 1, got %d", stats.BestStreak)
	}
}

func TestRecordMovePoints(t *testing.T) {
	s := openTestStorage(t)

	if err := s.RecordMovePoints(75); err != nil {
		t.Fatalf("RecordMovePoints failed: %v", err)
	}
	if err := s.RecordMovePoints(100); err != nil {
		t.Fatalf("RecordMovePoints failed: %v", err)
	}

	stats, err := s.LoadScores()
	if err != nil {
		t.Fatalf("LoadScores failed: %v", err)
	}
	if stats.MovePoints != 175 {
		t.Errorf("Expected 175 move points, got %d", stats.MovePoints)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	s := openTestStorage(t)

	prefs := DefaultPreferences()
	prefs.Username = "carlsen_fan"
	prefs.SearchDepth = 20
	if err := s.SavePreferences(prefs); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	loaded, err := s.LoadPreferences()
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if loaded.Username != "carlsen_fan" || loaded.SearchDepth != 20 {
		t.Errorf("Preferences did not round-trip: %+v", loaded)
	}
}

func openTestStorage(t *testing.T) *Storage {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "blunderlab-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	s, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("Failed to open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
