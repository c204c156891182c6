// Package provider fetches raw puzzle records from a Lichess-style
// puzzle HTTP API. Failures surface as a retryable FetchError; the
// client never retries internally.
package provider

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/velimir/blunderlab/internal/puzzle"
)

// DefaultBaseURL is the public Lichess API root.
const DefaultBaseURL = "https://lichess.org/api"

// FetchError marks an unreachable provider or a non-success status.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("puzzle fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("puzzle fetch %s: status %d", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client talks to the puzzle API.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a puzzle API client. An empty base uses the public
// Lichess endpoint.
func NewClient(base string) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Wire format of the puzzle API.
type puzzleResponse struct {
	Game struct {
		ID      string `json:"id"`
		PGN     string `json:"pgn"`
		Players []struct {
			Name   string `json:"name"`
			Rating int    `json:"rating"`
			Color  string `json:"color"`
		} `json:"players"`
	} `json:"game"`
	Puzzle struct {
		ID       string   `json:"id"`
		Rating   int      `json:"rating"`
		Plays    int      `json:"plays"`
		Solution []string `json:"solution"`
	} `json:"puzzle"`
}

// Daily fetches the daily puzzle.
func (c *Client) Daily() (puzzle.RawRecord, error) {
	return c.fetch(c.base + "/puzzle/daily")
}

// ByID fetches a specific puzzle.
func (c *Client) ByID(id string) (puzzle.RawRecord, error) {
	return c.fetch(c.base + "/puzzle/" + id)
}

// Random fetches a random puzzle.
func (c *Client) Random() (puzzle.RawRecord, error) {
	return c.fetch(c.base + "/puzzle/next")
}

func (c *Client) fetch(url string) (puzzle.RawRecord, error) {
	resp, err := c.client.Get(url)
	if err != nil {
		return puzzle.RawRecord{}, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return puzzle.RawRecord{}, &FetchError{URL: url, Status: resp.StatusCode}
	}

	var pr puzzleResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return puzzle.RawRecord{}, &FetchError{URL: url, Err: err}
	}
	return toRecord(pr), nil
}

// toRecord maps the wire format onto a raw record. The PGN field is a
// bare space-separated SAN move list whose final move is the blunder.
func toRecord(pr puzzleResponse) puzzle.RawRecord {
	rec := puzzle.RawRecord{
		ID:         pr.Puzzle.ID,
		GameMoves:  strings.Fields(pr.Game.PGN),
		Solution:   pr.Puzzle.Solution,
		Rating:     pr.Puzzle.Rating,
		Popularity: pr.Puzzle.Plays,
	}
	for _, p := range pr.Game.Players {
		if p.Color == "black" {
			rec.BlackName = p.Name
			rec.BlackRating = p.Rating
		} else {
			rec.WhiteName = p.Name
			rec.WhiteRating = p.Rating
		}
	}
	return rec
}
