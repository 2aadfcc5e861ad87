package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/bisegni/jsoncsv/pkg/errs"
)

// PlayerHeader is the static header of the uniform export.
var PlayerHeader = []string{"id", "name", "instrument", "creationDate"}

// Player is a member of a band. Every player has the same four fields, so
// players export without header reconciliation.
type Player struct {
	ID           string `json:"id" bson:"id"`
	Name         string `json:"name" bson:"name"`
	Instrument   string `json:"instrument" bson:"instrument"`
	CreationDate string `json:"creationDate" bson:"creationDate"`
}

// Row returns the player's cells in PlayerHeader order.
func (p Player) Row() []string {
	return []string{p.ID, p.Name, p.Instrument, p.CreationDate}
}

// PlayerCursor iterates over players.
type PlayerCursor interface {
	// Next advances the cursor. Returns false if no more players or error.
	Next() bool
	// Player returns the current player.
	Player() Player
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases resources.
	Close() error
}

// Players is a collection of uniformly shaped records.
type Players interface {
	Players(ctx context.Context) (PlayerCursor, error)
}

// JSONPlayers reads players from a JSON array file.
type JSONPlayers struct {
	Path string
}

func (j JSONPlayers) Players(ctx context.Context) (PlayerCursor, error) {
	f, err := os.Open(j.Path)
	if err != nil {
		return nil, errs.IO("open", j.Path, err)
	}
	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		f.Close()
		return nil, errs.Malformed(dec.InputOffset(), "expected start of array", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		f.Close()
		return nil, errs.Malformed(dec.InputOffset(), fmt.Sprintf("expected start of array, got %v", tok), nil)
	}
	return &jsonPlayerCursor{f: f, dec: dec}, nil
}

type jsonPlayerCursor struct {
	f       io.Closer
	dec     *json.Decoder
	current Player
	err     error
}

func (c *jsonPlayerCursor) Next() bool {
	if c.err != nil || !c.dec.More() {
		return false
	}
	var p Player
	if err := c.dec.Decode(&p); err != nil {
		c.err = errs.Malformed(c.dec.InputOffset(), "unreadable player", err)
		return false
	}
	c.current = p
	return true
}

func (c *jsonPlayerCursor) Player() Player { return c.current }

func (c *jsonPlayerCursor) Err() error { return c.err }

func (c *jsonPlayerCursor) Close() error { return c.f.Close() }

// SlicePlayers serves an in-memory list.
type SlicePlayers []Player

func (s SlicePlayers) Players(ctx context.Context) (PlayerCursor, error) {
	return &sliceCursor{players: s, index: -1}, nil
}

type sliceCursor struct {
	players []Player
	index   int
}

func (c *sliceCursor) Next() bool {
	c.index++
	return c.index < len(c.players)
}

func (c *sliceCursor) Player() Player { return c.players[c.index] }
func (c *sliceCursor) Err() error     { return nil }
func (c *sliceCursor) Close() error   { return nil }
