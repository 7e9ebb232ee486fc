package store

import (
	"time"

	"github.com/blackwell-systems/leechkit/internal/revlog"
)

// DefaultRollover is the day rollover hour used when the collection does
// not configure one.
const DefaultRollover = 4

// LeechFlag is the card flag bit set on leeches.
const LeechFlag = 1

// Note is a note and its tags.
type Note struct {
	ID   int64
	Tags []string
}

// Card is a card with the tags of its note.
type Card struct {
	ID     int64
	NoteID int64
	Deck   string
	Flags  int
	Tags   []string
}

// CardQuery selects cards. Empty fields match everything.
type CardQuery struct {
	Deck string // deck name; matches the deck and its subdecks ("Deck::Sub")
	Tag  string // note tag, case-insensitive
}

// ReviewRow is a raw revlog row.
type ReviewRow struct {
	ID        int64 // epoch milliseconds
	CardID    int64
	Ease      revlog.Ease
	Kind      revlog.Kind
	Stability float64
}

// KindSet is a set of review kinds to mark excludable.
type KindSet map[revlog.Kind]bool

// Run records a batch of tag and flag writes.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Tag        string
	Flag       int // flag bits set, 0 for none
	CardCount  int
	RevertedAt *time.Time
}

// Change is the undo record for one card in a run.
type Change struct {
	RunID     string
	CardID    int64
	NoteID    int64
	AddedTag  bool // false when the note already had the tag
	PrevFlags int
}
