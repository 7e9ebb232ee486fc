package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/blackwell-systems/leechkit/internal/revlog"
)

// Config operations

// Rollover returns the hour at which the collection's study day starts.
func (s *Store) Rollover() (int, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM col_config WHERE key = 'rollover'`).Scan(&value)
	if err == sql.ErrNoRows {
		return DefaultRollover, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rollover: %w", notInitialized(err))
	}

	hour, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid rollover value %q in collection", value)
	}
	return hour, nil
}

// SetConfig stores a collection setting.
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO col_config (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set config %s: %w", key, notInitialized(err))
	}
	return nil
}

// Note and card operations

// InsertNote inserts or replaces a note.
func (s *Store) InsertNote(note *Note) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO notes (id, tags) VALUES (?, ?)`,
		note.ID, joinTags(note.Tags))
	if err != nil {
		return fmt.Errorf("failed to insert note %d: %w", note.ID, notInitialized(err))
	}
	return nil
}

// GetNote retrieves a note by ID.
func (s *Store) GetNote(id int64) (*Note, error) {
	var tags string
	err := s.db.QueryRow(`SELECT tags FROM notes WHERE id = ?`, id).Scan(&tags)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("note %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get note %d: %w", id, notInitialized(err))
	}
	return &Note{ID: id, Tags: parseTags(tags)}, nil
}

// InsertCard inserts or replaces a card. Tags are ignored; they belong to
// the note.
func (s *Store) InsertCard(card *Card) error {
	deck := card.Deck
	if deck == "" {
		deck = "Default"
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO cards (id, note_id, deck, flags) VALUES (?, ?, ?, ?)`,
		card.ID, card.NoteID, deck, card.Flags)
	if err != nil {
		return fmt.Errorf("failed to insert card %d: %w", card.ID, notInitialized(err))
	}
	return nil
}

const cardColumns = `c.id, c.note_id, c.deck, c.flags, COALESCE(n.tags, '')`

func scanCard(row interface{ Scan(...any) error }) (*Card, error) {
	var card Card
	var tags string
	if err := row.Scan(&card.ID, &card.NoteID, &card.Deck, &card.Flags, &tags); err != nil {
		return nil, err
	}
	card.Tags = parseTags(tags)
	return &card, nil
}

// GetCard retrieves a card by ID.
func (s *Store) GetCard(id int64) (*Card, error) {
	query := `SELECT ` + cardColumns + `
		FROM cards c LEFT JOIN notes n ON n.id = c.note_id
		WHERE c.id = ?`

	card, err := scanCard(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", ErrCardNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %d: %w", id, notInitialized(err))
	}
	return card, nil
}

// ListCards returns the cards matching q, ordered by ID.
func (s *Store) ListCards(q CardQuery) ([]*Card, error) {
	query := `SELECT ` + cardColumns + `
		FROM cards c LEFT JOIN notes n ON n.id = c.note_id
		WHERE (? = '' OR c.deck = ? OR c.deck LIKE ? || '::%')
		  AND (? = '' OR (' ' || LOWER(n.tags) || ' ') LIKE '% ' || LOWER(?) || ' %')
		ORDER BY c.id`

	rows, err := s.db.Query(query, q.Deck, q.Deck, q.Deck, q.Tag, q.Tag)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", notInitialized(err))
	}
	defer rows.Close()

	var cards []*Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// Review log operations

// InsertReview inserts or replaces a revlog row.
func (s *Store) InsertReview(r *ReviewRow) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO revlog (id, card_id, ease, kind, stability) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.CardID, int(r.Ease), int(r.Kind), r.Stability)
	if err != nil {
		return fmt.Errorf("failed to insert review %d: %w", r.ID, notInitialized(err))
	}
	return nil
}

// GetReviews returns a card's reviews ordered oldest to newest. Reviews
// whose kind is in exclude are marked Excludable. A missing stability reads
// as zero; the detector rejects a trial scored with it.
func (s *Store) GetReviews(cardID int64, exclude KindSet) ([]revlog.Review, error) {
	query := `
		SELECT id, ease, kind, stability
		FROM revlog
		WHERE card_id = ?
		ORDER BY id
	`

	rows, err := s.db.Query(query, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for card %d: %w", cardID, notInitialized(err))
	}
	defer rows.Close()

	var reviews []revlog.Review
	for rows.Next() {
		var id int64
		var ease, kind int
		var stability sql.NullFloat64

		if err := rows.Scan(&id, &ease, &kind, &stability); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}

		k := revlog.Kind(kind)
		reviews = append(reviews, revlog.Review{
			Timestamp:  id / 1000,
			Stability:  stability.Float64,
			Ease:       revlog.Ease(ease),
			Kind:       k,
			Excludable: exclude[k],
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reviews: %w", err)
	}

	return reviews, nil
}

// GetReviewCount returns the total number of revlog rows.
func (s *Store) GetReviewCount() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM revlog`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count reviews: %w", notInitialized(err))
	}
	return count, nil
}
