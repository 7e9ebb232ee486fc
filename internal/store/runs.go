package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Target identifies a card to tag and flag.
type Target struct {
	CardID int64
	NoteID int64
}

// ApplyRun adds tag to the note of every target and, if flag is non-zero,
// ORs flag into the card's flags. Everything happens in one transaction and
// is recorded as a Run with a fresh ID so RevertRun can undo it.
func (s *Store) ApplyRun(tag string, flag int, targets []Target) (*Run, error) {
	if err := s.CreateRunSchema(); err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		Tag:       tag,
		Flag:      flag,
		CardCount: len(targets),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	_, err = tx.Exec(`INSERT INTO leechkit_runs (id, created_at, tag, flag, card_count) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339), run.Tag, run.Flag, run.CardCount)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", notInitialized(err))
	}

	for _, t := range targets {
		change := Change{RunID: run.ID, CardID: t.CardID, NoteID: t.NoteID}

		if tag != "" {
			added, err := addNoteTag(tx, t.NoteID, tag)
			if err != nil {
				return nil, err
			}
			change.AddedTag = added
		}

		var flags int
		err := tx.QueryRow(`SELECT flags FROM cards WHERE id = ?`, t.CardID).Scan(&flags)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %d", ErrCardNotFound, t.CardID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read flags for card %d: %w", t.CardID, notInitialized(err))
		}
		change.PrevFlags = flags

		if flag != 0 && flags|flag != flags {
			if _, err := tx.Exec(`UPDATE cards SET flags = ? WHERE id = ?`, flags|flag, t.CardID); err != nil {
				return nil, fmt.Errorf("failed to flag card %d: %w", t.CardID, err)
			}
		}

		_, err = tx.Exec(`INSERT INTO leechkit_changes (run_id, card_id, note_id, added_tag, prev_flags) VALUES (?, ?, ?, ?, ?)`,
			change.RunID, change.CardID, change.NoteID, change.AddedTag, change.PrevFlags)
		if err != nil {
			return nil, fmt.Errorf("failed to record change for card %d: %w", t.CardID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}

	return run, nil
}

// addNoteTag adds tag to a note unless it is already present. It reports
// whether the tag was added.
func addNoteTag(tx *sql.Tx, noteID int64, tag string) (bool, error) {
	var raw string
	err := tx.QueryRow(`SELECT tags FROM notes WHERE id = ?`, noteID).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, fmt.Errorf("note %d not found", noteID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to read tags for note %d: %w", noteID, notInitialized(err))
	}

	tags := parseTags(raw)
	if hasTag(tags, tag) {
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE notes SET tags = ? WHERE id = ?`, joinTags(append(tags, tag)), noteID); err != nil {
		return false, fmt.Errorf("failed to tag note %d: %w", noteID, err)
	}
	return true, nil
}

const runColumns = `id, created_at, tag, flag, card_count, reverted_at`

func scanRun(row interface{ Scan(...any) error }) (*Run, error) {
	var run Run
	var createdAt string
	var revertedAt sql.NullString

	if err := row.Scan(&run.ID, &createdAt, &run.Tag, &run.Flag, &run.CardCount, &revertedAt); err != nil {
		return nil, err
	}

	var err error
	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at for run %s: %w", run.ID, err)
	}

	if revertedAt.Valid {
		t, err := time.Parse(time.RFC3339, revertedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reverted_at for run %s: %w", run.ID, err)
		}
		run.RevertedAt = &t
	}

	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM leechkit_runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, notInitialized(err))
	}
	return run, nil
}

// ListRuns returns all runs, newest first. A collection that has never been
// written to has no runs.
func (s *Store) ListRuns() ([]*Run, error) {
	if err := s.CreateRunSchema(); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM leechkit_runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", notInitialized(err))
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// LatestRun returns the most recent run that has not been reverted.
func (s *Store) LatestRun() (*Run, error) {
	runs, err := s.ListRuns()
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.RevertedAt == nil {
			return run, nil
		}
	}
	return nil, fmt.Errorf("%w: no unreverted runs", ErrRunNotFound)
}

// GetChanges returns the per-card undo records for a run.
func (s *Store) GetChanges(runID string) ([]*Change, error) {
	rows, err := s.db.Query(`
		SELECT run_id, card_id, note_id, added_tag, prev_flags
		FROM leechkit_changes
		WHERE run_id = ?
		ORDER BY card_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get changes for run %s: %w", runID, notInitialized(err))
	}
	defer rows.Close()

	var changes []*Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.RunID, &c.CardID, &c.NoteID, &c.AddedTag, &c.PrevFlags); err != nil {
			return nil, fmt.Errorf("failed to scan change row: %w", err)
		}
		changes = append(changes, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating changes: %w", err)
	}

	return changes, nil
}

// RevertRun undoes a run: tags the run added are removed and card flags are
// restored to their previous value. It returns the number of cards touched.
func (s *Store) RevertRun(id string) (int, error) {
	if err := s.CreateRunSchema(); err != nil {
		return 0, err
	}

	run, err := s.GetRun(id)
	if err != nil {
		return 0, err
	}
	if run.RevertedAt != nil {
		return 0, fmt.Errorf("%w: %s", ErrRunReverted, id)
	}

	changes, err := s.GetChanges(id)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	for _, c := range changes {
		if c.AddedTag {
			if err := removeNoteTag(tx, c.NoteID, run.Tag); err != nil {
				return 0, err
			}
		}
		if _, err := tx.Exec(`UPDATE cards SET flags = ? WHERE id = ?`, c.PrevFlags, c.CardID); err != nil {
			return 0, fmt.Errorf("failed to restore flags for card %d: %w", c.CardID, err)
		}
	}

	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	if _, err := tx.Exec(`UPDATE leechkit_runs SET reverted_at = ? WHERE id = ?`, now, id); err != nil {
		return 0, fmt.Errorf("failed to mark run %s reverted: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit revert: %w", err)
	}

	return len(changes), nil
}

func removeNoteTag(tx *sql.Tx, noteID int64, tag string) error {
	var raw string
	err := tx.QueryRow(`SELECT tags FROM notes WHERE id = ?`, noteID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil // note deleted since the run
	}
	if err != nil {
		return fmt.Errorf("failed to read tags for note %d: %w", noteID, err)
	}

	tags := removeTag(parseTags(raw), tag)
	if _, err := tx.Exec(`UPDATE notes SET tags = ? WHERE id = ?`, joinTags(tags), noteID); err != nil {
		return fmt.Errorf("failed to untag note %d: %w", noteID, err)
	}
	return nil
}
