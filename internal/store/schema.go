package store

// collectionSchema mirrors the parts of the host collection leechkit reads.
// revlog.id is the review time in epoch milliseconds.
const collectionSchema = `
CREATE TABLE IF NOT EXISTS col_config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS notes (
    id INTEGER PRIMARY KEY,
    tags TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS cards (
    id INTEGER PRIMARY KEY,
    note_id INTEGER NOT NULL,
    deck TEXT NOT NULL DEFAULT 'Default',
    flags INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS revlog (
    id INTEGER PRIMARY KEY,
    card_id INTEGER NOT NULL,
    ease INTEGER NOT NULL,
    kind INTEGER NOT NULL,
    stability REAL
);

CREATE INDEX IF NOT EXISTS idx_cards_note ON cards(note_id);
CREATE INDEX IF NOT EXISTS idx_cards_deck ON cards(deck);
CREATE INDEX IF NOT EXISTS idx_revlog_card ON revlog(card_id);
`

const runSchema = `
CREATE TABLE IF NOT EXISTS leechkit_runs (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    tag TEXT NOT NULL,
    flag INTEGER NOT NULL,
    card_count INTEGER NOT NULL,
    reverted_at TIMESTAMP
);

CREATE TABLE IF NOT EXISTS leechkit_changes (
    run_id TEXT NOT NULL,
    card_id INTEGER NOT NULL,
    note_id INTEGER NOT NULL,
    added_tag BOOLEAN NOT NULL,
    prev_flags INTEGER NOT NULL,
    PRIMARY KEY (run_id, card_id),
    FOREIGN KEY (run_id) REFERENCES leechkit_runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_changes_run ON leechkit_changes(run_id);
`
