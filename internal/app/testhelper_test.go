package app

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/blackwell-systems/leechkit/internal/revlog"
	"github.com/blackwell-systems/leechkit/internal/store"
)

// 2025-01-01 12:00:00 UTC in milliseconds
const baseMs = int64(1735732800) * 1000

// resetFlags puts every flag back to its default so commands can be executed
// repeatedly within one test binary.
func resetFlags() {
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(RootCmd.PersistentFlags())
	for _, c := range RootCmd.Commands() {
		reset(c.Flags())
	}
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	resetFlags()
	t.Cleanup(resetFlags)

	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs(args)
	defer func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	}()

	err := RootCmd.Execute()
	return buf.String(), err
}

// setupCollection writes a collection with a healthy card (1) and a leech
// (2) to a temporary file and returns its path.
func setupCollection(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection.db")

	st, err := store.New(path)
	if err != nil {
		t.Fatalf("setupCollection: open: %v", err)
	}
	defer st.Close()
	if err := st.CreateSchema(); err != nil {
		t.Fatalf("setupCollection: schema: %v", err)
	}
	if err := st.SetConfig("rollover", "0"); err != nil {
		t.Fatalf("setupCollection: config: %v", err)
	}

	good := make([]revlog.Ease, 13)
	for i := range good {
		good[i] = revlog.Good
	}
	// Three warm-up days, then 2 successes in 10 trials at R=0.9.
	leech := []revlog.Ease{revlog.Good, revlog.Good, revlog.Good, revlog.Good, revlog.Good}
	for i := 0; i < 8; i++ {
		leech = append(leech, revlog.Again)
	}

	addCard(t, st, 1, "Japanese", good)
	addCard(t, st, 2, "Japanese::Vocab", leech)
	return path
}

func addCard(t *testing.T, st *store.Store, id int64, deck string, eases []revlog.Ease) {
	t.Helper()
	if err := st.InsertNote(&store.Note{ID: id, Tags: []string{"vocab"}}); err != nil {
		t.Fatalf("InsertNote() failed: %v", err)
	}
	if err := st.InsertCard(&store.Card{ID: id, NoteID: id, Deck: deck}); err != nil {
		t.Fatalf("InsertCard() failed: %v", err)
	}
	for i, e := range eases {
		row := &store.ReviewRow{
			ID:        baseMs + int64(i)*revlog.SecondsPerDay*1000 + id,
			CardID:    id,
			Ease:      e,
			Kind:      revlog.KindReview,
			Stability: 1,
		}
		if err := st.InsertReview(row); err != nil {
			t.Fatalf("InsertReview() failed: %v", err)
		}
	}
}
