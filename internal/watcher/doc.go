// Package watcher re-runs a callback when a SQLite collection changes on disk.
//
// The collection's directory is watched with fsnotify so that writes to the
// database file and to its -wal and -journal companions are all seen, and
// replacing the file by rename is picked up too. Events are debounced: the
// callback runs once the file has been quiet for the debounce interval.
//
// Example usage:
//
//	w, err := watcher.New("/data/collection.db", 2*time.Second, func(ctx context.Context) error {
//		_, err := sc.Scan(ctx, opts)
//		return err
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Blocks until SIGINT, SIGTERM or ctx is done
//	if err := w.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package watcher
