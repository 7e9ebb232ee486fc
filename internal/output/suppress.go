package output

import (
	"fmt"
	"os"
	"sync"
)

var suppressMu sync.Mutex

// Suppress runs fn with the process stdout redirected to the null device,
// silencing anything it prints. Stdout is restored when fn returns, panics
// or fails, and fn's error is passed through. Calls are serialized.
func Suppress(fn func() error) (err error) {
	suppressMu.Lock()
	defer suppressMu.Unlock()

	devNull, openErr := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if openErr != nil {
		return fmt.Errorf("open %s: %w", os.DevNull, openErr)
	}

	saved := os.Stdout
	os.Stdout = devNull
	defer func() {
		os.Stdout = saved
		devNull.Close()
	}()

	return fn()
}
