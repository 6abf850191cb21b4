package txn

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

const (
	lockRetryDelay = 5 * time.Millisecond
	lockWaitLimit  = 2 * time.Second
)

// acquireLock opens (creating if necessary) the lock file at path and
// takes an exclusive, non-blocking advisory flock on it, retrying until
// lockWaitLimit elapses. A uuid nonce plus the holding pid is written to
// the file purely for diagnostics: it is never read back for correctness.
func acquireLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock %q: %w", path, err)
	}

	deadline := time.Now().Add(lockWaitLimit)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("flock %q: %w", path, err)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, fmt.Errorf("timeout acquiring lock %q", path)
		}
		time.Sleep(lockRetryDelay)
	}

	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%s %d\n", uuid.New().String(), os.Getpid())
	}
	return f, nil
}

// releaseLock unlocks, closes, and unlinks the lock file.
func releaseLock(f *os.File, path string) error {
	_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
	if err := f.Close(); err != nil {
		return fmt.Errorf("close lock %q: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock %q: %w", path, err)
	}
	return nil
}
