package web

import (
	"context"
	"io"
	"os"
	"time"
)

// tailInterval is the log poll period.
const tailInterval = 500 * time.Millisecond

// tailer polls one log file and pushes content deltas to a single
// subscriber. The first poll delivers everything written so far, later
// polls only what was appended. A file that does not exist yet reads as
// empty; the job may simply not have started.
type tailer struct {
	path  string
	topic string

	// send delivers a frame to the subscriber; false means the
	// subscriber is gone and the tail should stop.
	send func(LogFrame) bool
}

// run polls until the context is cancelled or the subscriber detaches.
// Read errors emit one log_error frame and end this tail only.
func (t *tailer) run(ctx context.Context) {
	var offset int64

	ticker := time.NewTicker(tailInterval)
	defer ticker.Stop()

	for {
		delta, newOffset, err := readDelta(t.path, offset)
		if err != nil {
			t.send(LogFrame{Type: "log_error", Topic: t.topic, Error: err.Error()})
			return
		}
		offset = newOffset

		if len(delta) > 0 {
			if !t.send(LogFrame{Type: "log_update", Topic: t.topic, Content: string(delta)}) {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// readDelta returns the bytes appended to path since offset. A missing
// file reads as empty; a truncated file restarts from the beginning.
func readDelta(path string, offset int64) ([]byte, int64, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, offset, nil
	}
	if err != nil {
		return nil, offset, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, offset, err
	}
	if stat.Size() < offset {
		offset = 0
	}
	if stat.Size() == offset {
		return nil, offset, nil
	}

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, err
	}
	delta, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, err
	}

	return delta, offset + int64(len(delta)), nil
}
