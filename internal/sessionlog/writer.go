package sessionlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"interview-backend/internal/shared/metrics"
	"interview-backend/internal/shared/telemetry"
)

// DefaultQueueSize is used when New is given a non-positive size.
const DefaultQueueSize = 1000

var errInvalidID = errors.New("invalid session id")

type entry struct {
	sessionID string
	line      []byte
}

// Writer appends session events as NDJSON to {dir}/{session_id}.ndjson from a background
// goroutine. Record never blocks; events that do not fit in the queue are dropped and counted.
type Writer struct {
	dir   string
	queue chan entry
	now   func() time.Time

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Int64
}

// New creates dir if needed and starts the writer.
func New(dir string, queueSize int) (*Writer, error) {
	w, err := newWriter(dir, queueSize)
	if err != nil {
		return nil, err
	}
	go w.run()
	return w, nil
}

func newWriter(dir string, queueSize int) (*Writer, error) {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session log dir: %w", err)
	}
	return &Writer{
		dir:   dir,
		queue: make(chan entry, queueSize),
		now:   func() time.Time { return time.Now().UTC() },
		done:  make(chan struct{}),
	}, nil
}

// Record queues one event for sessionID.
func (w *Writer) Record(sessionID, event string, fields map[string]any) {
	if validID(sessionID) != nil {
		return
	}
	payload := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		payload[k] = v
	}
	payload["ts"] = w.now().Format(time.RFC3339Nano)
	payload["session_id"] = sessionID
	payload["event"] = event

	line, err := json.Marshal(payload)
	if err != nil {
		telemetry.Warn("sessionlog.encode_failed", map[string]any{"session_id": sessionID, "event": event, "error": err.Error()})
		return
	}
	line = append(line, '\n')

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.drop()
		return
	}
	select {
	case w.queue <- entry{sessionID: sessionID, line: line}:
	default:
		w.drop()
	}
}

// WriteSummary writes summary as indented JSON to {dir}/{session_id}.summary.json.
func (w *Writer) WriteSummary(sessionID string, summary any) error {
	if err := validID(sessionID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	final := filepath.Join(w.dir, sessionID+".summary.json")
	tmp, err := os.CreateTemp(w.dir, ".summary-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), final)
}

// Dropped reports how many events were discarded.
func (w *Writer) Dropped() int64 { return w.dropped.Load() }

// Close stops accepting events and waits for queued ones to be written.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		<-w.done
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()
	<-w.done
	return nil
}

func (w *Writer) drop() {
	w.dropped.Add(1)
	metrics.IncSessionLogDropped()
}

func (w *Writer) run() {
	defer close(w.done)
	for e := range w.queue {
		if err := w.append(e); err != nil {
			telemetry.Error("sessionlog.write_failed", map[string]any{"session_id": e.sessionID, "error": err.Error()})
		}
	}
}

func (w *Writer) append(e entry) error {
	f, err := os.OpenFile(filepath.Join(w.dir, e.sessionID+".ndjson"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(e.line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func validID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return errInvalidID
	}
	return nil
}
