// Package accesslog keeps an append-only JSONL trail of API actions: who
// ran which agent or market analysis, and how it ended.
package accesslog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"salesintel/internal/domain"
	"salesintel/internal/infra/tracer"
)

// Outcomes recorded for an action.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// Entry is one line of the access log.
type Entry struct {
	Timestamp time.Time         `json:"timestamp"`
	Actor     string            `json:"actor"`
	Resource  string            `json:"resource"`
	Action    string            `json:"action"`
	Outcome   string            `json:"outcome"`
	Detail    map[string]string `json:"detail,omitempty"`
}

// Retention bounds the log. Zero fields mean no limit.
type Retention struct {
	MaxAge  time.Duration
	MaxSize int64 // bytes
}

// File appends entries to a JSONL file.
type File struct {
	mu        sync.Mutex
	file      *os.File
	path      string
	retention Retention
}

// Open appends to path, creating it with 0600 permissions.
func Open(path string, retention Retention) (*File, error) {
	f, err := openAppend(path)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	return &File{file: f, path: path, retention: retention}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
}

// Record writes e as one line and mirrors it as an event on the active span.
func (l *File) Record(ctx context.Context, e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return domain.NewSubSystemError("accesslog", "File.Record", domain.ErrAccessLog, err.Error())
	}

	l.mu.Lock()
	_, err = l.file.Write(append(data, '\n'))
	l.mu.Unlock()
	if err != nil {
		return domain.NewSubSystemError("accesslog", "File.Record", domain.ErrAccessLog, err.Error())
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		attrs := []attribute.KeyValue{
			tracer.StringAttr("access.actor", e.Actor),
			tracer.StringAttr("access.resource", e.Resource),
			tracer.StringAttr("access.outcome", e.Outcome),
		}
		for k, v := range e.Detail {
			attrs = append(attrs, tracer.StringAttr("access."+k, v))
		}
		span.AddEvent("access."+e.Action, trace.WithAttributes(attrs...))
	}
	return nil
}

// Close closes the file.
func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Enforce rewrites the log keeping only entries within the retention
// bounds. Oldest entries go first when the size bound is exceeded.
func (l *File) Enforce(ctx context.Context) (removed int, err error) {
	if l.retention.MaxAge <= 0 && l.retention.MaxSize <= 0 {
		return 0, nil
	}
	var cutoff time.Time
	if l.retention.MaxAge > 0 {
		cutoff = time.Now().Add(-l.retention.MaxAge)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	kept, removed, err := l.readKept(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	if err := l.file.Close(); err != nil {
		return 0, fmt.Errorf("close for retention: %w", err)
	}
	tmpPath := l.path + ".tmp"
	writeErr := writeLines(tmpPath, kept)
	if writeErr == nil {
		writeErr = os.Rename(tmpPath, l.path)
	}
	if writeErr != nil {
		os.Remove(tmpPath)
	}
	if l.file, err = openAppend(l.path); err != nil {
		return removed, fmt.Errorf("reopen access log: %w", err)
	}
	if writeErr != nil {
		return 0, fmt.Errorf("rewrite access log: %w", writeErr)
	}
	return removed, nil
}

func (l *File) readKept(ctx context.Context, cutoff time.Time) ([][]byte, int, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, 0, fmt.Errorf("open for retention: %w", err)
	}
	defer f.Close()

	var (
		kept    [][]byte
		size    int64
		removed int
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !cutoff.IsZero() {
			var e struct {
				Timestamp time.Time `json:"timestamp"`
			}
			if json.Unmarshal(line, &e) == nil && e.Timestamp.Before(cutoff) {
				removed++
				continue
			}
		}
		kept = append(kept, append([]byte(nil), line...))
		size += int64(len(line)) + 1
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan access log: %w", err)
	}

	if limit := l.retention.MaxSize; limit > 0 {
		for len(kept) > 0 && size > limit {
			size -= int64(len(kept[0])) + 1
			kept = kept[1:]
			removed++
		}
	}
	return kept, removed, nil
}

func writeLines(path string, lines [][]byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, line := range lines {
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
