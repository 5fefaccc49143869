package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/intelligrit/wingstack/internal/metrics"
	"github.com/intelligrit/wingstack/internal/model"
)

// FileFailureLog appends failure records to a JSON Lines file. Each record is
// written with a single Write under a mutex, so concurrent records never
// interleave and earlier lines are never touched.
type FileFailureLog struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenFailureLog opens path for appending, creating it and its directory if
// needed.
func OpenFailureLog(path string) (*FileFailureLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating failure log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening failure log: %w", err)
	}
	return &FileFailureLog{path: path, f: f}, nil
}

func (l *FileFailureLog) Record(_ context.Context, rec model.ExtractionFailureRecord) error {
	line, err := json.Marshal(rec)
	if err != nil {
		metrics.FailureLogWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("encoding failure record: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return errors.New("failure log is closed")
	}
	if _, err := l.f.Write(line); err != nil {
		metrics.FailureLogWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("appending failure record: %w", err)
	}
	metrics.FailureLogWrites.WithLabelValues("ok").Inc()
	return nil
}

// Path returns the file the log appends to.
func (l *FileFailureLog) Path() string { return l.path }

func (l *FileFailureLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// CountRecords returns the number of lines in the failure log at path. A
// missing file has zero records.
func CountRecords(path string) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	buf := make([]byte, 32*1024)
	for {
		n, err := f.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}

// ReadRecords decodes every record in the failure log at path.
func ReadRecords(path string) ([]model.ExtractionFailureRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var recs []model.ExtractionFailureRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var rec model.ExtractionFailureRecord
		if err := dec.Decode(&rec); err != nil {
			return recs, fmt.Errorf("decoding record %d: %w", len(recs)+1, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
