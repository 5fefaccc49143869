package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/intelligrit/wingstack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailureLogAppendsWithoutTouchingExistingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.jsonl")
	existing := `{"timestamp":"2024-01-01T00:00:00Z","flow":"trip-request","reason":"old","input":"x","fallback":{"legs":[],"passenger_count":"","budget":""}}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	log, err := OpenFailureLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Record(context.Background(), model.ExtractionFailureRecord{
		Timestamp: time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC),
		Flow:      "trip-request",
		Reason:    "new",
		Input:     "line one\nline two",
		Fallback:  model.EmptyTripRequest(),
	}))
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(data) > len(existing))
	assert.Equal(t, existing, string(data[:len(existing)]))

	recs, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "old", recs[0].Reason)
	assert.Equal(t, "line one\nline two", recs[1].Input)
}

func TestFailureLogConcurrentRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.jsonl")
	log, err := OpenFailureLog(path)
	require.NoError(t, err)

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := log.Record(context.Background(), model.ExtractionFailureRecord{
				Flow:     "trip-request",
				Input:    fmt.Sprintf("request %d %s", i, string(make([]byte, 4096))),
				Fallback: model.EmptyTripRequest(),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	require.NoError(t, log.Close())

	n, err := CountRecords(path)
	require.NoError(t, err)
	assert.Equal(t, writers, n)

	recs, err := ReadRecords(path)
	require.NoError(t, err)
	assert.Len(t, recs, writers)
}

func TestFailureLogClosed(t *testing.T) {
	log, err := OpenFailureLog(filepath.Join(t.TempDir(), "f.jsonl"))
	require.NoError(t, err)
	require.NoError(t, log.Close())
	assert.Error(t, log.Record(context.Background(), model.ExtractionFailureRecord{}))
}

func TestCountRecordsMissingFile(t *testing.T) {
	n, err := CountRecords(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.NoError(t, err)
	assert.Zero(t, n)
}
