package jsonlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	Seq int `json:"seq"`
}

func TestAppendEvictsOldestBeyondLimit(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "prices.json"))

	for i := 1; i <= DefaultLimit+5; i++ {
		require.NoError(t, log.Append(record{Seq: i}))
	}

	entries := log.Entries()
	require.Len(t, entries, DefaultLimit)

	var first, last record
	require.NoError(t, json.Unmarshal(entries[0], &first))
	require.NoError(t, json.Unmarshal(entries[len(entries)-1], &last))
	require.Equal(t, 6, first.Seq)
	require.Equal(t, DefaultLimit+5, last.Seq)
}

func TestAppendKeepsInsertionOrder(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "trades.json"))

	for i := 1; i <= 10; i++ {
		require.NoError(t, log.Append(record{Seq: i}))
	}

	entries := log.Entries()
	require.Len(t, entries, 10)
	for i, entry := range entries {
		var r record
		require.NoError(t, json.Unmarshal(entry, &r))
		require.Equal(t, i+1, r.Seq)
	}
}

func TestMalformedContentRecoversToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opportunities.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json at all"), 0o644))

	log := New(path)
	require.Empty(t, log.Entries())

	require.NoError(t, log.Append(record{Seq: 1}))
	entries := log.Entries()
	require.Len(t, entries, 1)

	var r record
	require.NoError(t, json.Unmarshal(entries[0], &r))
	require.Equal(t, 1, r.Seq)
}

func TestMissingAndEmptyFilesReadAsEmpty(t *testing.T) {
	dir := t.TempDir()

	missing := New(filepath.Join(dir, "missing.json"))
	require.Empty(t, missing.Entries())

	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o644))
	require.Empty(t, New(emptyPath).Entries())
}

func TestAppendCreatesLogDir(t *testing.T) {
	log := New(filepath.Join(t.TempDir(), "nested", "deep", "prices.json"))
	require.NoError(t, log.Append(record{Seq: 1}))
	require.Len(t, log.Entries(), 1)
}

func TestNoPartialFileVisibleAfterAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.json")
	log := New(path)

	for i := 0; i < 20; i++ {
		require.NoError(t, log.Append(record{Seq: i}))

		payload, err := os.ReadFile(path)
		require.NoError(t, err)
		var entries []json.RawMessage
		require.NoError(t, json.Unmarshal(payload, &entries), "file content: %s", payload)
	}

	// no temp file left behind
	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), fmt.Sprintf("unexpected stat result: %v", err))
}
