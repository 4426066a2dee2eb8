package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndRead(t *testing.T) {
	l := Open(filepath.Join(t.TempDir(), "kgx", "history.jsonl"))

	entries, err := l.Read(10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	base := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(Entry{Timestamp: base, Action: "query", Text: "steel batches", Nodes: 3, Edges: 2}))
	require.NoError(t, l.Append(Entry{Timestamp: base.Add(time.Minute), Action: "expand", Node: "batch-42", Nodes: 2}))
	require.NoError(t, l.Append(Entry{Action: "chat", Text: "who supplies acme"}))

	entries, err = l.Read(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "chat", entries[0].Action)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, "expand", entries[1].Action)
	assert.Equal(t, "query", entries[2].Action)

	entries, err = l.Read(2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n{\"action\":\"query\",\"text\":\"x\"}\n\n"), 0o644))

	entries, err := Open(path).Read(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].Text)
}

func TestSearch(t *testing.T) {
	l := Open(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, l.Append(Entry{Action: "query", Text: "Steel grades"}))
	require.NoError(t, l.Append(Entry{Action: "expand", Node: "steel-304"}))
	require.NoError(t, l.Append(Entry{Action: "chat", Text: "suppliers"}))

	hits, err := l.Search("STEEL", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = l.Search("steel", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestClear(t *testing.T) {
	l := Open(filepath.Join(t.TempDir(), "history.jsonl"))
	assert.NoError(t, l.Clear())
	require.NoError(t, l.Append(Entry{Action: "query"}))
	require.NoError(t, l.Clear())
	entries, err := l.Read(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
