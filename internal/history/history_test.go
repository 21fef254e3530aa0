// Copyright (c) 2026 dotandev
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Record(&Run{
		OutPath: "out.dex", APath: "a.dex", BPath: "b.dex",
		ADefs: 3, BDefs: 2, OutDefs: 5,
		OutBytes: 4096, WastedBytes: 100, Compacted: true, DurationMS: 12,
	}))
	require.NoError(t, store.Record(&Run{
		OutPath: "other.dex", APath: "c.dex", BPath: "d.dex",
		ADefs: 1, BDefs: 1, OutDefs: 2,
		OutBytes: 1024, DurationMS: 3,
	}))

	runs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "other.dex", runs[0].OutPath)
	assert.Equal(t, "out.dex", runs[1].OutPath)
	assert.Equal(t, 5, runs[1].OutDefs)
	assert.True(t, runs[1].Compacted)
	assert.False(t, runs[0].Timestamp.IsZero())
}

func TestRecentLimit(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(&Run{OutPath: "o", APath: "a", BPath: "b"}))
	}

	runs, err := store.Recent(3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRecentEmpty(t *testing.T) {
	store := openTestStore(t)

	runs, err := store.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
