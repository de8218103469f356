package refstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utnfrba-so/go-nachos-vm/pkg/memsim"
)

func TestRecorderCoalescesRepeatsAndReplaysBack(t *testing.T) {
	fs := memsim.NewFileSystem()

	rec, err := NewRecorder(fs, 7)
	require.NoError(t, err)

	for _, vpn := range []int{0, 0, 1, 1, 1, 2, 0, 0} {
		rec.Record(vpn)
	}
	require.NoError(t, rec.Close())

	replay, err := Load(fs, 7)
	require.NoError(t, err)

	assert.Equal(t, 4, replay.Len())
	assert.Equal(t, 0, replay.At())
}

func TestReplayerNextOccurrence(t *testing.T) {
	fs := memsim.NewFileSystem()
	rec, err := NewRecorder(fs, 1)
	require.NoError(t, err)
	for _, vpn := range []int{0, 1, 2, 1, 0} {
		rec.Record(vpn)
	}
	require.NoError(t, rec.Close())

	replay, err := Load(fs, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, replay.NextOccurrence(1, 1))
	assert.Equal(t, -1, replay.NextOccurrence(2, 3))
}

func TestReplayerAdvanceRejectsMismatch(t *testing.T) {
	fs := memsim.NewFileSystem()
	rec, err := NewRecorder(fs, 2)
	require.NoError(t, err)
	rec.Record(0)
	rec.Record(1)
	require.NoError(t, rec.Close())

	replay, err := Load(fs, 2)
	require.NoError(t, err)

	assert.True(t, replay.Advance(0), "duplicate access must not advance")
	assert.True(t, replay.Advance(1))
	assert.False(t, replay.Advance(5), "unexpected vpn must be reported as a mismatch")
}

func TestLoadRejectsOddLength(t *testing.T) {
	fs := memsim.NewFileSystem()
	require.NoError(t, fs.Create(BinaryName(3), 3))

	_, err := Load(fs, 3)
	assert.Error(t, err)
}
