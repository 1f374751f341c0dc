package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullRecordsWrites(t *testing.T) {
	n := NewNull()
	f := Format{SampleRate: 48000, Channels: 1, SamplesPerChannel: 240}
	require.NoError(t, n.Open(f))
	assert.Equal(t, f, n.Format())

	require.NoError(t, n.Write(make([]int16, 240)))
	require.NoError(t, n.Write(make([]int16, 240)))
	assert.Equal(t, 2, n.Writes())
	require.NoError(t, n.Close())
}

func TestNullSatisfiesSink(t *testing.T) {
	var s Sink = NewNull()
	require.NoError(t, s.Open(Format{SampleRate: 16000, Channels: 2, SamplesPerChannel: 80}))
	require.NoError(t, s.Write(make([]int16, 160)))
	require.NoError(t, s.Close())
}
