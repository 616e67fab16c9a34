package codec

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/OCAP2/campath/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNative_RoundTripIsBitExact(t *testing.T) {
	seq := testSequence()

	var buf bytes.Buffer
	require.NoError(t, EncodeNative(&buf, seq))
	assert.Equal(t, len(seq)*NativeRecordSize, buf.Len())
	first := append([]byte(nil), buf.Bytes()...)

	got, err := DecodeNative(&buf)
	require.NoError(t, err)
	assert.Equal(t, seq, got)

	var again bytes.Buffer
	require.NoError(t, EncodeNative(&again, got))
	assert.Equal(t, first, again.Bytes())
}

func TestNative_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeNative(&buf, nil))
	assert.Zero(t, buf.Len())

	got, err := DecodeNative(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNative_TruncatedIsMalformed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeNative(&buf, testSequence()))

	truncated := buf.Bytes()[:buf.Len()-3]
	_, err := DecodeNative(bytes.NewReader(truncated))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestNative_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera-record.bytes")
	seq := testSequence()

	require.NoError(t, SaveNative(path, seq))
	got, err := LoadNative(path)
	require.NoError(t, err)
	assert.Equal(t, seq, got)

	_, err = LoadNative(filepath.Join(t.TempDir(), "missing.bytes"))
	assert.Error(t, err)
}

func TestNative_KeepsClipPlanes(t *testing.T) {
	seq := core.Sequence{{Near: 0.25, Far: 75, FovY: 1, Aspect: 2}}

	var buf bytes.Buffer
	require.NoError(t, EncodeNative(&buf, seq))
	got, err := DecodeNative(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0.25, got[0].Near)
	assert.Equal(t, 75.0, got[0].Far)
}
