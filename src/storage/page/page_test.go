package page

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageIntRoundTrip(t *testing.T) {
	tests := []int32{0, 1, -1, 345, math.MaxInt32, math.MinInt32}

	p := New(400)
	for _, val := range tests {
		require.NoError(t, p.SetInt(80, val))

		got, err := p.GetInt(80)
		require.NoError(t, err)
		require.Equal(t, val, got)
	}
}

func TestPageStringRoundTrip(t *testing.T) {
	tests := []string{"", "a", "abcdefghijklm", "héllo wörld"}

	p := New(400)
	for _, val := range tests {
		require.NoError(t, p.SetString(88, val))

		got, err := p.GetString(88)
		require.NoError(t, err)
		require.Equal(t, val, got)
	}
}

func TestPageAdjacentValues(t *testing.T) {
	p := New(400)

	pos1 := 88
	require.NoError(t, p.SetString(pos1, "abcdefghijklm"))

	pos2 := pos1 + MaxLength(len("abcdefghijklm"))
	require.NoError(t, p.SetInt(pos2, 345))

	s, err := p.GetString(pos1)
	require.NoError(t, err)
	require.Equal(t, "abcdefghijklm", s)

	n, err := p.GetInt(pos2)
	require.NoError(t, err)
	require.Equal(t, int32(345), n)
}

func TestPageOutOfBounds(t *testing.T) {
	p := New(16)

	require.ErrorIs(t, p.SetInt(14, 1), ErrOutOfBounds)
	require.ErrorIs(t, p.SetInt(-1, 1), ErrOutOfBounds)
	require.ErrorIs(t, p.SetString(10, "too long"), ErrOutOfBounds)

	_, err := p.GetInt(20)
	require.ErrorIs(t, err, ErrOutOfBounds)

	// length prefix says more bytes than the page holds
	require.NoError(t, p.SetInt(8, 1000))
	_, err = p.GetBytes(8)
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestMaxLength(t *testing.T) {
	require.Equal(t, 4, MaxLength(0))
	require.Equal(t, 17, MaxLength(13))
}
