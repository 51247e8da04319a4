package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeInt(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want any
	}{
		{"42", 42},
		{" 42 ", 42},
		{"-3", -3},
		{float64(5), 5},
		{int64(9), 9},
	} {
		got, err := Normalize(KindInt, tc.in)
		require.NoError(t, err, "%#v", tc.in)
		require.Equal(t, tc.want, got, "%#v", tc.in)
	}
	for _, in := range []any{"42abc", "7 8", "12.9", "", float64(2.5), true} {
		_, err := Normalize(KindInt, in)
		require.Error(t, err, "%#v", in)
	}
}

func TestNormalizeTime(t *testing.T) {
	got, err := Normalize(KindTime, "2024-01-02T03:04:05Z")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got)

	_, err = Normalize(KindTime, "yesterday")
	require.Error(t, err)
}

func TestCompare(t *testing.T) {
	require.Equal(t, -1, Compare(nil, 1))
	require.Equal(t, 0, Compare(2, float64(2)))
	require.Equal(t, 1, Compare("b", "a"))
	require.Equal(t, -1, Compare(false, true))
}
