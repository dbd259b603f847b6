package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTestSize(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"512000000", 512_000_000},
		{"100M", 100_000_000},
		{"100m", 100_000_000},
		{"2G", 2_000_000_000},
		{"2g", 2_000_000_000},
		{"1", 1},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTestSize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTestSize_Invalid(t *testing.T) {
	for _, in := range []string{"", "M", "1X", "1K", "12MB", "-5", "1.5G", "G1"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseTestSize(in)
			assert.Error(t, err)
		})
	}

	_, err := ParseTestSize("1X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"X"`, "diagnostic names the unrecognized suffix")
}
