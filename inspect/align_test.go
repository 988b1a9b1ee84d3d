package inspect

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignUpDown(t *testing.T) {
	cases := []struct {
		v, up, down uint64
	}{
		{0, 0, 0},
		{1, 4096, 0},
		{4095, 4096, 0},
		{4096, 4096, 4096},
		{4097, 8192, 4096},
		{1 << 20, 1 << 20, 1 << 20},
	}
	for _, c := range cases {
		assert.Equal(t, c.up, AlignUp(c.v, Alignment), "AlignUp(%d)", c.v)
		assert.Equal(t, c.down, AlignDown(c.v, Alignment), "AlignDown(%d)", c.v)
	}
	assert.Equal(t, uint64(7), AlignUp(7, 0))
	assert.Equal(t, uint64(7), AlignDown(7, 0))
}

func TestResolveBlockSize(t *testing.T) {
	got, err := ResolveBlockSize(1)
	require.NoError(t, err)
	assert.Equal(t, 4096, got)

	got, err = ResolveBlockSize(4 << 20)
	require.NoError(t, err)
	assert.Equal(t, 4<<20, got)

	got, err = ResolveBlockSize(5000)
	require.NoError(t, err)
	assert.Equal(t, 8192, got)

	_, err = ResolveBlockSize(0)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = ResolveBlockSize(-4096)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}
