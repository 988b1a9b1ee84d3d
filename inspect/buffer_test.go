package inspect

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireBuffer(t *testing.T) {
	for _, alignment := range []int{512, Alignment, 64 << 10} {
		buf, err := AcquireBuffer(3*Alignment, alignment)
		require.NoError(t, err)

		data := buf.Bytes()
		assert.Equal(t, 3*Alignment, buf.Len())
		assert.Equal(t, 3*Alignment, cap(data))
		assert.Zero(t, uintptr(unsafe.Pointer(&data[0]))%uintptr(alignment), "alignment %d", alignment)

		Fill(0, data)
		_, ok := Check(0, data)
		assert.True(t, ok)

		require.NoError(t, buf.Release())
		require.NoError(t, buf.Release())
		assert.Nil(t, buf.Bytes())
	}
}

func TestAcquireBufferRejectsBadInput(t *testing.T) {
	_, err := AcquireBuffer(0, Alignment)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = AcquireBuffer(Alignment, 3000)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = AcquireBuffer(Alignment, 0)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestReleaseNil(t *testing.T) {
	var buf *AlignedBuffer
	assert.NoError(t, buf.Release())
}
