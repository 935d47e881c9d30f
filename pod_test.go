package ogawa

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPodEnumTotality(t *testing.T) {
	// Spec §8 property 7: every declared POD tag (0-13, plus the 127
	// "unknown" sentinel) has a defined String() and a defined podSize()
	// classification (fixed-width or variable).
	known := []PodType{
		PodBoolean, PodU8, PodI8, PodU16, PodI16, PodU32, PodI32,
		PodU64, PodI64, PodF16, PodF32, PodF64, PodString, PodWString,
		PodUnknown,
	}

	for _, p := range known {
		s := p.String()
		require.NotContains(t, s, "PodType(", "pod %d should have a named String()", p)

		_, fixedWidth := podSize(p)
		switch p {
		case PodString, PodWString, PodUnknown:
			require.False(t, fixedWidth)
		default:
			require.True(t, fixedWidth)
		}
	}
}

func TestDecodeTypedArrayNumeric(t *testing.T) {
	b := newChunkBuilder()

	elems := append(f32le(1.5), f32le(-2.25)...)
	off := b.dataChunk(typedArrayPayload(elems))

	src := newMemByteSource(b.buf)
	d, err := loadDataChunk(src, off)
	require.NoError(t, err)

	arr, err := decodeTypedArray(src, d, PodF32)
	require.NoError(t, err)
	require.Equal(t, []float32{1.5, -2.25}, arr.F32)
}

func TestDecodeTypedArrayString(t *testing.T) {
	b := newChunkBuilder()

	// "bar" has no trailing null terminator and must be dropped: only
	// null-terminated segments are strings.
	body := append([]byte("foo\x00"), []byte("bar")...)
	off := b.dataChunk(typedArrayPayload(body))

	src := newMemByteSource(b.buf)
	d, err := loadDataChunk(src, off)
	require.NoError(t, err)

	arr, err := decodeTypedArray(src, d, PodString)
	require.NoError(t, err)
	require.Equal(t, []string{"foo"}, arr.String)
}

func TestDecodeTypedArrayEmptyChunk(t *testing.T) {
	src := newMemByteSource(nil)
	arr, err := decodeTypedArray(src, DataChunk{}, PodF64)
	require.NoError(t, err)
	require.Nil(t, arr.F64)
}

func TestDecodeTypedArrayRejectsWString(t *testing.T) {
	b := newChunkBuilder()
	off := b.dataChunk(typedArrayPayload([]byte{1, 2, 3, 4}))
	src := newMemByteSource(b.buf)
	d, err := loadDataChunk(src, off)
	require.NoError(t, err)

	_, err = decodeTypedArray(src, d, PodWString)
	require.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestDecodeTypedArrayRejectsBoolean(t *testing.T) {
	b := newChunkBuilder()
	off := b.dataChunk(typedArrayPayload([]byte{1, 0, 1, 0}))
	src := newMemByteSource(b.buf)
	d, err := loadDataChunk(src, off)
	require.NoError(t, err)

	_, err = decodeTypedArray(src, d, PodBoolean)
	require.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestDecodeTypedArrayBodyNotDivisible(t *testing.T) {
	b := newChunkBuilder()
	// 3 extra bytes: not divisible by the 4-byte element size of F32.
	off := b.dataChunk(typedArrayPayload([]byte{1, 2, 3}))
	src := newMemByteSource(b.buf)
	d, err := loadDataChunk(src, off)
	require.NoError(t, err)

	_, err = decodeTypedArray(src, d, PodF32)
	require.ErrorIs(t, err, ErrInvalidArchive)
}

func TestChunkVectorBy3(t *testing.T) {
	out, err := chunkVectorBy3([]float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	require.Equal(t, [][3]float32{{1, 2, 3}, {4, 5, 6}}, out)

	_, err = chunkVectorBy3([]float32{1, 2})
	require.ErrorIs(t, err, ErrInvalidArchive)
}
