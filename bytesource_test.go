package ogawa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileByteSourceReadsAndSeeks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.bin")
	content := []byte("0123456789abcdef")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	src, err := OpenFileByteSource(path)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, uint64(len(content)), src.Size())

	buf := make([]byte, 4)
	require.NoError(t, src.ReadExact(buf))
	require.Equal(t, "0123", string(buf))

	require.NoError(t, src.Seek(10))
	require.NoError(t, src.ReadExact(buf))
	require.Equal(t, "abcd", string(buf))

	require.Error(t, src.Seek(uint64(len(content)+1)))

	require.NoError(t, src.Seek(uint64(len(content)-2)))
	require.Error(t, src.ReadExact(buf), "read past end of file must fail")
}

func TestMmapByteSourceReadsAndSeeks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.bin")
	content := []byte("the quick brown fox")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	src, err := OpenMmapByteSource(path)
	require.NoError(t, err)
	defer src.Close()

	require.Equal(t, uint64(len(content)), src.Size())

	require.NoError(t, src.Seek(4))
	buf := make([]byte, 5)
	require.NoError(t, src.ReadExact(buf))
	require.Equal(t, "quick", string(buf))

	require.Error(t, src.Seek(uint64(len(content)+10)))
}

func TestMemByteSourceMatchesContract(t *testing.T) {
	src := newMemByteSource([]byte("abcdef"))
	require.Equal(t, uint64(6), src.Size())

	require.NoError(t, src.Seek(2))
	buf := make([]byte, 3)
	require.NoError(t, src.ReadExact(buf))
	require.Equal(t, "cde", string(buf))

	require.Error(t, src.ReadExact(make([]byte, 10)))
}
