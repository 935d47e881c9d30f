package ogawa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
)

// ByteSource is the seekable, absolute-offset read interface the decoder
// consumes. Every decoder component borrows a ByteSource exclusively for
// the duration of a seek-and-read; there is no concurrent-read guarantee
// for a single ByteSource (see the package doc for the concurrency model).
type ByteSource interface {
	// Size returns the total number of addressable bytes.
	Size() uint64

	// Seek moves the cursor to an absolute byte offset. It returns
	// ErrIO if offset is past Size().
	Seek(offset uint64) error

	// ReadExact fills buf entirely from the current cursor position,
	// advancing the cursor by len(buf). It returns ErrIO on a short read
	// or if the read would run past Size().
	ReadExact(buf []byte) error
}

// FileByteSource is a buffered, file-backed [ByteSource].
type FileByteSource struct {
	f    *os.File
	br   *bufio.Reader
	pos  uint64
	size uint64
}

// OpenFileByteSource opens filename and wraps it in a [FileByteSource].
// The caller must call Close when done.
func OpenFileByteSource(filename string) (*FileByteSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", filename, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("statting archive %s: %w", filename, err)
	}

	return &FileByteSource{
		f:    f,
		br:   bufio.NewReader(f),
		size: uint64(info.Size()),
	}, nil
}

// Close closes the underlying file.
func (s *FileByteSource) Close() error {
	return s.f.Close()
}

func (s *FileByteSource) Size() uint64 { return s.size }

func (s *FileByteSource) Seek(offset uint64) error {
	if offset > s.size {
		return fmt.Errorf("seek to %d past archive size %d: %w", offset, s.size, ErrIO)
	}

	if _, err := s.f.Seek(int64(offset), io.SeekStart); err != nil {
		return fmt.Errorf("seeking archive: %w", errors.Join(ErrIO, err))
	}

	s.br.Reset(s.f)
	s.pos = offset
	return nil
}

func (s *FileByteSource) ReadExact(buf []byte) error {
	if s.pos+uint64(len(buf)) > s.size {
		return fmt.Errorf("read past archive size at offset %d: %w", s.pos, ErrIO)
	}

	if _, err := io.ReadFull(s.br, buf); err != nil {
		return fmt.Errorf("reading archive at offset %d: %w", s.pos, errors.Join(ErrIO, err))
	}

	s.pos += uint64(len(buf))
	return nil
}

// MmapByteSource is a memory-mapped [ByteSource], backed by
// github.com/edsrzf/mmap-go. It avoids the buffered-copy overhead of
// [FileByteSource] for archives accessed with many small, scattered reads.
type MmapByteSource struct {
	f    *os.File
	mm   mmap.MMap
	pos  uint64
	size uint64
}

// OpenMmapByteSource memory-maps filename read-only and wraps it in a
// [MmapByteSource]. The caller must call Close when done.
func OpenMmapByteSource(filename string) (*MmapByteSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", filename, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("statting archive %s: %w", filename, err)
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mapping archive %s: %w", filename, err)
	}

	return &MmapByteSource{
		f:    f,
		mm:   mm,
		size: uint64(info.Size()),
	}, nil
}

// Close unmaps the region and closes the underlying file.
func (s *MmapByteSource) Close() error {
	if err := s.mm.Unmap(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("unmapping archive: %w", err)
	}

	return s.f.Close()
}

func (s *MmapByteSource) Size() uint64 { return s.size }

func (s *MmapByteSource) Seek(offset uint64) error {
	if offset > s.size {
		return fmt.Errorf("seek to %d past archive size %d: %w", offset, s.size, ErrIO)
	}

	s.pos = offset
	return nil
}

func (s *MmapByteSource) ReadExact(buf []byte) error {
	end := s.pos + uint64(len(buf))
	if end > s.size {
		return fmt.Errorf("read past archive size at offset %d: %w", s.pos, ErrIO)
	}

	copy(buf, s.mm[s.pos:end])
	s.pos = end
	return nil
}
