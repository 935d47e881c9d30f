package ogawa

import (
	"encoding/binary"
	"fmt"
)

const (
	groupTagBit  uint64 = 1 << 63
	addressMask  uint64 = groupTagBit - 1
	emptyGroup   uint64 = 0
	emptyDataTag uint64 = groupTagBit
)

// isGroupOffset reports whether a tagged child offset addresses a group
// chunk (bit 63 clear).
func isGroupOffset(tagged uint64) bool { return tagged&groupTagBit == 0 }

// isDataOffset reports whether a tagged child offset addresses a data
// chunk (bit 63 set).
func isDataOffset(tagged uint64) bool { return tagged&groupTagBit != 0 }

// addressFromOffset strips the kind tag from a tagged child offset,
// yielding the absolute byte address it points at.
func addressFromOffset(tagged uint64) uint64 { return tagged & addressMask }

func isEmptyGroupOffset(tagged uint64) bool { return tagged == emptyGroup }
func isEmptyDataOffset(tagged uint64) bool  { return tagged == emptyDataTag }

// GroupChunk is a node of the chunk graph holding a count-prefixed vector
// of tagged child offsets. A "light" group defers loading that vector;
// children are instead fetched on demand by re-seeking to their slot.
type GroupChunk struct {
	position   uint64
	childCount uint64
	children   []uint64 // nil when light and not yet materialised
	light      bool
}

// loadGroupChunk decodes the group chunk at the tagged offset off. Passing
// light=true defers loading the child-offset vector when childCount >= 9,
// per the spec's "light group" mode.
func loadGroupChunk(src ByteSource, off uint64, light bool) (GroupChunk, error) {
	if isEmptyGroupOffset(off) {
		return GroupChunk{position: 0}, nil
	}

	position := addressFromOffset(off)

	if err := src.Seek(position); err != nil {
		return GroupChunk{}, err
	}

	var buf [8]byte
	if err := src.ReadExact(buf[:]); err != nil {
		return GroupChunk{}, err
	}
	childCount := binary.LittleEndian.Uint64(buf[:])

	if childCount == 0 || childCount > src.Size()/8 {
		// Malformed-but-tolerated trailer: treat as having zero children,
		// keeping the original position so offset-based callers still
		// agree on chunk identity.
		return GroupChunk{position: position}, nil
	}

	g := GroupChunk{position: position, childCount: childCount, light: light}

	if !light || childCount < 9 {
		children := make([]uint64, childCount)
		for i := range children {
			if err := src.ReadExact(buf[:]); err != nil {
				return GroupChunk{}, err
			}
			children[i] = binary.LittleEndian.Uint64(buf[:])
		}
		g.children = children
	}

	return g, nil
}

// ChildCount returns the number of tagged children this group holds.
func (g GroupChunk) ChildCount() uint64 { return g.childCount }

// childOffset returns the tagged offset of child index, reading it
// directly from disk when the group is light and the vector was never
// materialised.
func (g GroupChunk) childOffset(src ByteSource, index uint64) (uint64, error) {
	if index >= g.childCount {
		return 0, fmt.Errorf("child %d of group with %d children: %w", index, g.childCount, ErrOutOfBounds)
	}

	if g.children != nil {
		return g.children[index], nil
	}

	// Light group: re-seek directly to the slot for this child.
	if err := src.Seek(g.position + 8 + 8*index); err != nil {
		return 0, err
	}

	var buf [8]byte
	if err := src.ReadExact(buf[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}

// LoadGroup loads child index of g as a group chunk. Returns
// ErrInvalidArchive if that child is tagged as a non-empty data chunk; the
// empty-data sentinel is accepted.
func (g GroupChunk) LoadGroup(src ByteSource, index uint64, light bool) (GroupChunk, error) {
	off, err := g.childOffset(src, index)
	if err != nil {
		return GroupChunk{}, err
	}

	if isDataOffset(off) && !isEmptyDataOffset(off) {
		return GroupChunk{}, fmt.Errorf("child %d: data chunk read as group: %w", index, ErrInvalidArchive)
	}

	return loadGroupChunk(src, off, light)
}

// LoadData loads child index of g as a data chunk. Returns
// ErrInvalidArchive if that child is tagged as a non-empty group chunk;
// the empty-group sentinel is accepted and yields an empty data chunk.
func (g GroupChunk) LoadData(src ByteSource, index uint64) (DataChunk, error) {
	off, err := g.childOffset(src, index)
	if err != nil {
		return DataChunk{}, err
	}

	if isGroupOffset(off) && !isEmptyGroupOffset(off) {
		return DataChunk{}, fmt.Errorf("child %d: group chunk read as data: %w", index, ErrInvalidArchive)
	}

	return loadDataChunk(src, off)
}

// ChildIsGroup reports whether child index of g is tagged as a group
// chunk, without loading it.
func (g GroupChunk) ChildIsGroup(src ByteSource, index uint64) (bool, error) {
	off, err := g.childOffset(src, index)
	if err != nil {
		return false, err
	}
	return isGroupOffset(off), nil
}

// ChildIsData reports whether child index of g is tagged as a data
// chunk, without loading it.
func (g GroupChunk) ChildIsData(src ByteSource, index uint64) (bool, error) {
	off, err := g.childOffset(src, index)
	if err != nil {
		return false, err
	}
	return isDataOffset(off), nil
}

// DataChunk is a node of the chunk graph holding a length-prefixed byte
// payload.
type DataChunk struct {
	position uint64
	Size     uint64
}

func loadDataChunk(src ByteSource, off uint64) (DataChunk, error) {
	position := addressFromOffset(off)

	if position == 0 {
		return DataChunk{position: 0, Size: 0}, nil
	}

	if err := src.Seek(position); err != nil {
		return DataChunk{}, err
	}

	var buf [8]byte
	if err := src.ReadExact(buf[:]); err != nil {
		return DataChunk{}, err
	}

	return DataChunk{position: position, Size: binary.LittleEndian.Uint64(buf[:])}, nil
}

// Read fills buf with Size(buf) bytes of the chunk payload starting at
// offsetWithinPayload.
func (d DataChunk) Read(src ByteSource, offsetWithinPayload uint64, buf []byte) error {
	if d.Size == 0 {
		return fmt.Errorf("read from empty data chunk: %w", ErrInvalidArchive)
	}

	if offsetWithinPayload+uint64(len(buf)) > d.Size {
		return fmt.Errorf("read %d bytes at offset %d exceeds chunk size %d: %w",
			len(buf), offsetWithinPayload, d.Size, ErrInvalidArchive)
	}

	if err := src.Seek(d.position + 8 + offsetWithinPayload); err != nil {
		return err
	}

	return src.ReadExact(buf)
}

// ReadAll reads the entire payload of d.
func (d DataChunk) ReadAll(src ByteSource) ([]byte, error) {
	buf := make([]byte, d.Size)
	if d.Size == 0 {
		return buf, nil
	}
	if err := d.Read(src, 0, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint32 reads a little-endian u32 at offsetWithinPayload.
func (d DataChunk) ReadUint32(src ByteSource, offsetWithinPayload uint64) (uint32, error) {
	var buf [4]byte
	if err := d.Read(src, offsetWithinPayload, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}
