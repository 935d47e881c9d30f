package ogawa

import (
	"encoding/binary"
	"math"
)

// memByteSource is an in-memory [ByteSource] used throughout the test
// suite to exercise the decoder against hand-built byte buffers without
// needing real files on disk.
type memByteSource struct {
	buf []byte
	pos uint64
}

func newMemByteSource(buf []byte) *memByteSource {
	return &memByteSource{buf: buf}
}

func (m *memByteSource) Size() uint64 { return uint64(len(m.buf)) }

func (m *memByteSource) Seek(offset uint64) error {
	if offset > uint64(len(m.buf)) {
		return ErrIO
	}
	m.pos = offset
	return nil
}

func (m *memByteSource) ReadExact(buf []byte) error {
	if m.pos+uint64(len(buf)) > uint64(len(m.buf)) {
		return ErrIO
	}
	copy(buf, m.buf[m.pos:m.pos+uint64(len(buf))])
	m.pos += uint64(len(buf))
	return nil
}

// chunkBuilder appends group/data chunks to a growing byte buffer and
// returns tagged offsets suitable for use as group children, modelling
// the same chunk graph the real decoder reads.
type chunkBuilder struct {
	buf []byte
}

// newChunkBuilder seeds the buffer with leading padding so that no real
// chunk ever lands at absolute position 0, which the decoder reserves for
// the empty-group/empty-data sentinels.
func newChunkBuilder() *chunkBuilder {
	return &chunkBuilder{buf: make([]byte, 16)}
}

func (b *chunkBuilder) dataChunk(payload []byte) uint64 {
	if len(payload) == 0 {
		return emptyDataTag
	}

	position := uint64(len(b.buf))
	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(len(payload)))
	b.buf = append(b.buf, sizeBuf[:]...)
	b.buf = append(b.buf, payload...)
	return position | groupTagBit
}

// typedArrayPayload builds a typed-array data-chunk payload: the 16-byte
// inner header decodeTypedArray skips (unused by the decoder beyond its
// presence) followed by the raw little-endian element bytes.
func typedArrayPayload(elems []byte) []byte {
	out := make([]byte, 16, 16+len(elems))
	return append(out, elems...)
}

func (b *chunkBuilder) groupChunk(children []uint64) uint64 {
	if len(children) == 0 {
		return emptyGroup
	}

	position := uint64(len(b.buf))
	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(children)))
	b.buf = append(b.buf, countBuf[:]...)

	for _, c := range children {
		var cb [8]byte
		binary.LittleEndian.PutUint64(cb[:], c)
		b.buf = append(b.buf, cb[:]...)
	}

	return position
}

func u32le(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func u64le(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

func f32le(v float32) []byte {
	return u32le(math.Float32bits(v))
}

func f64le(v float64) []byte {
	return u64le(math.Float64bits(v))
}

// headerField describes one property header to be packed into a
// property-header block by propertyHeaderBlock.
type headerField struct {
	name              string
	kind              PropertyKind
	pod               PodType
	extent            uint32
	isHomogeneous     bool
	nextSampleIndex   uint32
	firstChangedIndex uint32
	lastChangedIndex  uint32
	explicitChanged   bool // emit bit 9 (explicit first/last) rather than the implicit-from-next rule
	noSamplesChange   bool // emit bit 11
	metadataInline    string
}

// propertyHeaderBlock packs a sequence of property headers using a fixed
// size_hint of 2 (u32-width variable fields), matching the property-header
// block decoder's bit layout (spec §4.6).
func propertyHeaderBlock(fields []headerField) []byte {
	var out []byte
	const sizeHint = 2

	for _, f := range fields {
		info := uint32(0)
		switch f.kind {
		case PropertyCompound:
			info |= 0
		case PropertyScalar:
			info |= 1
		case PropertyArray:
			info |= 2
		}
		info |= sizeHint << 2

		if f.kind != PropertyCompound {
			info |= uint32(f.pod) << 4
			info |= (f.extent & 0xff) << 12
			if f.isHomogeneous {
				info |= 1 << 10
			}
			if f.explicitChanged {
				info |= 1 << 9
			} else if f.noSamplesChange {
				info |= 1 << 11
			}
		}

		info |= 0xff << 20 // always inline metadata in test fixtures

		out = append(out, u32le(info)...)

		if f.kind != PropertyCompound {
			out = append(out, u32le(f.nextSampleIndex)...)
			if f.explicitChanged {
				out = append(out, u32le(f.firstChangedIndex)...)
				out = append(out, u32le(f.lastChangedIndex)...)
			}
			// bit 8 (explicit time sampling index) left unset: defaults to 0.
		}

		out = append(out, u32le(uint32(len(f.name)))...)
		out = append(out, []byte(f.name)...)

		out = append(out, u32le(uint32(len(f.metadataInline)))...)
		out = append(out, []byte(f.metadataInline)...)
	}

	return out
}
