package ogawa

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// PodType is one of the 15 elementary element types a typed array can
// hold. The numeric values match the on-disk tag.
type PodType uint8

const (
	PodBoolean PodType = 0
	PodU8      PodType = 1
	PodI8      PodType = 2
	PodU16     PodType = 3
	PodI16     PodType = 4
	PodU32     PodType = 5
	PodI32     PodType = 6
	PodU64     PodType = 7
	PodI64     PodType = 8
	PodF16     PodType = 9
	PodF32     PodType = 10
	PodF64     PodType = 11
	PodString  PodType = 12
	PodWString PodType = 13
	PodUnknown PodType = 127
)

func (p PodType) String() string {
	switch p {
	case PodBoolean:
		return "Boolean"
	case PodU8:
		return "U8"
	case PodI8:
		return "I8"
	case PodU16:
		return "U16"
	case PodI16:
		return "I16"
	case PodU32:
		return "U32"
	case PodI32:
		return "I32"
	case PodU64:
		return "U64"
	case PodI64:
		return "I64"
	case PodF16:
		return "F16"
	case PodF32:
		return "F32"
	case PodF64:
		return "F64"
	case PodString:
		return "String"
	case PodWString:
		return "WString"
	case PodUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("PodType(%d)", uint8(p))
	}
}

// podSize returns the on-disk element size in bytes for fixed-width POD
// types. It returns (0, false) for String/WString/Unknown, which have no
// fixed element size.
func podSize(p PodType) (int, bool) {
	switch p {
	case PodBoolean, PodU8, PodI8:
		return 1, true
	case PodU16, PodI16, PodF16:
		return 2, true
	case PodU32, PodI32, PodF32:
		return 4, true
	case PodU64, PodI64, PodF64:
		return 8, true
	default:
		return 0, false
	}
}

// DataType is the (pod, extent) pair carried by every non-compound
// property header: the element type plus the tuple width.
type DataType struct {
	Pod    PodType
	Extent uint32
}

// TypedArray is the decoded payload of a typed-array data chunk: a tagged
// union over the 15 POD variants. At most one of the slice fields is set,
// matching the property's declared [PodType]; none is set when the chunk
// is empty.
type TypedArray struct {
	Pod      PodType
	Bool     []bool // unused: decodeTypedArray rejects PodBoolean as unsupported
	U8       []uint8
	I8       []int8
	U16      []uint16
	I16      []int16
	U32      []uint32
	I32      []int32
	U64      []uint64
	I64      []int64
	F16      []uint16 // raw little-endian half-precision bit patterns; not converted to a float type
	F32      []float32
	F64      []float64
	String   []string
	WString  []string
}

// decodeTypedArray reads a data chunk's payload as a homogeneous array of
// the given POD type. The first 16 bytes of the payload (which follows the
// 8-byte length prefix the chunk layer already consumed) are a header and
// are skipped; numeric arrays then decode (size-16)/sizeof(pod)
// little-endian scalars. Strings scan the tail for null-byte separators
// and must be valid UTF-8.
func decodeTypedArray(src ByteSource, d DataChunk, pod PodType) (TypedArray, error) {
	if d.Size == 0 {
		return TypedArray{Pod: pod}, nil
	}

	switch pod {
	case PodWString, PodBoolean, PodUnknown:
		return TypedArray{}, fmt.Errorf("pod type %s in typed-array decode: %w", pod, ErrUnsupportedArchive)
	}

	if d.Size < 16 {
		return TypedArray{}, fmt.Errorf("typed-array chunk size %d below minimum 16: %w", d.Size, ErrInvalidArchive)
	}

	payload, err := d.ReadAll(src)
	if err != nil {
		return TypedArray{}, err
	}
	body := payload[16:]

	if pod == PodString {
		strs := splitNullSeparated(body)
		for _, s := range strs {
			if !utf8.ValidString(s) {
				return TypedArray{}, fmt.Errorf("string typed-array element is not valid UTF-8: %w", ErrInvalidArchive)
			}
		}
		return TypedArray{Pod: pod, String: strs}, nil
	}

	elemSize, ok := podSize(pod)
	if !ok {
		return TypedArray{}, fmt.Errorf("pod type %s has no fixed element size: %w", pod, ErrInvalidArchive)
	}

	if len(body)%elemSize != 0 {
		return TypedArray{}, fmt.Errorf("typed-array body length %d not divisible by element size %d: %w",
			len(body), elemSize, ErrInvalidArchive)
	}
	count := len(body) / elemSize

	switch pod {
	case PodU8:
		out := make([]uint8, count)
		copy(out, body)
		return TypedArray{Pod: pod, U8: out}, nil
	case PodI8:
		out := make([]int8, count)
		for i := range out {
			out[i] = int8(body[i])
		}
		return TypedArray{Pod: pod, I8: out}, nil
	case PodU16:
		out := make([]uint16, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint16(body[i*2:])
		}
		return TypedArray{Pod: pod, U16: out}, nil
	case PodI16:
		out := make([]int16, count)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(body[i*2:]))
		}
		return TypedArray{Pod: pod, I16: out}, nil
	case PodF16:
		out := make([]uint16, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint16(body[i*2:])
		}
		return TypedArray{Pod: pod, F16: out}, nil
	case PodU32:
		out := make([]uint32, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(body[i*4:])
		}
		return TypedArray{Pod: pod, U32: out}, nil
	case PodI32:
		out := make([]int32, count)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(body[i*4:]))
		}
		return TypedArray{Pod: pod, I32: out}, nil
	case PodF32:
		out := make([]float32, count)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
		}
		return TypedArray{Pod: pod, F32: out}, nil
	case PodU64:
		out := make([]uint64, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint64(body[i*8:])
		}
		return TypedArray{Pod: pod, U64: out}, nil
	case PodI64:
		out := make([]int64, count)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(body[i*8:]))
		}
		return TypedArray{Pod: pod, I64: out}, nil
	case PodF64:
		out := make([]float64, count)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(body[i*8:]))
		}
		return TypedArray{Pod: pod, F64: out}, nil
	default:
		return TypedArray{}, fmt.Errorf("pod type %s in typed-array decode: %w", pod, ErrUnsupportedArchive)
	}
}

// splitNullSeparated scans body for null-terminated UTF-8 strings. An
// unterminated trailing fragment (no null byte before the end of body) is
// discarded rather than returned as a final string.
func splitNullSeparated(body []byte) []string {
	var out []string
	start := 0
	for i, b := range body {
		if b == 0 {
			out = append(out, string(body[start:i]))
			start = i + 1
		}
	}
	return out
}

// chunkVectorBy3 reinterprets a flat float32 slice as a slice of 3-tuples,
// used by positions/normals/velocities in the geometry schemas.
func chunkVectorBy3(flat []float32) ([][3]float32, error) {
	if len(flat)%3 != 0 {
		return nil, fmt.Errorf("float32 array of length %d not divisible by 3: %w", len(flat), ErrInvalidArchive)
	}
	out := make([][3]float32, len(flat)/3)
	for i := range out {
		out[i] = [3]float32{flat[i*3], flat[i*3+1], flat[i*3+2]}
	}
	return out, nil
}

// chunkVectorBy2 reinterprets a flat float32 slice as a slice of 2-tuples
// (uv coordinates).
func chunkVectorBy2(flat []float32) ([][2]float32, error) {
	if len(flat)%2 != 0 {
		return nil, fmt.Errorf("float32 array of length %d not divisible by 2: %w", len(flat), ErrInvalidArchive)
	}
	out := make([][2]float32, len(flat)/2)
	for i := range out {
		out[i] = [2]float32{flat[i*2], flat[i*2+1]}
	}
	return out, nil
}
