package ogawa

import (
	"fmt"
)

// PropertyKind distinguishes the three property variants, each backed by
// a group chunk.
type PropertyKind int

const (
	PropertyCompound PropertyKind = iota
	PropertyScalar
	PropertyArray
)

func (k PropertyKind) String() string {
	switch k {
	case PropertyCompound:
		return "Compound"
	case PropertyScalar:
		return "Scalar"
	case PropertyArray:
		return "Array"
	default:
		return fmt.Sprintf("PropertyKind(%d)", int(k))
	}
}

// PropertyHeader is the decoded header of one property: everything needed
// to interpret the sibling group chunk's children as samples (or, for a
// compound, as sub-properties).
type PropertyHeader struct {
	Name     string
	Kind     PropertyKind
	Metadata Metadata
	DataType DataType

	TimeSamplingIndex uint32
	TimeSampling      TimeSampling

	IsScalarLike  bool
	IsHomogeneous bool

	NextSampleIndex   uint32
	FirstChangedIndex uint32
	LastChangedIndex  uint32
}

// mapIndex applies the deduplicated-sample-index remap (spec §3): for a
// logical sample index, returns the child index within the property's
// group chunk that holds the actual sample payload.
func (h PropertyHeader) mapIndex(index uint32) uint32 {
	if index < h.FirstChangedIndex || (h.FirstChangedIndex == 0 && h.LastChangedIndex == 0) {
		return 0
	}
	if index >= h.LastChangedIndex {
		return h.LastChangedIndex - h.FirstChangedIndex + 1
	}
	return index - h.FirstChangedIndex + 1
}

// IsConstant reports whether every logical sample of this property maps
// to the same backing chunk.
func (h PropertyHeader) IsConstant() bool { return h.FirstChangedIndex == 0 }

// bitCursor is a minimal position-tracking reader over an in-memory
// buffer, used for the hint-width variable-length fields of the
// property/object header blocks. Unlike the chunk-level reads, decoding a
// header block requires checking the exact byte position against the
// chunk size (to detect the trailing inline-metadata-omitted case), so a
// plain byte slice plus cursor is simpler than routing through ByteSource.
type bitCursor struct {
	buf []byte
	pos uint64
}

func (c *bitCursor) atEnd() bool { return c.pos == uint64(len(c.buf)) }

func (c *bitCursor) readU8() (uint8, error) {
	if c.pos+1 > uint64(len(c.buf)) {
		return 0, fmt.Errorf("header block truncated: %w", ErrInvalidArchive)
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

func (c *bitCursor) readU16() (uint16, error) {
	if c.pos+2 > uint64(len(c.buf)) {
		return 0, fmt.Errorf("header block truncated: %w", ErrInvalidArchive)
	}
	v := le.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *bitCursor) readU32() (uint32, error) {
	if c.pos+4 > uint64(len(c.buf)) {
		return 0, fmt.Errorf("header block truncated: %w", ErrInvalidArchive)
	}
	v := le.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *bitCursor) readString(n uint32) (string, error) {
	if c.pos+uint64(n) > uint64(len(c.buf)) {
		return "", fmt.Errorf("header block truncated: %w", ErrInvalidArchive)
	}
	s := string(c.buf[c.pos : c.pos+uint64(n)])
	c.pos += uint64(n)
	return s, nil
}

// readUintHint reads a variable-width unsigned integer, widened to u32,
// using the width selected by the info word's size_hint bits (0=u8,
// 1=u16, 2=u32).
func (c *bitCursor) readUintHint(sizeHint uint32) (uint32, error) {
	switch sizeHint {
	case 0:
		v, err := c.readU8()
		return uint32(v), err
	case 1:
		v, err := c.readU16()
		return uint32(v), err
	case 2:
		return c.readU32()
	default:
		return 0, fmt.Errorf("size hint %d out of range: %w", sizeHint, ErrInvalidArchive)
	}
}

// readPropertyHeaders decodes the property-header block: the data chunk
// held by the *last* child of a compound property's group. Each header
// begins with a u32 info word (see spec §4.6 for the bit layout) followed
// by a variable number of hint-width fields.
func readPropertyHeaders(src ByteSource, group GroupChunk, index uint64, indexedMetadata []Metadata, timeSamplings []TimeSampling) ([]PropertyHeader, error) {
	d, err := group.LoadData(src, index)
	if err != nil {
		return nil, err
	}
	if d.Size == 0 {
		return nil, nil
	}

	payload, err := d.ReadAll(src)
	if err != nil {
		return nil, err
	}

	c := &bitCursor{buf: payload}

	var headers []PropertyHeader
	for !c.atEnd() {
		info, err := c.readU32()
		if err != nil {
			return nil, err
		}

		kindBits := info & 0x3
		isScalarLike := kindBits&0x1 != 0
		var kind PropertyKind
		switch kindBits {
		case 0:
			kind = PropertyCompound
		case 1:
			kind = PropertyScalar
		default:
			kind = PropertyArray
		}

		sizeHint := (info >> 2) & 0x3

		h := PropertyHeader{Kind: kind, IsScalarLike: isScalarLike}

		if kind != PropertyCompound {
			podBits := (info >> 4) & 0xf
			if podBits > 13 && podBits != 127 {
				return nil, fmt.Errorf("pod tag %d out of range: %w", podBits, ErrInvalidArchive)
			}
			extent := (info >> 12) & 0xff
			h.DataType = DataType{Pod: PodType(podBits), Extent: extent}

			h.IsHomogeneous = info&0x400 != 0

			h.NextSampleIndex, err = c.readUintHint(sizeHint)
			if err != nil {
				return nil, err
			}

			switch {
			case info&0x0200 != 0:
				h.FirstChangedIndex, err = c.readUintHint(sizeHint)
				if err != nil {
					return nil, err
				}
				h.LastChangedIndex, err = c.readUintHint(sizeHint)
				if err != nil {
					return nil, err
				}
			case info&0x0800 != 0:
				h.FirstChangedIndex, h.LastChangedIndex = 0, 0
			default:
				h.FirstChangedIndex = 0
				h.LastChangedIndex = h.NextSampleIndex - 1
			}

			if info&0x0100 != 0 {
				h.TimeSamplingIndex, err = c.readUintHint(sizeHint)
				if err != nil {
					return nil, err
				}
			} else {
				h.TimeSamplingIndex = 0
			}

			if uint64(h.TimeSamplingIndex) >= uint64(len(timeSamplings)) {
				return nil, fmt.Errorf("time sampling index %d >= %d samplings: %w", h.TimeSamplingIndex, len(timeSamplings), ErrInvalidArchive)
			}
			h.TimeSampling = timeSamplings[h.TimeSamplingIndex]
		}

		nameSize, err := c.readUintHint(sizeHint)
		if err != nil {
			return nil, err
		}
		h.Name, err = c.readString(nameSize)
		if err != nil {
			return nil, err
		}

		metaIndex := (info >> 20) & 0xff
		switch {
		case metaIndex == 0xff:
			metaSize, err := c.readUintHint(sizeHint)
			if err != nil {
				return nil, err
			}
			if c.atEnd() {
				h.Metadata = deserializeMetadata("")
			} else {
				text, err := c.readString(metaSize)
				if err != nil {
					return nil, err
				}
				h.Metadata = deserializeMetadata(text)
			}
		case metaIndex < uint32(len(indexedMetadata)):
			h.Metadata = indexedMetadata[metaIndex]
		default:
			return nil, fmt.Errorf("metadata index %d >= %d indexed entries: %w", metaIndex, len(indexedMetadata), ErrInvalidArchive)
		}

		headers = append(headers, h)
	}

	return headers, nil
}

// Property is a named node of a compound property's sub-property list:
// compound (interior), scalar (single-value samples), or array
// (variable-length samples). Exactly one concrete accessor below applies,
// selected by Kind().
type Property interface {
	Name() string
	Kind() PropertyKind
	Header() PropertyHeader
}

// CompoundProperty enumerates child property headers and lets callers
// load each sub-property by position or name.
type CompoundProperty struct {
	group      GroupChunk
	headers    []PropertyHeader
	byName     map[string]int
	header     PropertyHeader
	indexedMD  []Metadata
	timeSamps  []TimeSampling
}

// newCompoundProperty builds a compound property from its backing group
// and owner metadata. If the group's last child is a data chunk, that
// chunk holds the property-header block for the sub-properties; each
// non-last child is the body of the sub-property at the same index.
func newCompoundProperty(src ByteSource, group GroupChunk, metadata Metadata, indexedMetadata []Metadata, timeSamplings []TimeSampling) (*CompoundProperty, error) {
	cp := &CompoundProperty{
		group:     group,
		byName:    make(map[string]int),
		indexedMD: indexedMetadata,
		timeSamps: timeSamplings,
		header: PropertyHeader{
			Kind:         PropertyCompound,
			Metadata:     metadata,
			IsScalarLike: true,
		},
	}

	childCount := group.ChildCount()
	if childCount > 0 {
		isData, err := group.ChildIsData(src, childCount-1)
		if err != nil {
			return nil, err
		}
		if isData {
			headers, err := readPropertyHeaders(src, group, childCount-1, indexedMetadata, timeSamplings)
			if err != nil {
				return nil, err
			}
			cp.headers = headers
			for i, h := range headers {
				cp.byName[h.Name] = i
			}
		}
	}

	return cp, nil
}

func (cp *CompoundProperty) Name() string          { return cp.header.Name }
func (cp *CompoundProperty) Kind() PropertyKind     { return PropertyCompound }
func (cp *CompoundProperty) Header() PropertyHeader { return cp.header }

// Count returns the number of sub-properties.
func (cp *CompoundProperty) Count() int { return len(cp.headers) }

// FindByName returns the index of the named sub-property, if present.
func (cp *CompoundProperty) FindByName(name string) (int, bool) {
	i, ok := cp.byName[name]
	return i, ok
}

// SubProperty loads the sub-property at index, dispatching to a
// CompoundProperty/ScalarProperty/ArrayProperty by its header's Kind.
func (cp *CompoundProperty) SubProperty(src ByteSource, index int) (Property, error) {
	if index < 0 || index >= len(cp.headers) {
		return nil, fmt.Errorf("sub-property %d of %d: %w", index, len(cp.headers), ErrOutOfBounds)
	}
	h := cp.headers[index]

	group, err := cp.group.LoadGroup(src, uint64(index), false)
	if err != nil {
		return nil, err
	}

	switch h.Kind {
	case PropertyCompound:
		return newCompoundProperty(src, group, h.Metadata, cp.indexedMD, cp.timeSamps)
	case PropertyScalar:
		return &ScalarProperty{group: group, header: h}, nil
	default:
		return &ArrayProperty{group: group, header: h}, nil
	}
}

// SubPropertyByName loads the named sub-property, returning ok=false if
// no sub-property has that name.
func (cp *CompoundProperty) SubPropertyByName(src ByteSource, name string) (Property, bool, error) {
	i, ok := cp.FindByName(name)
	if !ok {
		return nil, false, nil
	}
	p, err := cp.SubProperty(src, i)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// SubPropertyByNameChecked loads the named sub-property and asserts its
// (pod, extent) matches want. It returns ok=false if absent, and
// ErrIncompatibleSchema if present with the wrong data type.
func (cp *CompoundProperty) SubPropertyByNameChecked(src ByteSource, name string, want DataType) (Property, bool, error) {
	p, ok, err := cp.SubPropertyByName(src, name)
	if err != nil || !ok {
		return nil, ok, err
	}

	if p.Header().DataType != want {
		return nil, false, fmt.Errorf("sub-property %q has type %+v, want %+v: %w", name, p.Header().DataType, want, ErrIncompatibleSchema)
	}

	return p, true, nil
}

// ScalarProperty exposes time-indexed single-value samples, backed by a
// group chunk of data-chunk children plus a deduplication remap.
type ScalarProperty struct {
	group  GroupChunk
	header PropertyHeader
}

func (p *ScalarProperty) Name() string          { return p.header.Name }
func (p *ScalarProperty) Kind() PropertyKind     { return PropertyScalar }
func (p *ScalarProperty) Header() PropertyHeader { return p.header }

// SampleCount returns the logical sample count (next_sample_index).
func (p *ScalarProperty) SampleCount() uint32 { return p.header.NextSampleIndex }

// IsConstant reports whether every logical sample loads the same bytes.
func (p *ScalarProperty) IsConstant() bool { return p.header.IsConstant() }

// LoadSample decodes the typed-array payload for logical sample index.
func (p *ScalarProperty) LoadSample(src ByteSource, index uint32) (TypedArray, error) {
	if index >= p.header.NextSampleIndex {
		return TypedArray{}, fmt.Errorf("sample %d of %d: %w", index, p.header.NextSampleIndex, ErrOutOfBounds)
	}
	mapped := p.header.mapIndex(index)
	d, err := p.group.LoadData(src, uint64(mapped))
	if err != nil {
		return TypedArray{}, err
	}
	return decodeTypedArray(src, d, p.header.DataType.Pod)
}

// SampleSize returns the raw byte size of the chunk backing logical
// sample index.
func (p *ScalarProperty) SampleSize(src ByteSource, index uint32) (uint64, error) {
	if index >= p.header.NextSampleIndex {
		return 0, fmt.Errorf("sample %d of %d: %w", index, p.header.NextSampleIndex, ErrOutOfBounds)
	}
	mapped := p.header.mapIndex(index)
	d, err := p.group.LoadData(src, uint64(mapped))
	if err != nil {
		return 0, err
	}
	return d.Size, nil
}

// ArrayProperty exposes time-indexed variable-length samples. It has the
// identical shape to [ScalarProperty]; the two are kept as distinct types
// (rather than unified) because the schema layer dispatches on Kind() and
// because a future writer-side implementation would size array vs scalar
// storage differently.
type ArrayProperty struct {
	group  GroupChunk
	header PropertyHeader
}

func (p *ArrayProperty) Name() string          { return p.header.Name }
func (p *ArrayProperty) Kind() PropertyKind     { return PropertyArray }
func (p *ArrayProperty) Header() PropertyHeader { return p.header }

func (p *ArrayProperty) SampleCount() uint32 { return p.header.NextSampleIndex }
func (p *ArrayProperty) IsConstant() bool    { return p.header.IsConstant() }

func (p *ArrayProperty) LoadSample(src ByteSource, index uint32) (TypedArray, error) {
	if index >= p.header.NextSampleIndex {
		return TypedArray{}, fmt.Errorf("sample %d of %d: %w", index, p.header.NextSampleIndex, ErrOutOfBounds)
	}
	mapped := p.header.mapIndex(index)
	d, err := p.group.LoadData(src, uint64(mapped))
	if err != nil {
		return TypedArray{}, err
	}
	return decodeTypedArray(src, d, p.header.DataType.Pod)
}

func (p *ArrayProperty) SampleSize(src ByteSource, index uint32) (uint64, error) {
	if index >= p.header.NextSampleIndex {
		return 0, fmt.Errorf("sample %d of %d: %w", index, p.header.NextSampleIndex, ErrOutOfBounds)
	}
	mapped := p.header.mapIndex(index)
	d, err := p.group.LoadData(src, uint64(mapped))
	if err != nil {
		return 0, err
	}
	return d.Size, nil
}

// AsCompound asserts p is a *CompoundProperty.
func AsCompound(p Property) (*CompoundProperty, bool) {
	cp, ok := p.(*CompoundProperty)
	return cp, ok
}

// AsScalar asserts p is a *ScalarProperty.
func AsScalar(p Property) (*ScalarProperty, bool) {
	sp, ok := p.(*ScalarProperty)
	return sp, ok
}

// AsArray asserts p is a *ArrayProperty.
func AsArray(p Property) (*ArrayProperty, bool) {
	ap, ok := p.(*ArrayProperty)
	return ap, ok
}
