package ogawa

import "fmt"

// ObjectHeader identifies an object: its leaf name, its slash-joined
// absolute path, and its metadata.
type ObjectHeader struct {
	Name     string
	FullName string
	Metadata Metadata
}

// Object owns a compound-property root and a list of named children.
// Traversal is lazy and random-access: a child is only decoded when
// [Object.Child] is called for it.
type Object struct {
	Header     ObjectHeader
	group      GroupChunk
	properties *CompoundProperty
	children   []ObjectHeader
	childIndex map[string]int

	indexedMetadata []Metadata
	timeSamplings   []TimeSampling
}

// newObject decodes an object from its backing group chunk. If the group
// has >= 1 child and its last child is a data chunk, that chunk holds the
// object-header block describing this object's named children. If child 0
// is a group chunk, it is this object's compound-property root.
func newObject(src ByteSource, group GroupChunk, parentName string, header ObjectHeader, indexedMetadata []Metadata, timeSamplings []TimeSampling) (*Object, error) {
	o := &Object{
		Header:          header,
		group:           group,
		childIndex:      make(map[string]int),
		indexedMetadata: indexedMetadata,
		timeSamplings:   timeSamplings,
	}

	childCount := group.ChildCount()
	if childCount == 0 {
		return o, nil
	}

	lastIsData, err := group.ChildIsData(src, childCount-1)
	if err != nil {
		return nil, err
	}
	if lastIsData {
		children, err := readObjectHeaders(src, group, childCount-1, parentName, indexedMetadata)
		if err != nil {
			return nil, err
		}
		o.children = children
		for i, c := range children {
			o.childIndex[c.Name] = i
		}
	}

	firstIsGroup, err := group.ChildIsGroup(src, 0)
	if err != nil {
		return nil, err
	}
	if firstIsGroup {
		propGroup, err := group.LoadGroup(src, 0, false)
		if err != nil {
			return nil, err
		}
		cp, err := newCompoundProperty(src, propGroup, header.Metadata, indexedMetadata, timeSamplings)
		if err != nil {
			return nil, err
		}
		o.properties = cp
	}

	return o, nil
}

// ChildCount returns the number of named children.
func (o *Object) ChildCount() int { return len(o.children) }

// Properties returns this object's compound-property root. ok is false
// when the object has no property root at all (an empty leaf object).
func (o *Object) Properties() (*CompoundProperty, bool) {
	return o.properties, o.properties != nil
}

// Child loads child index i as an [Object]. Loading the same child twice
// yields objects with equal headers and equal property-tree shapes,
// independent of byte-source cursor state (spec §8 property 5).
func (o *Object) Child(src ByteSource, i int) (*Object, error) {
	if i < 0 || i >= len(o.children) {
		return nil, fmt.Errorf("child %d of %d: %w", i, len(o.children), ErrOutOfBounds)
	}

	childGroup, err := o.group.LoadGroup(src, uint64(i+1), false)
	if err != nil {
		return nil, err
	}

	return newObject(src, childGroup, o.children[i].FullName, o.children[i], o.indexedMetadata, o.timeSamplings)
}

// ChildByName loads the named child, returning ok=false if no child has
// that name.
func (o *Object) ChildByName(src ByteSource, name string) (*Object, bool, error) {
	i, ok := o.childIndex[name]
	if !ok {
		return nil, false, nil
	}
	child, err := o.Child(src, i)
	if err != nil {
		return nil, false, err
	}
	return child, true, nil
}

// readObjectHeaders decodes the object-header block: the data chunk held
// by the last child of the object's group. The trailing 32 bytes of that
// chunk are per-child hash digests that are never validated (spec §9
// Design Notes, resolved open question); they are excluded from the
// decode buffer entirely rather than read and discarded.
func readObjectHeaders(src ByteSource, group GroupChunk, index uint64, parentName string, indexedMetadata []Metadata) ([]ObjectHeader, error) {
	d, err := group.LoadData(src, index)
	if err != nil {
		return nil, err
	}

	if d.Size <= 32 {
		return nil, nil
	}

	buf := make([]byte, d.Size-32)
	if err := d.Read(src, 0, buf); err != nil {
		return nil, err
	}

	c := &bitCursor{buf: buf}

	var headers []ObjectHeader
	for !c.atEnd() {
		nameSize, err := c.readU32()
		if err != nil {
			return nil, err
		}
		name, err := c.readString(nameSize)
		if err != nil {
			return nil, err
		}

		metaIndex, err := c.readU8()
		if err != nil {
			return nil, err
		}

		var metadata Metadata
		switch {
		case metaIndex == 0xff:
			metaSize, err := c.readU32()
			if err != nil {
				return nil, err
			}
			text, err := c.readString(metaSize)
			if err != nil {
				return nil, err
			}
			metadata = deserializeMetadata(text)
		case int(metaIndex) < len(indexedMetadata):
			metadata = indexedMetadata[metaIndex]
		default:
			return nil, fmt.Errorf("object metadata index %d >= %d indexed entries: %w", metaIndex, len(indexedMetadata), ErrInvalidArchive)
		}

		headers = append(headers, ObjectHeader{
			Name:     name,
			FullName: parentName + "/" + name,
			Metadata: metadata,
		})
	}

	return headers, nil
}
