package ogawa

import "fmt"

var magic = [5]byte{0x4f, 0x67, 0x61, 0x77, 0x61} // "Ogawa"

// OpenOption configures [Open]. Modelled on the functional-options shape
// the rest of this package's ancestry uses for optional behavior.
type OpenOption func(*openConfig)

type openConfig struct {
	lightGroups bool
}

// WithLightGroups toggles whether the root object's group (fixture 2 of
// the archive's root group) is loaded in the spec's "light" decode mode
// (deferring child-offset-vector materialisation for groups with >= 9
// children). Defaults to true: most callers walk a handful of children
// out of a potentially enormous root object. The archive's own root group
// and every group loaded below the root object (child objects and
// properties) are always loaded eagerly, whatever this option says.
func WithLightGroups(enabled bool) OpenOption {
	return func(c *openConfig) { c.lightGroups = enabled }
}

// Archive is the root envelope: the parsed file magic/version plus the
// six top-level fixtures, and an accessor for the root object.
type Archive struct {
	ArchiveVersion     uint32
	FileVersion        uint32
	AlembicFileVersion uint16

	RootMetadata    Metadata
	TimeSamplings   []TimeSampling
	MaxSamples      []int64
	IndexedMetadata []Metadata

	src         ByteSource
	rootGroup   GroupChunk
	lightGroups bool
}

// Open parses src as an Ogawa archive: magic, version, and the six
// top-level fixtures (archive version, file version, root object group,
// root metadata, time samplings, indexed metadata).
func Open(src ByteSource, opts ...OpenOption) (*Archive, error) {
	cfg := openConfig{lightGroups: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := src.Seek(0); err != nil {
		return nil, err
	}

	var magicBuf [5]byte
	if err := src.ReadExact(magicBuf[:]); err != nil {
		return nil, err
	}
	if magicBuf != magic {
		return nil, fmt.Errorf("bad magic %x: %w", magicBuf, ErrUnsupportedArchive)
	}

	var frozenBuf [1]byte
	if err := src.ReadExact(frozenBuf[:]); err != nil {
		return nil, err
	}

	var u16Buf [2]byte
	if err := src.ReadExact(u16Buf[:]); err != nil {
		return nil, err
	}
	alembicFileVersion := le.Uint16(u16Buf[:])
	if alembicFileVersion >= 9999 {
		return nil, fmt.Errorf("archive-file version %d unsupported: %w", alembicFileVersion, ErrUnsupportedArchive)
	}

	var u64Buf [8]byte
	if err := src.ReadExact(u64Buf[:]); err != nil {
		return nil, err
	}
	rootGroupOffset := le.Uint64(u64Buf[:])

	rootGroup, err := loadGroupChunk(src, rootGroupOffset, false)
	if err != nil {
		return nil, err
	}

	if rootGroup.ChildCount() < 6 {
		return nil, fmt.Errorf("root group has %d children, want >= 6: %w", rootGroup.ChildCount(), ErrInvalidArchive)
	}

	kinds := []struct {
		index   uint64
		wantGrp bool
	}{
		{0, false}, // version
		{1, false}, // file version
		{2, true},  // root object group
		{3, false}, // metadata
		{4, false}, // time sampling
		{5, false}, // indexed metadata
	}
	for _, k := range kinds {
		isGroup, err := rootGroup.ChildIsGroup(src, k.index)
		if err != nil {
			return nil, err
		}
		if isGroup != k.wantGrp {
			return nil, fmt.Errorf("root fixture %d has wrong chunk kind: %w", k.index, ErrInvalidArchive)
		}
	}

	versionData, err := rootGroup.LoadData(src, 0)
	if err != nil {
		return nil, err
	}
	archiveVersion, err := versionData.ReadUint32(src, 0)
	if err != nil {
		return nil, err
	}

	fileVersionData, err := rootGroup.LoadData(src, 1)
	if err != nil {
		return nil, err
	}
	fileVersion, err := fileVersionData.ReadUint32(src, 0)
	if err != nil {
		return nil, err
	}

	metadataData, err := rootGroup.LoadData(src, 3)
	if err != nil {
		return nil, err
	}
	metadataBytes, err := metadataData.ReadAll(src)
	if err != nil {
		return nil, err
	}
	rootMetadata := deserializeMetadata(string(metadataBytes))

	timeSamplingData, err := rootGroup.LoadData(src, 4)
	if err != nil {
		return nil, err
	}
	timeSamplings, maxSamples, err := readTimeSamplingsAndMax(src, timeSamplingData)
	if err != nil {
		return nil, err
	}
	// Every archive carries an implicit default sampling at index 0 even
	// when the stored table is empty (spec §8 S1: "time_samplings.len()
	// == 1 (the default)").
	if len(timeSamplings) == 0 {
		timeSamplings = []TimeSampling{{NumSamplesPerCycle: 0, TimePerCycle: 0}}
		maxSamples = []int64{0}
	}

	indexedMetadataData, err := rootGroup.LoadData(src, 5)
	if err != nil {
		return nil, err
	}
	indexedMetadata, err := readIndexedMetadataTable(src, indexedMetadataData)
	if err != nil {
		return nil, err
	}

	return &Archive{
		ArchiveVersion:     archiveVersion,
		FileVersion:        fileVersion,
		AlembicFileVersion: alembicFileVersion,
		RootMetadata:       rootMetadata,
		TimeSamplings:      timeSamplings,
		MaxSamples:         maxSamples,
		IndexedMetadata:    indexedMetadata,
		src:                src,
		rootGroup:          rootGroup,
		lightGroups:        cfg.lightGroups,
	}, nil
}

// RootObject decodes and returns the synthesised root object: name "ABC",
// full name "/", carrying the archive's root metadata.
func (a *Archive) RootObject() (*Object, error) {
	group, err := a.rootGroup.LoadGroup(a.src, 2, a.lightGroups)
	if err != nil {
		return nil, err
	}

	header := ObjectHeader{
		Name:     "ABC",
		FullName: "/",
		Metadata: a.RootMetadata,
	}

	return newObject(a.src, group, "", header, a.IndexedMetadata, a.TimeSamplings)
}
