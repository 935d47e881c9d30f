package ogawa

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// buildEnvelope wraps a chunkBuilder's chunk graph with the 16-byte
// archive envelope header (magic, frozen flag, alembic file version,
// root group offset), reusing the builder's leading padding as the
// envelope's own bytes.
func buildEnvelope(b *chunkBuilder, alembicFileVersion uint16, rootGroupOffset uint64) []byte {
	buf := b.buf
	copy(buf[0:5], magic[:])
	buf[5] = 0
	le.PutUint16(buf[6:8], alembicFileVersion)
	le.PutUint64(buf[8:16], rootGroupOffset)
	return buf
}

func TestOpenEmptyArchive(t *testing.T) {
	// Spec §8 S1: magic + version 1 + a root group whose four structural
	// fixtures (root object group, metadata, time samplings, indexed
	// metadata) are all empty.
	b := newChunkBuilder()

	archiveVersionData := b.dataChunk(u32le(1))
	fileVersionData := b.dataChunk(u32le(1))

	rootGroupOff := b.groupChunk([]uint64{
		archiveVersionData,
		fileVersionData,
		emptyGroup,   // root object group: zero children
		emptyDataTag, // metadata: empty string
		emptyDataTag, // time samplings: empty table
		emptyDataTag, // indexed metadata: empty table
	})

	buf := buildEnvelope(b, 1, rootGroupOff)
	src := newMemByteSource(buf)

	archive, err := Open(src)
	require.NoError(t, err)
	require.Equal(t, uint32(1), archive.ArchiveVersion)
	require.Equal(t, uint32(1), archive.FileVersion)

	require.Len(t, archive.TimeSamplings, 1, "default sampling synthesised when the table is empty")
	require.Len(t, archive.IndexedMetadata, 1, "entry 0 is always present and empty")
	require.Equal(t, 0, archive.IndexedMetadata[0].Len())

	root, err := archive.RootObject()
	require.NoError(t, err)
	require.Equal(t, "ABC", root.Header.Name)
	require.Equal(t, "/", root.Header.FullName)
	require.Equal(t, 0, root.ChildCount())
}

func TestOpenBadMagicFails(t *testing.T) {
	// Spec §8 S2: a buffer whose first 5 bytes don't spell "Ogawa" is
	// rejected before any chunk is ever touched.
	buf := make([]byte, 32)
	copy(buf, []byte("NotOga"))

	src := newMemByteSource(buf)
	_, err := Open(src)
	require.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestOpenUnsupportedFileVersionFails(t *testing.T) {
	b := newChunkBuilder()
	rootGroupOff := b.groupChunk([]uint64{
		b.dataChunk(u32le(1)), b.dataChunk(u32le(1)),
		emptyGroup, emptyDataTag, emptyDataTag, emptyDataTag,
	})
	buf := buildEnvelope(b, 9999, rootGroupOff)

	src := newMemByteSource(buf)
	_, err := Open(src)
	require.ErrorIs(t, err, ErrUnsupportedArchive)
}

func TestOpenRootGroupTooFewChildrenFails(t *testing.T) {
	b := newChunkBuilder()
	rootGroupOff := b.groupChunk([]uint64{b.dataChunk(u32le(1)), b.dataChunk(u32le(1))})
	buf := buildEnvelope(b, 1, rootGroupOff)

	src := newMemByteSource(buf)
	_, err := Open(src)
	require.ErrorIs(t, err, ErrInvalidArchive)
}

func TestArchiveTopLevelFixturesStableAcrossDecodes(t *testing.T) {
	// Two independent decodes of the same bytes must produce structurally
	// identical top-level fixtures; cmp.Diff over the decoded trees is a
	// stronger check than comparing individual fields by hand, and reports
	// the exact path that diverged if a future change breaks it.
	b := newChunkBuilder()

	archiveVersionData := b.dataChunk(u32le(1))
	fileVersionData := b.dataChunk(u32le(1))
	metadataData := b.dataChunk([]byte("foo=bar;baz=qux"))

	var tsPayload []byte
	tsPayload = append(tsPayload, u32le(5)...)
	tsPayload = append(tsPayload, f64le(1.0/24)...)
	tsPayload = append(tsPayload, u32le(2)...)
	tsPayload = append(tsPayload, f64le(0.0)...)
	tsPayload = append(tsPayload, f64le(0.5)...)
	timeSamplingsData := b.dataChunk(tsPayload)

	entry := "k=v"
	imPayload := append([]byte{byte(len(entry))}, []byte(entry)...)
	indexedMetadataData := b.dataChunk(imPayload)

	rootGroupOff := b.groupChunk([]uint64{
		archiveVersionData,
		fileVersionData,
		emptyGroup,
		metadataData,
		timeSamplingsData,
		indexedMetadataData,
	})

	buf := buildEnvelope(b, 1, rootGroupOff)

	open := func() *Archive {
		archive, err := Open(newMemByteSource(buf))
		require.NoError(t, err)
		return archive
	}

	first, second := open(), open()

	metadataComparer := cmp.Comparer(func(x, y Metadata) bool {
		return x.Serialize() == y.Serialize()
	})

	if diff := cmp.Diff(first.TimeSamplings, second.TimeSamplings); diff != "" {
		t.Errorf("time samplings diverged across independent decodes (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.RootMetadata, second.RootMetadata, metadataComparer); diff != "" {
		t.Errorf("root metadata diverged across independent decodes (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.IndexedMetadata, second.IndexedMetadata, metadataComparer); diff != "" {
		t.Errorf("indexed metadata diverged across independent decodes (-first +second):\n%s", diff)
	}
}

func TestOpenRootFixtureWrongKindFails(t *testing.T) {
	b := newChunkBuilder()
	// Root fixture 2 (root object group) must be a group chunk; supply a
	// data chunk instead.
	rootGroupOff := b.groupChunk([]uint64{
		b.dataChunk(u32le(1)), b.dataChunk(u32le(1)),
		b.dataChunk([]byte("not a group")),
		emptyDataTag, emptyDataTag, emptyDataTag,
	})
	buf := buildEnvelope(b, 1, rootGroupOff)

	src := newMemByteSource(buf)
	_, err := Open(src)
	require.ErrorIs(t, err, ErrInvalidArchive)
}
